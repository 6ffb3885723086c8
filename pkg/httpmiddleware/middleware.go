package httpmiddleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"

	"office_word_mcp_server/pkg/circuitbreaker"
	"office_word_mcp_server/pkg/ratelimiter"
)

type subjectKey struct{}

// WithSubject stores the authenticated subject in ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// Subject returns the subject stored by JWTAuth, or "".
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// PropagateSubject copies the subject of r into ctx. The MCP transports run
// tool calls on their own contexts and use this as their context hook.
func PropagateSubject(ctx context.Context, r *http.Request) context.Context {
	if s := Subject(r.Context()); s != "" {
		return WithSubject(ctx, s)
	}
	return ctx
}

// ClientKey identifies the caller of r for rate limiting: the remote IP, or
// the first X-Forwarded-For address when trustForwardedFor is set. Clients
// can write that header freely, so only trust it behind a proxy that sets it.
func ClientKey(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if fwd := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0]); fwd != "" {
			return fwd
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit is a middleware that applies one limiter per client.
func RateLimit(limiter *ratelimiter.Keyed, trustForwardedFor bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ClientKey(r, trustForwardedFor)) {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter is a wrapper for http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streams working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// CircuitBreak is a middleware that applies the circuit breaker pattern to an HTTP handler.
// It considers HTTP status codes >= 500 as failures.
func CircuitBreak(breaker *circuitbreaker.Breaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			err := breaker.Do(func() error {
				next.ServeHTTP(rw, r)
				if rw.statusCode >= http.StatusInternalServerError {
					return fmt.Errorf("server error: status code %d", rw.statusCode)
				}
				return nil
			})
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				http.Error(w, "Service Unavailable: Circuit Breaker is open", http.StatusServiceUnavailable)
			}
			// Other errors were already written by next.
		})
	}
}

// JWTAuth 验证 "Bearer <token>" 形式的 HS256 token，并把 sub 声明写入请求上下文。
// exempt 中的路径不做校验。
func JWTAuth(secret string, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			// 我们期望的格式是 "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "malformed authorization header", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				// 确保 token 的签名方法是我们期望的
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}
			var subject string
			switch sub := claims["sub"].(type) {
			case string:
				subject = sub
			case float64:
				// JWT 解析数字时默认为 float64
				subject = fmt.Sprintf("%.0f", sub)
			default:
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}
