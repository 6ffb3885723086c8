// Package audit publishes one event per tool call.
package audit

import (
	"context"
	"time"

	"office_word_mcp_server/pkg/logger"
)

// Event describes a finished tool call.
type Event struct {
	TraceID    string    `json:"trace_id"`
	Tool       string    `json:"tool"`
	Document   string    `json:"document,omitempty"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers audit events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// LogPublisher 将审计事件写入结构化日志，未配置 Kafka 时使用。
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher 创建一个写日志的 Publisher。
func NewLogPublisher(service string) *LogPublisher {
	return &LogPublisher{log: logger.New(service, "", "")}
}

// Publish 记录一条 info 级别的审计日志。
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.WithField("trace_id", e.TraceID).WithPayload(map[string]interface{}{
		"tool":        e.Tool,
		"document":    e.Document,
		"success":     e.Success,
		"duration_ms": e.DurationMs,
	}).Info("audit")
	return nil
}

// Close 无需释放资源。
func (p *LogPublisher) Close() error { return nil }
