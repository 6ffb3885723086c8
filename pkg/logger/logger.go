package logger

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger 是对 logrus 的封装，以提供更方便的结构化日志记录功能。
type Logger struct {
	entry *logrus.Entry
}

// Init 初始化全局的 logrus 配置。
// level: 日志级别字符串 (e.g., "info", "debug")，无法解析时使用 info。
func Init(level string) {
	// 设置日志格式为 JSON，这对于后续的日志采集和分析至关重要。
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	// stdio 模式下标准输出是 MCP 协议通道，日志只能写到标准错误。
	logrus.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// SetOutput 重定向日志输出，测试中使用。
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// New 创建一个新的 Logger 实例，并可以预设一些初始字段。
func New(serviceName, traceID, userID string) *Logger {
	fields := logrus.Fields{"service_name": serviceName}
	if traceID != "" {
		fields["trace_id"] = traceID
	}
	if userID != "" {
		fields["user_id"] = userID
	}
	return &Logger{entry: logrus.WithFields(fields)}
}

// WithField 返回附加了一个字段的新 Logger，原 Logger 不受影响。
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithError 将错误信息添加到日志条目中。
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// WithPayload 将自定义的业务数据添加到日志条目中。
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithField("payload", payload)}
}

// Info 记录一条信息级别的日志。
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn 记录一条警告级别的日志。
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error 记录一条错误级别的日志。
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug 记录一条调试级别的日志。
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal 记录一条致命错误级别的日志，并终止程序。
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}

// Infof 满足 mcp-go 传输层的 util.Logger 接口。
func (l *Logger) Infof(format string, v ...any) {
	l.entry.Info(fmt.Sprintf(format, v...))
}

// Errorf 满足 mcp-go 传输层的 util.Logger 接口。
func (l *Logger) Errorf(format string, v ...any) {
	l.entry.Error(fmt.Sprintf(format, v...))
}

// StdLogger 返回写入该 Logger 的标准库 *log.Logger，每行输出记为一条 error 日志。
// 用于只接受 *log.Logger 的第三方组件。
func (l *Logger) StdLogger() *log.Logger {
	return log.New(l.entry.WriterLevel(logrus.ErrorLevel), "", 0)
}
