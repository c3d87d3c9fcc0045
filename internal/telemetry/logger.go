package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	loggerMu sync.RWMutex
	logger   *logrus.Logger
	logFile  *fileHook
)

// fileHook mirrors every entry into a JSON-lines file so a local collector
// can tail it.
type fileHook struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewLogger builds a JSON logger at cfg.LogLevel. Unknown levels fall back
// to info.
func NewLogger(cfg *Config) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "@timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	return l
}

// InitLogger installs the process-wide logger returned by L.
func InitLogger(cfg *Config) error {
	l := NewLogger(cfg)

	var hook *fileHook
	if cfg.ExportToFile && cfg.LogsFilePath != "" {
		var err error
		hook, err = newFileHook(cfg.LogsFilePath)
		if err != nil {
			return err
		}
		l.AddHook(hook)
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logger, logFile = l, hook
	return nil
}

func newFileHook(path string) (*fileHook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileHook{file: file, encoder: json.NewEncoder(file)}, nil
}

// Levels returns the log levels this hook is interested in
func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire writes one JSON line per entry
func (h *fileHook) Fire(entry *logrus.Entry) error {
	data := make(map[string]interface{}, len(entry.Data)+3)
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[k] = v
	}
	data["@timestamp"] = entry.Time.Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(data)
}

func (h *fileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.Close()
}

// L returns the global logger instance
func L() *logrus.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// WithContext adds trace information to the logger
func WithContext(ctx context.Context) *logrus.Entry {
	entry := L().WithContext(ctx)

	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		entry = entry.WithFields(logrus.Fields{
			"trace.id": sc.TraceID().String(),
			"span.id":  sc.SpanID().String(),
		})
	}
	return entry
}

// CloseLogger closes the log file, if any
func CloseLogger() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
