// internal/logging/logging.go
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mwiater/mmrag/internal/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxPayloadRunes bounds request payloads written to the log; image payloads
// are base64 and can run to megabytes.
const maxPayloadRunes = 512

var (
	mu      sync.Mutex
	logger  = zap.NewNop()
	logFile *os.File
)

// Init configures the process logger. Warnings and errors always go to stderr;
// when logPath is set every event is also appended to it as JSON. debug lowers
// the console threshold to debug.
func Init(logPath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logger.Sync()
		_ = logFile.Close()
		logFile = nil
	}

	consoleLevel := zapcore.WarnLevel
	if debug {
		consoleLevel = zapcore.DebugLevel
	}
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), consoleLevel),
	}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(logFile), zapcore.DebugLevel))
	}

	logger = zap.New(zapcore.NewTee(cores...))
	return nil
}

// Close flushes the logger and releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	logger = zap.NewNop()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// L returns the current process logger.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Use installs l as the process logger. Tests use it with zaptest or observer loggers.
func Use(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// LogEvent records an informational, printf-style event.
func LogEvent(format string, args ...any) {
	L().Info(fmt.Sprintf(format, args...))
}

// LogWarn records a recoverable problem.
func LogWarn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// LogRequest records an outbound or inbound model call.
func LogRequest(direction, host, model, endpoint string, payload any) {
	L().Debug(buildRequestMessage(direction, host, model, endpoint, payload))
}

func buildRequestMessage(direction, host, model, endpoint string, payload any) string {
	dir := strings.TrimSpace(direction)
	if dir != "" {
		dir = strings.ToUpper(dir)
	}
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("host=%s", hostValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		parts = append(parts, fmt.Sprintf("endpoint=%s", endpoint))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", util.TruncateRunes(formatPayload(payload), maxPayloadRunes)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
