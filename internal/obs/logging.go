// Package obs contains observability utilities such as logging and tracing.
package obs

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used by the service.
//
// Logger starts as a no-op so packages can log before InitLogger runs.
var Logger = zap.NewNop().Sugar()

// InitLogger replaces Logger with a JSON logger on stdout at the given level.
// Extra cores (for example the OpenTelemetry bridge) receive every entry too.
func InitLogger(level string, extra ...zapcore.Core) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	console := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
	cores := append([]zapcore.Core{console}, extra...)
	Logger = zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()
}

// Sync flushes buffered log entries.
func Sync() { _ = Logger.Sync() }
