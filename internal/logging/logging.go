// Package logging builds the pipeline's zap.Logger: a standard JSON core
// for the process's normal stdout stream, teed with a second core that
// writes every Info-or-higher entry as one console-format line to a plain
// append-mode file, for spec.md §7's human-facing audit trail.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the production logger. humanLogPath may be empty, in which
// case only the stdout core is used.
func New(humanLogPath string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	stdoutCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	if humanLogPath == "" {
		return zap.New(stdoutCore, zap.AddCaller()), nil
	}

	f, err := os.OpenFile(humanLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	humanCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(f),
		zap.InfoLevel,
	)

	return zap.New(zapcore.NewTee(stdoutCore, humanCore), zap.AddCaller()), nil
}
