package common

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// --------------------------------------------------------------------------
// Named logger facade
// --------------------------------------------------------------------------

// Logger is a leveled logger for one named subsystem. Every package obtains
// its own instance via GetLogger so log lines carry the subsystem tag.
type Logger struct {
	name  string
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// SetLevel changes the minimum level of this logger at runtime
func (l *Logger) SetLevel(level string) {
	l.level.SetLevel(parseLogLevel(level))
}

// --------------------------------------------------------------------------
// Logger registry
// --------------------------------------------------------------------------

var (
	loggersMu sync.Mutex
	loggers   = map[string]*Logger{}
)

// GetLogger returns the logger for the given subsystem name, creating it on
// first use. Loggers default to the info level.
func GetLogger(name string) *Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	l := &Logger{
		name:  name,
		level: level,
		sugar: zap.New(core).Named(name).Sugar(),
	}
	loggers[name] = l
	return l
}

// SetLogLevel sets the level of all loggers created so far
func SetLogLevel(level string) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		l.level.SetLevel(parseLogLevel(level))
	}
}

// parseLogLevel converts a string level to a zap level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warning", "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}
