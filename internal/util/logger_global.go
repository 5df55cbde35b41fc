package util

import (
	"sync"
)

var (
	globalLogger LoggerInterface
	loggerOnce   sync.Once
)

// InitLogger installs the process-wide logger once; later calls are ignored
func InitLogger(opts LoggerOptions) error {
	var err error
	loggerOnce.Do(func() {
		var logger *Logger
		logger, err = NewLogger(opts)
		if err == nil {
			globalLogger = logger
		}
	})
	return err
}

// SetLogger replaces the process-wide logger, mainly for tests
func SetLogger(logger LoggerInterface) {
	globalLogger = logger
}

// CloseLogger closes the process-wide logger. A later InitLogger installs
// a fresh one.
func CloseLogger() {
	if globalLogger != nil {
		_ = globalLogger.Close()
	}
	globalLogger = nil
	loggerOnce = sync.Once{}
}

// Component returns a logger tagged with a component field. It is a no-op
// logger until InitLogger runs.
func Component(name string) LoggerInterface {
	if globalLogger == nil {
		return nopLogger{}
	}
	return globalLogger.With(F("component", name))
}

func LogInfo(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Info(msg, fields...)
	}
}

func LogInfof(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Infof(format, args...)
	}
}

func LogDebug(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Debug(msg, fields...)
	}
}

func LogDebugf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debugf(format, args...)
	}
}

func LogWarn(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Warn(msg, fields...)
	}
}

func LogWarnf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warnf(format, args...)
	}
}

func LogError(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Error(msg, fields...)
	}
}

func LogErrorf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Errorf(format, args...)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Info(string, ...Field) {}
func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warn(string, ...Field) {}
func (nopLogger) Warnf(string, ...interface{}) {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (n nopLogger) With(...Field) LoggerInterface { return n }
func (nopLogger) SetLevel(LogLevel) {}
func (nopLogger) AddOutput(Output) {}
func (nopLogger) Close() error { return nil }
