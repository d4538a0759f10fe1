package internal

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// LogOptions configures the global logger.
type LogOptions struct {
	// File, when set, adds a rotating JSON sink.
	File    string
	Verbose bool
}

var (
	logMu    sync.RWMutex
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger   = newLogger(LogOptions{})
)

func newLogger(opts LogOptions) *zap.Logger {
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), logLevel),
	}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), zapcore.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

// InitLogger replaces the global logger. It is called once by the CLI after
// configuration is loaded.
func InitLogger(opts LogOptions) {
	SetVerbose(opts.Verbose)
	l := newLogger(opts)
	logMu.Lock()
	old := logger
	logger = l
	logMu.Unlock()
	_ = old.Sync()
}

// L returns the structured logger.
func L() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger.WithOptions(zap.AddCallerSkip(-1))
}

// SyncLogger flushes buffered entries.
func SyncLogger() {
	logMu.RLock()
	defer logMu.RUnlock()
	_ = logger.Sync()
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	switch level {
	case LogLevelError:
		logLevel.SetLevel(zapcore.ErrorLevel)
	case LogLevelWarn:
		logLevel.SetLevel(zapcore.WarnLevel)
	case LogLevelInfo:
		logLevel.SetLevel(zapcore.InfoLevel)
	default:
		logLevel.SetLevel(zapcore.DebugLevel)
	}
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LogLevelDebug)
	} else {
		SetLogLevel(LogLevelInfo)
	}
}

func sugar() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger.Sugar()
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	sugar().Errorf(format, args...)
}

// LogWarn logs a warning message
func LogWarn(format string, args ...interface{}) {
	sugar().Warnf(format, args...)
}

// LogInfo logs an info message
func LogInfo(format string, args ...interface{}) {
	sugar().Infof(format, args...)
}

// LogDebug logs a debug message
func LogDebug(format string, args ...interface{}) {
	sugar().Debugf(format, args...)
}
