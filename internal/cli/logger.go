package cli

import "go.uber.org/zap"

// watchLogger wraps zap for verbose debug output on stderr. When --verbose
// is off it is inert and hands a nop sugared logger to the core packages.
type watchLogger struct {
	sugared *zap.SugaredLogger
}

func newWatchLogger(globals *Globals) *watchLogger {
	if globals == nil || !globals.Verbose {
		return &watchLogger{}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{"stderr"}
	logger, _ := cfg.Build()
	return &watchLogger{sugared: logger.Sugar()}
}

func (l *watchLogger) Debug(format string, args ...interface{}) {
	if l.sugared == nil {
		return
	}
	l.sugared.Debugf(format, args...)
}

// Sugared returns the underlying logger for injection into the core
// packages; a nop logger when verbose logging is disabled.
func (l *watchLogger) Sugared() *zap.SugaredLogger {
	if l == nil || l.sugared == nil {
		return zap.NewNop().Sugar()
	}
	return l.sugared
}
