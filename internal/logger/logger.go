package logger

import (
	"sync"
)

// Accepted level strings for Get, SetLevel, and the log.level config key.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	global *Logger
	once   sync.Once
)

// Get returns the process-wide logger, constructing it on the first call
// with the given level. Later calls return the same instance unchanged;
// use SetLevel to adjust the level once the configuration is known.
func Get(level string) *Logger {
	once.Do(func() {
		global = newZapLogger(level)
	})
	return global
}
