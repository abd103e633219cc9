package logger

import "sync/atomic"

var current atomic.Value

func init() {
	current.Store(holder{NewGlogLogger()})
}

type holder struct {
	Logger
}

func get() Logger {
	return current.Load().(holder).Logger
}

// SetLogger replaces the logger used by the package-level helpers and returns the previous one.
func SetLogger(l Logger) Logger {
	prev := get()
	current.Store(holder{l})
	return prev
}

// Debug level logging
func Debugf(msg string, args ...any) {
	get().Debugf(msg, args...)
}

// Info level logging
func Infof(msg string, args ...any) {
	get().Infof(msg, args...)
}

// Warn level logging
func Warnf(msg string, args ...any) {
	get().Warnf(msg, args...)
}

// Error level logging
func Errorf(msg string, args ...any) {
	get().Errorf(msg, args...)
}

// Fatal level logging and terminates the program execution.
func Fatalf(msg string, args ...any) {
	get().Fatalf(msg, args...)
}
