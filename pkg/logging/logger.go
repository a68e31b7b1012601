package logging

import "fmt"

// Logger is a router bound to one caller path.
type Logger struct {
	router *Router
	path   string
}

// Path returns the caller path this logger routes under.
func (l *Logger) Path() string {
	return l.path
}

func (l *Logger) Info(msg string) {
	l.router.Log(LevelInfo, l.path, msg)
}

func (l *Logger) Infof(format string, args ...any) {
	if l.router.ShouldEmit(LevelInfo, l.path) {
		l.router.Log(LevelInfo, l.path, fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Warning(msg string) {
	l.router.Log(LevelWarning, l.path, msg)
}

func (l *Logger) Warningf(format string, args ...any) {
	if l.router.ShouldEmit(LevelWarning, l.path) {
		l.router.Log(LevelWarning, l.path, fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Error(msg string) {
	l.router.Log(LevelError, l.path, msg)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l.router.ShouldEmit(LevelError, l.path) {
		l.router.Log(LevelError, l.path, fmt.Sprintf(format, args...))
	}
}

// Exception logs err at the error gate.
func (l *Logger) Exception(err error) {
	l.router.LogException(l.path, err)
}
