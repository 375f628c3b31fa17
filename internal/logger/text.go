package logger

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// textLogger wraps logrus for human-readable terminal output
type textLogger struct {
	entry *logrus.Entry
}

func newTextLogger(config *Config) (Logger, error) {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %v", err)
	}
	base.SetLevel(level)

	switch {
	case config.File.Enabled:
		f, err := os.OpenFile(config.File.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %v", err)
		}
		base.SetOutput(f)
	case config.Output == "stdout":
		base.SetOutput(os.Stdout)
	default:
		base.SetOutput(os.Stderr)
	}

	return &textLogger{entry: logrus.NewEntry(base)}, nil
}

func (l *textLogger) LogInfo(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Info(msg)
}

// LogError logs an error with context and returns it unchanged
func (l *textLogger) LogError(err error, msg string) error {
	if err != nil {
		l.entry.WithError(err).Error(msg)
	}
	return err
}

func (l *textLogger) LogErrorf(err error, format string, args ...interface{}) error {
	if err != nil {
		l.entry.WithError(err).Errorf(format, args...)
	}
	return err
}

func (l *textLogger) LogFatal(err error, context string) {
	l.entry.WithError(err).Fatal(context)
}

func (l *textLogger) LogDebug(message string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Debug(message)
}

func (l *textLogger) LogWarn(message string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Warn(message)
}

func (l *textLogger) WithFields(fields map[string]interface{}) Logger {
	return &textLogger{entry: l.entry.WithFields(fields)}
}
