package log

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup configures the process-wide logger. Unknown levels fall back to info.
func Setup(level string, format string) {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects log output, mostly so a CLI can keep stdout clean.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Logger exposes the process-wide logger to libraries that take their own,
// such as resty.
func Logger() *log.Logger {
	return log.StandardLogger()
}

func With(fields map[string]any) *log.Entry {
	return log.WithFields(log.Fields(fields))
}

func Debug(format string, args ...any) {
	log.Debugf(format, args...)
}

func Info(format string, args ...any) {
	log.Infof(format, args...)
}

func Warn(format string, args ...any) {
	log.Warnf(format, args...)
}

func Error(format string, args ...any) {
	log.Errorf(format, args...)
}

func Fatal(format string, args ...any) {
	log.Fatalf(format, args...)
}
