package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLevel applies when no level is configured or the configured one does
// not parse.
const DefaultLevel = logrus.WarnLevel

// New creates a text logger at level writing to w (stderr when nil).
func New(level string, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = DefaultLevel
	}
	logger.SetLevel(logLevel)

	return logger
}
