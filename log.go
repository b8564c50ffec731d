package pixpipe

import "github.com/sirupsen/logrus"

var log = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)

	return l
}()

// SetLogger replaces the package logger. Pass a logger at debug level to get
// per-operation traces and timing dumps from Process.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}

func debugEnabled() bool { return log.IsLevelEnabled(logrus.DebugLevel) }
