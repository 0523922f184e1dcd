package bridge

import "github.com/sirupsen/logrus"

// DebugEnabled reports whether log emits debug messages. Loggers other than
// a *logrus.Logger or *logrus.Entry are assumed to.
func DebugEnabled(log logrus.FieldLogger) bool {
	switch l := log.(type) {
	case *logrus.Logger:
		return l.IsLevelEnabled(logrus.DebugLevel)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(logrus.DebugLevel)
	}
	return true
}
