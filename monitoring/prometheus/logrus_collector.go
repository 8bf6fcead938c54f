package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

const (
	prefixKey     = "prefix"
	defaultPrefix = "global"
)

var (
	supportedLevels = []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
	logEntriesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "log_entries_total",
		Help: "Total number of log messages by level and package prefix.",
	}, []string{"level", "prefix"})
)

// LogrusCollector is a logrus hook counting log entries per level and
// package prefix, so that warnings of the fork choice and database packages
// can be alerted on.
type LogrusCollector struct {
	counterVec *prometheus.CounterVec
}

// NewLogrusCollector returns a logrus hook backed by the log_entries_total counter.
func NewLogrusCollector() *LogrusCollector {
	return &LogrusCollector{
		counterVec: logEntriesCount,
	}
}

// Fire is called on every log call.
func (hook *LogrusCollector) Fire(entry *logrus.Entry) error {
	prefix := defaultPrefix
	if prefixValue, ok := entry.Data[prefixKey]; ok {
		prefix, ok = prefixValue.(string)
		if !ok {
			return errors.New("prefix is not a string")
		}
	}
	hook.counterVec.WithLabelValues(entry.Level.String(), prefix).Inc()
	return nil
}

// Levels returns the levels counted by the hook.
func (_ *LogrusCollector) Levels() []logrus.Level {
	return supportedLevels
}
