package logging

import (
	"os"
	"strings"

	joonix "github.com/joonix/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Supported log formats.
const (
	TextFormat    = "text"
	FluentdFormat = "fluentd"
	JSONFormat    = "json"
)

var errUnknownFormat = errors.New("unknown log format")

// Formatter returns the logrus formatter for the given format name. Text
// output is colored unless disableColors is set.
func Formatter(format string, disableColors bool) (logrus.Formatter, error) {
	switch format {
	case TextFormat:
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		formatter.DisableColors = disableColors
		return formatter, nil
	case FluentdFormat:
		return joonix.NewFormatter(), nil
	case JSONFormat:
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, errors.Wrapf(errUnknownFormat, "%q", format)
	}
}

// WriterHook copies every entry of the logger it is added to into another logger.
type WriterHook struct {
	LogLevels []logrus.Level
	Target    *logrus.Logger
}

var _ = logrus.Hook(&WriterHook{})

// Fire writes the entry message and fields to the target logger.
func (hook *WriterHook) Fire(entry *logrus.Entry) error {
	e := hook.Target.WithFields(entry.Data).WithTime(entry.Time)
	e.Log(entry.Level, strings.TrimSuffix(entry.Message, "\n"))
	return nil
}

// Levels defines on which log levels this hook would trigger.
func (hook *WriterHook) Levels() []logrus.Level {
	return hook.LogLevels
}

// ConfigurePersistentLogging adds a hook to logger appending every entry to
// the given file in the given format. It returns the file so that callers can
// close it on shutdown.
func ConfigurePersistentLogging(logger *logrus.Logger, fileName, format string) (*os.File, error) {
	formatter, err := Formatter(format, true /* disable colors */)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "could not open log file")
	}
	fileLogger := &logrus.Logger{
		Out:       f,
		Formatter: formatter,
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.TraceLevel,
	}
	logger.AddHook(&WriterHook{
		LogLevels: logrus.AllLevels,
		Target:    fileLogger,
	})
	logger.WithField("logFileName", fileName).Info("Logs will be made persistent")
	return f, nil
}
