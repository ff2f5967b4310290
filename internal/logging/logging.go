package logging

import (
	"io"
	"os"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// New builds the process logger. Console output goes to out with the prefixed formatter,
// when file is set every entry is also written there as plain text
func New(level string, file string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.Out = out
	logger.Level = LogLevel(level)
	logger.Formatter = new(prefixed.TextFormatter)

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		// lfshook reopens the path on every write, we only check it is writable
		f.Close()

		pathMap := lfshook.PathMap{}
		for _, l := range logrus.AllLevels {
			pathMap[l] = file
		}
		logger.Hooks.Add(lfshook.NewHook(pathMap, &logrus.TextFormatter{DisableColors: true}))
	}
	return logger, nil
}

// Component returns an entry tagged with the component name, shown as [name] by the formatter
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("prefix", name)
}

// LogLevel parses a string into a logrus level, unknown values fall back to warn
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}
