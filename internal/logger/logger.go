// Package logger builds the logrus loggers used by the commands.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config selects the level and destination of a logger.
type Config struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Formatter writes one compact line per entry:
//
//	[15:04:05.000] [INFO] message key=value key=value
type Formatter struct {
	TimestampFormat string
}

var _ logrus.Formatter = (*Formatter)(nil)

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = "15:04:05.000"
	}

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", entry.Time.Format(layout), level, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// ParseLevel maps a level name to a logrus level. Unknown names mean info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// New returns a logger writing to cfg.File, or to out when no file is set.
// The returned closer releases the file; it is a no-op otherwise.
func New(cfg Config, out io.Writer) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetFormatter(&Formatter{})
	log.SetLevel(ParseLevel(cfg.Level))

	if cfg.File == "" {
		log.SetOutput(out)
		return log, nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log file")
	}
	log.SetOutput(f)
	return log, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
