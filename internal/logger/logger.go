package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log level, format and optional file rotation.
type Options struct {
	Level      string
	Format     string // "text" or "json"
	File       string // empty disables file output
	MaxAgeDays int
}

// Setup configures the global logrus logger.
func Setup(opts Options) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if opts.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, rotator))
	} else {
		logrus.SetOutput(os.Stdout)
	}
}
