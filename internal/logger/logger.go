package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Newはlogrusのロガーを作る（JSON出力、stdout）。levelが不正ならinfo。
func New(level string) *logrus.Logger {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutputは出力先を指定する（CLIは表示と混ざらないようstderr）
func NewWithOutput(level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.Out = out
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}

	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	log.Level = lv
	return log
}

// Discardは何も出力しないロガー（テストやnil指定時）
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// OrDiscardはnilならDiscardを返す
func OrDiscard(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		return Discard()
	}
	return log
}
