package models

import (
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry is a captured logrus entry kept for the local service's
// diagnostics endpoint.
type LogEntry struct {
	Time    time.Time     `json:"time"`
	Level   string        `json:"level"`
	Message string        `json:"message,omitempty"`
	Fields  logrus.Fields `json:"fields,omitempty"`
}

func NewLogEntry(entry *logrus.Entry) *LogEntry {
	fields := make(logrus.Fields, len(entry.Data))
	for key, value := range entry.Data {
		// errors don't marshal to JSON on their own
		if err, ok := value.(error); ok {
			fields[key] = err.Error()
			continue
		}
		fields[key] = value
	}

	return &LogEntry{
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Message: entry.Message,
		Fields:  fields,
	}
}
