package config

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bluebird-io/portal/internal/models"
)

const defaultLogBufferSize = 500

// portalLogger keeps the most recent entries in a ring buffer so the local
// service can show them.
type portalLogger struct {
	eventBuffer []*models.LogEntry
	maxSize     int
	currentPos  int
	isFull      bool
	mu          sync.RWMutex
}

func NewPortalLogger(size int) *portalLogger {
	if size <= 0 {
		size = defaultLogBufferSize
	}
	return &portalLogger{
		eventBuffer: make([]*models.LogEntry, size),
		maxSize:     size,
	}
}

func (t *portalLogger) Fire(entry *logrus.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.eventBuffer[t.currentPos] = models.NewLogEntry(entry)
	t.currentPos = (t.currentPos + 1) % t.maxSize

	if t.currentPos == 0 {
		t.isFull = true
	}

	return nil
}

func (t *portalLogger) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

func (t *portalLogger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.eventBuffer = make([]*models.LogEntry, t.maxSize)
	t.currentPos = 0
	t.isFull = false
}

// GetEvents returns the buffered entries oldest first.
func (t *portalLogger) GetEvents() []*models.LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.getEventsInternal()
}

// LogFilter contains the filtering criteria for log events
type LogFilter struct {
	// Empty means every level
	Levels []string   `json:"levels,omitempty" form:"level"`
	Since  *time.Time `json:"since,omitempty" form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	// Keep only the newest Limit entries. Zero means no limit
	Limit int `json:"limit,omitempty" form:"limit"`
}

func (t *portalLogger) GetEventsWithFilter(filter LogFilter) []*models.LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	levels := make(map[string]bool, len(filter.Levels))
	for _, level := range filter.Levels {
		levels[level] = true
	}

	filtered := []*models.LogEntry{}
	for _, entry := range t.getEventsInternal() {
		if len(levels) > 0 && !levels[entry.Level] {
			continue
		}
		if filter.Since != nil && entry.Time.Before(*filter.Since) {
			continue
		}
		filtered = append(filtered, entry)
	}

	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[len(filtered)-filter.Limit:]
	}

	return filtered
}

// getEventsInternal assumes the caller holds the lock
func (t *portalLogger) getEventsInternal() []*models.LogEntry {
	if !t.isFull {
		result := make([]*models.LogEntry, t.currentPos)
		copy(result, t.eventBuffer[:t.currentPos])
		return result
	}

	result := make([]*models.LogEntry, t.maxSize)
	copy(result, t.eventBuffer[t.currentPos:])
	copy(result[t.maxSize-t.currentPos:], t.eventBuffer[:t.currentPos])
	return result
}
