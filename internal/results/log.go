package results

import (
	"sync"

	"github.com/kx0101/scripttester/internal/models"
)

// Log is the session's result log. Records are stored in arrival order and
// read back newest first, which keeps Append O(1) amortized.
type Log struct {
	mu      sync.RWMutex
	records []models.Record
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(rec models.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = nil
}

// All returns a copy of the log, newest first.
func (l *Log) All() []models.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Record, len(l.records))
	for i, rec := range l.records {
		out[len(l.records)-1-i] = rec
	}

	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.records)
}
