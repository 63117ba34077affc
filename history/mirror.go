package history

import (
	"sync"

	"farmpulse-service/models"
)

// Mirror is the process-lifetime, append-only scan history kept alongside
// the durable store. It exists purely as a fallback read path when the
// store is unreachable: unbounded, never evicted, reset only by restart.
// Appends are serialized; reads tolerate eventual visibility.
type Mirror struct {
	mu      sync.Mutex
	records []models.HistoryRecord
}

func NewMirror() *Mirror {
	return &Mirror{}
}

// Append adds one record to the mirror.
func (m *Mirror) Append(record models.HistoryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

// All returns a copy of every mirrored record, oldest first. The fallback
// read path is not filtered by identity; callers of the fallback see all
// users' records.
func (m *Mirror) All() []models.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.HistoryRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len reports how many records the mirror holds.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
