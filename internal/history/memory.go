package history

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store used when no database is configured, and
// in tests. Records live only as long as the process.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	recs   []Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, rec Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = m.nextID
	m.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.recs = append(m.recs, rec)
	return rec.ID, nil
}

// List implements Store. Records are kept in insertion order, so newest
// first means walking the slice backwards.
func (m *Memory) List(ctx context.Context, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := Page{Records: []Record{}, Page: page, PerPage: perPage, Total: len(m.recs)}
	start := (page - 1) * perPage
	for i := 0; i < perPage; i++ {
		idx := len(m.recs) - 1 - start - i
		if idx < 0 {
			break
		}
		out.Records = append(out.Records, m.recs[idx])
	}
	return out, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, id int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// Delete implements Store, returning the removed record.
func (m *Memory) Delete(ctx context.Context, id int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.recs {
		if rec.ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// Stats implements Store.
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{TotalAnalyses: len(m.recs)}
	if len(m.recs) == 0 {
		return s, nil
	}
	sum := 0.0
	for _, rec := range m.recs {
		s.TotalDetections += rec.TotalDetections
		sum += rec.MaturityScore
	}
	s.AverageScore = round1(sum / float64(len(m.recs)))
	return s, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
