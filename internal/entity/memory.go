package entity

import (
	"context"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
)

// MemoryRepository is a concurrency-safe in-memory Repository.
type MemoryRepository struct {
	mu     sync.RWMutex
	rows   map[int64]WeatherForecast
	nextID int64
	clock  clockwork.Clock
}

// NewMemoryRepository creates an empty repository. A nil clock uses real time.
func NewMemoryRepository(clock clockwork.Clock) *MemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRepository{
		rows:   make(map[int64]WeatherForecast),
		nextID: 1,
		clock:  clock,
	}
}

func (r *MemoryRepository) Create(_ context.Context, w *WeatherForecast) error {
	if w == nil {
		return ErrNilEntity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w.BeforePersist(r.clock.Now())
	w.ID = r.nextID
	w.Version = 1
	r.nextID++
	r.rows[w.ID] = *w
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, w *WeatherForecast) error {
	if w == nil {
		return ErrNilEntity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.rows[w.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != w.Version {
		return ErrStaleVersion
	}

	w.BeforeUpdate(r.clock.Now())
	w.CreateTime = stored.CreateTime
	w.Version++
	r.rows[w.ID] = *w
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (WeatherForecast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.rows[id]
	if !ok {
		return WeatherForecast{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]WeatherForecast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]WeatherForecast, 0, len(r.rows))
	for _, w := range r.rows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
