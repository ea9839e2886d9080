package repository

import (
	"errors"
	"sync"
	"time"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
)

var (
	// ErrSnapshotNotFound возвращается, если список бронирований владельца ещё не загружался.
	ErrSnapshotNotFound = errors.New("reservation list not loaded")
	// ErrReservationNotFound возвращается, если бронирования нет в загруженном списке.
	ErrReservationNotFound = errors.New("reservation not found")
)

// Snapshot — последний загруженный список бронирований владельца.
type Snapshot struct {
	Filter   model.ListFilter
	Items    []model.Reservation
	LoadedAt time.Time
}

// MemoryStore хранит снимки списков бронирований в памяти процесса, по одному на владельца.
// Снимок заменяется целиком при загрузке либо меняется по одной записи через Patch.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemoryStore создаёт пустое хранилище снимков.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

// Replace заменяет снимок владельца.
func (s *MemoryStore) Replace(owner string, snap Snapshot) {
	snap.Items = cloneItems(snap.Items)

	s.mu.Lock()
	s.snapshots[owner] = snap
	s.mu.Unlock()
}

// Get возвращает копию снимка владельца.
func (s *MemoryStore) Get(owner string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[owner]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	snap.Items = cloneItems(snap.Items)
	return snap, nil
}

// Find ищет бронирование по идентификатору в снимке владельца.
func (s *MemoryStore) Find(owner string, id int64) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[owner]
	if !ok {
		return model.Reservation{}, ErrSnapshotNotFound
	}
	for _, r := range snap.Items {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reservation{}, ErrReservationNotFound
}

// Patch применяет патч к одному бронированию и возвращает его новое состояние.
// Остальные записи снимка не меняются.
func (s *MemoryStore) Patch(owner string, id int64, p model.ReservationPatch) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[owner]
	if !ok {
		return model.Reservation{}, ErrSnapshotNotFound
	}
	for i := range snap.Items {
		if snap.Items[i].ID == id {
			p.Apply(&snap.Items[i])
			return snap.Items[i], nil
		}
	}
	return model.Reservation{}, ErrReservationNotFound
}

func cloneItems(items []model.Reservation) []model.Reservation {
	if items == nil {
		return nil
	}
	out := make([]model.Reservation, len(items))
	copy(out, items)
	return out
}
