package repository

import (
	"context"
	"sync"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
)

// defaultJournalLimit ограничивает число записей журнала, хранимых в памяти на владельца.
const defaultJournalLimit = 500

// MemoryJournal хранит журнал действий в памяти процесса.
type MemoryJournal struct {
	mu      sync.Mutex
	limit   int
	entries map[string][]model.ActionEntry
}

// NewMemoryJournal создаёт журнал в памяти.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		limit:   defaultJournalLimit,
		entries: make(map[string][]model.ActionEntry),
	}
}

// Record добавляет запись в журнал владельца.
func (j *MemoryJournal) Record(_ context.Context, e model.ActionEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	list := append(j.entries[e.Owner], e)
	if len(list) > j.limit {
		list = list[len(list)-j.limit:]
	}
	j.entries[e.Owner] = list
	return nil
}

// ListByOwner возвращает записи владельца, начиная с последней. limit <= 0 означает без ограничения.
func (j *MemoryJournal) ListByOwner(_ context.Context, owner string, limit int) ([]model.ActionEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	list := j.entries[owner]
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]model.ActionEntry, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// Close ничего не делает; нужен для совместимости с PostgresJournal.
func (j *MemoryJournal) Close() error {
	return nil
}
