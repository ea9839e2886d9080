// Package service реализует бизнес-логику панели владельца ParkeaYa.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/backend"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/lock"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/normalize"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/repository"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/stats"
	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/validation"
)

var (
	// ErrInvalidDateFilter возвращается, если фильтр по дате не в формате YYYY-MM-DD.
	ErrInvalidDateFilter = errors.New("invalid date filter")
	// ErrUnauthorized возвращается, если бэкенд отклонил токен владельца.
	ErrUnauthorized = errors.New("backend rejected token")
)

// Backend описывает вызовы REST API бэкенда, используемые сервисом.
type Backend interface {
	ListReservations(ctx context.Context, token string, q backend.ListQuery) ([]map[string]any, error)
	OwnerStats(ctx context.Context, token string) (map[string]any, error)
	ReservationAction(ctx context.Context, token, code, endpoint string, payload any) (map[string]any, error)
	OwnerValidatePayment(ctx context.Context, token string, req backend.PaymentRequest) (map[string]any, error)
	CreateTicket(ctx context.Context, token string, req backend.TicketRequest) (map[string]any, error)
}

// Store описывает хранилище загруженных списков бронирований.
type Store interface {
	Replace(owner string, snap repository.Snapshot)
	Get(owner string) (repository.Snapshot, error)
	Find(owner string, id int64) (model.Reservation, error)
	Patch(owner string, id int64, p model.ReservationPatch) (model.Reservation, error)
}

// Locker описывает флаги занятости бронирований.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Journal описывает журнал выполненных действий.
type Journal interface {
	Record(ctx context.Context, e model.ActionEntry) error
	ListByOwner(ctx context.Context, owner string, limit int) ([]model.ActionEntry, error)
	Close() error
}

// Service содержит бизнес-логику панели владельца.
type Service struct {
	backend Backend
	store   Store
	locker  Locker
	journal Journal
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	tasks  sync.WaitGroup
}

// NewService создаёт сервис. Пустые locker, journal и logger заменяются реализациями в памяти и no-op логгером.
func NewService(b Backend, store Store, locker Locker, journal Journal, logger *zap.Logger) *Service {
	if store == nil {
		store = repository.NewMemoryStore()
	}
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	if journal == nil {
		journal = repository.NewMemoryJournal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: b,
		store:   store,
		locker:  locker,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// Close запрещает новые фоновые задачи, дожидается начатых и закрывает журнал.
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.tasks.Wait()
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// startTask регистрирует фоновую задачу. После Close возвращает false.
func (s *Service) startTask() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.tasks.Add(1)
	return true
}

// LoadReservations загружает список бронирований владельца, заменяет сохранённый снимок
// и возвращает записи, подходящие под строку поиска.
func (s *Service) LoadReservations(ctx context.Context, p model.Principal, f model.ListFilter) ([]model.Reservation, error) {
	if !validation.IsValidDateFilter(f.Date) {
		return nil, ErrInvalidDateFilter
	}

	items, err := s.fetch(ctx, p, f)
	if err != nil {
		return nil, err
	}

	return filterBySearch(items, f.Search), nil
}

func (s *Service) fetch(ctx context.Context, p model.Principal, f model.ListFilter) ([]model.Reservation, error) {
	raw, err := s.backend.ListReservations(ctx, p.Token, backend.ListQuery{
		Estado: normalize.BackendStatusFilter(f.Status),
		Fecha:  f.Date,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", authError(err))
	}

	items := make([]model.Reservation, 0, len(raw))
	for _, r := range raw {
		items = append(items, normalize.Reservation(r))
	}

	s.store.Replace(p.Key(), repository.Snapshot{Filter: f, Items: items, LoadedAt: s.now()})
	return items, nil
}

// reload повторно загружает список с фильтром последней загрузки.
func (s *Service) reload(ctx context.Context, p model.Principal) error {
	var f model.ListFilter
	if snap, err := s.store.Get(p.Key()); err == nil {
		f = snap.Filter
	}
	_, err := s.fetch(ctx, p, f)
	return err
}

// Stats возвращает статистику владельца. Поля, которые вернул эндпоинт статистики бэкенда,
// имеют приоритет; остальные берутся из локального расчёта по загруженному списку.
func (s *Service) Stats(ctx context.Context, p model.Principal) (model.Stats, error) {
	snap, err := s.store.Get(p.Key())
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		if _, err := s.fetch(ctx, p, model.ListFilter{}); err != nil {
			return model.Stats{}, err
		}
		snap, err = s.store.Get(p.Key())
	}
	if err != nil {
		return model.Stats{}, err
	}

	local := stats.Aggregate(snap.Items, s.now())

	raw, err := s.backend.OwnerStats(ctx, p.Token)
	if err != nil {
		if err = authError(err); errors.Is(err, ErrUnauthorized) {
			return model.Stats{}, fmt.Errorf("owner stats: %w", err)
		}
		s.logger.Debug("owner stats unavailable, using local aggregate", zap.String("owner", p.Key()), zap.Error(err))
		return local, nil
	}

	return stats.Merge(stats.ParseBackend(raw), local), nil
}

// authError помечает отказ бэкенда в авторизации как ErrUnauthorized.
func authError(err error) error {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) && (httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

// ListActions возвращает журнал действий владельца, начиная с последнего.
func (s *Service) ListActions(ctx context.Context, p model.Principal, limit int) ([]model.ActionEntry, error) {
	return s.journal.ListByOwner(ctx, p.Key(), limit)
}

func filterBySearch(items []model.Reservation, search string) []model.Reservation {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return items
	}

	out := make([]model.Reservation, 0, len(items))
	for _, r := range items {
		for _, field := range []string{r.ReservationCode, r.UserName, r.VehiclePlate, r.Phone} {
			if field != "" && strings.Contains(strings.ToLower(field), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
