// Package repository содержит хранилища панели владельца: снимки списков бронирований
// в памяти и журнал действий в памяти или в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Josefina-r/PanelGeneral-ParkeaYa.com/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresJournal хранит журнал действий владельцев в PostgreSQL.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal подключается к БД и применяет миграции схемы журнала.
func NewPostgresJournal(dsn string) (*PostgresJournal, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	j := &PostgresJournal{pool: pool}

	if err := j.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return j, nil
}

func (j *PostgresJournal) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(j.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}

// Record сохраняет запись журнала.
func (j *PostgresJournal) Record(ctx context.Context, e model.ActionEntry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := withRetry(ctx, func() error {
		_, err := j.pool.Exec(ctx,
			`INSERT INTO action_journal (owner_key, reservation_id, action, ok, error_kind, message, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.Owner, e.ReservationID, string(e.Action), e.OK, string(e.ErrorKind), e.Message, createdAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert action entry: %w", err)
	}
	return nil
}

// ListByOwner возвращает записи владельца, начиная с последней. limit <= 0 означает без ограничения.
func (j *PostgresJournal) ListByOwner(ctx context.Context, owner string, limit int) ([]model.ActionEntry, error) {
	query := `SELECT reservation_id, action, ok, error_kind, message, created_at
		 FROM action_journal
		 WHERE owner_key = $1
		 ORDER BY created_at DESC, id DESC`
	args := []any{owner}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select action entries: %w", err)
	}
	defer rows.Close()

	var res []model.ActionEntry
	for rows.Next() {
		var (
			e         model.ActionEntry
			action    string
			errorKind string
		)
		if err := rows.Scan(&e.ReservationID, &action, &e.OK, &errorKind, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action entry: %w", err)
		}
		e.Owner = owner
		e.Action = model.Action(action)
		e.ErrorKind = model.ErrorKind(errorKind)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
