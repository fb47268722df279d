package base

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE коды, которые разбираются репозиториями
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeExclusionViolation   = "23P01"
	CodeCheckViolation       = "23514"
)

// ErrCommitUnknown коммит завершился ошибкой без ответа сервера, транзакция могла примениться
var ErrCommitUnknown = errors.New("commit outcome unknown")

// Repository базовый репозиторий с общими методами
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый базовый репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool возвращает пул соединений
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// QueryRow выполняет запрос и возвращает одну строку
func (r *Repository) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	return r.pool.QueryRow(ctx, query, args...)
}

// Query выполняет запрос и возвращает множество строк
func (r *Repository) Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	return r.pool.Query(ctx, query, args...)
}

// ExecAffected выполняет команду и возвращает количество затронутых строк
func (r *Repository) ExecAffected(ctx context.Context, query string, args ...interface{}) (int64, error) {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// WithLockedTx выполняет fn в транзакции с уровнем изоляции isoLevel,
// предварительно взяв advisory-блокировки по ключам (в порядке возрастания,
// чтобы не было взаимных блокировок). Блокировки берутся до BEGIN, поэтому
// снимок REPEATABLE READ уже видит всё, что закоммитили предыдущие владельцы.
func (r *Repository) WithLockedTx(ctx context.Context, keys []int64, isoLevel pgx.TxIsoLevel, fn func(tx pgx.Tx) error) (err error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}

	locked := false
	defer func() {
		if locked {
			// снимаем блокировки даже если ctx уже отменён
			unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, unlockErr := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock_all()"); unlockErr != nil {
				// соединение с висящей блокировкой нельзя возвращать в пул
				_ = conn.Conn().Close(unlockCtx)
			}
		}
		conn.Release()
	}()

	sorted := append([]int64(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
			return fmt.Errorf("advisory lock %d: %w", key, err)
		}
		locked = true
	}

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if PgErrorCode(err) != "" {
			// сервер ответил ошибкой - транзакция откатилась
			return fmt.Errorf("commit transaction: %w", err)
		}
		return fmt.Errorf("%w: %w", ErrCommitUnknown, err)
	}

	return nil
}

// PgErrorCode возвращает SQLSTATE ошибки или пустую строку
func PgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Naive переводит время в "наивное" значение для колонок TIMESTAMP без зоны:
// сохраняются только показания часов
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// InLocation интерпретирует наивное время из БД как местное время loc
func InLocation(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
