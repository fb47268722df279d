package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/repository/base"
	"github.com/Freeeeeet/therapy_scheduler/internal/scheduling"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const sessionColumns = `id, batch_id, therapist_id, student_id, leccion_id, start_at, end_at, duration_minutes, created_at, updated_at`

// sessionLockNamespace старшие биты ключа advisory-блокировки, чтобы ключи
// терапевтов не совпадали с другими пользователями pg_advisory_lock
const sessionLockNamespace int64 = 0x5345 << 48

// SessionRepository управляет занятиями в базе данных
type SessionRepository struct {
	*base.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewSessionRepository создаёт новый репозиторий.
// loc - часовой пояс, в котором интерпретируются наивные метки времени.
func NewSessionRepository(pool *pgxpool.Pool, loc *time.Location, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		Repository: base.NewRepository(pool),
		loc:        loc,
		logger:     logger,
	}
}

// GetByID получает занятие по ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	return getSessionByID(ctx, r.Pool(), r.loc, id)
}

// GetByBatchID получает все занятия одной серии
func (r *SessionRepository) GetByBatchID(ctx context.Context, batchID uuid.UUID) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE batch_id = $1
		ORDER BY start_at`

	rows, err := r.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("get sessions by batch: %w", err)
	}
	return collectSessions(rows, r.loc)
}

// ListBetween возвращает все занятия, начинающиеся в [from, to)
func (r *SessionRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE start_at >= $1 AND start_at < $2
		ORDER BY therapist_id, start_at`

	rows, err := r.Query(ctx, query, base.Naive(from), base.Naive(to))
	if err != nil {
		return nil, fmt.Errorf("list sessions between: %w", err)
	}
	return collectSessions(rows, r.loc)
}

// ListByTherapistBetween занятия терапевта, начинающиеся в [from, to)
func (r *SessionRepository) ListByTherapistBetween(ctx context.Context, therapistID int64, from, to time.Time) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE therapist_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at`

	rows, err := r.Query(ctx, query, therapistID, base.Naive(from), base.Naive(to))
	if err != nil {
		return nil, fmt.Errorf("list therapist sessions: %w", err)
	}
	return collectSessions(rows, r.loc)
}

// WithTherapistLock выполняет fn в транзакции REPEATABLE READ, удерживая
// advisory-блокировку каждого терапевта до конца транзакции.
func (r *SessionRepository) WithTherapistLock(ctx context.Context, therapistIDs []int64, fn func(tx scheduling.SessionTx) error) error {
	keys := make([]int64, 0, len(therapistIDs))
	for _, id := range therapistIDs {
		keys = append(keys, sessionLockNamespace|id)
	}

	err := r.WithLockedTx(ctx, keys, pgx.RepeatableRead, func(tx pgx.Tx) error {
		return fn(&sessionTx{tx: tx, loc: r.loc})
	})
	if err != nil {
		return translateError(err)
	}
	return nil
}

// translateError сводит ошибки PostgreSQL к ошибкам хранилища из пакета scheduling
func translateError(err error) error {
	if errors.Is(err, base.ErrCommitUnknown) {
		return fmt.Errorf("%w: %w", scheduling.ErrCommitUnknown, err)
	}

	switch base.PgErrorCode(err) {
	case base.CodeSerializationFailure, base.CodeDeadlockDetected:
		return fmt.Errorf("%w: %w", scheduling.ErrSerialization, err)
	case base.CodeExclusionViolation:
		return fmt.Errorf("%w: %w", scheduling.ErrOverlapRejected, err)
	}
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sessionTx операции над занятиями в рамках одной транзакции
type sessionTx struct {
	tx  pgx.Tx
	loc *time.Location
}

// FindOverlapping возвращает занятия терапевта, пересекающиеся с [from, to)
func (t *sessionTx) FindOverlapping(ctx context.Context, therapistID int64, from, to time.Time, excludeID *int64) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE therapist_id = $1
		  AND start_at < $3
		  AND end_at > $2
		  AND ($4::bigint IS NULL OR id <> $4)
		ORDER BY start_at`

	rows, err := t.tx.Query(ctx, query, therapistID, base.Naive(from), base.Naive(to), excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping sessions: %w", err)
	}
	return collectSessions(rows, t.loc)
}

// GetByID получает занятие по ID внутри транзакции
func (t *sessionTx) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	return getSessionByID(ctx, t.tx, t.loc, id)
}

// ListByStudentID все занятия ученика
func (t *sessionTx) ListByStudentID(ctx context.Context, studentID int64) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE student_id = $1
		ORDER BY start_at
		FOR UPDATE`

	rows, err := t.tx.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions by student: %w", err)
	}
	return collectSessions(rows, t.loc)
}

// InsertSessions вставляет серию одним батчем, ID проставляются в занятия
func (t *sessionTx) InsertSessions(ctx context.Context, batch model.ScheduleBatch) ([]int64, error) {
	query := `
		INSERT INTO sessions (batch_id, therapist_id, student_id, leccion_id, start_at, end_at, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	b := &pgx.Batch{}
	for _, s := range batch {
		b.Queue(query, s.BatchID, s.TherapistID, s.StudentID, s.LeccionID,
			base.Naive(s.Start), base.Naive(s.End), s.DurationMinutes)
	}

	results := t.tx.SendBatch(ctx, b)
	ids := make([]int64, 0, len(batch))
	for _, s := range batch {
		if err := results.QueryRow().Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("insert session: %w", err)
		}
		ids = append(ids, s.ID)
	}

	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("insert sessions: %w", err)
	}

	return ids, nil
}

// UpdateSession переносит занятие
func (t *sessionTx) UpdateSession(ctx context.Context, id int64, start, end time.Time, durationMinutes int) error {
	query := `
		UPDATE sessions
		SET start_at = $2, end_at = $3, duration_minutes = $4, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := t.tx.Exec(ctx, query, id, base.Naive(start), base.Naive(end), durationMinutes)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update session %d: %w", id, pgx.ErrNoRows)
	}

	return nil
}

// ReassignStudentSessions переназначает все занятия ученика другому терапевту
func (t *sessionTx) ReassignStudentSessions(ctx context.Context, studentID, newTherapistID int64) (int64, error) {
	query := `
		UPDATE sessions
		SET therapist_id = $2, updated_at = NOW()
		WHERE student_id = $1
	`

	tag, err := t.tx.Exec(ctx, query, studentID, newTherapistID)
	if err != nil {
		return 0, fmt.Errorf("reassign student sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}

func getSessionByID(ctx context.Context, q querier, loc *time.Location, id int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	session, err := scanSession(q.QueryRow(ctx, query, id), loc)
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

func scanSession(row pgx.Row, loc *time.Location) (*model.Session, error) {
	s := &model.Session{}
	err := row.Scan(
		&s.ID,
		&s.BatchID,
		&s.TherapistID,
		&s.StudentID,
		&s.LeccionID,
		&s.Start,
		&s.End,
		&s.DurationMinutes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Start = base.InLocation(s.Start, loc)
	s.End = base.InLocation(s.End, loc)

	return s, nil
}

func collectSessions(rows pgx.Rows, loc *time.Location) ([]*model.Session, error) {
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		s, err := scanSession(rows, loc)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}
