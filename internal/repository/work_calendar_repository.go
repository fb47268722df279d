package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const calendarColumns = `therapist_id, work_days, work_start, work_end, lunch_start, lunch_end, telegram_chat_id, updated_at`

// WorkCalendarRepository рабочие календари терапевтов.
// Сами окна редактируются в профиле терапевта, здесь только чтение и привязка чата Telegram.
type WorkCalendarRepository struct {
	*base.Repository
}

// NewWorkCalendarRepository создаёт новый репозиторий
func NewWorkCalendarRepository(pool *pgxpool.Pool) *WorkCalendarRepository {
	return &WorkCalendarRepository{Repository: base.NewRepository(pool)}
}

// GetWorkCalendar получает календарь терапевта, (nil, nil) если его нет
func (r *WorkCalendarRepository) GetWorkCalendar(ctx context.Context, therapistID int64) (*model.WorkCalendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM work_calendars WHERE therapist_id = $1`

	cal, err := scanCalendar(r.QueryRow(ctx, query, therapistID))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work calendar: %w", err)
	}

	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("stored calendar is malformed: %w", err)
	}

	return cal, nil
}

// ListNotifiable календари терапевтов, подключивших уведомления в Telegram
func (r *WorkCalendarRepository) ListNotifiable(ctx context.Context) ([]*model.WorkCalendar, error) {
	query := `SELECT ` + calendarColumns + `
		FROM work_calendars
		WHERE telegram_chat_id IS NOT NULL
		ORDER BY therapist_id`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notifiable calendars: %w", err)
	}
	defer rows.Close()

	var calendars []*model.WorkCalendar
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work calendar: %w", err)
		}
		calendars = append(calendars, cal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work calendars: %w", err)
	}

	return calendars, nil
}

// GetByTelegramChatID календарь терапевта, привязавшего чат, (nil, nil) если чат не привязан
func (r *WorkCalendarRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*model.WorkCalendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM work_calendars WHERE telegram_chat_id = $1`

	cal, err := scanCalendar(r.QueryRow(ctx, query, chatID))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work calendar by chat: %w", err)
	}

	return cal, nil
}

// UnlinkTelegramChat отвязывает чат от терапевта.
// Привязка выполняется только погашением кода (LinkCodeRepository.Redeem).
// Возвращает false, если календаря терапевта нет.
func (r *WorkCalendarRepository) UnlinkTelegramChat(ctx context.Context, therapistID int64) (bool, error) {
	n, err := r.ExecAffected(ctx,
		`UPDATE work_calendars SET telegram_chat_id = NULL, updated_at = NOW() WHERE therapist_id = $1`,
		therapistID)
	if err != nil {
		return false, fmt.Errorf("unlink telegram chat: %w", err)
	}
	return n > 0, nil
}

func scanCalendar(row pgx.Row) (*model.WorkCalendar, error) {
	var (
		cal                  model.WorkCalendar
		workDays             []int16
		workStart, workEnd   pgtype.Time
		lunchStart, lunchEnd pgtype.Time
	)

	err := row.Scan(
		&cal.TherapistID,
		&workDays,
		&workStart,
		&workEnd,
		&lunchStart,
		&lunchEnd,
		&cal.TelegramChatID,
		&cal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cal.WorkDays = make([]model.WeekDay, 0, len(workDays))
	for _, d := range workDays {
		cal.WorkDays = append(cal.WorkDays, model.WeekDay(d))
	}

	cal.WorkStart = timeOfDay(workStart)
	cal.WorkEnd = timeOfDay(workEnd)
	cal.LunchStart = timeOfDay(lunchStart)
	cal.LunchEnd = timeOfDay(lunchEnd)

	return &cal, nil
}

// timeOfDay NULL в колонке обеда означает "без обеда" (нулевое окно)
func timeOfDay(t pgtype.Time) model.TimeOfDay {
	if !t.Valid {
		return 0
	}
	return model.TimeOfDay(t.Microseconds / 60_000_000)
}
