package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const linkCodeColumns = `code, therapist_id, expires_at, used_at, created_at`

// errCodeNotRedeemable откатывает транзакцию погашения без ошибки для вызывающего
var errCodeNotRedeemable = errors.New("link code not redeemable")

// LinkCodeRepository коды привязки чатов Telegram
type LinkCodeRepository struct {
	*base.Repository
}

// NewLinkCodeRepository создаёт новый репозиторий
func NewLinkCodeRepository(pool *pgxpool.Pool) *LinkCodeRepository {
	return &LinkCodeRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет новый код
func (r *LinkCodeRepository) Create(ctx context.Context, code *model.LinkCode) error {
	query := `
		INSERT INTO therapist_link_codes (code, therapist_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	if err := r.QueryRow(ctx, query, code.Code, code.TherapistID, code.ExpiresAt).Scan(&code.CreatedAt); err != nil {
		return fmt.Errorf("create link code: %w", err)
	}

	return nil
}

// CodeExists проверяет, занят ли код
func (r *LinkCodeRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM therapist_link_codes WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check link code exists: %w", err)
	}
	return exists, nil
}

// Redeem погашает код и привязывает чат к терапевту одной транзакцией.
// Чат, привязанный к другому терапевту, переходит к владельцу кода.
// (nil, nil) - кода нет, он использован или истёк, либо календаря терапевта уже нет.
func (r *LinkCodeRepository) Redeem(ctx context.Context, code string, chatID int64, now time.Time) (*model.LinkCode, error) {
	var redeemed *model.LinkCode

	err := pgx.BeginFunc(ctx, r.Pool(), func(tx pgx.Tx) error {
		linkCode, err := scanLinkCode(tx.QueryRow(ctx,
			`SELECT `+linkCodeColumns+` FROM therapist_link_codes WHERE code = $1 FOR UPDATE`, code))
		if base.IsNotFound(err) {
			return errCodeNotRedeemable
		}
		if err != nil {
			return err
		}
		if !linkCode.CanUse(now) {
			return errCodeNotRedeemable
		}

		if _, err := tx.Exec(ctx,
			`UPDATE work_calendars SET telegram_chat_id = NULL, updated_at = NOW()
			 WHERE telegram_chat_id = $1 AND therapist_id <> $2`,
			chatID, linkCode.TherapistID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE work_calendars SET telegram_chat_id = $1, updated_at = NOW() WHERE therapist_id = $2`,
			chatID, linkCode.TherapistID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errCodeNotRedeemable
		}

		if _, err := tx.Exec(ctx,
			`UPDATE therapist_link_codes SET used_at = $1 WHERE code = $2`, now, code); err != nil {
			return err
		}

		linkCode.UsedAt = &now
		redeemed = linkCode
		return nil
	})
	if errors.Is(err, errCodeNotRedeemable) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redeem link code: %w", err)
	}

	return redeemed, nil
}

func scanLinkCode(row pgx.Row) (*model.LinkCode, error) {
	var code model.LinkCode
	err := row.Scan(&code.Code, &code.TherapistID, &code.ExpiresAt, &code.UsedAt, &code.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &code, nil
}
