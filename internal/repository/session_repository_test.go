package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Freeeeeet/therapy_scheduler/internal/repository/base"
	"github.com/Freeeeeet/therapy_scheduler/internal/scheduling"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError(t *testing.T) {
	pgErr := func(code string) error {
		return fmt.Errorf("insert session: %w", &pgconn.PgError{Code: code})
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", pgErr(base.CodeSerializationFailure), scheduling.ErrSerialization},
		{"deadlock", pgErr(base.CodeDeadlockDetected), scheduling.ErrSerialization},
		{"exclusion violation", pgErr(base.CodeExclusionViolation), scheduling.ErrOverlapRejected},
		{"commit unknown", fmt.Errorf("%w: connection reset", base.ErrCommitUnknown), scheduling.ErrCommitUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestTranslateError_Unrelated(t *testing.T) {
	check := fmt.Errorf("insert session: %w", &pgconn.PgError{Code: base.CodeCheckViolation})
	assert.Same(t, check, translateError(check))

	plain := errors.New("boom")
	assert.Same(t, plain, translateError(plain))
}
