package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/google/uuid"
)

// Ошибки, которыми хранилище сообщает о проблемах атомарной записи
var (
	// ErrSerialization конкурентная транзакция помешала записи, можно повторить
	ErrSerialization = errors.New("serialization failure")
	// ErrOverlapRejected хранилище само отклонило пересекающееся занятие
	ErrOverlapRejected = errors.New("overlapping session rejected by storage")
	// ErrCommitUnknown исход коммита неизвестен, перед повтором нужно перечитать данные
	ErrCommitUnknown = errors.New("commit outcome unknown")
)

// CalendarLookup получение рабочего календаря терапевта.
// Отсутствие календаря - (nil, nil).
type CalendarLookup interface {
	GetWorkCalendar(ctx context.Context, therapistID int64) (*model.WorkCalendar, error)
}

// SessionFinder диапазонный поиск сохранённых занятий терапевта,
// пересекающихся с [from, to). excludeID исключает одно занятие.
type SessionFinder interface {
	FindOverlapping(ctx context.Context, therapistID int64, from, to time.Time, excludeID *int64) ([]*model.Session, error)
}

// SessionTx операции над занятиями внутри одной транзакции
type SessionTx interface {
	SessionFinder
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	ListByStudentID(ctx context.Context, studentID int64) ([]*model.Session, error)
	InsertSessions(ctx context.Context, batch model.ScheduleBatch) ([]int64, error)
	UpdateSession(ctx context.Context, id int64, start, end time.Time, durationMinutes int) error
	ReassignStudentSessions(ctx context.Context, studentID, newTherapistID int64) (int64, error)
}

// SessionStore хранилище занятий.
// WithTherapistLock выполняет fn в транзакции, удерживая эксклюзивную блокировку
// набора занятий каждого из терапевтов до коммита. Ошибка fn откатывает транзакцию.
type SessionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	GetByBatchID(ctx context.Context, batchID uuid.UUID) ([]*model.Session, error)
	WithTherapistLock(ctx context.Context, therapistIDs []int64, fn func(tx SessionTx) error) error
}
