package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingLookup struct {
	mu        sync.Mutex
	calendars map[int64]*model.WorkCalendar
	calls     int
	err       error
}

func (l *countingLookup) GetWorkCalendar(_ context.Context, therapistID int64) (*model.WorkCalendar, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	cal, ok := l.calendars[therapistID]
	if !ok {
		return nil, nil
	}
	return cal.Clone(), nil
}

func testCalendar(therapistID int64) *model.WorkCalendar {
	return &model.WorkCalendar{
		TherapistID: therapistID,
		WorkDays:    []model.WeekDay{model.Monday, model.Wednesday},
		WorkStart:   model.MustTimeOfDay("09:00"),
		WorkEnd:     model.MustTimeOfDay("17:00"),
	}
}

func newTestCache(t *testing.T, next *countingLookup, client *redis.Client) (*CachedCalendarLookup, *time.Time) {
	t.Helper()

	cache, err := NewCachedCalendarLookup(next, 8, time.Minute, client, zap.NewNop())
	require.NoError(t, err)

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestCachedCalendarLookup_MemoryHit(t *testing.T) {
	next := &countingLookup{calendars: map[int64]*model.WorkCalendar{1: testCalendar(1)}}
	cache, _ := newTestCache(t, next, nil)
	ctx := context.Background()

	first, err := cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)
	second, err := cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	// изменение полученной копии не портит кэш
	second.WorkDays[0] = model.Sunday
	third, err := cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Monday, third.WorkDays[0])
}

func TestCachedCalendarLookup_Expiry(t *testing.T) {
	next := &countingLookup{calendars: map[int64]*model.WorkCalendar{1: testCalendar(1)}}
	cache, now := newTestCache(t, next, nil)
	ctx := context.Background()

	_, err := cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)

	*now = now.Add(59 * time.Second)
	_, err = cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)

	*now = now.Add(time.Second)
	_, err = cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedCalendarLookup_MissingNotCached(t *testing.T) {
	next := &countingLookup{calendars: map[int64]*model.WorkCalendar{}}
	cache, _ := newTestCache(t, next, nil)
	ctx := context.Background()

	cal, err := cache.GetWorkCalendar(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, cal)

	// календарь появился - кэш его сразу видит
	next.calendars[7] = testCalendar(7)
	cal, err = cache.GetWorkCalendar(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, cal)
	assert.Equal(t, 2, next.calls)
}

func TestCachedCalendarLookup_ErrorPassedThrough(t *testing.T) {
	next := &countingLookup{err: errors.New("db down")}
	cache, _ := newTestCache(t, next, nil)

	_, err := cache.GetWorkCalendar(context.Background(), 1)
	assert.EqualError(t, err, "db down")
}

func TestCachedCalendarLookup_Invalidate(t *testing.T) {
	next := &countingLookup{calendars: map[int64]*model.WorkCalendar{1: testCalendar(1)}}
	cache, _ := newTestCache(t, next, nil)
	ctx := context.Background()

	_, err := cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)

	cache.Invalidate(ctx, 1)

	_, err = cache.GetWorkCalendar(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedCalendarLookup_RedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	next := &countingLookup{calendars: map[int64]*model.WorkCalendar{1: testCalendar(1)}}
	cache, _ := newTestCache(t, next, client)

	cal, err := cache.GetWorkCalendar(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, cal)
	assert.Equal(t, int64(1), cal.TherapistID)
	assert.Equal(t, 1, next.calls)
}

func TestCalendarKey(t *testing.T) {
	assert.Equal(t, "therapy_scheduler:calendar:42", calendarKey(42))
}

func TestCachedCalendarLookup_ConcurrentAccess(t *testing.T) {
	next := &countingLookup{calendars: map[int64]*model.WorkCalendar{
		1: testCalendar(1),
		2: testCalendar(2),
		3: testCalendar(3),
	}}
	cache, _ := newTestCache(t, next, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := int64(i%3 + 1)
			for j := 0; j < 50; j++ {
				cal, err := cache.GetWorkCalendar(ctx, id)
				assert.NoError(t, err)
				if assert.NotNil(t, cal) {
					assert.Equal(t, id, cal.TherapistID)
				}
				if j%10 == 0 {
					cache.Invalidate(ctx, id)
				}
			}
		}(i)
	}
	wg.Wait()

	cal, err := cache.GetWorkCalendar(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.Monday, cal.WorkDays[0])
}
