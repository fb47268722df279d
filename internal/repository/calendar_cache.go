package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/scheduling"
	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const calendarKeyPrefix = "therapy_scheduler:calendar:"

type calendarEntry struct {
	calendar *model.WorkCalendar
	storedAt time.Time
}

// CachedCalendarLookup кэш рабочих календарей поверх репозитория:
// LRU в памяти процесса и (если настроен) общий Redis.
// Любая ошибка кэша приводит к чтению из следующего уровня.
type CachedCalendarLookup struct {
	next   scheduling.CalendarLookup
	cache  *lru.Cache[int64, calendarEntry]
	redis  *redis.Client
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewCachedCalendarLookup создаёт кэш. redisClient может быть nil.
func NewCachedCalendarLookup(next scheduling.CalendarLookup, size int, ttl time.Duration, redisClient *redis.Client, logger *zap.Logger) (*CachedCalendarLookup, error) {
	cache, err := lru.New[int64, calendarEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create calendar lru: %w", err)
	}

	return &CachedCalendarLookup{
		next:   next,
		cache:  cache,
		redis:  redisClient,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}, nil
}

// GetWorkCalendar возвращает копию календаря, отсутствующие календари не кэшируются
func (c *CachedCalendarLookup) GetWorkCalendar(ctx context.Context, therapistID int64) (*model.WorkCalendar, error) {
	if cal, ok := c.fromMemory(therapistID); ok {
		return cal, nil
	}

	if cal, ok := c.fromRedis(ctx, therapistID); ok {
		c.remember(therapistID, cal)
		return cal.Clone(), nil
	}

	cal, err := c.next.GetWorkCalendar(ctx, therapistID)
	if err != nil || cal == nil {
		return cal, err
	}

	c.remember(therapistID, cal)
	c.toRedis(ctx, cal)

	return cal.Clone(), nil
}

// Invalidate убирает календарь из обоих уровней (вызывается после правки профиля)
func (c *CachedCalendarLookup) Invalidate(ctx context.Context, therapistID int64) {
	c.cache.Remove(therapistID)

	if c.redis == nil {
		return
	}

	if err := c.redis.Del(ctx, calendarKey(therapistID)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate calendar in redis",
			zap.Int64("therapist_id", therapistID),
			zap.Error(err))
	}
}

func (c *CachedCalendarLookup) fromMemory(therapistID int64) (*model.WorkCalendar, bool) {
	entry, ok := c.cache.Get(therapistID)
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.cache.Remove(therapistID)
		return nil, false
	}

	return entry.calendar.Clone(), true
}

func (c *CachedCalendarLookup) remember(therapistID int64, cal *model.WorkCalendar) {
	c.cache.Add(therapistID, calendarEntry{calendar: cal.Clone(), storedAt: c.now()})
}

func (c *CachedCalendarLookup) fromRedis(ctx context.Context, therapistID int64) (*model.WorkCalendar, bool) {
	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, calendarKey(therapistID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Calendar cache read failed, falling back to database",
			zap.Int64("therapist_id", therapistID),
			zap.Error(err))
		return nil, false
	}

	var cal model.WorkCalendar
	if err := json.Unmarshal(data, &cal); err != nil {
		c.logger.Warn("Corrupted calendar in redis",
			zap.Int64("therapist_id", therapistID),
			zap.Error(err))
		return nil, false
	}

	if err := cal.Validate(); err != nil {
		return nil, false
	}

	return &cal, true
}

func (c *CachedCalendarLookup) toRedis(ctx context.Context, cal *model.WorkCalendar) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(cal)
	if err != nil {
		c.logger.Warn("Failed to encode calendar", zap.Error(err))
		return
	}

	if err := c.redis.Set(ctx, calendarKey(cal.TherapistID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Calendar cache write failed",
			zap.Int64("therapist_id", cal.TherapistID),
			zap.Error(err))
	}
}

func calendarKey(therapistID int64) string {
	return fmt.Sprintf("%s%d", calendarKeyPrefix, therapistID)
}
