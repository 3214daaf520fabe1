package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/school-health-api/internal/models"
)

// ErrReadingNotFound is returned when no unexpired reading exists for a device.
var ErrReadingNotFound = errors.New("sensor reading not found")

const sensorKeyPrefix = "sensor:reading:"

// RedisReadingStore keeps the latest reading per device in Redis with a TTL.
type RedisReadingStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReadingStore constructs a Redis backed reading store.
func NewRedisReadingStore(client *redis.Client, ttl time.Duration) *RedisReadingStore {
	return &RedisReadingStore{client: client, ttl: ttl}
}

// Put replaces the device's latest reading.
func (s *RedisReadingStore) Put(ctx context.Context, reading models.SensorReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("marshal sensor reading: %w", err)
	}
	if err := s.client.Set(ctx, sensorKeyPrefix+reading.DeviceID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store sensor reading: %w", err)
	}
	return nil
}

// Get returns the device's latest reading or ErrReadingNotFound.
func (s *RedisReadingStore) Get(ctx context.Context, deviceID string) (*models.SensorReading, error) {
	raw, err := s.client.Get(ctx, sensorKeyPrefix+deviceID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("load sensor reading: %w", err)
	}
	var reading models.SensorReading
	if err := json.Unmarshal(raw, &reading); err != nil {
		return nil, fmt.Errorf("decode sensor reading: %w", err)
	}
	return &reading, nil
}

// Delete clears the device's reading.
func (s *RedisReadingStore) Delete(ctx context.Context, deviceID string) error {
	if err := s.client.Del(ctx, sensorKeyPrefix+deviceID).Err(); err != nil {
		return fmt.Errorf("clear sensor reading: %w", err)
	}
	return nil
}

// MemoryReadingStore is an in-process reading store used when Redis is unavailable.
type MemoryReadingStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	readings map[string]memoryReading
}

type memoryReading struct {
	reading   models.SensorReading
	expiresAt time.Time
}

// NewMemoryReadingStore constructs an in-memory reading store.
func NewMemoryReadingStore(ttl time.Duration) *MemoryReadingStore {
	return &MemoryReadingStore{ttl: ttl, now: time.Now, readings: make(map[string]memoryReading)}
}

// Put replaces the device's latest reading.
func (s *MemoryReadingStore) Put(_ context.Context, reading models.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[reading.DeviceID] = memoryReading{reading: reading, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Get returns the device's latest reading or ErrReadingNotFound once expired.
func (s *MemoryReadingStore) Get(_ context.Context, deviceID string) (*models.SensorReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.readings[deviceID]
	if !ok {
		return nil, ErrReadingNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.readings, deviceID)
		return nil, ErrReadingNotFound
	}
	reading := entry.reading
	return &reading, nil
}

// Delete clears the device's reading.
func (s *MemoryReadingStore) Delete(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.readings, deviceID)
	return nil
}
