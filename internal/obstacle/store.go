package obstacle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cp1-controllers/internal/common/redis"
	"cp1-controllers/internal/interfaces"
)

// CacheStore keeps records in Redis: a set of names per world plus one hash per obstacle.
type CacheStore struct {
	cache interfaces.CacheService
	world string
}

func NewCacheStore(cache interfaces.CacheService, world string) *CacheStore {
	return &CacheStore{cache: cache, world: world}
}

func (s *CacheStore) Save(ctx context.Context, r Record) error {
	if err := s.cache.HSet(ctx, redis.Obstacle(s.world, r.Name), map[string]interface{}{
		"sequence":  r.Sequence,
		"x":         strconv.FormatFloat(r.X, 'f', -1, 64),
		"y":         strconv.FormatFloat(r.Y, 'f', -1, 64),
		"placed_at": r.PlacedAt.Format(time.RFC3339Nano),
	}); err != nil {
		return fmt.Errorf("save obstacle %s: %w", r.Name, err)
	}
	return s.cache.SAdd(ctx, redis.Obstacles(s.world), r.Name)
}

func (s *CacheStore) Delete(ctx context.Context, name string) error {
	if err := s.cache.SRem(ctx, redis.Obstacles(s.world), name); err != nil {
		return fmt.Errorf("delete obstacle %s: %w", name, err)
	}
	return s.cache.Del(ctx, redis.Obstacle(s.world, name))
}

func (s *CacheStore) Load(ctx context.Context) ([]Record, error) {
	names, err := s.cache.SMembers(ctx, redis.Obstacles(s.world))
	if err != nil {
		return nil, fmt.Errorf("list obstacles: %w", err)
	}

	records := make([]Record, 0, len(names))
	for _, name := range names {
		fields, err := s.cache.HGetAll(ctx, redis.Obstacle(s.world, name))
		if err != nil {
			return nil, fmt.Errorf("load obstacle %s: %w", name, err)
		}
		records = append(records, parseRecord(name, fields))
	}
	return records, nil
}

// parseRecord tolerates missing fields; the sequence falls back to the name suffix.
func parseRecord(name string, fields map[string]string) Record {
	rec := Record{Name: name}
	if seq, err := strconv.Atoi(fields["sequence"]); err == nil {
		rec.Sequence = seq
	} else if seq, err := strconv.Atoi(strings.TrimPrefix(name, namePrefix)); err == nil {
		rec.Sequence = seq
	}
	rec.X, _ = strconv.ParseFloat(fields["x"], 64)
	rec.Y, _ = strconv.ParseFloat(fields["y"], 64)
	rec.PlacedAt, _ = time.Parse(time.RFC3339Nano, fields["placed_at"])
	return rec
}
