package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ebonreach/server/internal/persist"
)

// ErrNotCached means the character has no cached snapshot.
var ErrNotCached = errors.New("character not in cache")

// CharStore is the cache tier of the write-back pipeline. Dirty characters
// are flushed here from RAM every RAM→cache interval; a marker key per
// character lets the cache→store flusher find pending work with one SCAN.
type CharStore struct {
	rdb *redis.Client
}

func NewCharStore(rdb *redis.Client) *CharStore {
	return &CharStore{rdb: rdb}
}

func charKey(charID uint64) string {
	return "char:" + strconv.FormatUint(charID, 10)
}

func dirtyKey(charID uint64) string {
	return "char:dirty:" + strconv.FormatUint(charID, 10)
}

const dirtyPattern = "char:dirty:*"

// cachedChar is the hash layout of one cached character snapshot.
type cachedChar struct {
	ID        uint64  `redis:"id"`
	AccountID int64   `redis:"account_id"`
	Name      string  `redis:"name"`
	ClassID   int32   `redis:"class_id"`
	Level     int32   `redis:"level"`
	XP        int64   `redis:"xp"`
	HP        int32   `redis:"hp"`
	MP        int32   `redis:"mp"`
	Str       int32   `redis:"str"`
	Sta       int32   `redis:"sta"`
	Dex       int32   `redis:"dex"`
	Intel     int32   `redis:"intel"`
	Unspent   int32   `redis:"unspent"`
	ZoneID    int32   `redis:"zone_id"`
	X         float64 `redis:"x"`
	Y         float64 `redis:"y"`
	Z         float64 `redis:"z"`
	Rotation  float64 `redis:"rotation"`
}

func toCached(c *persist.CharacterRecord) cachedChar {
	return cachedChar{
		ID: c.ID, AccountID: c.AccountID, Name: c.Name, ClassID: c.ClassID,
		Level: c.Level, XP: c.XP, HP: c.HP, MP: c.MP,
		Str: c.Str, Sta: c.Sta, Dex: c.Dex, Intel: c.Intel, Unspent: c.Unspent,
		ZoneID: c.ZoneID, X: float64(c.X), Y: float64(c.Y), Z: float64(c.Z),
		Rotation: float64(c.Rotation),
	}
}

func fromCached(c cachedChar) *persist.CharacterRecord {
	return &persist.CharacterRecord{
		ID: c.ID, AccountID: c.AccountID, Name: c.Name, ClassID: c.ClassID,
		Level: c.Level, XP: c.XP, HP: c.HP, MP: c.MP,
		Str: c.Str, Sta: c.Sta, Dex: c.Dex, Intel: c.Intel, Unspent: c.Unspent,
		ZoneID: c.ZoneID, X: float32(c.X), Y: float32(c.Y), Z: float32(c.Z),
		Rotation: float32(c.Rotation),
	}
}

// Save writes a character snapshot and its dirty marker in one pipeline.
// Gold is deliberately absent: the wallet never passes through the cache.
func (s *CharStore) Save(ctx context.Context, c *persist.CharacterRecord) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, charKey(c.ID), toCached(c))
	pipe.Set(ctx, dirtyKey(c.ID), "1", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache character %d: %w", c.ID, err)
	}
	return nil
}

// Load returns the cached snapshot of one character.
func (s *CharStore) Load(ctx context.Context, charID uint64) (*persist.CharacterRecord, error) {
	res := s.rdb.HGetAll(ctx, charKey(charID))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("load cached character %d: %w", charID, err)
	}
	if len(res.Val()) == 0 {
		return nil, ErrNotCached
	}
	var c cachedChar
	if err := res.Scan(&c); err != nil {
		return nil, fmt.Errorf("scan cached character %d: %w", charID, err)
	}
	return fromCached(c), nil
}

// DirtyIDs scans for characters whose cache entry is newer than the store.
func (s *CharStore) DirtyIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	iter := s.rdb.Scan(ctx, 0, dirtyPattern, 256).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := strconv.ParseUint(key[len("char:dirty:"):], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan dirty markers: %w", err)
	}
	return ids, nil
}

// ClearDirty removes the marker after a successful cache→store write. The
// snapshot itself stays as a warm read cache; idempotent when re-run.
func (s *CharStore) ClearDirty(ctx context.Context, charID uint64) error {
	if err := s.rdb.Del(ctx, dirtyKey(charID)).Err(); err != nil {
		return fmt.Errorf("clear dirty %d: %w", charID, err)
	}
	return nil
}

// Evict drops a character's snapshot entirely, used after a final flush on
// logout so the next login reads fresh store data.
func (s *CharStore) Evict(ctx context.Context, charID uint64) error {
	if err := s.rdb.Del(ctx, charKey(charID), dirtyKey(charID)).Err(); err != nil {
		return fmt.Errorf("evict character %d: %w", charID, err)
	}
	return nil
}
