package game

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/config"
	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/metrics"
	"github.com/ebonreach/server/internal/persist"
	"github.com/ebonreach/server/internal/world"
)

// CharCache is the middle persistence tier (Redis in production).
type CharCache interface {
	Save(ctx context.Context, c *persist.CharacterRecord) error
	Load(ctx context.Context, charID uint64) (*persist.CharacterRecord, error)
	DirtyIDs(ctx context.Context) ([]uint64, error)
	ClearDirty(ctx context.Context, charID uint64) error
	Evict(ctx context.Context, charID uint64) error
}

// CharStore is the durable tier (Postgres in production).
type CharStore interface {
	Save(ctx context.Context, c *persist.CharacterRecord) error
}

// RecordOf snapshots a player's persistable state. Gold is carried for the
// in-RAM view only; the wallet's source of truth is the store.
func RecordOf(p *world.Player) *persist.CharacterRecord {
	return &persist.CharacterRecord{
		ID:        p.CharID,
		AccountID: p.AccountID,
		Name:      p.Name,
		ClassID:   p.ClassID,
		Level:     p.Level,
		XP:        p.XP,
		HP:        p.HP,
		MP:        p.MP,
		Str:       p.Str,
		Sta:       p.Sta,
		Dex:       p.Dex,
		Intel:     p.Intel,
		Unspent:   p.Unspent,
		ZoneID:    p.ZoneID,
		X:         p.Pos.X,
		Y:         p.Pos.Y,
		Z:         p.Pos.Z,
		Rotation:  p.Rotation,
	}
}

// Pipeline is the RAM→cache→store write-back. Periodic flushes run off the
// game loop on snapshots; only the snapshot step touches world state.
type Pipeline struct {
	cache CharCache
	store CharStore
	log   *zap.Logger

	flushTimeout time.Duration
}

func NewPipeline(cache CharCache, store CharStore, log *zap.Logger) *Pipeline {
	return &Pipeline{cache: cache, store: store, log: log, flushTimeout: 10 * time.Second}
}

// FlushToCache writes one batch of snapshots to the cache tier. Returns the
// character IDs whose write failed, so the caller can re-mark them dirty.
func (pl *Pipeline) FlushToCache(ctx context.Context, recs []*persist.CharacterRecord) []uint64 {
	var failed []uint64
	for _, rec := range recs {
		if err := pl.cache.Save(ctx, rec); err != nil {
			metrics.PersistErrors.WithLabelValues("cache").Inc()
			pl.log.Error("快取層寫入失敗", zap.Uint64("char", rec.ID), zap.Error(err))
			failed = append(failed, rec.ID)
			continue
		}
		metrics.PersistFlushes.WithLabelValues("cache").Inc()
	}
	return failed
}

// FlushToStore drains every dirty cache entry into the store. Idempotent:
// the marker clears only after the store write commits, so a crash between
// the two just repeats the write.
func (pl *Pipeline) FlushToStore(ctx context.Context) {
	ids, err := pl.cache.DirtyIDs(ctx)
	if err != nil {
		metrics.PersistErrors.WithLabelValues("store").Inc()
		pl.log.Error("髒標記掃描失敗", zap.Error(err))
		return
	}
	for _, id := range ids {
		rec, err := pl.cache.Load(ctx, id)
		if err != nil {
			metrics.PersistErrors.WithLabelValues("store").Inc()
			pl.log.Error("快取讀取失敗", zap.Uint64("char", id), zap.Error(err))
			continue
		}
		if err := pl.store.Save(ctx, rec); err != nil {
			metrics.PersistErrors.WithLabelValues("store").Inc()
			pl.log.Error("儲存層寫入失敗", zap.Uint64("char", id), zap.Error(err))
			continue
		}
		if err := pl.cache.ClearDirty(ctx, id); err != nil {
			pl.log.Warn("髒標記清除失敗", zap.Uint64("char", id), zap.Error(err))
			continue
		}
		metrics.PersistFlushes.WithLabelValues("store").Inc()
	}
}

// ForceFlush writes one player through both tiers synchronously. Called on
// disconnect and zone change, before the session lock may be released.
// Returns whether at least the cache tier holds the latest state; when it
// does, the dirty marker keeps the store retry alive and the account lock is
// safe to release.
func (pl *Pipeline) ForceFlush(ctx context.Context, p *world.Player) (cached bool, err error) {
	rec := RecordOf(p)

	if err := pl.cache.Save(ctx, rec); err != nil {
		metrics.PersistErrors.WithLabelValues("cache").Inc()
		// 快取層也掛了：直接寫儲存層，成功就算過
		if serr := pl.store.Save(ctx, rec); serr != nil {
			metrics.PersistErrors.WithLabelValues("store").Inc()
			return false, serr
		}
		metrics.PersistFlushes.WithLabelValues("force").Inc()
		p.Dirty = false
		return false, nil
	}

	p.Dirty = false
	if err := pl.store.Save(ctx, rec); err != nil {
		metrics.PersistErrors.WithLabelValues("store").Inc()
		pl.log.Warn("強制寫入降級為僅快取", zap.Uint64("char", p.CharID), zap.Error(err))
		return true, nil // dirty marker stays; the periodic flusher retries
	}
	if err := pl.cache.ClearDirty(ctx, p.CharID); err != nil {
		pl.log.Warn("髒標記清除失敗", zap.Uint64("char", p.CharID), zap.Error(err))
	}
	metrics.PersistFlushes.WithLabelValues("force").Inc()
	return true, nil
}

// PersistSystem triggers the periodic tiers from the game loop. Snapshots
// are taken inline; the IO runs in a background goroutine, one in flight per
// tier.
type PersistSystem struct {
	state    *world.State
	pipeline *Pipeline
	cfg      config.PersistenceConfig
	log      *zap.Logger

	lastCacheFlush time.Time
	lastStoreFlush time.Time
	cacheInFlight  atomic.Bool
	storeInFlight  atomic.Bool
	cacheFailed    chan []uint64 // IDs whose cache write failed, re-dirtied next tick
	now            func() time.Time
}

func NewPersistSystem(state *world.State, pipeline *Pipeline, cfg config.PersistenceConfig, log *zap.Logger) *PersistSystem {
	now := time.Now()
	return &PersistSystem{
		state:          state,
		pipeline:       pipeline,
		cfg:            cfg,
		log:            log,
		lastCacheFlush: now,
		lastStoreFlush: now,
		cacheFailed:    make(chan []uint64, 4),
		now:            time.Now,
	}
}

func (s *PersistSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistSystem) Update(_ time.Duration) {
	now := s.now()

	// Re-dirty any players whose last cache write failed, so the next flush
	// window picks their state up again instead of dropping it.
	for {
		select {
		case ids := <-s.cacheFailed:
			for _, id := range ids {
				if p, ok := s.state.ByCharID[id]; ok {
					p.Dirty = true
				}
			}
			continue
		default:
		}
		break
	}

	if now.Sub(s.lastCacheFlush) >= s.cfg.RAMToCache && !s.cacheInFlight.Load() {
		s.lastCacheFlush = now
		var recs []*persist.CharacterRecord
		for _, p := range s.state.ByCharID {
			if p.Dirty {
				recs = append(recs, RecordOf(p))
				p.Dirty = false
			}
		}
		if len(recs) > 0 {
			s.cacheInFlight.Store(true)
			go func() {
				defer s.cacheInFlight.Store(false)
				ctx, cancel := context.WithTimeout(context.Background(), s.pipeline.flushTimeout)
				defer cancel()
				if failed := s.pipeline.FlushToCache(ctx, recs); len(failed) > 0 {
					select {
					case s.cacheFailed <- failed:
					default:
						s.log.Warn("重試佇列已滿，丟失髒標記", zap.Int("chars", len(failed)))
					}
				}
			}()
		}
	}

	if now.Sub(s.lastStoreFlush) >= s.cfg.CacheToStore && !s.storeInFlight.Load() {
		s.lastStoreFlush = now
		s.storeInFlight.Store(true)
		go func() {
			defer s.storeInFlight.Store(false)
			ctx, cancel := context.WithTimeout(context.Background(), s.pipeline.flushTimeout)
			defer cancel()
			s.pipeline.FlushToStore(ctx)
		}()
	}
}
