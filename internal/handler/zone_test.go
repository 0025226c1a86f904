package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/game"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/persist"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

var errTierDown = errors.New("tier down")

type fakeCache struct {
	recs  map[uint64]*persist.CharacterRecord
	dirty map[uint64]bool
	fail  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		recs:  make(map[uint64]*persist.CharacterRecord),
		dirty: make(map[uint64]bool),
	}
}

func (c *fakeCache) Save(_ context.Context, rec *persist.CharacterRecord) error {
	if c.fail {
		return errTierDown
	}
	cp := *rec
	c.recs[rec.ID] = &cp
	c.dirty[rec.ID] = true
	return nil
}

func (c *fakeCache) Load(_ context.Context, charID uint64) (*persist.CharacterRecord, error) {
	rec, ok := c.recs[charID]
	if !ok {
		return nil, persist.ErrCharacterMissing
	}
	cp := *rec
	return &cp, nil
}

func (c *fakeCache) DirtyIDs(_ context.Context) ([]uint64, error) {
	var ids []uint64
	for id, d := range c.dirty {
		if d {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *fakeCache) ClearDirty(_ context.Context, charID uint64) error {
	delete(c.dirty, charID)
	return nil
}

func (c *fakeCache) Evict(_ context.Context, charID uint64) error {
	delete(c.recs, charID)
	return nil
}

type fakeStore struct {
	recs map[uint64]*persist.CharacterRecord
	fail bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[uint64]*persist.CharacterRecord)}
}

func (s *fakeStore) Save(_ context.Context, rec *persist.CharacterRecord) error {
	if s.fail {
		return errTierDown
	}
	cp := *rec
	s.recs[rec.ID] = &cp
	return nil
}

func withPipeline(deps *Deps) (*fakeCache, *fakeStore) {
	cache := newFakeCache()
	store := newFakeStore()
	deps.Pipeline = game.NewPipeline(cache, store, zap.NewNop())
	return cache, store
}

func TestZoneChange(t *testing.T) {
	deps := testDeps(t)
	_, store := withPipeline(deps)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	oldPos := p.Pos
	p.Pos = world.Vec3{X: 100, Z: 100}
	deps.World.Zones[1].Channels[0].Grid.Move(p.CharID, oldPos, p.Pos)
	p.TargetID = 7
	p.AutoAttack = true

	req := proto.ZoneChange{ZoneID: 2}
	HandleZoneChange(sess, req.Marshal(), deps)

	assert.Equal(t, int32(2), p.ZoneID)
	assert.Equal(t, world.Vec3{X: 5, Y: 0, Z: 5}, p.Pos, "player lands on the target spawn")
	assert.Zero(t, p.TargetID)
	assert.False(t, p.AutoAttack)
	assert.True(t, p.ZoneCooldownUntil.After(deps.Combat.Now()))

	// The pre-move snapshot was flushed durably before the transition.
	require.Contains(t, store.recs, p.CharID)
	assert.Equal(t, int32(1), store.recs[p.CharID].ZoneID)
	assert.Equal(t, float32(100), store.recs[p.CharID].X)

	oldCh := deps.World.Zones[1].Channels[0]
	assert.NotContains(t, oldCh.Players, p.CharID)
	assert.Contains(t, deps.World.Zones[2].Channels[0].Players, p.CharID)

	frames := drainFrames(t, deps, sess)
	assert.Contains(t, opcodesOf(frames), packet.S_OPCODE_ZONE_DATA)
}

func TestZoneChangeDeniedWhenUnlinked(t *testing.T) {
	deps := testDeps(t)
	withPipeline(deps)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)

	for _, zoneID := range []uint32{3, 99} {
		req := proto.ZoneChange{ZoneID: zoneID}
		HandleZoneChange(sess, req.Marshal(), deps)
	}

	assert.Equal(t, int32(1), p.ZoneID)
	codes := errCodes(t, drainFrames(t, deps, sess))
	require.Len(t, codes, 2)
	assert.Equal(t, packet.ErrTravelDenied, codes[0])
	assert.Equal(t, packet.ErrTravelDenied, codes[1])
}

func TestZoneChangeRespectsCooldown(t *testing.T) {
	deps := testDeps(t)
	withPipeline(deps)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	p.ZoneCooldownUntil = deps.Combat.Now().Add(time.Minute)

	req := proto.ZoneChange{ZoneID: 2}
	HandleZoneChange(sess, req.Marshal(), deps)

	assert.Equal(t, int32(1), p.ZoneID)
	assert.Equal(t, []packet.ErrorCode{packet.ErrTravelCooldown},
		errCodes(t, drainFrames(t, deps, sess)))
}

func TestZoneChangeStaysWhenFlushFails(t *testing.T) {
	deps := testDeps(t)
	cache, store := withPipeline(deps)
	cache.fail = true
	store.fail = true
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)

	req := proto.ZoneChange{ZoneID: 2}
	HandleZoneChange(sess, req.Marshal(), deps)

	assert.Equal(t, int32(1), p.ZoneID, "no flush, no travel")
	assert.Contains(t, deps.World.Zones[1].Channels[0].Players, p.CharID)
	assert.Equal(t, []packet.ErrorCode{packet.ErrStoreUnavailable},
		errCodes(t, drainFrames(t, deps, sess)))
}

func TestChannelSwitch(t *testing.T) {
	deps := testDepsCapacity(t, 1)
	_, store := withPipeline(deps)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	p.Pos = world.Vec3{X: 42, Z: 17}
	deps.World.Zones[1].Channels[0].Grid.Move(p.CharID, world.Vec3{Y: 10}, p.Pos)

	// Channel 1 is at capacity, so a second channel opens.
	ch2 := deps.World.Zones[1].BestChannelFor()
	require.Equal(t, int32(2), ch2.ID)

	req := proto.ChannelSwitch{ChannelID: 2}
	HandleChannelSwitch(sess, req.Marshal(), deps)

	assert.Equal(t, int32(2), p.ChannelID)
	assert.Equal(t, world.Vec3{X: 42, Z: 17}, p.Pos, "position carries over")
	assert.Contains(t, ch2.Players, p.CharID)
	assert.NotContains(t, deps.World.Zones[1].Channels[0].Players, p.CharID)
	assert.True(t, p.ChannelCooldownUntil.After(deps.Combat.Now()))

	// The pre-switch snapshot was flushed before the move, like a zone change.
	require.Contains(t, store.recs, p.CharID)
	assert.Equal(t, float32(42), store.recs[p.CharID].X)

	frames := drainFrames(t, deps, sess)
	assert.Contains(t, opcodesOf(frames), packet.S_OPCODE_ZONE_DATA)
}

func TestChannelSwitchStaysWhenFlushFails(t *testing.T) {
	deps := testDepsCapacity(t, 1)
	cache, store := withPipeline(deps)
	cache.fail = true
	store.fail = true
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	deps.World.Zones[1].BestChannelFor() // opens channel 2

	req := proto.ChannelSwitch{ChannelID: 2}
	HandleChannelSwitch(sess, req.Marshal(), deps)

	assert.Equal(t, int32(1), p.ChannelID, "no flush, no switch")
	assert.Contains(t, deps.World.Zones[1].Channels[0].Players, p.CharID)
	assert.Equal(t, []packet.ErrorCode{packet.ErrStoreUnavailable},
		errCodes(t, drainFrames(t, deps, sess)))
}

func TestTravelCooldownsAreIndependent(t *testing.T) {
	deps := testDepsCapacity(t, 1)
	withPipeline(deps)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	deps.World.Zones[1].BestChannelFor() // opens channel 2

	// A fresh zone-change cooldown must not block a channel switch.
	zoneCooldown := deps.Combat.Now().Add(time.Minute)
	p.ZoneCooldownUntil = zoneCooldown

	req := proto.ChannelSwitch{ChannelID: 2}
	HandleChannelSwitch(sess, req.Marshal(), deps)

	assert.Equal(t, int32(2), p.ChannelID)
	assert.Empty(t, errCodes(t, drainFrames(t, deps, sess)))

	// And the switch only stamped its own clock.
	assert.True(t, p.ChannelCooldownUntil.After(deps.Combat.Now()))
	assert.Equal(t, zoneCooldown, p.ZoneCooldownUntil)
}

func TestChannelSwitchRejectsFullAndMissing(t *testing.T) {
	deps := testDepsCapacity(t, 1)
	sess := testSession(t, 1)
	other := testSession(t, 2)
	p := addPlayer(t, deps, sess, 10)
	p2 := addPlayer(t, deps, other, 11)

	// Move the second player into a fresh channel, filling it.
	ch1 := deps.World.Zones[1].Channels[0]
	ch2 := deps.World.Zones[1].BestChannelFor()
	ch1.RemovePlayer(p2)
	ch2.Place(p2)

	req := proto.ChannelSwitch{ChannelID: 2}
	HandleChannelSwitch(sess, req.Marshal(), deps)
	assert.Equal(t, int32(1), p.ChannelID)

	req = proto.ChannelSwitch{ChannelID: 5}
	HandleChannelSwitch(sess, req.Marshal(), deps)
	assert.Equal(t, int32(1), p.ChannelID)

	codes := errCodes(t, drainFrames(t, deps, sess))
	require.Len(t, codes, 2)
	assert.Equal(t, packet.ErrChannelFull, codes[0])
	assert.Equal(t, packet.ErrInvalidTarget, codes[1])
}

func TestChannelSwitchToSameIsNoop(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)

	req := proto.ChannelSwitch{ChannelID: 1}
	HandleChannelSwitch(sess, req.Marshal(), deps)

	assert.Equal(t, int32(1), p.ChannelID)
	assert.Empty(t, drainFrames(t, deps, sess))
	assert.False(t, p.ChannelCooldownUntil.After(deps.Combat.Now()))
}

func TestChannelList(t *testing.T) {
	deps := testDepsCapacity(t, 1)
	sess := testSession(t, 1)
	other := testSession(t, 2)
	addPlayer(t, deps, sess, 10)
	p2 := addPlayer(t, deps, other, 11)

	ch1 := deps.World.Zones[1].Channels[0]
	ch2 := deps.World.Zones[1].BestChannelFor()
	ch1.RemovePlayer(p2)
	ch2.Place(p2)

	HandleChannelList(sess, nil, deps)

	frames := drainFrames(t, deps, sess)
	require.Len(t, frames, 1)
	require.Equal(t, packet.S_OPCODE_CHANNEL_LIST, frames[0].Op)

	var list proto.ChannelList
	require.NoError(t, list.Unmarshal(frames[0].Payload))
	assert.Equal(t, uint32(1), list.ZoneID)
	require.Len(t, list.Channels, 2)
	assert.Equal(t, uint32(1), list.Channels[0].Load)
	assert.Equal(t, uint32(1), list.Channels[1].Load)
	assert.Equal(t, uint32(1), list.Channels[0].Capacity)
}
