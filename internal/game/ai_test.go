package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebonreach/server/internal/world"
)

func newAISystem(tw *testWorld) *AISystem {
	sys := NewAISystem(tw.state, tw.tables, tw.combat, tw.bc)
	sys.now = func() time.Time { return fixedNow }
	return sys
}

func TestAIIdleAggrosNearbyPlayer(t *testing.T) {
	tw := newTestWorld(t)
	p := tw.addPlayer(1, world.Vec3{X: 10})
	m := tw.addMonster(world.Vec3{})

	newAISystem(tw).Update(50 * time.Millisecond)

	assert.Equal(t, world.AIAggro, m.State)
	assert.Equal(t, p.CharID, m.TargetID)
}

func TestAIIdleIgnoresFarPlayer(t *testing.T) {
	tw := newTestWorld(t)
	tw.addPlayer(1, world.Vec3{X: 40}) // beyond aggro range 15, within grid cells
	m := tw.addMonster(world.Vec3{})

	newAISystem(tw).Update(50 * time.Millisecond)

	assert.Equal(t, world.AIIdle, m.State)
}

func TestAIAggroChasesThenAttacks(t *testing.T) {
	tw := newTestWorld(t)
	p := tw.addPlayer(1, world.Vec3{X: 10})
	m := tw.addMonster(world.Vec3{})
	sys := newAISystem(tw)

	sys.Update(50 * time.Millisecond) // idle → aggro
	require.Equal(t, world.AIAggro, m.State)

	sys.Update(time.Second) // step 3 units toward player
	assert.InDelta(t, 3, m.Pos.X, 0.01)

	m.Pos = world.Vec3{X: 9} // within attack range 2
	sys.Update(50 * time.Millisecond)
	assert.Equal(t, world.AIAttack, m.State)

	before := p.HP
	sys.Update(50 * time.Millisecond)
	assert.Less(t, p.HP, before, "攻擊狀態到期就出手")
}

func TestAILeashTriggersReturn(t *testing.T) {
	tw := newTestWorld(t)
	tw.addPlayer(1, world.Vec3{X: 10})
	m := tw.addMonster(world.Vec3{})
	m.State = world.AIAggro
	m.TargetID = 1
	m.Pos = world.Vec3{X: 31} // beyond leash 30 from spawn

	newAISystem(tw).Update(50 * time.Millisecond)

	assert.Equal(t, world.AIReturn, m.State)
	assert.Zero(t, m.TargetID)
}

func TestAITargetVanishedTriggersReturn(t *testing.T) {
	tw := newTestWorld(t)
	p := tw.addPlayer(1, world.Vec3{X: 10})
	m := tw.addMonster(world.Vec3{})
	m.State = world.AIAttack
	m.TargetID = p.CharID

	// Player logs out between ticks.
	tw.ch.RemovePlayer(p)
	tw.state.RemovePlayer(p)

	newAISystem(tw).Update(50 * time.Millisecond)
	assert.Equal(t, world.AIReturn, m.State)
}

func TestAIDeadPlayerDropsAggro(t *testing.T) {
	tw := newTestWorld(t)
	p := tw.addPlayer(1, world.Vec3{X: 10})
	m := tw.addMonster(world.Vec3{})
	m.State = world.AIAggro
	m.TargetID = p.CharID
	p.Dead = true

	newAISystem(tw).Update(50 * time.Millisecond)
	assert.Equal(t, world.AIReturn, m.State)
}

func TestAIReturnHealsAtSpawn(t *testing.T) {
	tw := newTestWorld(t)
	m := tw.addMonster(world.Vec3{})
	m.State = world.AIReturn
	m.HP = 5
	m.Pos = world.Vec3{X: 2}

	sys := newAISystem(tw)
	sys.Update(time.Second) // step 3 > 2: arrives exactly
	assert.Equal(t, world.AIIdle, m.State)
	assert.Equal(t, m.MaxHP, m.HP, "回家回滿血")
	assert.Equal(t, m.SpawnPos, m.Pos)
}

func TestDeathSystemRespawnsMonster(t *testing.T) {
	tw := newTestWorld(t)
	m := tw.addMonster(world.Vec3{X: 20})
	m.State = world.AIDead
	m.HP = 0
	m.Pos = world.Vec3{X: 25}
	m.RespawnAt = fixedNow

	sys := NewDeathSystem(tw.state, tw.tables, tw.combat, tw.bc)
	sys.now = func() time.Time { return fixedNow.Add(-time.Second) }
	sys.Update(50 * time.Millisecond)
	assert.Equal(t, world.AIDead, m.State, "重生時間未到")

	sys.now = func() time.Time { return fixedNow }
	sys.Update(50 * time.Millisecond)
	assert.Equal(t, world.AIIdle, m.State)
	assert.Equal(t, m.MaxHP, m.HP)
	assert.Equal(t, m.SpawnPos, m.Pos)
}

func TestDeathSystemRespawnsPlayerAtZoneSpawn(t *testing.T) {
	tw := newTestWorld(t)
	p := tw.addPlayer(1, world.Vec3{X: 100})
	p.Dead = true
	p.HP = 0
	p.DeadUntil = fixedNow

	sys := NewDeathSystem(tw.state, tw.tables, tw.combat, tw.bc)
	sys.now = func() time.Time { return fixedNow }
	sys.Update(50 * time.Millisecond)

	assert.False(t, p.Dead)
	assert.Equal(t, p.MaxHP, p.HP)
	assert.Equal(t, tw.ch.Zone.SpawnPoint(), p.Pos)
}

func TestDeathSystemSweepsExpiredLoot(t *testing.T) {
	tw := newTestWorld(t)
	l := &world.LootDrop{
		ID: tw.state.NextLootID(), Gold: 10,
		Pos: world.Vec3{X: 1}, ExpiresAt: fixedNow,
	}
	tw.ch.AddLoot(l)

	sys := NewDeathSystem(tw.state, tw.tables, tw.combat, tw.bc)
	sys.now = func() time.Time { return fixedNow }
	sys.Update(50 * time.Millisecond)

	assert.Empty(t, tw.ch.Loot)
}
