package game

import (
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/config"
	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/world"
)

// fixedNow pins time for systems under test.
var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testTables() *data.Tables {
	return &data.Tables{
		Zones: data.NewZoneTable([]data.ZoneDef{{
			ID: 1, Name: "測試平原",
			MinX: -500, MaxX: 500, MinZ: -500, MaxZ: 500,
			SpawnX: 0, SpawnY: 10, SpawnZ: 0,
		}}),
		Classes: data.NewClassTable([]data.ClassDef{{
			ID: 1, Name: "戰士",
			BaseHP: 100, BaseMP: 50, HPPerLevel: 10, MPPerLevel: 5,
			AttackRange: 3,
		}}),
		Skills: data.NewSkillTable([]data.SkillDef{{
			ID: 1, Name: "重擊", ClassID: 1, LearnLevel: 1,
			MPCost: 5, CooldownMs: 1000, Range: 10, Power: 10,
			PowerPerLevel: 3,
		}}),
		Items: data.NewItemTable([]data.ItemDef{{
			ID: 100, Name: "狼牙", MaxStack: 20, SellPrice: 3,
		}}),
		Monsters: data.NewMonsterTable([]data.MonsterDef{{
			ID: 5001, Name: "野狼", Level: 3, MaxHP: 50,
			AttackPower: 10, Defense: 2, MoveSpeed: 3,
			AggroRange: 15, AttackRange: 2, LeashRange: 30,
			AttackIntervalMs: 2000, RespawnMs: 5000,
			XP: 120, LootTableID: 1,
		}}),
		Drops: data.NewDropTables([]data.DropTable{{
			ID: 1, GoldMin: 10, GoldMax: 10,
			Entries: []data.DropEntry{{ItemID: 100, Chance: 1.0, Min: 1, Max: 1}},
		}}),
		Spawns: data.NewSpawnTable(nil),
		Npcs:   data.NewNpcTable(nil),
	}
}

type testWorld struct {
	state  *world.State
	tables *data.Tables
	cfg    *config.Config
	bc     *Broadcaster
	combat *Combat
	ch     *world.Channel
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	tables := testTables()
	cfg := config.Defaults()
	state := world.NewState()

	zone := world.NewZone(tables.Zones.Get(1), cfg.World.ChannelCapacity,
		float32(cfg.World.SpatialCellSize))
	state.Zones[zone.ID] = zone

	bc := NewBroadcaster(nil)
	combat := NewCombat(state, tables, cfg, bc, zap.NewNop())
	combat.rng = rand.New(rand.NewSource(1))
	combat.now = func() time.Time { return fixedNow }

	return &testWorld{
		state: state, tables: tables, cfg: cfg,
		bc: bc, combat: combat,
		ch: zone.Channels[0],
	}
}

// addPlayer places a session-less level-1 warrior in the channel. Frames
// staged for it go nowhere, which is exactly what these tests want.
func (tw *testWorld) addPlayer(charID uint64, pos world.Vec3) *world.Player {
	p := &world.Player{
		SessionID: charID,
		CharID:    charID,
		AccountID: int64(charID),
		Name:      "測試者",
		ClassID:   1,
		Pos:       pos,
		Level:     1,
		HP:        100, MaxHP: 100,
		MP: 50, MaxMP: 50,
		Str: 10, Sta: 10, Dex: 10, Intel: 10,
		Skills:    map[uint32]int32{1: 1},
		Cooldowns: make(map[uint32]time.Time),
	}
	tw.state.AddPlayer(p)
	tw.ch.Place(p)
	return p
}

func (tw *testWorld) addMonster(pos world.Vec3) *world.Monster {
	def := tw.tables.Monsters.Get(5001)
	m := &world.Monster{
		ID:       tw.state.NextMonsterID(),
		DefID:    def.ID,
		Name:     def.Name,
		Pos:      pos,
		SpawnPos: pos,
		Level:    def.Level,
		HP:       def.MaxHP,
		MaxHP:    def.MaxHP,
		State:    world.AIIdle,
	}
	tw.ch.AddMonster(m)
	return m
}
