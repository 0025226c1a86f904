package handler

import (
	"encoding/binary"
	stdnet "net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/config"
	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/game"
	gamenet "github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

func testTables() *data.Tables {
	return &data.Tables{
		Zones: data.NewZoneTable([]data.ZoneDef{
			{
				ID: 1, Name: "邊境平原",
				MinX: -500, MaxX: 500, MinZ: -500, MaxZ: 500,
				SpawnX: 0, SpawnY: 10, SpawnZ: 0,
				Adjacent: []int32{2},
			},
			{
				ID: 2, Name: "黑林",
				MinX: -300, MaxX: 300, MinZ: -300, MaxZ: 300,
				SpawnX: 5, SpawnY: 0, SpawnZ: 5,
				Adjacent: []int32{1},
			},
			{
				ID: 3, Name: "孤島", // not linked from zone 1
				MinX: -100, MaxX: 100, MinZ: -100, MaxZ: 100,
				Adjacent: []int32{2},
			},
		}),
		Classes: data.NewClassTable([]data.ClassDef{{
			ID: 1, Name: "戰士",
			BaseHP: 100, BaseMP: 50, HPPerLevel: 10, MPPerLevel: 5,
			BaseStr: 10, BaseSta: 10, BaseDex: 10, BaseIntel: 10,
			AttackRange: 3,
		}}),
		Skills: data.NewSkillTable([]data.SkillDef{
			{ID: 1, Name: "重擊", ClassID: 1, LearnLevel: 1,
				MPCost: 5, CooldownMs: 1000, Range: 10, Power: 10},
			{ID: 2, Name: "旋風斬", ClassID: 1, LearnLevel: 5,
				MPCost: 20, CooldownMs: 5000, Range: 8, Power: 25},
		}),
		Items: data.NewItemTable([]data.ItemDef{
			{ID: 100, Name: "狼牙", MaxStack: 20, SellPrice: 3},
			{ID: 200, Name: "鐵劍", SlotType: data.SlotWeapon, MaxStack: 1,
				BuyPrice: 50, SellPrice: 20, AttackPower: 8, ReqLevel: 1},
			{ID: 201, Name: "皮甲", SlotType: data.SlotArmor, MaxStack: 1,
				BuyPrice: 40, SellPrice: 15, Defense: 6, ReqLevel: 1},
		}),
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
		Npcs: data.NewNpcTable([]data.NpcDef{{
			ID: 9001, Name: "雜貨商", ZoneID: 1, X: 3, Z: 3,
			Sells: []int32{200, 201},
		}}),
	}
}

func testDeps(t *testing.T) *Deps {
	t.Helper()
	return testDepsCapacity(t, config.Defaults().World.ChannelCapacity)
}

// testDepsCapacity builds deps with a specific channel capacity, so channel
// overflow paths are reachable without thousands of players.
func testDepsCapacity(t *testing.T, channelCap int) *Deps {
	t.Helper()
	tables := testTables()
	cfg := config.Defaults()
	cfg.World.ChannelCapacity = channelCap
	state := world.NewState()
	for _, zd := range tables.Zones.All() {
		state.Zones[zd.ID] = world.NewZone(zd, cfg.World.ChannelCapacity,
			float32(cfg.World.SpatialCellSize))
	}

	bc := game.NewBroadcaster(nil)
	return &Deps{
		Config:   cfg,
		Log:      zap.NewNop(),
		Tables:   tables,
		World:    state,
		Bc:       bc,
		Combat:   game.NewCombat(state, tables, cfg, bc, zap.NewNop()),
		Movement: game.NewMovementSystem(state, cfg, bc),
		Spawner:  game.NewSpawner(state, tables, zap.NewNop()),
		Secrets:  gamenet.NewSecretRegistry(),
		Live:     make(map[uint64]*gamenet.Session),
	}
}

// testSession builds an in-world session over a pipe that nothing reads.
// Handlers only stage frames, so the dead pipe never blocks anything.
func testSession(t *testing.T, id uint64) *gamenet.Session {
	t.Helper()
	c1, c2 := stdnet.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })

	in := make(chan gamenet.Inbound, 16)
	sess := gamenet.NewSession(c1, id, in, gamenet.SessionConfig{
		OutQueueSize:    64,
		MalformedPerMin: 10,
		PreAuthIdle:     time.Minute,
		InWorldIdle:     time.Minute,
	}, zap.NewNop())
	sess.SetState(packet.StateInWorld)
	return sess
}

// addPlayer puts a level-1 warrior with a session into zone 1, channel 1.
func addPlayer(t *testing.T, deps *Deps, sess *gamenet.Session, charID uint64) *world.Player {
	t.Helper()
	p := &world.Player{
		SessionID: sess.ID,
		Session:   sess,
		AccountID: int64(charID),
		CharID:    charID,
		Name:      "測試者",
		ClassID:   1,
		Pos:       world.Vec3{Y: 10},
		Level:     1,
		HP:        100, MaxHP: 100,
		MP: 50, MaxMP: 50,
		Str: 10, Sta: 10, Dex: 10, Intel: 10,
		Skills:    map[uint32]int32{1: 1},
		Cooldowns: make(map[uint32]time.Time),
	}
	deps.World.AddPlayer(p)
	deps.World.Zones[1].Channels[0].Place(p)
	deps.Live[sess.ID] = sess
	return p
}

func addMonster(deps *Deps, ch *world.Channel, pos world.Vec3) *world.Monster {
	def := deps.Tables.Monsters.Get(5001)
	m := &world.Monster{
		ID:       deps.World.NextMonsterID(),
		DefID:    def.ID,
		Name:     def.Name,
		Pos:      pos,
		SpawnPos: pos,
		Level:    def.Level,
		HP:       def.MaxHP,
		MaxHP:    def.MaxHP,
		State:    world.AIIdle,
	}
	ch.AddMonster(m)
	return m
}

// wireFrame is one decoded outbound frame.
type wireFrame struct {
	Op      packet.Opcode
	Payload []byte
}

// drainFrames flushes staged output and returns every queued frame, in order.
func drainFrames(t *testing.T, deps *Deps, sess *gamenet.Session) []wireFrame {
	t.Helper()
	deps.Bc.FlushAll()
	sess.FlushOutput()

	var frames []wireFrame
	for {
		select {
		case raw := <-sess.OutQueue:
			require.GreaterOrEqual(t, len(raw), 6)
			frames = append(frames, wireFrame{
				Op:      packet.Opcode(binary.BigEndian.Uint16(raw[4:6])),
				Payload: raw[6:],
			})
		default:
			return frames
		}
	}
}

func opcodesOf(frames []wireFrame) []packet.Opcode {
	ops := make([]packet.Opcode, len(frames))
	for i, f := range frames {
		ops[i] = f.Op
	}
	return ops
}

// errCodes decodes every error frame in the batch.
func errCodes(t *testing.T, frames []wireFrame) []packet.ErrorCode {
	t.Helper()
	var codes []packet.ErrorCode
	for _, f := range frames {
		if f.Op != packet.S_OPCODE_ERROR {
			continue
		}
		var resp proto.ErrorResponse
		require.NoError(t, resp.Unmarshal(f.Payload))
		codes = append(codes, packet.ErrorCode(resp.Code))
	}
	return codes
}
