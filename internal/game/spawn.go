package game

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/world"
)

// Spawner populates channels with their monster population. Each channel
// gets its own copies of every spawn definition; a channel opened mid-run by
// overflow is populated the moment it appears.
type Spawner struct {
	state  *world.State
	tables *data.Tables
	rng    *rand.Rand
	log    *zap.Logger

	populated map[*world.Channel]struct{}
}

func NewSpawner(state *world.State, tables *data.Tables, log *zap.Logger) *Spawner {
	return &Spawner{
		state:     state,
		tables:    tables,
		rng:       rand.New(rand.NewSource(0x5eed)),
		log:       log,
		populated: make(map[*world.Channel]struct{}),
	}
}

// EnsurePopulated spawns monsters into any channel that has none yet.
// Cheap to call every time a channel is handed out.
func (s *Spawner) EnsurePopulated(ch *world.Channel) {
	if _, done := s.populated[ch]; done {
		return
	}
	s.populated[ch] = struct{}{}

	count := 0
	for _, def := range s.tables.Spawns.ForZone(ch.Zone.ID) {
		mdef := s.tables.Monsters.Get(def.MonsterID)
		if mdef == nil {
			continue
		}
		for i := 0; i < def.Count; i++ {
			pos := world.Vec3{
				X: def.X + (s.rng.Float32()*2-1)*def.Radius,
				Y: def.Y,
				Z: def.Z + (s.rng.Float32()*2-1)*def.Radius,
			}
			pos = ch.Zone.Clamp(pos)
			m := &world.Monster{
				ID:       s.state.NextMonsterID(),
				DefID:    mdef.ID,
				Name:     mdef.Name,
				Pos:      pos,
				SpawnPos: pos,
				Level:    mdef.Level,
				HP:       mdef.MaxHP,
				MaxHP:    mdef.MaxHP,
				State:    world.AIIdle,
			}
			ch.AddMonster(m)
			count++
		}
	}
	s.log.Info("頻道怪物生成完成",
		zap.Int32("zone", ch.Zone.ID), zap.Int32("channel", ch.ID), zap.Int("monsters", count))
}
