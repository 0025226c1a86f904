package game

import (
	"math"
	"time"

	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

// AISystem drives the monster state machines. The machine is closed: every
// state has an explicit exit for a vanished target, so a monster can never
// wedge chasing a player that logged out.
type AISystem struct {
	state  *world.State
	tables *data.Tables
	combat *Combat
	bc     *Broadcaster
	now    func() time.Time
}

func NewAISystem(state *world.State, tables *data.Tables, combat *Combat, bc *Broadcaster) *AISystem {
	return &AISystem{state: state, tables: tables, combat: combat, bc: bc, now: time.Now}
}

func (s *AISystem) Phase() coresys.Phase { return coresys.PhaseAI }

func (s *AISystem) Update(dt time.Duration) {
	for _, zone := range s.state.Zones {
		for _, ch := range zone.Channels {
			for _, m := range ch.Monsters {
				s.tick(ch, m, dt)
			}
		}
	}
}

func (s *AISystem) tick(ch *world.Channel, m *world.Monster, dt time.Duration) {
	def := s.tables.Monsters.Get(m.DefID)
	if def == nil {
		return
	}

	switch m.State {
	case world.AIIdle:
		s.tickIdle(ch, m, def)
	case world.AIAggro:
		s.tickAggro(ch, m, def, dt)
	case world.AIAttack:
		s.tickAttack(ch, m, def)
	case world.AIReturn:
		s.tickReturn(ch, m, def, dt)
	case world.AIDead:
		// 重生由死亡系統處理
	}
}

// tickIdle scans the interest cells for a living player to aggro.
func (s *AISystem) tickIdle(ch *world.Channel, m *world.Monster, def *data.MonsterDef) {
	var best *world.Player
	bestDist := def.AggroRange
	for _, id := range ch.Grid.Nearby(m.Pos) {
		p, ok := ch.Players[id]
		if !ok || !p.Alive() {
			continue
		}
		d := dist2D(m.Pos, p.Pos)
		if d <= bestDist {
			bestDist = d
			best = p
		}
	}
	if best != nil {
		m.State = world.AIAggro
		m.TargetID = best.CharID
	}
}

// target resolves the aggro target, clearing it when invalid.
func (s *AISystem) target(ch *world.Channel, m *world.Monster) *world.Player {
	if m.TargetID == 0 {
		return nil
	}
	p, ok := ch.Players[m.TargetID]
	if !ok || !p.Alive() {
		m.TargetID = 0
		return nil
	}
	return p
}

func (s *AISystem) tickAggro(ch *world.Channel, m *world.Monster, def *data.MonsterDef, dt time.Duration) {
	p := s.target(ch, m)
	if p == nil || dist2D(m.SpawnPos, m.Pos) > def.LeashRange {
		s.startReturn(m)
		return
	}
	if dist2D(m.Pos, p.Pos) <= def.AttackRange {
		m.State = world.AIAttack
		return
	}
	s.moveToward(ch, m, p.Pos, def.MoveSpeed, dt)
}

func (s *AISystem) tickAttack(ch *world.Channel, m *world.Monster, def *data.MonsterDef) {
	p := s.target(ch, m)
	if p == nil || dist2D(m.SpawnPos, m.Pos) > def.LeashRange {
		s.startReturn(m)
		return
	}
	if dist2D(m.Pos, p.Pos) > def.AttackRange {
		m.State = world.AIAggro
		return
	}
	interval := time.Duration(def.AttackIntervalMs) * time.Millisecond
	if s.now().Sub(m.LastAttack) < interval {
		return
	}
	m.LastAttack = s.now()
	s.combat.MonsterHitPlayer(m, p)
}

// startReturn drops aggro and walks home.
func (s *AISystem) startReturn(m *world.Monster) {
	m.State = world.AIReturn
	m.TargetID = 0
}

func (s *AISystem) tickReturn(ch *world.Channel, m *world.Monster, def *data.MonsterDef, dt time.Duration) {
	if dist2D(m.Pos, m.SpawnPos) < 0.5 {
		// 到家：回滿血，重新待機
		m.Pos = m.SpawnPos
		m.HP = def.MaxHP
		m.State = world.AIIdle
		return
	}
	s.moveToward(ch, m, m.SpawnPos, def.MoveSpeed, dt)
}

// moveToward steps the monster at its move speed and broadcasts the result.
func (s *AISystem) moveToward(ch *world.Channel, m *world.Monster, dest world.Vec3, speed float32, dt time.Duration) {
	dx := dest.X - m.Pos.X
	dz := dest.Z - m.Pos.Z
	dist := float32(math.Sqrt(float64(dx*dx + dz*dz)))
	if dist == 0 {
		return
	}
	step := speed * float32(dt.Seconds())
	if step > dist {
		step = dist
	}

	oldPos := m.Pos
	m.Pos.X += dx / dist * step
	m.Pos.Z += dz / dist * step
	m.Rotation = float32(math.Atan2(float64(dx), float64(dz)))
	ch.Grid.Move(m.ID, oldPos, m.Pos)

	pb := proto.PositionBroadcast{
		EntityID: m.ID,
		X:        m.Pos.X, Y: m.Pos.Y, Z: m.Pos.Z,
		Rotation: m.Rotation,
		Moving:   true,
	}
	s.bc.ToArea(ch, m.Pos, packet.S_OPCODE_POSITION_BROADCAST, pb.Marshal())
}
