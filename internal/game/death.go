package game

import (
	"time"

	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

// DeathSystem handles everything that comes back from the dead: monster
// respawns, player respawns, and loot expiry.
type DeathSystem struct {
	state  *world.State
	tables *data.Tables
	combat *Combat
	bc     *Broadcaster
	now    func() time.Time
}

func NewDeathSystem(state *world.State, tables *data.Tables, combat *Combat, bc *Broadcaster) *DeathSystem {
	return &DeathSystem{state: state, tables: tables, combat: combat, bc: bc, now: time.Now}
}

func (s *DeathSystem) Phase() coresys.Phase { return coresys.PhaseDeath }

func (s *DeathSystem) Update(_ time.Duration) {
	now := s.now()
	for _, zone := range s.state.Zones {
		for _, ch := range zone.Channels {
			for _, m := range ch.Monsters {
				if m.State == world.AIDead && !now.Before(m.RespawnAt) {
					s.respawnMonster(ch, m)
				}
			}
			for _, l := range ch.Loot {
				if l.Expired(now) {
					s.expireLoot(ch, l)
				}
			}
		}
	}
	for _, p := range s.state.ByCharID {
		if p.Dead && !now.Before(p.DeadUntil) {
			s.respawnPlayer(p)
		}
	}
}

// respawnMonster brings a monster back at its spawn point at full HP.
func (s *DeathSystem) respawnMonster(ch *world.Channel, m *world.Monster) {
	def := s.tables.Monsters.Get(m.DefID)
	if def == nil {
		return
	}
	m.Pos = m.SpawnPos
	m.HP = def.MaxHP
	m.State = world.AIIdle
	m.TargetID = 0
	ch.Grid.Add(m.ID, m.Pos)

	spawn := proto.EntitySpawn{
		EntityID: m.ID,
		Kind:     proto.KindMonster,
		DefID:    uint32(m.DefID),
		Name:     m.Name,
		X:        m.Pos.X, Y: m.Pos.Y, Z: m.Pos.Z,
		HP: uint32(m.HP), MaxHP: uint32(def.MaxHP),
		Level: uint32(def.Level),
	}
	s.bc.ToArea(ch, m.Pos, packet.S_OPCODE_ENTITY_SPAWN, spawn.Marshal())
}

// respawnPlayer moves the player to the zone spawn point at full pools.
func (s *DeathSystem) respawnPlayer(p *world.Player) {
	ch := s.state.ChannelOf(p)
	if ch == nil {
		return
	}
	oldPos := p.Pos

	p.Dead = false
	p.HP = p.MaxHP
	p.MP = p.MaxMP
	p.Pos = ch.Zone.SpawnPoint()
	p.Moving = false
	p.MoveDir = world.Vec3{}
	p.MarkDirty()
	ch.Grid.Move(p.CharID, oldPos, p.Pos)

	pc := proto.PositionCorrection{X: p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z}
	s.bc.ToPlayer(p, packet.S_OPCODE_POSITION_CORRECTION, pc.Marshal())
	s.combat.SendStats(p)

	pb := proto.PositionBroadcast{
		EntityID: p.CharID,
		X:        p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z,
	}
	s.bc.ToAreaExcept(ch, p.Pos, p.CharID, packet.S_OPCODE_POSITION_BROADCAST, pb.Marshal())
}

// expireLoot sweeps an unclaimed drop from the world.
func (s *DeathSystem) expireLoot(ch *world.Channel, l *world.LootDrop) {
	despawn := proto.EntityDespawn{EntityID: l.ID}
	s.bc.ToArea(ch, l.Pos, packet.S_OPCODE_ENTITY_DESPAWN, despawn.Marshal())
	ch.RemoveLoot(l)
}
