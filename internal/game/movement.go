package game

import (
	"math"
	"time"

	"github.com/ebonreach/server/internal/config"
	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/metrics"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

// speedGrace tolerates client clock jitter before a direction vector counts
// as a speed hack. The check is per input, never accumulated, so a laggy
// client that bursts two ticks of movement is not punished.
const speedGrace = 1.2

// MovementSystem integrates movement intents into authoritative positions.
type MovementSystem struct {
	state *world.State
	cfg   *config.Config
	bc    *Broadcaster
}

func NewMovementSystem(state *world.State, cfg *config.Config, bc *Broadcaster) *MovementSystem {
	return &MovementSystem{state: state, cfg: cfg, bc: bc}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseMovement }

func (s *MovementSystem) Update(dt time.Duration) {
	for _, p := range s.state.ByCharID {
		if !p.Moving || !p.Alive() {
			continue
		}
		ch := s.state.ChannelOf(p)
		if ch == nil {
			continue
		}
		s.step(ch, p, dt)
	}
}

// DirValid rejects direction vectors longer than the grace allows. A unit
// vector is the honest maximum; anything past the grace is a client claiming
// to move faster than its speed stat.
func DirValid(dir world.Vec3) bool {
	mag := math.Sqrt(float64(dir.X)*float64(dir.X) +
		float64(dir.Y)*float64(dir.Y) + float64(dir.Z)*float64(dir.Z))
	return mag <= speedGrace
}

func (s *MovementSystem) step(ch *world.Channel, p *world.Player, dt time.Duration) {
	speed := float32(s.cfg.World.GroundSpeed)
	if p.Flying {
		speed = float32(s.cfg.World.FlightSpeed)
	}
	step := speed * float32(dt.Seconds())

	oldPos := p.Pos
	newPos := world.Vec3{
		X: oldPos.X + p.MoveDir.X*step,
		Y: oldPos.Y + p.MoveDir.Y*step,
		Z: oldPos.Z + p.MoveDir.Z*step,
	}
	if !p.Flying {
		newPos.Y = oldPos.Y // 地面移動不改變高度
	}

	zone := ch.Zone
	if !zone.Contains(newPos) {
		newPos = zone.Clamp(newPos)
		s.correct(p, newPos)
	}

	if newPos != oldPos {
		p.Pos = newPos
		p.Rotation = float32(math.Atan2(float64(p.MoveDir.X), float64(p.MoveDir.Z)))
		ch.Grid.Move(p.CharID, oldPos, newPos)
	}

	pb := proto.PositionBroadcast{
		EntityID: p.CharID,
		X:        p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z,
		Rotation: p.Rotation,
		Moving:   true,
	}
	s.bc.ToArea(ch, p.Pos, packet.S_OPCODE_POSITION_BROADCAST, pb.Marshal())
}

// correct snaps the client back to the authoritative position.
func (s *MovementSystem) correct(p *world.Player, pos world.Vec3) {
	pc := proto.PositionCorrection{X: pos.X, Y: pos.Y, Z: pos.Z, Rotation: p.Rotation}
	s.bc.ToPlayer(p, packet.S_OPCODE_POSITION_CORRECTION, pc.Marshal())
}

// RejectMove is called by the input handler when a direction vector fails
// validation: the player stops and gets snapped to where the server has them.
func (s *MovementSystem) RejectMove(p *world.Player) {
	metrics.CheatRejections.WithLabelValues("speed").Inc()
	p.Moving = false
	p.MoveDir = world.Vec3{}
	s.correct(p, p.Pos)
}
