package game

import (
	"github.com/ebonreach/server/internal/metrics"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/world"
)

// Encoder is the seam between game events and wire bytes. The identity
// encoder ships frames as-is; a delta or batching encoder can slot in here
// without touching any system.
type Encoder interface {
	Encode(op packet.Opcode, payload []byte) (packet.Opcode, []byte)
}

type identityEncoder struct{}

func (identityEncoder) Encode(op packet.Opcode, payload []byte) (packet.Opcode, []byte) {
	return op, payload
}

// Broadcaster stages frames onto session buffers during the tick and flushes
// every touched socket exactly once in the output phase. Game loop only.
type Broadcaster struct {
	enc     Encoder
	touched map[uint64]*net.Session
}

func NewBroadcaster(enc Encoder) *Broadcaster {
	if enc == nil {
		enc = identityEncoder{}
	}
	return &Broadcaster{
		enc:     enc,
		touched: make(map[uint64]*net.Session),
	}
}

// ToSession stages one frame for a session.
func (b *Broadcaster) ToSession(sess *net.Session, op packet.Opcode, payload []byte) {
	if sess == nil || sess.IsClosed() {
		return
	}
	encOp, encPayload := b.enc.Encode(op, payload)
	sess.Send(encOp, encPayload)
	b.touched[sess.ID] = sess
	metrics.FramesOut.Inc()
}

// ToPlayer stages one frame for a player's session.
func (b *Broadcaster) ToPlayer(p *world.Player, op packet.Opcode, payload []byte) {
	b.ToSession(p.Session, op, payload)
}

// ToArea stages a frame for every player whose interest cells cover pos.
// The grid returns every entity in the 3x3 neighbourhood; only entries that
// are players receive frames.
func (b *Broadcaster) ToArea(ch *world.Channel, pos world.Vec3, op packet.Opcode, payload []byte) {
	for _, id := range ch.Grid.Nearby(pos) {
		if p, ok := ch.Players[id]; ok {
			b.ToPlayer(p, op, payload)
		}
	}
}

// ToAreaExcept is ToArea minus one entity, for events the actor renders
// locally.
func (b *Broadcaster) ToAreaExcept(ch *world.Channel, pos world.Vec3, except uint64, op packet.Opcode, payload []byte) {
	for _, id := range ch.Grid.Nearby(pos) {
		if id == except {
			continue
		}
		if p, ok := ch.Players[id]; ok {
			b.ToPlayer(p, op, payload)
		}
	}
}

// ToChannel stages a frame for every player in the channel, interest range
// notwithstanding. Chat and server notices use this.
func (b *Broadcaster) ToChannel(ch *world.Channel, op packet.Opcode, payload []byte) {
	for _, p := range ch.Players {
		b.ToPlayer(p, op, payload)
	}
}

// FlushAll drains every touched session's staging buffer to its writer
// goroutine. Called once per tick by the output system.
func (b *Broadcaster) FlushAll() {
	for id, sess := range b.touched {
		sess.FlushOutput()
		delete(b.touched, id)
	}
}
