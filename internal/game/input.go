package game

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/metrics"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
)

// inputBudget bounds how many messages one tick will process. Anything past
// the budget waits in the channel for the next tick, which keeps a flood
// from stretching the tick instead of the queue.
const inputBudget = 8192

// InputSystem is the only place client messages enter the game loop. It
// drains the shared intake and dispatches through the registry; it also
// notices dead sessions and runs the disconnect path before their state is
// torn down.
type InputSystem struct {
	in       <-chan net.Inbound
	dead     <-chan uint64
	registry *packet.Registry
	onLeave  func(sessionID uint64)
	log      *zap.Logger
}

func NewInputSystem(in <-chan net.Inbound, dead <-chan uint64, registry *packet.Registry, onLeave func(sessionID uint64), log *zap.Logger) *InputSystem {
	return &InputSystem{in: in, dead: dead, registry: registry, onLeave: onLeave, log: log}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Disconnects first, so a message from a session that died this tick
	// cannot act on a player mid-teardown.
	for {
		select {
		case id := <-s.dead:
			s.onLeave(id)
			continue
		default:
		}
		break
	}

	metrics.InputQueueDepth.Set(float64(len(s.in)))

	for processed := 0; processed < inputBudget; processed++ {
		select {
		case msg := <-s.in:
			s.dispatch(msg)
		default:
			return
		}
	}
	s.log.Warn("輸入預算用盡，剩餘訊息延至下一刻", zap.Int("backlog", len(s.in)))
}

func (s *InputSystem) dispatch(msg net.Inbound) {
	sess := msg.Session
	if sess.IsClosed() {
		return
	}
	metrics.FramesIn.Inc()

	if !s.registry.Known(msg.Opcode) {
		if !sess.NoteMalformed() {
			sess.Close()
		}
		return
	}
	if err := s.registry.Dispatch(sess, sess.State(), msg.Opcode, msg.Payload); err != nil {
		if !sess.NoteMalformed() {
			sess.Close()
		}
	}
}
