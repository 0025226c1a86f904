package game

import (
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/config"
	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/world"
)

// HeartbeatSystem cuts in-world sessions that stopped sending anything. The
// socket idle deadline is the long backstop; this sweep is the tight one
// that notices a wedged client while TCP still looks healthy.
type HeartbeatSystem struct {
	state     *world.State
	timeout   time.Duration
	sweep     time.Duration
	lastSweep time.Time
	now       func() time.Time
	log       *zap.Logger
}

func NewHeartbeatSystem(state *world.State, cfg config.NetworkConfig, log *zap.Logger) *HeartbeatSystem {
	return &HeartbeatSystem{
		state:   state,
		timeout: cfg.HeartbeatTimeout,
		sweep:   cfg.HeartbeatSweep,
		now:     time.Now,
		log:     log,
	}
}

func (s *HeartbeatSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *HeartbeatSystem) Update(_ time.Duration) {
	now := s.now()
	if now.Sub(s.lastSweep) < s.sweep {
		return
	}
	s.lastSweep = now

	for _, p := range s.state.BySession {
		sess := p.Session
		if sess == nil || sess.IsClosed() {
			continue
		}
		if now.Sub(sess.LastActivity()) > s.timeout {
			s.log.Info("心跳逾時，斷開連線",
				zap.Uint64("session", sess.ID), zap.Uint64("char", p.CharID))
			sess.Close()
		}
	}
}
