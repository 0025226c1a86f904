package game

import (
	"time"

	coresys "github.com/ebonreach/server/internal/core/system"
)

// OutputSystem flushes every session the tick touched, exactly once. This is
// the only place staged frames cross from the game loop to writer goroutines.
type OutputSystem struct {
	bc *Broadcaster
}

func NewOutputSystem(bc *Broadcaster) *OutputSystem {
	return &OutputSystem{bc: bc}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.bc.FlushAll()
}
