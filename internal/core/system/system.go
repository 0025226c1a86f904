package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput     Phase = iota // 0: drain the input queue, dispatch handlers
	PhaseMovement               // 1: advance + validate player movement
	PhaseAI                     // 2: monster state machines
	PhaseCombat                 // 3: auto-attacks and queued hits
	PhaseDeath                  // 4: death transitions and respawns
	PhaseOutput                 // 5: flush every touched socket once
	PhasePersist                // 6: dirty write-back scheduling
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
