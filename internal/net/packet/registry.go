package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateConnected     SessionState = iota // TCP accepted, nothing proven
	StateAuthenticated                     // JWT verified, at character select
	StateInWorld                           // playing
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateAuthenticated:
		return "Authenticated"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers. The session
// pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, payload []byte)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[Opcode]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[Opcode]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry) Register(opcode Opcode, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Known reports whether an opcode has a registered handler. The frame layer
// uses this to count unknown opcodes against the malformed budget.
func (reg *Registry) Known(opcode Opcode) bool {
	_, ok := reg.handlers[opcode]
	return ok
}

// Dispatch finds the handler for the opcode, validates the session state,
// and calls the handler. Returns an error if the opcode is unknown or the
// session state is not allowed.
func (reg *Registry) Dispatch(sess any, state SessionState, opcode Opcode, payload []byte) error {
	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("未知操作碼",
			zap.Uint16("opcode", uint16(opcode)),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("unknown opcode 0x%04X", uint16(opcode))
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("操作碼在此狀態下不允許",
			zap.Uint16("opcode", uint16(opcode)),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("opcode 0x%04X not allowed in state %s", uint16(opcode), state)
	}

	return reg.safeCall(entry.fn, sess, payload, opcode)
}

// safeCall executes a handler with panic recovery so a single bad packet
// cannot abort the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, payload []byte, opcode Opcode) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.Uint16("opcode", uint16(opcode)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode 0x%04X: %v", uint16(opcode), rec)
		}
	}()
	fn(sess, payload)
	return nil
}
