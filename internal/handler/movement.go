package handler

import (
	"github.com/ebonreach/server/internal/game"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/world"

	"github.com/ebonreach/server/internal/proto"
)

// HandleMovementInput records the client's movement intent. The movement
// system integrates it next phase; nothing here touches the position.
// Arrives over both TCP and the verified UDP channel.
func HandleMovementInput(sess *net.Session, payload []byte, deps *Deps) {
	var in proto.MovementInput
	if err := in.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil || p.Dead {
		return
	}

	// UDP retries can land the same input twice via the TCP fallback path;
	// the client timestamp keeps only the newest intent.
	if in.ClientTime != 0 && in.ClientTime <= p.LastInputSeq {
		return
	}

	dir := world.Vec3{X: in.DirX, Y: in.DirY, Z: in.DirZ}
	if !game.DirValid(dir) {
		deps.Movement.RejectMove(p)
		return
	}
	if in.ClientTime != 0 {
		p.LastInputSeq = in.ClientTime
	}

	p.Flying = in.Flying
	p.MoveDir = dir
	p.Moving = dir != (world.Vec3{})
}
