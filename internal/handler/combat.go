package handler

import (
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
)

// HandleSelectTarget points the player's combat state at a monster.
func HandleSelectTarget(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.SelectTarget
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil {
		return
	}

	if req.TargetID == 0 {
		p.TargetID = 0
		p.AutoAttack = false
		return
	}
	ch := deps.World.ChannelOf(p)
	if ch == nil {
		return
	}
	m := ch.Monsters[req.TargetID]
	if m == nil || !m.Alive() {
		sess.SendError(packet.C_OPCODE_SELECT_TARGET, packet.ErrInvalidTarget)
		return
	}
	p.TargetID = req.TargetID
}

// HandleAutoAttackToggle starts or stops the basic-attack loop.
func HandleAutoAttackToggle(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.AutoAttackToggle
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil || !p.Alive() {
		return
	}
	if req.Enabled && p.TargetID == 0 {
		sess.SendError(packet.C_OPCODE_AUTO_ATTACK_TOGGLE, packet.ErrInvalidTarget)
		return
	}
	p.AutoAttack = req.Enabled
}

// HandleUseSkill runs the full skill gate order and, on a clean pass, casts.
func HandleUseSkill(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.UseSkill
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil || !p.Alive() {
		return
	}

	def, target, code := deps.Combat.ValidateSkill(p, req.SkillID, req.TargetID)
	if code != 0 {
		sess.SendError(packet.C_OPCODE_USE_SKILL, code)
		return
	}
	deps.Combat.UseSkill(p, def, target)
}

// HandleStatAllocate spends unspent stat points. The sum is checked against
// the pool before anything is applied, so a short pool rejects the whole
// request instead of applying a prefix.
func HandleStatAllocate(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.StatAllocate
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil {
		return
	}

	total := req.Total()
	if total == 0 || total > uint32(p.Unspent) {
		sess.SendError(packet.C_OPCODE_STAT_ALLOCATE, packet.ErrStatOverdraw)
		return
	}

	p.Str += int32(req.Strength)
	p.Sta += int32(req.Stamina)
	p.Dex += int32(req.Dexterity)
	p.Intel += int32(req.Intellect)
	p.Unspent -= int32(total)

	// Stamina and intellect feed the pools; current values keep their ratio
	// simple and just never shrink below what the player had.
	if cls := deps.Tables.Classes.Get(p.ClassID); cls != nil {
		p.MaxHP = cls.MaxHPAt(p.Level) + p.Sta*10
		p.MaxMP = cls.MaxMPAt(p.Level) + p.Intel*10
	}
	p.MarkDirty()
	deps.Combat.SendStats(p)
}
