package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

func TestSelectTarget(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	ch := deps.World.ChannelOf(p)
	m := addMonster(deps, ch, world.Vec3{X: 5})

	req := proto.SelectTarget{TargetID: m.ID}
	HandleSelectTarget(sess, req.Marshal(), deps)
	assert.Equal(t, m.ID, p.TargetID)

	// Clearing the target also stops the auto-attack loop.
	p.AutoAttack = true
	req = proto.SelectTarget{}
	HandleSelectTarget(sess, req.Marshal(), deps)
	assert.Zero(t, p.TargetID)
	assert.False(t, p.AutoAttack)
}

func TestSelectTargetRejectsMissingAndDead(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	ch := deps.World.ChannelOf(p)

	req := proto.SelectTarget{TargetID: 999}
	HandleSelectTarget(sess, req.Marshal(), deps)
	assert.Zero(t, p.TargetID)

	m := addMonster(deps, ch, world.Vec3{X: 5})
	m.State = world.AIDead
	req = proto.SelectTarget{TargetID: m.ID}
	HandleSelectTarget(sess, req.Marshal(), deps)
	assert.Zero(t, p.TargetID)

	codes := errCodes(t, drainFrames(t, deps, sess))
	require.Len(t, codes, 2)
	assert.Equal(t, packet.ErrInvalidTarget, codes[0])
	assert.Equal(t, packet.ErrInvalidTarget, codes[1])
}

func TestAutoAttackToggleNeedsTarget(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)

	req := proto.AutoAttackToggle{Enabled: true}
	HandleAutoAttackToggle(sess, req.Marshal(), deps)
	assert.False(t, p.AutoAttack)
	assert.Equal(t, []packet.ErrorCode{packet.ErrInvalidTarget},
		errCodes(t, drainFrames(t, deps, sess)))

	ch := deps.World.ChannelOf(p)
	m := addMonster(deps, ch, world.Vec3{X: 5})
	p.TargetID = m.ID
	HandleAutoAttackToggle(sess, req.Marshal(), deps)
	assert.True(t, p.AutoAttack)

	// Disabling never needs a target.
	p.TargetID = 0
	req = proto.AutoAttackToggle{}
	HandleAutoAttackToggle(sess, req.Marshal(), deps)
	assert.False(t, p.AutoAttack)
}

func TestUseSkillGateOrder(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	ch := deps.World.ChannelOf(p)
	m := addMonster(deps, ch, world.Vec3{X: 5})

	cases := []struct {
		name  string
		setup func()
		req   proto.UseSkill
		want  packet.ErrorCode
	}{
		{
			name: "unknown skill",
			req:  proto.UseSkill{SkillID: 99, TargetID: m.ID},
			want: packet.ErrSkillUnknown,
		},
		{
			name: "not learned",
			req:  proto.UseSkill{SkillID: 2, TargetID: m.ID},
			want: packet.ErrSkillNotLearned,
		},
		{
			name:  "not enough mp",
			setup: func() { p.MP = 3 },
			req:   proto.UseSkill{SkillID: 1, TargetID: m.ID},
			want:  packet.ErrNotEnoughMP,
		},
		{
			name: "on cooldown",
			setup: func() {
				p.MP = 50
				p.Cooldowns[1] = deps.Combat.Now().Add(time.Second)
			},
			req:  proto.UseSkill{SkillID: 1, TargetID: m.ID},
			want: packet.ErrSkillOnCooldown,
		},
		{
			name:  "missing target",
			setup: func() { delete(p.Cooldowns, 1) },
			req:   proto.UseSkill{SkillID: 1, TargetID: 999},
			want:  packet.ErrInvalidTarget,
		},
		{
			name:  "out of range",
			setup: func() { m.Pos = world.Vec3{X: 50} },
			req:   proto.UseSkill{SkillID: 1, TargetID: m.ID},
			want:  packet.ErrOutOfRange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			HandleUseSkill(sess, tc.req.Marshal(), deps)
			codes := errCodes(t, drainFrames(t, deps, sess))
			require.Len(t, codes, 1)
			assert.Equal(t, tc.want, codes[0])
		})
	}
}

func TestUseSkillCasts(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	ch := deps.World.ChannelOf(p)
	m := addMonster(deps, ch, world.Vec3{X: 5})

	req := proto.UseSkill{SkillID: 1, TargetID: m.ID}
	HandleUseSkill(sess, req.Marshal(), deps)

	assert.Equal(t, int32(45), p.MP, "cast spends the skill's MP cost")
	assert.True(t, p.Cooldowns[1].After(deps.Combat.Now()))
	assert.Less(t, m.HP, m.MaxHP)

	frames := drainFrames(t, deps, sess)
	assert.Contains(t, opcodesOf(frames), packet.S_OPCODE_DAMAGE_EVENT)
	assert.Empty(t, errCodes(t, frames))
}

func TestUseSkillIgnoredWhileDead(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	ch := deps.World.ChannelOf(p)
	m := addMonster(deps, ch, world.Vec3{X: 5})
	p.Dead = true

	req := proto.UseSkill{SkillID: 1, TargetID: m.ID}
	HandleUseSkill(sess, req.Marshal(), deps)

	assert.Equal(t, int32(50), p.MP)
	assert.Equal(t, m.MaxHP, m.HP)
}

func TestStatAllocate(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	p.Unspent = 8

	req := proto.StatAllocate{Strength: 2, Stamina: 3, Dexterity: 1, Intellect: 2}
	HandleStatAllocate(sess, req.Marshal(), deps)

	assert.Equal(t, int32(12), p.Str)
	assert.Equal(t, int32(13), p.Sta)
	assert.Equal(t, int32(11), p.Dex)
	assert.Equal(t, int32(12), p.Intel)
	assert.Zero(t, p.Unspent)
	assert.True(t, p.Dirty)

	// Pools follow stamina and intellect: class base plus 10 per point.
	assert.Equal(t, int32(100+13*10), p.MaxHP)
	assert.Equal(t, int32(50+12*10), p.MaxMP)

	frames := drainFrames(t, deps, sess)
	assert.Contains(t, opcodesOf(frames), packet.S_OPCODE_STATS_UPDATE)
}

func TestStatAllocateOverdrawRejectedWhole(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	p.Unspent = 3

	// Total exceeds the pool: nothing may be applied, not even a prefix.
	req := proto.StatAllocate{Strength: 2, Stamina: 2}
	HandleStatAllocate(sess, req.Marshal(), deps)

	assert.Equal(t, int32(10), p.Str)
	assert.Equal(t, int32(10), p.Sta)
	assert.Equal(t, int32(3), p.Unspent)
	assert.Equal(t, []packet.ErrorCode{packet.ErrStatOverdraw},
		errCodes(t, drainFrames(t, deps, sess)))
}

func TestStatAllocateZeroRejected(t *testing.T) {
	deps := testDeps(t)
	sess := testSession(t, 1)
	p := addPlayer(t, deps, sess, 10)
	p.Unspent = 5

	req := proto.StatAllocate{}
	HandleStatAllocate(sess, req.Marshal(), deps)

	assert.Equal(t, int32(5), p.Unspent)
	assert.Equal(t, []packet.ErrorCode{packet.ErrStatOverdraw},
		errCodes(t, drainFrames(t, deps, sess)))
}
