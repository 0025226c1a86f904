package handler

import (
	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

// moveToChannel relocates a player between channels, handling despawn and
// spawn visibility on both sides. The caller has already validated the move.
func moveToChannel(deps *Deps, p *world.Player, from, to *world.Channel, pos world.Vec3) {
	despawn := proto.EntityDespawn{EntityID: p.CharID}
	deps.Bc.ToAreaExcept(from, p.Pos, p.CharID, packet.S_OPCODE_ENTITY_DESPAWN, despawn.Marshal())
	from.RemovePlayer(p)

	p.Pos = pos
	p.Moving = false
	p.MoveDir = world.Vec3{}
	p.TargetID = 0
	p.AutoAttack = false
	to.Place(p)
	p.MarkDirty()

	spawn := spawnOfPlayer(p)
	deps.Bc.ToAreaExcept(to, p.Pos, p.CharID, packet.S_OPCODE_ENTITY_SPAWN, spawn.Marshal())
	sendZoneData(deps, p, to)
}

// HandleZoneChange moves a player to an adjacent zone. The character is
// force-flushed first so a crash mid-transition cannot lose the old position.
func HandleZoneChange(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.ZoneChange
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil || !p.Alive() {
		return
	}
	from := deps.World.ChannelOf(p)
	if from == nil {
		return
	}

	now := deps.Combat.Now()
	if now.Before(p.ZoneCooldownUntil) {
		sess.SendError(packet.C_OPCODE_ZONE_CHANGE, packet.ErrTravelCooldown)
		return
	}
	target := deps.World.Zones[int32(req.ZoneID)]
	if target == nil || !from.Zone.Def.LinkedTo(int32(req.ZoneID)) {
		sess.SendError(packet.C_OPCODE_ZONE_CHANGE, packet.ErrTravelDenied)
		return
	}
	if target.ID == from.Zone.ID {
		sendZoneData(deps, p, from)
		return
	}

	// 先落地再搬家：沖寫失敗就留在原區。
	ctx, cancel := deps.ctx()
	_, err := deps.Pipeline.ForceFlush(ctx, p)
	cancel()
	if err != nil {
		deps.Log.Error("換區前沖寫失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_ZONE_CHANGE, packet.ErrStoreUnavailable)
		return
	}

	to := target.BestChannelFor()
	deps.Spawner.EnsurePopulated(to)
	moveToChannel(deps, p, from, to, target.SpawnPoint())
	p.ZoneCooldownUntil = now.Add(deps.Config.World.ZoneChangeCooldown)

	deps.Log.Info("玩家換區",
		zap.Uint64("char", p.CharID),
		zap.Int32("from", from.Zone.ID), zap.Int32("to", target.ID))
}

// HandleChannelSwitch moves a player to a sibling channel of the same zone.
// Position carries over; only the simulation instance changes.
func HandleChannelSwitch(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.ChannelSwitch
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil || !p.Alive() {
		return
	}
	from := deps.World.ChannelOf(p)
	if from == nil {
		return
	}

	now := deps.Combat.Now()
	if now.Before(p.ChannelCooldownUntil) {
		sess.SendError(packet.C_OPCODE_CHANNEL_SWITCH, packet.ErrTravelCooldown)
		return
	}
	to := from.Zone.Channel(int32(req.ChannelID))
	if to == nil {
		sess.SendError(packet.C_OPCODE_CHANNEL_SWITCH, packet.ErrInvalidTarget)
		return
	}
	if to == from {
		return
	}
	if len(to.Players) >= deps.Config.World.ChannelCapacity {
		sess.SendError(packet.C_OPCODE_CHANNEL_SWITCH, packet.ErrChannelFull)
		return
	}

	// 換頻道與換區同規：先落地再搬家。
	ctx, cancel := deps.ctx()
	_, err := deps.Pipeline.ForceFlush(ctx, p)
	cancel()
	if err != nil {
		deps.Log.Error("換頻道前沖寫失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_CHANNEL_SWITCH, packet.ErrStoreUnavailable)
		return
	}

	deps.Spawner.EnsurePopulated(to)
	moveToChannel(deps, p, from, to, p.Pos)
	p.ChannelCooldownUntil = now.Add(deps.Config.World.ChannelSwitchCooldown)

	deps.Log.Info("玩家換頻道",
		zap.Uint64("char", p.CharID),
		zap.Int32("zone", from.Zone.ID),
		zap.Int32("from", from.ID), zap.Int32("to", to.ID))
}

// HandleChannelList reports the load of every channel in the player's zone.
func HandleChannelList(sess *net.Session, _ []byte, deps *Deps) {
	p := deps.player(sess)
	if p == nil {
		return
	}
	zone := deps.World.Zones[p.ZoneID]
	if zone == nil {
		return
	}

	list := proto.ChannelList{ZoneID: uint32(zone.ID)}
	for _, ch := range zone.Channels {
		list.Channels = append(list.Channels, proto.ChannelInfo{
			ChannelID: uint32(ch.ID),
			Load:      uint32(len(ch.Players)),
			Capacity:  uint32(deps.Config.World.ChannelCapacity),
		})
	}
	deps.Bc.ToSession(sess, packet.S_OPCODE_CHANNEL_LIST, list.Marshal())
}
