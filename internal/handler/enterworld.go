package handler

import (
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/metrics"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/persist"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

// loadCharacter prefers the cache tier: a recent logout's state may be newer
// there than in the store.
func loadCharacter(deps *Deps, charID uint64) (*persist.CharacterRecord, error) {
	ctx, cancel := deps.ctx()
	defer cancel()

	if rec, err := deps.CharCache.Load(ctx, charID); err == nil {
		return rec, nil
	}
	return deps.Characters.Load(ctx, charID)
}

// HandleEnterWorld loads the chosen character and places it into a zone
// channel. On success the session starts receiving tick output.
func HandleEnterWorld(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.EnterWorld
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}

	// The session token proven at login must come back unchanged.
	if len(req.SessionID) != 8 ||
		binary.BigEndian.Uint64(req.SessionID) != sess.Token {
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrSessionUnknown)
		return
	}
	claims, err := deps.Verifier.Verify(req.JWT)
	if err != nil || claims.AccountID != sess.AccountID.Load() {
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrUnauthenticated)
		return
	}
	if deps.player(sess) != nil {
		return // already in world, duplicate request
	}

	rec, err := loadCharacter(deps, req.CharacterID)
	if err != nil {
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrCharacterNotOwned)
		return
	}
	if rec.AccountID != sess.AccountID.Load() {
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrCharacterNotOwned)
		return
	}
	if _, online := deps.World.ByCharID[rec.ID]; online {
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrMultiLoginDenied)
		return
	}

	cls := deps.Tables.Classes.Get(rec.ClassID)
	if cls == nil {
		deps.Log.Error("角色職業定義缺失",
			zap.Uint64("char", rec.ID), zap.Int32("class", rec.ClassID))
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrServerError)
		return
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	skills, err := deps.Characters.LoadSkills(ctx, rec.ID)
	if err != nil {
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrStoreUnavailable)
		return
	}
	slots, gold, err := deps.Inventory.Load(ctx, rec.ID)
	if err != nil {
		sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrStoreUnavailable)
		return
	}

	zone := deps.World.Zones[rec.ZoneID]
	if zone == nil {
		// Saved zone no longer exists; fall back to the starter zone.
		zone = deps.World.Zones[starterZoneID]
		if zone == nil {
			sess.SendError(packet.C_OPCODE_ENTER_WORLD, packet.ErrServerError)
			return
		}
		rec.X, rec.Y, rec.Z = zone.Def.SpawnX, zone.Def.SpawnY, zone.Def.SpawnZ
	}

	p := &world.Player{
		SessionID: sess.ID,
		Session:   sess,
		AccountID: rec.AccountID,
		CharID:    rec.ID,
		Name:      rec.Name,
		ClassID:   rec.ClassID,
		Pos:       zone.Clamp(world.Vec3{X: rec.X, Y: rec.Y, Z: rec.Z}),
		Rotation:  rec.Rotation,
		Level:     rec.Level,
		XP:        rec.XP,
		Str:       rec.Str,
		Sta:       rec.Sta,
		Dex:       rec.Dex,
		Intel:     rec.Intel,
		Unspent:   rec.Unspent,
		Gold:      gold,
		Skills:    make(map[uint32]int32, len(skills)),
		Cooldowns: make(map[uint32]time.Time),
	}
	p.MaxHP = cls.MaxHPAt(p.Level) + p.Sta*10
	p.MaxMP = cls.MaxMPAt(p.Level) + p.Intel*10
	p.HP, p.MP = rec.HP, rec.MP
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
	if p.MP > p.MaxMP {
		p.MP = p.MaxMP
	}
	if p.HP <= 0 {
		// Logged out dead: come back alive at the zone's spawn point.
		p.Pos = zone.SpawnPoint()
		p.HP, p.MP = p.MaxHP, p.MaxMP
	}
	for id, level := range skills {
		p.Skills[id] = level
	}
	// Definitions may have gained skills since the last level-up was saved.
	for _, id := range deps.Tables.Skills.LearnedBy(p.ClassID, p.Level) {
		if p.Skills[id] == 0 {
			p.Skills[id] = 1
		}
	}
	p.GearAttack, p.GearDefense = gearOf(deps, slots)

	ch := zone.BestChannelFor()
	deps.Spawner.EnsurePopulated(ch)
	deps.World.AddPlayer(p)
	ch.Place(p)

	sess.CharacterID.Store(p.CharID)
	sess.SetState(packet.StateInWorld)
	metrics.PlayersInWorld.Set(float64(deps.World.PlayerCount()))

	deps.Log.Info("玩家進入世界",
		zap.Uint64("char", p.CharID), zap.String("name", p.Name),
		zap.Int32("zone", ch.Zone.ID), zap.Int32("channel", ch.ID))

	ack := proto.EnterWorldAck{
		EntityID:  p.CharID,
		ZoneID:    uint32(ch.Zone.ID),
		ChannelID: uint32(ch.ID),
		X:         p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z,
	}
	deps.Bc.ToSession(sess, packet.S_OPCODE_ENTER_WORLD_ACK, ack.Marshal())
	sendZoneData(deps, p, ch)
	deps.Bc.ToSession(sess, packet.S_OPCODE_INVENTORY, inventoryFrame(slots, gold).Marshal())
	deps.Combat.SendStats(p)

	spawn := spawnOfPlayer(p)
	deps.Bc.ToAreaExcept(ch, p.Pos, p.CharID, packet.S_OPCODE_ENTITY_SPAWN, spawn.Marshal())
}

// OnSessionLeave runs the disconnect path: despawn, force-flush, and release
// of the account lock. Safe for sessions in any state; wired into the input
// system so it always runs on the game loop.
func OnSessionLeave(deps *Deps, sessionID uint64) {
	sess := deps.Live[sessionID]
	delete(deps.Live, sessionID)

	released := true
	if p := deps.World.BySession[sessionID]; p != nil {
		if ch := deps.World.ChannelOf(p); ch != nil {
			ch.RemovePlayer(p)
			despawn := proto.EntityDespawn{EntityID: p.CharID}
			deps.Bc.ToArea(ch, p.Pos, packet.S_OPCODE_ENTITY_DESPAWN, despawn.Marshal())
		}
		deps.World.RemovePlayer(p)
		metrics.PlayersInWorld.Set(float64(deps.World.PlayerCount()))

		ctx, cancel := deps.ctx()
		if _, err := deps.Pipeline.ForceFlush(ctx, p); err != nil {
			// 兩層都寫不進去：保住帳號鎖，避免舊狀態在別處上線。
			deps.Log.Error("離線沖寫失敗，保留會話鎖",
				zap.Uint64("char", p.CharID), zap.Error(err))
			released = false
		}
		cancel()
		deps.Log.Info("玩家離開世界", zap.Uint64("char", p.CharID), zap.String("name", p.Name))
	}

	if sess == nil {
		return
	}
	if sess.Token != 0 {
		deps.Secrets.Unbind(sess.Token)
	}
	if acct := sess.AccountID.Load(); acct != 0 && released {
		ctx, cancel := deps.ctx()
		if err := deps.Sessions.Release(ctx, acct, sess.Token); err != nil {
			deps.Log.Warn("會話鎖釋放失敗", zap.Int64("account", acct), zap.Error(err))
		}
		cancel()
	}
}

func spawnOfPlayer(p *world.Player) proto.EntitySpawn {
	return proto.EntitySpawn{
		EntityID: p.CharID,
		Kind:     proto.KindPlayer,
		DefID:    uint32(p.ClassID),
		Name:     p.Name,
		X:        p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z,
		Rotation: p.Rotation,
		HP:       uint32(p.HP), MaxHP: uint32(p.MaxHP),
		Level: uint32(p.Level),
	}
}

func spawnOfMonster(m *world.Monster) proto.EntitySpawn {
	return proto.EntitySpawn{
		EntityID: m.ID,
		Kind:     proto.KindMonster,
		DefID:    uint32(m.DefID),
		Name:     m.Name,
		X:        m.Pos.X, Y: m.Pos.Y, Z: m.Pos.Z,
		Rotation: m.Rotation,
		HP:       uint32(m.HP), MaxHP: uint32(m.MaxHP),
		Level: uint32(m.Level),
	}
}

func spawnOfLoot(l *world.LootDrop) proto.EntitySpawn {
	return proto.EntitySpawn{
		EntityID: l.ID,
		Kind:     proto.KindLoot,
		DefID:    uint32(l.ItemDefID),
		X:        l.Pos.X, Y: l.Pos.Y, Z: l.Pos.Z,
	}
}

// snapshotFor collects every entity visible from pos, excluding the viewer.
func snapshotFor(ch *world.Channel, pos world.Vec3, viewerID uint64) []proto.EntitySpawn {
	var out []proto.EntitySpawn
	for _, id := range ch.Grid.Nearby(pos) {
		if id == viewerID {
			continue
		}
		if p, ok := ch.Players[id]; ok {
			out = append(out, spawnOfPlayer(p))
			continue
		}
		if m, ok := ch.Monsters[id]; ok && m.Alive() {
			out = append(out, spawnOfMonster(m))
			continue
		}
		if l, ok := ch.Loot[id]; ok {
			out = append(out, spawnOfLoot(l))
		}
	}
	return out
}

// sendZoneData pushes the post-transition snapshot to one player.
func sendZoneData(deps *Deps, p *world.Player, ch *world.Channel) {
	zd := proto.ZoneData{
		ZoneID:    uint32(ch.Zone.ID),
		ChannelID: uint32(ch.ID),
		X:         p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z,
		Entities: snapshotFor(ch, p.Pos, p.CharID),
	}
	deps.Bc.ToPlayer(p, packet.S_OPCODE_ZONE_DATA, zd.Marshal())
}
