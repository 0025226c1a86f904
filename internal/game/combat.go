package game

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/config"
	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

// 戰鬥常數：普攻間隔與暴擊率。
const (
	autoAttackInterval = 1500 * time.Millisecond
	critChance         = 0.05
	statPointsPerLevel = 5
)

// XPForLevel is the cumulative XP required to reach a level.
func XPForLevel(level int32) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level - 1)
	return 100 * l * l
}

// Combat resolves hits, deaths, XP, and loot. Shared by the auto-attack
// system, the skill handler, and the monster AI. Game loop only.
type Combat struct {
	state  *world.State
	tables *data.Tables
	cfg    *config.Config
	bc     *Broadcaster
	rng    *rand.Rand
	log    *zap.Logger
	now    func() time.Time
}

func NewCombat(state *world.State, tables *data.Tables, cfg *config.Config, bc *Broadcaster, log *zap.Logger) *Combat {
	return &Combat{
		state:  state,
		tables: tables,
		cfg:    cfg,
		bc:     bc,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log,
		now:    time.Now,
	}
}

// RollDamage applies the damage formula: attack minus defense, a small
// uniform wobble, a 1.5x critical multiplier, floor of 1.
func (c *Combat) RollDamage(attack, defense int32) (int32, bool) {
	dmg := attack - defense + int32(c.rng.Intn(5)) - 2
	crit := c.rng.Float64() < critChance
	if crit {
		dmg = int32(float64(dmg) * 1.5)
	}
	if dmg < 1 {
		dmg = 1
	}
	return dmg, crit
}

// AttackPowerOf is the player's melee attack: strength, level, and gear.
func (c *Combat) AttackPowerOf(p *world.Player) int32 {
	return p.Str*2 + p.Level + p.GearAttack
}

// DefenseOf is the player's mitigation: stamina and gear.
func (c *Combat) DefenseOf(p *world.Player) int32 {
	return p.Sta + p.GearDefense
}

// AttackRangeOf is the player's basic attack reach.
func (c *Combat) AttackRangeOf(p *world.Player) float32 {
	if cls := c.tables.Classes.Get(p.ClassID); cls != nil && cls.AttackRange > 0 {
		return cls.AttackRange
	}
	return 3
}

func dist2D(a, b world.Vec3) float32 {
	dx := float64(a.X - b.X)
	dz := float64(a.Z - b.Z)
	return float32(math.Sqrt(dx*dx + dz*dz))
}

// ValidateSkill runs the skill gate checks in their fixed order and returns
// the first failure. The order is part of the protocol contract: a client
// probing with a bogus skill must learn nothing about cooldowns or targets.
func (c *Combat) ValidateSkill(p *world.Player, skillID uint32, targetID uint64) (*data.SkillDef, *world.Monster, packet.ErrorCode) {
	def := c.tables.Skills.Get(skillID)
	if def == nil {
		return nil, nil, packet.ErrSkillUnknown
	}
	if p.Skills[skillID] <= 0 {
		return nil, nil, packet.ErrSkillNotLearned
	}
	if p.MP < def.MPCost {
		return nil, nil, packet.ErrNotEnoughMP
	}
	if until, ok := p.Cooldowns[skillID]; ok && c.now().Before(until) {
		return nil, nil, packet.ErrSkillOnCooldown
	}

	ch := c.state.ChannelOf(p)
	if ch == nil {
		return nil, nil, packet.ErrInvalidTarget
	}
	target := ch.Monsters[targetID]
	if target == nil || !target.Alive() {
		return nil, nil, packet.ErrInvalidTarget
	}
	if def.Range > 0 && dist2D(p.Pos, target.Pos) > def.Range {
		return nil, nil, packet.ErrOutOfRange
	}
	return def, target, 0
}

// UseSkill executes a validated cast: spends MP, starts the cooldown, and
// resolves the hit.
func (c *Combat) UseSkill(p *world.Player, def *data.SkillDef, target *world.Monster) {
	p.MP -= def.MPCost
	p.Cooldowns[def.ID] = c.now().Add(time.Duration(def.CooldownMs) * time.Millisecond)
	p.MarkDirty()

	c.PlayerHitMonster(p, target, def)
	c.sendStats(p)
}

// PlayerHitMonster applies one player hit to a monster and handles death.
func (c *Combat) PlayerHitMonster(p *world.Player, m *world.Monster, skill *data.SkillDef) {
	ch := c.state.ChannelOf(p)
	if ch == nil {
		return
	}
	def := c.tables.Monsters.Get(m.DefID)
	if def == nil {
		return
	}

	attack := c.AttackPowerOf(p)
	var skillID uint32
	if skill != nil {
		attack += skill.Power + p.Skills[skill.ID]*skill.PowerPerLevel
		skillID = skill.ID
	}
	dmg, crit := c.RollDamage(attack, def.Defense)

	m.HP -= dmg
	if m.HP < 0 {
		m.HP = 0
	}

	// 怪物被打必定仇恨攻擊者（若尚無目標）
	if m.State == world.AIIdle || m.State == world.AIReturn {
		m.State = world.AIAggro
		m.TargetID = p.CharID
	}

	ev := proto.DamageEvent{
		AttackerID: p.CharID,
		TargetID:   m.ID,
		Damage:     uint32(dmg),
		Critical:   crit,
		SkillID:    skillID,
		TargetHP:   uint32(m.HP),
	}
	c.bc.ToArea(ch, m.Pos, packet.S_OPCODE_DAMAGE_EVENT, ev.Marshal())

	if m.HP == 0 {
		c.KillMonster(ch, m, p.CharID)
	}
}

// MonsterHitPlayer applies one monster hit to a player and handles death.
func (c *Combat) MonsterHitPlayer(m *world.Monster, p *world.Player) {
	ch := c.state.ChannelOf(p)
	if ch == nil {
		return
	}
	def := c.tables.Monsters.Get(m.DefID)
	if def == nil {
		return
	}

	dmg, crit := c.RollDamage(def.AttackPower, c.DefenseOf(p))
	p.HP -= dmg
	if p.HP < 0 {
		p.HP = 0
	}
	p.MarkDirty()

	ev := proto.DamageEvent{
		AttackerID: m.ID,
		TargetID:   p.CharID,
		Damage:     uint32(dmg),
		Critical:   crit,
		TargetHP:   uint32(p.HP),
	}
	c.bc.ToArea(ch, p.Pos, packet.S_OPCODE_DAMAGE_EVENT, ev.Marshal())

	if p.HP == 0 {
		c.KillPlayer(ch, p, m.ID)
	}
}

// KillMonster marks the monster dead, schedules its respawn, pays XP to the
// killer, and rolls the drop table with the killer as loot owner.
func (c *Combat) KillMonster(ch *world.Channel, m *world.Monster, killerID uint64) {
	def := c.tables.Monsters.Get(m.DefID)
	m.State = world.AIDead
	m.TargetID = 0
	if def != nil {
		m.RespawnAt = c.now().Add(time.Duration(def.RespawnMs) * time.Millisecond)
	}

	death := proto.EntityDeath{EntityID: m.ID, KillerID: killerID}
	c.bc.ToArea(ch, m.Pos, packet.S_OPCODE_ENTITY_DEATH, death.Marshal())
	despawn := proto.EntityDespawn{EntityID: m.ID}
	c.bc.ToArea(ch, m.Pos, packet.S_OPCODE_ENTITY_DESPAWN, despawn.Marshal())
	ch.Grid.Remove(m.ID, m.Pos)

	if p, ok := ch.Players[killerID]; ok && def != nil {
		c.AwardXP(p, def.XP)
		c.dropLoot(ch, m, def, killerID)
	}
}

// KillPlayer marks the player dead and schedules the respawn.
func (c *Combat) KillPlayer(ch *world.Channel, p *world.Player, killerID uint64) {
	p.Dead = true
	p.AutoAttack = false
	p.TargetID = 0
	p.DeadUntil = c.now().Add(5 * time.Second)
	p.MarkDirty()

	death := proto.EntityDeath{EntityID: p.CharID, KillerID: killerID}
	c.bc.ToArea(ch, p.Pos, packet.S_OPCODE_ENTITY_DEATH, death.Marshal())
	c.log.Info("玩家死亡",
		zap.Uint64("char", p.CharID), zap.Uint64("killer", killerID))
}

// AwardXP grants XP and processes any level-ups: stat points, refreshed
// pools, and newly learned skills.
func (c *Combat) AwardXP(p *world.Player, amount int64) {
	if amount <= 0 {
		return
	}
	p.XP += amount
	leveled := false
	for p.XP >= XPForLevel(p.Level+1) {
		p.Level++
		p.Unspent += statPointsPerLevel
		leveled = true

		if cls := c.tables.Classes.Get(p.ClassID); cls != nil {
			p.MaxHP = cls.MaxHPAt(p.Level) + p.Sta*10
			p.MaxMP = cls.MaxMPAt(p.Level) + p.Intel*10
		}
		// 升級全回復
		p.HP = p.MaxHP
		p.MP = p.MaxMP

		for _, id := range c.tables.Skills.LearnedBy(p.ClassID, p.Level) {
			if p.Skills[id] == 0 {
				p.Skills[id] = 1
			}
		}
		c.log.Info("玩家升級", zap.Uint64("char", p.CharID), zap.Int32("level", p.Level))
	}
	p.MarkDirty()

	gain := proto.XpGain{Amount: uint32(amount), TotalXP: uint64(p.XP), Level: uint32(p.Level)}
	c.bc.ToPlayer(p, packet.S_OPCODE_XP_GAIN, gain.Marshal())
	if leveled {
		c.sendStats(p)
	}
}

// dropLoot rolls every entry of the monster's drop table independently and
// spawns one owned loot entity per hit. Gold is rolled once and rides the
// first spawned drop, or a gold-only drop when no item entry hits.
func (c *Combat) dropLoot(ch *world.Channel, m *world.Monster, def *data.MonsterDef, ownerID uint64) {
	table := c.tables.Drops.Get(def.LootTableID)
	if table == nil {
		return
	}

	gold := table.GoldMin
	if table.GoldMax > table.GoldMin {
		gold += c.rng.Int63n(table.GoldMax - table.GoldMin + 1)
	}

	spawned := false
	for _, e := range table.Entries {
		if c.rng.Float64() >= e.Chance {
			continue
		}
		amount := e.Min
		if e.Max > e.Min {
			amount += c.rng.Int31n(e.Max - e.Min + 1)
		}
		var g int64
		if !spawned {
			g = gold
		}
		c.spawnLoot(ch, m.Pos, e.ItemID, amount, g, ownerID)
		spawned = true
	}
	if !spawned && gold > 0 {
		c.spawnLoot(ch, m.Pos, 0, 0, gold, ownerID)
	}
}

func (c *Combat) spawnLoot(ch *world.Channel, pos world.Vec3, itemID, amount int32, gold int64, ownerID uint64) {
	now := c.now()
	drop := &world.LootDrop{
		ID:         c.state.NextLootID(),
		ItemDefID:  itemID,
		Amount:     amount,
		Gold:       gold,
		Pos:        pos,
		OwnerID:    ownerID,
		OwnerUntil: now.Add(c.cfg.World.LootOwnership),
		ExpiresAt:  now.Add(2 * time.Minute),
	}
	ch.AddLoot(drop)

	spawn := proto.EntitySpawn{
		EntityID: drop.ID,
		Kind:     proto.KindLoot,
		DefID:    uint32(itemID),
		X:        drop.Pos.X, Y: drop.Pos.Y, Z: drop.Pos.Z,
	}
	c.bc.ToArea(ch, drop.Pos, packet.S_OPCODE_ENTITY_SPAWN, spawn.Marshal())
}

// sendStats pushes the player's full stat block to their own client.
func (c *Combat) sendStats(p *world.Player) {
	su := proto.StatsUpdate{
		EntityID: p.CharID,
		HP:       uint32(p.HP), MaxHP: uint32(p.MaxHP),
		MP: uint32(p.MP), MaxMP: uint32(p.MaxMP),
		Level: uint32(p.Level), XP: uint64(p.XP),
		Strength: uint32(p.Str), Stamina: uint32(p.Sta),
		Dexterity: uint32(p.Dex), Intellect: uint32(p.Intel),
		Unspent: uint32(p.Unspent), Gold: uint64(p.Gold),
	}
	c.bc.ToPlayer(p, packet.S_OPCODE_STATS_UPDATE, su.Marshal())
}

// SendStats is the exported stat push for handlers.
func (c *Combat) SendStats(p *world.Player) { c.sendStats(p) }

// Now exposes the combat clock so handlers judge windows on the same source.
func (c *Combat) Now() time.Time { return c.now() }

// CombatSystem drives auto-attacks each tick.
type CombatSystem struct {
	state  *world.State
	combat *Combat
	now    func() time.Time
}

func NewCombatSystem(state *world.State, combat *Combat) *CombatSystem {
	return &CombatSystem{state: state, combat: combat, now: time.Now}
}

func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhaseCombat }

func (s *CombatSystem) Update(_ time.Duration) {
	now := s.now()
	for _, p := range s.state.ByCharID {
		if !p.AutoAttack || !p.Alive() || p.TargetID == 0 {
			continue
		}
		if now.Sub(p.LastAttack) < autoAttackInterval {
			continue
		}
		ch := s.state.ChannelOf(p)
		if ch == nil {
			continue
		}
		target := ch.Monsters[p.TargetID]
		if target == nil || !target.Alive() {
			p.TargetID = 0
			p.AutoAttack = false
			continue
		}
		if dist2D(p.Pos, target.Pos) > s.combat.AttackRangeOf(p) {
			continue // 不在射程內：等玩家走近
		}
		p.LastAttack = now
		s.combat.PlayerHitMonster(p, target, nil)
	}
}
