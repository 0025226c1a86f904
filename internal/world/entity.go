package world

import (
	"time"

	"github.com/ebonreach/server/internal/net"
)

// MonsterIDBase keeps monster entity IDs disjoint from character IDs, which
// come straight from the database sequence.
const MonsterIDBase = 200_000_000

// LootIDBase keeps loot drop IDs disjoint from both.
const LootIDBase = 400_000_000

// Vec3 is a world-space position. Y is up; interest management works on the
// X/Z plane.
type Vec3 struct {
	X, Y, Z float32
}

// Player holds in-memory state for a character currently in-world.
// Accessed only from the game loop goroutine — no locks needed.
type Player struct {
	SessionID uint64
	Session   *net.Session
	AccountID int64
	CharID    uint64 // DB ID, doubles as the entity ID in packets
	Name      string
	ClassID   int32

	Pos      Vec3
	Rotation float32
	Flying   bool
	Moving   bool
	MoveDir  Vec3 // unit intent vector from the latest movement input

	ZoneID    int32
	ChannelID int32

	Level   int32
	XP      int64
	HP      int32
	MaxHP   int32
	MP      int32
	MaxMP   int32
	Str     int32
	Sta     int32
	Dex     int32
	Intel   int32
	Unspent int32
	Gold    int64

	Dead      bool
	DeadUntil time.Time // respawn moment while Dead

	// Cached gear contributions, recomputed whenever the bag changes.
	GearAttack  int32
	GearDefense int32

	// Combat state
	TargetID   uint64 // 0 = no target
	AutoAttack bool
	LastAttack time.Time

	// Learned skills by ID with their trained level, and per-skill cooldown
	// expiry. Cooldowns live only in RAM; a relog clears them, which favors
	// the player and keeps the persistence rows small.
	Skills    map[uint32]int32
	Cooldowns map[uint32]time.Time

	// Chat rate limit window (game loop only).
	chatWindow time.Time
	chatCount  int

	// Travel cooldowns keep clients from thrashing the force-flush path.
	// Zone changes and channel switches each run their own clock.
	ZoneCooldownUntil    time.Time
	ChannelCooldownUntil time.Time

	// Dirty marks unsaved progression changes for the write-back pipeline.
	Dirty bool

	LastInputSeq uint64 // client time of the latest applied movement input
}

// MarkDirty flags the player for the next RAM→cache flush.
func (p *Player) MarkDirty() {
	p.Dirty = true
}

// Alive reports whether the player can act.
func (p *Player) Alive() bool {
	return !p.Dead && p.HP > 0
}

// NoteChat charges one message against the chat window. Returns false when
// the per-window budget is exhausted.
func (p *Player) NoteChat(now time.Time, perWindow int, window time.Duration) bool {
	if now.Sub(p.chatWindow) >= window {
		p.chatWindow = now
		p.chatCount = 0
	}
	p.chatCount++
	return p.chatCount <= perWindow
}

// AIState enumerates the monster brain's states.
type AIState int8

const (
	AIIdle AIState = iota
	AIAggro
	AIAttack
	AIReturn
	AIDead
)

func (s AIState) String() string {
	switch s {
	case AIIdle:
		return "IDLE"
	case AIAggro:
		return "AGGRO"
	case AIAttack:
		return "ATTACK"
	case AIReturn:
		return "RETURN"
	case AIDead:
		return "DEAD"
	}
	return "UNKNOWN"
}

// Monster is one spawned monster instance. Like players, monsters are owned
// by the game loop goroutine.
type Monster struct {
	ID    uint64
	DefID int32
	Name  string

	Pos      Vec3
	SpawnPos Vec3
	Rotation float32

	Level int32
	HP    int32
	MaxHP int32

	State      AIState
	TargetID   uint64 // aggro target (player entity ID)
	LastAttack time.Time
	RespawnAt  time.Time // valid while State == AIDead
}

// Alive reports whether the monster participates in the world.
func (m *Monster) Alive() bool {
	return m.State != AIDead
}
