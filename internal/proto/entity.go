package proto

import "google.golang.org/protobuf/encoding/protowire"

// EntityKind discriminates what an EntitySpawn describes.
const (
	KindPlayer  = 1
	KindMonster = 2
	KindLoot    = 3
)

type EntitySpawn struct {
	EntityID uint64
	Kind     uint32
	DefID    uint32 // class id for players, definition id for monsters/loot
	Name     string
	X        float32
	Y        float32
	Z        float32
	Rotation float32
	HP       uint32
	MaxHP    uint32
	Level    uint32
}

func (m *EntitySpawn) Marshal() []byte {
	b := make([]byte, 0, 64)
	b = appendUint(b, 1, m.EntityID)
	b = appendUint(b, 2, uint64(m.Kind))
	b = appendUint(b, 3, uint64(m.DefID))
	b = appendString(b, 4, m.Name)
	b = appendFloat(b, 5, m.X)
	b = appendFloat(b, 6, m.Y)
	b = appendFloat(b, 7, m.Z)
	b = appendFloat(b, 8, m.Rotation)
	b = appendUint(b, 9, uint64(m.HP))
	b = appendUint(b, 10, uint64(m.MaxHP))
	b = appendUint(b, 11, uint64(m.Level))
	return b
}

func (m *EntitySpawn) Unmarshal(b []byte) error {
	*m = EntitySpawn{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.EntityID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.Kind = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.DefID = uint32(v)
			return n
		case 4:
			v, n := consumeString(val)
			m.Name = v
			return n
		case 5:
			v, n := consumeFloat(val)
			m.X = v
			return n
		case 6:
			v, n := consumeFloat(val)
			m.Y = v
			return n
		case 7:
			v, n := consumeFloat(val)
			m.Z = v
			return n
		case 8:
			v, n := consumeFloat(val)
			m.Rotation = v
			return n
		case 9:
			v, n := consumeUint(val)
			m.HP = uint32(v)
			return n
		case 10:
			v, n := consumeUint(val)
			m.MaxHP = uint32(v)
			return n
		case 11:
			v, n := consumeUint(val)
			m.Level = uint32(v)
			return n
		}
		return 0
	})
}

type EntityDespawn struct {
	EntityID uint64
}

func (m *EntityDespawn) Marshal() []byte {
	return appendUint(nil, 1, m.EntityID)
}

func (m *EntityDespawn) Unmarshal(b []byte) error {
	*m = EntityDespawn{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.EntityID = v
			return n
		}
		return 0
	})
}

type StatsUpdate struct {
	EntityID  uint64
	HP        uint32
	MaxHP     uint32
	MP        uint32
	MaxMP     uint32
	Level     uint32
	XP        uint64
	Strength  uint32
	Stamina   uint32
	Dexterity uint32
	Intellect uint32
	Unspent   uint32
	Gold      uint64
}

func (m *StatsUpdate) Marshal() []byte {
	b := make([]byte, 0, 64)
	b = appendUint(b, 1, m.EntityID)
	b = appendUint(b, 2, uint64(m.HP))
	b = appendUint(b, 3, uint64(m.MaxHP))
	b = appendUint(b, 4, uint64(m.MP))
	b = appendUint(b, 5, uint64(m.MaxMP))
	b = appendUint(b, 6, uint64(m.Level))
	b = appendUint(b, 7, m.XP)
	b = appendUint(b, 8, uint64(m.Strength))
	b = appendUint(b, 9, uint64(m.Stamina))
	b = appendUint(b, 10, uint64(m.Dexterity))
	b = appendUint(b, 11, uint64(m.Intellect))
	b = appendUint(b, 12, uint64(m.Unspent))
	b = appendUint(b, 13, m.Gold)
	return b
}

func (m *StatsUpdate) Unmarshal(b []byte) error {
	*m = StatsUpdate{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.EntityID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.HP = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.MaxHP = uint32(v)
			return n
		case 4:
			v, n := consumeUint(val)
			m.MP = uint32(v)
			return n
		case 5:
			v, n := consumeUint(val)
			m.MaxMP = uint32(v)
			return n
		case 6:
			v, n := consumeUint(val)
			m.Level = uint32(v)
			return n
		case 7:
			v, n := consumeUint(val)
			m.XP = v
			return n
		case 8:
			v, n := consumeUint(val)
			m.Strength = uint32(v)
			return n
		case 9:
			v, n := consumeUint(val)
			m.Stamina = uint32(v)
			return n
		case 10:
			v, n := consumeUint(val)
			m.Dexterity = uint32(v)
			return n
		case 11:
			v, n := consumeUint(val)
			m.Intellect = uint32(v)
			return n
		case 12:
			v, n := consumeUint(val)
			m.Unspent = uint32(v)
			return n
		case 13:
			v, n := consumeUint(val)
			m.Gold = v
			return n
		}
		return 0
	})
}

// StatAllocate spends unspent stat points. The server verifies the sum
// against the player's pool before applying.
type StatAllocate struct {
	Strength  uint32
	Stamina   uint32
	Dexterity uint32
	Intellect uint32
}

func (m *StatAllocate) Marshal() []byte {
	b := appendUint(nil, 1, uint64(m.Strength))
	b = appendUint(b, 2, uint64(m.Stamina))
	b = appendUint(b, 3, uint64(m.Dexterity))
	return appendUint(b, 4, uint64(m.Intellect))
}

func (m *StatAllocate) Unmarshal(b []byte) error {
	*m = StatAllocate{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.Strength = uint32(v)
			return n
		case 2:
			v, n := consumeUint(val)
			m.Stamina = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.Dexterity = uint32(v)
			return n
		case 4:
			v, n := consumeUint(val)
			m.Intellect = uint32(v)
			return n
		}
		return 0
	})
}

// Total is the number of points the allocation spends.
func (m *StatAllocate) Total() uint32 {
	return m.Strength + m.Stamina + m.Dexterity + m.Intellect
}
