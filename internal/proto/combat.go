package proto

import "google.golang.org/protobuf/encoding/protowire"

type SelectTarget struct {
	TargetID uint64
}

func (m *SelectTarget) Marshal() []byte {
	return appendUint(nil, 1, m.TargetID)
}

func (m *SelectTarget) Unmarshal(b []byte) error {
	*m = SelectTarget{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.TargetID = v
			return n
		}
		return 0
	})
}

type UseSkill struct {
	SkillID  uint32
	TargetID uint64
}

func (m *UseSkill) Marshal() []byte {
	b := appendUint(nil, 1, uint64(m.SkillID))
	return appendUint(b, 2, m.TargetID)
}

func (m *UseSkill) Unmarshal(b []byte) error {
	*m = UseSkill{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.SkillID = uint32(v)
			return n
		case 2:
			v, n := consumeUint(val)
			m.TargetID = v
			return n
		}
		return 0
	})
}

// DamageEvent reports one resolved hit to every interested observer.
type DamageEvent struct {
	AttackerID uint64
	TargetID   uint64
	Damage     uint32
	Critical   bool
	SkillID    uint32 // 0 for auto-attacks
	TargetHP   uint32 // HP remaining after the hit
}

func (m *DamageEvent) Marshal() []byte {
	b := make([]byte, 0, 32)
	b = appendUint(b, 1, m.AttackerID)
	b = appendUint(b, 2, m.TargetID)
	b = appendUint(b, 3, uint64(m.Damage))
	b = appendBool(b, 4, m.Critical)
	b = appendUint(b, 5, uint64(m.SkillID))
	b = appendUint(b, 6, uint64(m.TargetHP))
	return b
}

func (m *DamageEvent) Unmarshal(b []byte) error {
	*m = DamageEvent{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.AttackerID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.TargetID = v
			return n
		case 3:
			v, n := consumeUint(val)
			m.Damage = uint32(v)
			return n
		case 4:
			v, n := consumeBool(val)
			m.Critical = v
			return n
		case 5:
			v, n := consumeUint(val)
			m.SkillID = uint32(v)
			return n
		case 6:
			v, n := consumeUint(val)
			m.TargetHP = uint32(v)
			return n
		}
		return 0
	})
}

type EntityDeath struct {
	EntityID uint64
	KillerID uint64
}

func (m *EntityDeath) Marshal() []byte {
	b := appendUint(nil, 1, m.EntityID)
	return appendUint(b, 2, m.KillerID)
}

func (m *EntityDeath) Unmarshal(b []byte) error {
	*m = EntityDeath{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.EntityID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.KillerID = v
			return n
		}
		return 0
	})
}

type XpGain struct {
	Amount  uint32
	TotalXP uint64
	Level   uint32
}

func (m *XpGain) Marshal() []byte {
	b := appendUint(nil, 1, uint64(m.Amount))
	b = appendUint(b, 2, m.TotalXP)
	return appendUint(b, 3, uint64(m.Level))
}

func (m *XpGain) Unmarshal(b []byte) error {
	*m = XpGain{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.Amount = uint32(v)
			return n
		case 2:
			v, n := consumeUint(val)
			m.TotalXP = v
			return n
		case 3:
			v, n := consumeUint(val)
			m.Level = uint32(v)
			return n
		}
		return 0
	})
}

type AutoAttackToggle struct {
	Enabled bool
}

func (m *AutoAttackToggle) Marshal() []byte {
	return appendBool(nil, 1, m.Enabled)
}

func (m *AutoAttackToggle) Unmarshal(b []byte) error {
	*m = AutoAttackToggle{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeBool(val)
			m.Enabled = v
			return n
		}
		return 0
	})
}
