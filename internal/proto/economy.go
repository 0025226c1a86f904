package proto

import "google.golang.org/protobuf/encoding/protowire"

// InventorySlot mirrors one row of the character's bag.
type InventorySlot struct {
	Slot      uint32
	ItemDefID uint32
	Amount    uint32
	Enhance   uint32
	Equipped  bool
}

func (m *InventorySlot) marshal() []byte {
	b := appendUint(nil, 1, uint64(m.Slot))
	b = appendUint(b, 2, uint64(m.ItemDefID))
	b = appendUint(b, 3, uint64(m.Amount))
	b = appendUint(b, 4, uint64(m.Enhance))
	return appendBool(b, 5, m.Equipped)
}

func (m *InventorySlot) unmarshal(b []byte) error {
	*m = InventorySlot{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.Slot = uint32(v)
			return n
		case 2:
			v, n := consumeUint(val)
			m.ItemDefID = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.Amount = uint32(v)
			return n
		case 4:
			v, n := consumeUint(val)
			m.Enhance = uint32(v)
			return n
		case 5:
			v, n := consumeBool(val)
			m.Equipped = v
			return n
		}
		return 0
	})
}

// Inventory is the full-bag snapshot pushed on login and after any
// transactional change. Partial diffs are not worth the bookkeeping at this
// bag size.
type Inventory struct {
	Slots []InventorySlot
	Gold  uint64
}

func (m *Inventory) Marshal() []byte {
	var b []byte
	for i := range m.Slots {
		b = appendMessage(b, 1, m.Slots[i].marshal())
	}
	return appendUint(b, 2, m.Gold)
}

func (m *Inventory) Unmarshal(b []byte) error {
	*m = Inventory{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			body, n := consumeBytes(val)
			if n < 0 {
				return n
			}
			var s InventorySlot
			if err := s.unmarshal(body); err != nil {
				return -1
			}
			m.Slots = append(m.Slots, s)
			return n
		case 2:
			v, n := consumeUint(val)
			m.Gold = v
			return n
		}
		return 0
	})
}

type Equip struct {
	Slot uint32
}

func (m *Equip) Marshal() []byte {
	return appendUint(nil, 1, uint64(m.Slot))
}

func (m *Equip) Unmarshal(b []byte) error {
	*m = Equip{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.Slot = uint32(v)
			return n
		}
		return 0
	})
}

type Unequip struct {
	SlotType uint32
}

func (m *Unequip) Marshal() []byte {
	return appendUint(nil, 1, uint64(m.SlotType))
}

func (m *Unequip) Unmarshal(b []byte) error {
	*m = Unequip{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.SlotType = uint32(v)
			return n
		}
		return 0
	})
}

type VendorBuy struct {
	NpcID     uint64
	ItemDefID uint32
	Amount    uint32
}

func (m *VendorBuy) Marshal() []byte {
	b := appendUint(nil, 1, m.NpcID)
	b = appendUint(b, 2, uint64(m.ItemDefID))
	return appendUint(b, 3, uint64(m.Amount))
}

func (m *VendorBuy) Unmarshal(b []byte) error {
	*m = VendorBuy{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.NpcID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.ItemDefID = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.Amount = uint32(v)
			return n
		}
		return 0
	})
}

type VendorSell struct {
	NpcID  uint64
	Slot   uint32
	Amount uint32
}

func (m *VendorSell) Marshal() []byte {
	b := appendUint(nil, 1, m.NpcID)
	b = appendUint(b, 2, uint64(m.Slot))
	return appendUint(b, 3, uint64(m.Amount))
}

func (m *VendorSell) Unmarshal(b []byte) error {
	*m = VendorSell{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.NpcID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.Slot = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.Amount = uint32(v)
			return n
		}
		return 0
	})
}

type GoldUpdate struct {
	Gold uint64
}

func (m *GoldUpdate) Marshal() []byte {
	return appendUint(nil, 1, m.Gold)
}

func (m *GoldUpdate) Unmarshal(b []byte) error {
	*m = GoldUpdate{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.Gold = v
			return n
		}
		return 0
	})
}

type LootPickup struct {
	LootID uint64
}

func (m *LootPickup) Marshal() []byte {
	return appendUint(nil, 1, m.LootID)
}

func (m *LootPickup) Unmarshal(b []byte) error {
	*m = LootPickup{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.LootID = v
			return n
		}
		return 0
	})
}
