package proto

import "google.golang.org/protobuf/encoding/protowire"

// MovementInput is the client's intent for this tick: a direction vector and
// movement flags. The server integrates it; the client never claims a
// position directly.
type MovementInput struct {
	DirX       float32
	DirY       float32
	DirZ       float32
	Flying     bool
	ClientTime uint64
}

func (m *MovementInput) Marshal() []byte {
	b := make([]byte, 0, 32)
	b = appendFloat(b, 1, m.DirX)
	b = appendFloat(b, 2, m.DirY)
	b = appendFloat(b, 3, m.DirZ)
	b = appendBool(b, 4, m.Flying)
	b = appendUint(b, 5, m.ClientTime)
	return b
}

func (m *MovementInput) Unmarshal(b []byte) error {
	*m = MovementInput{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeFloat(val)
			m.DirX = v
			return n
		case 2:
			v, n := consumeFloat(val)
			m.DirY = v
			return n
		case 3:
			v, n := consumeFloat(val)
			m.DirZ = v
			return n
		case 4:
			v, n := consumeBool(val)
			m.Flying = v
			return n
		case 5:
			v, n := consumeUint(val)
			m.ClientTime = v
			return n
		}
		return 0
	})
}

// PositionBroadcast tells nearby observers where an entity is now.
type PositionBroadcast struct {
	EntityID uint64
	X        float32
	Y        float32
	Z        float32
	Rotation float32
	Moving   bool
}

func (m *PositionBroadcast) Marshal() []byte {
	b := make([]byte, 0, 40)
	b = appendUint(b, 1, m.EntityID)
	b = appendFloat(b, 2, m.X)
	b = appendFloat(b, 3, m.Y)
	b = appendFloat(b, 4, m.Z)
	b = appendFloat(b, 5, m.Rotation)
	b = appendBool(b, 6, m.Moving)
	return b
}

func (m *PositionBroadcast) Unmarshal(b []byte) error {
	*m = PositionBroadcast{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.EntityID = v
			return n
		case 2:
			v, n := consumeFloat(val)
			m.X = v
			return n
		case 3:
			v, n := consumeFloat(val)
			m.Y = v
			return n
		case 4:
			v, n := consumeFloat(val)
			m.Z = v
			return n
		case 5:
			v, n := consumeFloat(val)
			m.Rotation = v
			return n
		case 6:
			v, n := consumeBool(val)
			m.Moving = v
			return n
		}
		return 0
	})
}

// PositionCorrection snaps a client back to the authoritative position after
// a rejected move.
type PositionCorrection struct {
	X        float32
	Y        float32
	Z        float32
	Rotation float32
}

func (m *PositionCorrection) Marshal() []byte {
	b := make([]byte, 0, 24)
	b = appendFloat(b, 1, m.X)
	b = appendFloat(b, 2, m.Y)
	b = appendFloat(b, 3, m.Z)
	b = appendFloat(b, 4, m.Rotation)
	return b
}

func (m *PositionCorrection) Unmarshal(b []byte) error {
	*m = PositionCorrection{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeFloat(val)
			m.X = v
			return n
		case 2:
			v, n := consumeFloat(val)
			m.Y = v
			return n
		case 3:
			v, n := consumeFloat(val)
			m.Z = v
			return n
		case 4:
			v, n := consumeFloat(val)
			m.Rotation = v
			return n
		}
		return 0
	})
}
