package proto

import "google.golang.org/protobuf/encoding/protowire"

// Login presents the ticket minted by the account service. The reply on the
// same opcode carries the datagram token and HMAC secret for this session.
type Login struct {
	JWT string
}

func (m *Login) Marshal() []byte {
	return appendString(nil, 1, m.JWT)
}

func (m *Login) Unmarshal(b []byte) error {
	*m = Login{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeString(val)
			m.JWT = v
			return n
		}
		return 0
	})
}

// LoginAck hands the client its datagram credentials. The secret crosses the
// wire exactly once, here, on the TCP channel that just proved the ticket.
type LoginAck struct {
	AccountID uint64
	Token     uint64
	Secret    []byte
}

func (m *LoginAck) Marshal() []byte {
	b := appendUint(nil, 1, m.AccountID)
	b = appendUint(b, 2, m.Token)
	return appendBytes(b, 3, m.Secret)
}

func (m *LoginAck) Unmarshal(b []byte) error {
	*m = LoginAck{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.AccountID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.Token = v
			return n
		case 3:
			v, n := consumeBytes(val)
			if n >= 0 {
				m.Secret = append([]byte(nil), v...)
			}
			return n
		}
		return 0
	})
}

type CharacterSummary struct {
	CharacterID uint64
	Name        string
	ClassID     uint32
	Level       uint32
}

func (m *CharacterSummary) marshal() []byte {
	b := appendUint(nil, 1, m.CharacterID)
	b = appendString(b, 2, m.Name)
	b = appendUint(b, 3, uint64(m.ClassID))
	return appendUint(b, 4, uint64(m.Level))
}

func (m *CharacterSummary) unmarshal(b []byte) error {
	*m = CharacterSummary{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.CharacterID = v
			return n
		case 2:
			v, n := consumeString(val)
			m.Name = v
			return n
		case 3:
			v, n := consumeUint(val)
			m.ClassID = uint32(v)
			return n
		case 4:
			v, n := consumeUint(val)
			m.Level = uint32(v)
			return n
		}
		return 0
	})
}

type CharacterList struct {
	Characters []CharacterSummary
}

func (m *CharacterList) Marshal() []byte {
	var b []byte
	for i := range m.Characters {
		b = appendMessage(b, 1, m.Characters[i].marshal())
	}
	return b
}

func (m *CharacterList) Unmarshal(b []byte) error {
	*m = CharacterList{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			body, n := consumeBytes(val)
			if n < 0 {
				return n
			}
			var cs CharacterSummary
			if err := cs.unmarshal(body); err != nil {
				return -1
			}
			m.Characters = append(m.Characters, cs)
			return n
		}
		return 0
	})
}

type CharacterCreate struct {
	Name    string
	ClassID uint32
}

func (m *CharacterCreate) Marshal() []byte {
	b := appendString(nil, 1, m.Name)
	return appendUint(b, 2, uint64(m.ClassID))
}

func (m *CharacterCreate) Unmarshal(b []byte) error {
	*m = CharacterCreate{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeString(val)
			m.Name = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.ClassID = uint32(v)
			return n
		}
		return 0
	})
}

type CharacterDelete struct {
	CharacterID uint64
}

func (m *CharacterDelete) Marshal() []byte {
	return appendUint(nil, 1, m.CharacterID)
}

func (m *CharacterDelete) Unmarshal(b []byte) error {
	*m = CharacterDelete{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.CharacterID = v
			return n
		}
		return 0
	})
}

// EnterWorld carries the character choice plus the session token and JWT
// issued at login. The token must match the one bound to this TCP session;
// the HMAC secret itself never appears again after the login ack.
type EnterWorld struct {
	CharacterID uint64
	SessionID   []byte
	JWT         string
}

func (m *EnterWorld) Marshal() []byte {
	b := appendUint(nil, 1, m.CharacterID)
	b = appendBytes(b, 2, m.SessionID)
	return appendString(b, 3, m.JWT)
}

func (m *EnterWorld) Unmarshal(b []byte) error {
	*m = EnterWorld{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.CharacterID = v
			return n
		case 2:
			v, n := consumeBytes(val)
			if n >= 0 {
				m.SessionID = append([]byte(nil), v...)
			}
			return n
		case 3:
			v, n := consumeString(val)
			m.JWT = v
			return n
		}
		return 0
	})
}

type EnterWorldAck struct {
	EntityID  uint64
	ZoneID    uint32
	ChannelID uint32
	X         float32
	Y         float32
	Z         float32
}

func (m *EnterWorldAck) Marshal() []byte {
	b := appendUint(nil, 1, m.EntityID)
	b = appendUint(b, 2, uint64(m.ZoneID))
	b = appendUint(b, 3, uint64(m.ChannelID))
	b = appendFloat(b, 4, m.X)
	b = appendFloat(b, 5, m.Y)
	return appendFloat(b, 6, m.Z)
}

func (m *EnterWorldAck) Unmarshal(b []byte) error {
	*m = EnterWorldAck{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.EntityID = v
			return n
		case 2:
			v, n := consumeUint(val)
			m.ZoneID = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.ChannelID = uint32(v)
			return n
		case 4:
			v, n := consumeFloat(val)
			m.X = v
			return n
		case 5:
			v, n := consumeFloat(val)
			m.Y = v
			return n
		case 6:
			v, n := consumeFloat(val)
			m.Z = v
			return n
		}
		return 0
	})
}
