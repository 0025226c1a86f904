package proto

import "google.golang.org/protobuf/encoding/protowire"

type ZoneChange struct {
	ZoneID uint32
}

func (m *ZoneChange) Marshal() []byte {
	return appendUint(nil, 1, uint64(m.ZoneID))
}

func (m *ZoneChange) Unmarshal(b []byte) error {
	*m = ZoneChange{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.ZoneID = uint32(v)
			return n
		}
		return 0
	})
}

// ZoneData is the entry snapshot after a zone or channel transition: where
// the player landed and every entity already visible from there.
type ZoneData struct {
	ZoneID    uint32
	ChannelID uint32
	X         float32
	Y         float32
	Z         float32
	Entities  []EntitySpawn
}

func (m *ZoneData) Marshal() []byte {
	b := appendUint(nil, 1, uint64(m.ZoneID))
	b = appendUint(b, 2, uint64(m.ChannelID))
	b = appendFloat(b, 3, m.X)
	b = appendFloat(b, 4, m.Y)
	b = appendFloat(b, 5, m.Z)
	for i := range m.Entities {
		b = appendMessage(b, 6, m.Entities[i].Marshal())
	}
	return b
}

func (m *ZoneData) Unmarshal(b []byte) error {
	*m = ZoneData{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.ZoneID = uint32(v)
			return n
		case 2:
			v, n := consumeUint(val)
			m.ChannelID = uint32(v)
			return n
		case 3:
			v, n := consumeFloat(val)
			m.X = v
			return n
		case 4:
			v, n := consumeFloat(val)
			m.Y = v
			return n
		case 5:
			v, n := consumeFloat(val)
			m.Z = v
			return n
		case 6:
			body, n := consumeBytes(val)
			if n < 0 {
				return n
			}
			var es EntitySpawn
			if err := es.Unmarshal(body); err != nil {
				return -1
			}
			m.Entities = append(m.Entities, es)
			return n
		}
		return 0
	})
}

type ChannelSwitch struct {
	ChannelID uint32
}

func (m *ChannelSwitch) Marshal() []byte {
	return appendUint(nil, 1, uint64(m.ChannelID))
}

func (m *ChannelSwitch) Unmarshal(b []byte) error {
	*m = ChannelSwitch{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.ChannelID = uint32(v)
			return n
		}
		return 0
	})
}

type ChannelInfo struct {
	ChannelID uint32
	Load      uint32 // current player count
	Capacity  uint32
}

func (m *ChannelInfo) marshal() []byte {
	b := appendUint(nil, 1, uint64(m.ChannelID))
	b = appendUint(b, 2, uint64(m.Load))
	return appendUint(b, 3, uint64(m.Capacity))
}

func (m *ChannelInfo) unmarshal(b []byte) error {
	*m = ChannelInfo{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.ChannelID = uint32(v)
			return n
		case 2:
			v, n := consumeUint(val)
			m.Load = uint32(v)
			return n
		case 3:
			v, n := consumeUint(val)
			m.Capacity = uint32(v)
			return n
		}
		return 0
	})
}

type ChannelList struct {
	ZoneID   uint32
	Channels []ChannelInfo
}

func (m *ChannelList) Marshal() []byte {
	b := appendUint(nil, 1, uint64(m.ZoneID))
	for i := range m.Channels {
		b = appendMessage(b, 2, m.Channels[i].marshal())
	}
	return b
}

func (m *ChannelList) Unmarshal(b []byte) error {
	*m = ChannelList{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.ZoneID = uint32(v)
			return n
		case 2:
			body, n := consumeBytes(val)
			if n < 0 {
				return n
			}
			var ci ChannelInfo
			if err := ci.unmarshal(body); err != nil {
				return -1
			}
			m.Channels = append(m.Channels, ci)
			return n
		}
		return 0
	})
}
