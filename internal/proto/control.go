package proto

import "google.golang.org/protobuf/encoding/protowire"

type ChatSend struct {
	Text string
}

func (m *ChatSend) Marshal() []byte {
	return appendString(nil, 1, m.Text)
}

func (m *ChatSend) Unmarshal(b []byte) error {
	*m = ChatSend{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeString(val)
			m.Text = v
			return n
		}
		return 0
	})
}

type ChatBroadcast struct {
	FromID   uint64
	FromName string
	Text     string
}

func (m *ChatBroadcast) Marshal() []byte {
	b := appendUint(nil, 1, m.FromID)
	b = appendString(b, 2, m.FromName)
	return appendString(b, 3, m.Text)
}

func (m *ChatBroadcast) Unmarshal(b []byte) error {
	*m = ChatBroadcast{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.FromID = v
			return n
		case 2:
			v, n := consumeString(val)
			m.FromName = v
			return n
		case 3:
			v, n := consumeString(val)
			m.Text = v
			return n
		}
		return 0
	})
}

type Heartbeat struct {
	ClientTime uint64
}

func (m *Heartbeat) Marshal() []byte {
	return appendUint(nil, 1, m.ClientTime)
}

func (m *Heartbeat) Unmarshal(b []byte) error {
	*m = Heartbeat{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		if num == 1 {
			v, n := consumeUint(val)
			m.ClientTime = v
			return n
		}
		return 0
	})
}

type ServerMessage struct {
	Code uint32
	Text string
}

func (m *ServerMessage) Marshal() []byte {
	b := appendUint(nil, 1, uint64(m.Code))
	return appendString(b, 2, m.Text)
}

func (m *ServerMessage) Unmarshal(b []byte) error {
	*m = ServerMessage{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.Code = uint32(v)
			return n
		case 2:
			v, n := consumeString(val)
			m.Text = v
			return n
		}
		return 0
	})
}

// ErrorResponse names the offending request opcode and an error code from the
// shared taxonomy. Fatal codes are followed by connection close.
type ErrorResponse struct {
	Opcode uint32
	Code   uint32
}

func (m *ErrorResponse) Marshal() []byte {
	b := appendUint(nil, 1, uint64(m.Opcode))
	return appendUint(b, 2, uint64(m.Code))
}

func (m *ErrorResponse) Unmarshal(b []byte) error {
	*m = ErrorResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte) int {
		switch num {
		case 1:
			v, n := consumeUint(val)
			m.Opcode = uint32(v)
			return n
		case 2:
			v, n := consumeUint(val)
			m.Code = uint32(v)
			return n
		}
		return 0
	})
}
