package net

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ebonreach/server/internal/net/packet"
)

// MaxFrameBody is the hard ceiling on the length field: opcode plus payload.
const MaxFrameBody = 65535

// MaxPayload is the largest protobuf payload a single frame may carry,
// the body ceiling minus the two opcode bytes.
const MaxPayload = MaxFrameBody - 2

// frameHeader is [4 bytes BE: opcode+payload length][2 bytes BE: opcode].
const frameHeader = 6

// ReadFrame reads one TCP frame from r.
// Wire format: [4 bytes BE: length of opcode+payload][2 bytes BE: opcode][payload].
// maxBody caps the length field; values outside (0, MaxFrameBody] fall back
// to MaxFrameBody. Returns the opcode and the payload bytes.
func ReadFrame(r io.Reader, maxBody int) (packet.Opcode, []byte, error) {
	if maxBody <= 0 || maxBody > MaxFrameBody {
		maxBody = MaxFrameBody
	}
	var header [frameHeader]byte
	if _, err := io.ReadFull(r, header[:4]); err != nil {
		return 0, nil, fmt.Errorf("read frame header: %w", err)
	}

	bodyLen := int(binary.BigEndian.Uint32(header[:4]))
	if bodyLen < 2 || bodyLen > maxBody {
		return 0, nil, fmt.Errorf("invalid frame length: %d", bodyLen)
	}

	if _, err := io.ReadFull(r, header[4:6]); err != nil {
		return 0, nil, fmt.Errorf("read frame opcode: %w", err)
	}
	op := packet.Opcode(binary.BigEndian.Uint16(header[4:6]))

	payload := make([]byte, bodyLen-2)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload (%d bytes): %w", bodyLen-2, err)
	}
	return op, payload, nil
}

// WriteFrame writes one TCP frame to w.
func WriteFrame(w io.Writer, op packet.Opcode, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("payload too large: %d", len(payload))
	}
	buf := make([]byte, frameHeader+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)+2))
	binary.BigEndian.PutUint16(buf[4:6], uint16(op))
	copy(buf[frameHeader:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// EncodeFrame serializes a frame into a byte slice without writing it. The
// output staging buffer holds encoded frames so the writer goroutine does a
// single conn.Write per frame.
func EncodeFrame(op packet.Opcode, payload []byte) []byte {
	buf := make([]byte, frameHeader+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)+2))
	binary.BigEndian.PutUint16(buf[4:6], uint16(op))
	copy(buf[frameHeader:], payload)
	return buf
}
