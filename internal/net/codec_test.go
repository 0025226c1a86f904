package net

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebonreach/server/internal/net/packet"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0x08, 0x2a, 0x10, 0x01}
	require.NoError(t, WriteFrame(&buf, packet.C_OPCODE_USE_SKILL, payload))

	op, got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, packet.C_OPCODE_USE_SKILL, op)
	assert.Equal(t, payload, got)
}

func TestFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, packet.C_OPCODE_HEARTBEAT, nil))

	op, got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, packet.C_OPCODE_HEARTBEAT, op)
	assert.Empty(t, got)
}

func TestFrameRejectsOversizeLength(t *testing.T) {
	// Declared length beyond MaxFrameBody must fail before any allocation.
	hdr := []byte{0x00, 0x10, 0x00, 0x00}
	_, _, err := ReadFrame(bytes.NewReader(hdr), 0)
	assert.Error(t, err)
}

func TestFrameLengthCeilingCountsOpcode(t *testing.T) {
	// The 65535 ceiling covers opcode+payload, so 65536 is already out.
	hdr := []byte{0x00, 0x01, 0x00, 0x00}
	_, _, err := ReadFrame(bytes.NewReader(hdr), 0)
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, packet.C_OPCODE_CHAT, make([]byte, MaxPayload)))
	op, got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, packet.C_OPCODE_CHAT, op)
	assert.Len(t, got, MaxPayload)
}

func TestFrameHonoursConfiguredCeiling(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, packet.C_OPCODE_CHAT, make([]byte, 300)))
	_, _, err := ReadFrame(&buf, 256)
	assert.Error(t, err)
}

func TestFrameRejectsZeroLength(t *testing.T) {
	hdr := []byte{0x00, 0x00, 0x00, 0x00}
	_, _, err := ReadFrame(bytes.NewReader(hdr), 0)
	assert.Error(t, err)
}

func TestWriteFrameRejectsOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, packet.S_OPCODE_CHAT_BROADCAST, make([]byte, MaxPayload+1))
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestEncodeFrameMatchesWriteFrame(t *testing.T) {
	payload := []byte("hello")
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, packet.C_OPCODE_CHAT, payload))
	assert.Equal(t, buf.Bytes(), EncodeFrame(packet.C_OPCODE_CHAT, payload))
}

func TestFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, packet.C_OPCODE_CHAT, []byte("hello")))
	trunc := buf.Bytes()[:buf.Len()-2]
	_, _, err := ReadFrame(bytes.NewReader(trunc), 0)
	assert.Error(t, err)
}
