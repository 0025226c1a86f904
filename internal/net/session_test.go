package net

import (
	stdnet "net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
)

func pipeSession(t *testing.T) (*Session, stdnet.Conn) {
	t.Helper()
	c1, c2 := stdnet.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })

	in := make(chan Inbound, 16)
	sess := NewSession(c1, 1, in, SessionConfig{
		OutQueueSize:    8,
		MalformedPerMin: 10,
		PreAuthIdle:     time.Minute,
		InWorldIdle:     time.Minute,
	}, zap.NewNop())
	return sess, c2
}

func TestFatalErrorClosesAfterDelivery(t *testing.T) {
	sess, peer := pipeSession(t)
	sess.Start()

	sess.SendError(packet.C_OPCODE_LOGIN, packet.ErrBadHMAC)
	require.Equal(t, packet.StateDisconnecting, sess.State())
	sess.FlushOutput()

	// The error frame still reaches the client.
	op, payload, err := ReadFrame(peer, 0)
	require.NoError(t, err)
	require.Equal(t, packet.S_OPCODE_ERROR, op)
	var resp proto.ErrorResponse
	require.NoError(t, resp.Unmarshal(payload))
	assert.Equal(t, uint32(packet.ErrBadHMAC), resp.Code)

	// And the socket is actually torn down afterwards.
	assert.Eventually(t, sess.IsClosed, time.Second, 10*time.Millisecond,
		"致命錯誤送達後必須關閉連線")
}

func TestNonFatalErrorKeepsSessionOpen(t *testing.T) {
	sess, peer := pipeSession(t)
	sess.Start()

	sess.SendError(packet.C_OPCODE_USE_SKILL, packet.ErrInvalidTarget)
	require.Equal(t, packet.StateConnected, sess.State())
	sess.FlushOutput()

	op, _, err := ReadFrame(peer, 0)
	require.NoError(t, err)
	require.Equal(t, packet.S_OPCODE_ERROR, op)

	assert.Never(t, sess.IsClosed, 200*time.Millisecond, 20*time.Millisecond)
}

func TestFlushClosesDrainedDisconnectingSession(t *testing.T) {
	// Writer never started: the flush itself must notice the session is
	// disconnecting with nothing left to deliver.
	sess, _ := pipeSession(t)
	sess.SetState(packet.StateDisconnecting)

	sess.FlushOutput()
	assert.True(t, sess.IsClosed())
}
