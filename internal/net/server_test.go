package net

import (
	stdnet "net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAcceptLoopCountsEachConnectionOnce(t *testing.T) {
	in := make(chan Inbound, 64)
	cfg := SessionConfig{
		OutQueueSize:    8,
		MalformedPerMin: 10,
		PreAuthIdle:     time.Minute,
		InWorldIdle:     time.Minute,
	}
	srv, err := NewServer("127.0.0.1:0", in, cfg, 8, 2, zap.NewNop())
	require.NoError(t, err)
	go srv.AcceptLoop()
	defer srv.Shutdown()

	dial := func() stdnet.Conn {
		c, err := stdnet.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		return c
	}

	c1, c2 := dial(), dial()
	defer c1.Close()
	require.Eventually(t, func() bool { return srv.ActiveConns() == 2 },
		time.Second, 10*time.Millisecond)

	// Third connection from the same IP is over the per-IP cap: closed by
	// the server and never counted.
	c3 := dial()
	c3.SetReadDeadline(time.Now().Add(time.Second))
	_, err = c3.Read(make([]byte, 1))
	assert.Error(t, err)
	c3.Close()
	assert.EqualValues(t, 2, srv.ActiveConns())

	// A closed connection frees its slots exactly once.
	c2.Close()
	require.Eventually(t, func() bool { return srv.ActiveConns() == 1 },
		time.Second, 10*time.Millisecond)

	// The freed per-IP slot is usable again.
	c4 := dial()
	defer c4.Close()
	require.Eventually(t, func() bool { return srv.ActiveConns() == 2 },
		time.Second, 10*time.Millisecond)
}
