package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
)

// Inbound is one client message handed to the game loop. TCP frames and
// authenticated UDP datagrams converge into the same queue so the game loop
// has a single intake.
type Inbound struct {
	Session *Session
	Opcode  packet.Opcode
	Payload []byte
}

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // packet.SessionState stored as int32

	in       chan<- Inbound // shared game-loop intake
	OutQueue chan []byte    // writer goroutine reads encoded frames from here

	IP          string
	AccountID   atomic.Int64
	CharacterID atomic.Uint64

	// UDP channel binding, set on world entry.
	Token     uint64
	udpSecret []byte
	udpSeq    atomic.Uint32 // last accepted datagram sequence
	udpMu     sync.Mutex
	udpAddr   net.Addr

	outBuf [][]byte // encoded frames staged by the game loop, flushed once per tick

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Malformed-payload budget (game loop only, no lock needed).
	malformed        int
	malformedResetAt int64 // unix minute of last counter reset
	malformedPerMin  int

	preAuthIdle  time.Duration
	inWorldIdle  time.Duration
	maxFrame     int
	writeTimeout time.Duration
	lastActivity atomic.Int64 // unix nano of last inbound message

	log *zap.Logger
}

// SessionConfig bundles the per-session knobs the server hands down.
type SessionConfig struct {
	OutQueueSize    int
	MalformedPerMin int
	PreAuthIdle     time.Duration
	InWorldIdle     time.Duration
	MaxFrameBytes   int
	WriteTimeout    time.Duration
}

func NewSession(conn net.Conn, id uint64, in chan<- Inbound, cfg SessionConfig, log *zap.Logger) *Session {
	s := &Session{
		ID:              id,
		conn:            conn,
		in:              in,
		OutQueue:        make(chan []byte, cfg.OutQueueSize),
		IP:              remoteIP(conn.RemoteAddr()),
		closeCh:         make(chan struct{}),
		malformedPerMin: cfg.MalformedPerMin,
		preAuthIdle:     cfg.PreAuthIdle,
		inWorldIdle:     cfg.InWorldIdle,
		maxFrame:        cfg.MaxFrameBytes,
		writeTimeout:    cfg.WriteTimeout,
		log:             log.With(zap.Uint64("session", id)),
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = 10 * time.Second
	}
	s.state.Store(int32(packet.StateConnected))
	s.lastActivity.Store(time.Now().UnixNano())
	return s
}

func remoteIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// BindUDP attaches the datagram channel: the token clients prefix on every
// datagram and the HMAC secret minted for this session.
func (s *Session) BindUDP(token uint64, secret []byte) {
	s.Token = token
	s.udpSecret = secret
	s.udpSeq.Store(0)
}

func (s *Session) UDPSecret() []byte { return s.udpSecret }

// AcceptSeq admits seq only if it is strictly greater than every previously
// accepted sequence. Late and replayed datagrams both fail here.
func (s *Session) AcceptSeq(seq uint32) bool {
	for {
		last := s.udpSeq.Load()
		if seq <= last {
			return false
		}
		if s.udpSeq.CompareAndSwap(last, seq) {
			return true
		}
	}
}

// SetUDPAddr records the client's observed datagram source address.
func (s *Session) SetUDPAddr(addr net.Addr) {
	s.udpMu.Lock()
	s.udpAddr = addr
	s.udpMu.Unlock()
}

func (s *Session) UDPAddr() net.Addr {
	s.udpMu.Lock()
	defer s.udpMu.Unlock()
	return s.udpAddr
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send stages a frame for sending. Nothing reaches TCP until FlushOutput
// runs in the output phase. Called only from the game loop goroutine.
func (s *Session) Send(op packet.Opcode, payload []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, EncodeFrame(op, payload))
}

// SendError stages the standard error frame for a rejected request.
func (s *Session) SendError(op packet.Opcode, code packet.ErrorCode) {
	resp := proto.ErrorResponse{Opcode: uint32(op), Code: uint32(code)}
	s.Send(packet.S_OPCODE_ERROR, resp.Marshal())
	if code.Fatal() {
		s.log.Warn("致命協議錯誤，排定斷線",
			zap.Uint16("op", uint16(op)), zap.Uint16("code", uint16(code)))
		s.SetState(packet.StateDisconnecting)
	}
}

// FlushOutput drains the staging buffer to OutQueue for the writer goroutine.
// Called once per tick. Non-blocking: a full OutQueue means the client cannot
// keep up, and the session is cut rather than letting it stall the loop.
//
// A session marked StateDisconnecting is closed here once its queue has
// drained, so the error frame that scheduled the disconnect still reaches
// the client before the socket goes away.
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("輸出佇列已滿，斷開慢速連線")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]

	if !s.closed.Load() && s.State() == packet.StateDisconnecting && len(s.OutQueue) == 0 {
		s.Close()
	}
}

// NoteMalformed charges one malformed payload against the per-minute budget.
// Returns false when the budget is exhausted and the session must go.
func (s *Session) NoteMalformed() bool {
	nowMin := time.Now().Unix() / 60
	if nowMin != s.malformedResetAt {
		s.malformed = 0
		s.malformedResetAt = nowMin
	}
	s.malformed++
	if s.malformedPerMin > 0 && s.malformed > s.malformedPerMin {
		s.log.Warn("畸形封包超限，斷開連線", zap.Int("count", s.malformed))
		return false
	}
	return true
}

// Touch records inbound activity for the heartbeat sweep.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the most recent inbound message.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Close shuts down the session. Safe to call from any goroutine, repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session shuts down.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

// readLoop reads frames from the TCP connection and pushes them onto the
// shared intake for the game loop to consume.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		// Unauthenticated connections get a short leash; in-world clients
		// are policed by the heartbeat sweep with a longer socket deadline
		// as a backstop.
		idle := s.preAuthIdle
		if s.State() >= packet.StateAuthenticated {
			idle = s.inWorldIdle
		}
		s.conn.SetReadDeadline(time.Now().Add(idle))

		op, payload, err := ReadFrame(s.conn, s.maxFrame)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		s.Touch()

		// Block until the intake has space or the session closes. The
		// readLoop goroutine is per-session, so blocking here only stalls
		// this client, and dropping inputs would desync its position.
		select {
		case s.in <- Inbound{Session: s, Opcode: op, Payload: payload}:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop drains OutQueue and writes encoded frames to the TCP connection.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if _, err := s.conn.Write(data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
			// The last queued frame of a disconnecting session has been
			// delivered; the deferred Close tears the socket down.
			if s.State() == packet.StateDisconnecting && len(s.OutQueue) == 0 {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
