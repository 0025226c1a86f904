package net

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and creates Sessions. Sessions announce
// themselves to the game loop through their first frame on the shared intake;
// deaths are reported on a channel so the loop can run the disconnect path.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	deadCh   chan uint64 // session IDs of dead sessions
	in       chan Inbound
	sessCfg  SessionConfig

	maxConns    int
	maxPerIP    int
	activeConns atomic.Int64
	perIPMu     sync.Mutex
	perIP       map[string]int

	log     *zap.Logger
	closeCh chan struct{}
}

func NewServer(bindAddr string, in chan Inbound, sessCfg SessionConfig, maxConns, maxPerIP int, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		deadCh:   make(chan uint64, 64),
		in:       in,
		sessCfg:  sessCfg,
		maxConns: maxConns,
		maxPerIP: maxPerIP,
		perIP:    make(map[string]int),
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop runs in its own goroutine. It accepts connections, enforces the
// connection caps, and hands new sessions to the game loop.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}

		ip := remoteIP(conn.RemoteAddr())
		if !s.admit(ip) {
			s.log.Warn("連線數達上限，拒絕連線", zap.String("ip", ip))
			conn.Close()
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.in, s.sessCfg, s.log)
		sess.Start()
		go func() {
			<-sess.Done()
			s.NotifyDead(sess)
		}()

		s.log.Info(fmt.Sprintf("玩家連線  session=%d  ip=%s", id, sess.IP))
	}
}

func (s *Server) admit(ip string) bool {
	if s.maxConns > 0 && s.activeConns.Load() >= int64(s.maxConns) {
		return false
	}
	s.perIPMu.Lock()
	defer s.perIPMu.Unlock()
	if s.maxPerIP > 0 && s.perIP[ip] >= s.maxPerIP {
		return false
	}
	s.perIP[ip]++
	s.activeConns.Add(1)
	return true
}

func (s *Server) release(ip string) {
	s.activeConns.Add(-1)
	s.perIPMu.Lock()
	defer s.perIPMu.Unlock()
	if s.perIP[ip] <= 1 {
		delete(s.perIP, ip)
	} else {
		s.perIP[ip]--
	}
}

// NotifyDead reports a dead session ID to the game loop and frees its
// connection slots.
func (s *Server) NotifyDead(sess *Session) {
	s.release(sess.IP)
	select {
	case s.deadCh <- sess.ID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// ActiveConns returns the current TCP connection count.
func (s *Server) ActiveConns() int64 {
	return s.activeConns.Load()
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
