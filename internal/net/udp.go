package net

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/metrics"
)

// UDPListener receives movement and other latency-sensitive datagrams. Every
// datagram passes size, rate, secret, HMAC, and sequence gates in that order;
// the cheap checks run first, and nothing malformed ever gets a reply.
type UDPListener struct {
	conn        *net.UDPConn
	secrets     *SecretRegistry
	in          chan<- Inbound
	limiter     *ipRateLimiter
	maxDatagram int
	workers     int
	log         *zap.Logger
	closeCh     chan struct{}
}

func NewUDPListener(bindAddr string, secrets *SecretRegistry, in chan<- Inbound, perIPLimit, maxDatagram, workers int, log *zap.Logger) (*UDPListener, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	if maxDatagram <= 0 || maxDatagram > MaxDatagram {
		maxDatagram = MaxDatagram
	}
	if workers <= 0 {
		workers = 4
	}
	return &UDPListener{
		conn:        conn,
		secrets:     secrets,
		in:          in,
		limiter:     newIPRateLimiter(perIPLimit),
		maxDatagram: maxDatagram,
		workers:     workers,
		log:         log,
		closeCh:     make(chan struct{}),
	}, nil
}

// Serve reads datagrams and fans them out to verification workers.
func (l *UDPListener) Serve() {
	type raw struct {
		buf  []byte
		addr *net.UDPAddr
	}
	work := make(chan raw, 1024)

	for i := 0; i < l.workers; i++ {
		go func() {
			for r := range work {
				l.handle(r.buf, r.addr)
			}
		}()
	}

	go l.sweepLoop()

	defer close(work)
	for {
		buf := make([]byte, l.maxDatagram+1)
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.closeCh:
				return
			default:
			}
			l.log.Error("UDP 讀取失敗", zap.Error(err))
			continue
		}
		select {
		case work <- raw{buf: buf[:n], addr: addr}:
		default:
			metrics.DatagramsDropped.WithLabelValues("backlog").Inc()
		}
	}
}

// handle runs the verification pipeline for one datagram. Every rejection is
// a silent drop, counted but never answered.
func (l *UDPListener) handle(buf []byte, addr *net.UDPAddr) {
	token, ok := SplitToken(buf)
	if !ok || len(buf) > l.maxDatagram {
		metrics.DatagramsDropped.WithLabelValues("size").Inc()
		return
	}

	if !l.limiter.Allow(addr.IP.String()) {
		metrics.DatagramsDropped.WithLabelValues("rate").Inc()
		return
	}

	sess := l.secrets.Resolve(token)
	if sess == nil || sess.IsClosed() {
		metrics.DatagramsDropped.WithLabelValues("token").Inc()
		return
	}

	d, err := VerifyDatagram(buf, sess.UDPSecret())
	if err != nil {
		metrics.DatagramsDropped.WithLabelValues("mac").Inc()
		return
	}

	if !sess.AcceptSeq(d.Seq) {
		metrics.DatagramsDropped.WithLabelValues("seq").Inc()
		return
	}

	sess.SetUDPAddr(addr)
	sess.Touch()
	metrics.DatagramsAccepted.Inc()

	select {
	case l.in <- Inbound{Session: sess, Opcode: d.Opcode, Payload: d.Payload}:
	default:
		metrics.DatagramsDropped.WithLabelValues("queue").Inc()
	}
}

func (l *UDPListener) sweepLoop() {
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.limiter.Sweep()
		case <-l.closeCh:
			return
		}
	}
}

// Shutdown closes the socket and stops the workers.
func (l *UDPListener) Shutdown() {
	close(l.closeCh)
	l.conn.Close()
}

// Addr returns the UDP socket's address.
func (l *UDPListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}
