package net

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/ebonreach/server/internal/net/packet"
)

// UDP datagram layout:
//
//	[8 bytes: session token][4 bytes BE: sequence][2 bytes BE: opcode]
//	[payload][32 bytes: HMAC-SHA256 over everything before the MAC]
//
// Every bound is enforced before any crypto work; anything malformed is
// dropped without a reply so the port does not confirm its existence to
// scanners.
const (
	datagramTokenLen = 8
	datagramSeqOff   = 8
	datagramOpOff    = 12
	datagramHdrLen   = 14
	datagramMACLen   = sha256.Size

	// MinDatagram is a header plus MAC with an empty payload.
	MinDatagram = datagramHdrLen + datagramMACLen
	// MaxDatagram keeps every datagram under a conservative MTU.
	MaxDatagram = 512
)

var (
	errDatagramSize = errors.New("datagram size out of bounds")
	errDatagramMAC  = errors.New("datagram MAC mismatch")
)

// Datagram is a parsed and authenticated UDP message.
type Datagram struct {
	Token   uint64
	Seq     uint32
	Opcode  packet.Opcode
	Payload []byte
}

// SplitToken extracts the session token without authenticating, so the
// receive pipeline can look up the per-session secret first.
func SplitToken(b []byte) (uint64, bool) {
	if len(b) < MinDatagram || len(b) > MaxDatagram {
		return 0, false
	}
	return binary.BigEndian.Uint64(b[:datagramTokenLen]), true
}

// VerifyDatagram authenticates b against secret and parses it. The MAC
// comparison is constant-time; size bounds are assumed already checked by
// SplitToken.
func VerifyDatagram(b, secret []byte) (Datagram, error) {
	if len(b) < MinDatagram || len(b) > MaxDatagram {
		return Datagram{}, errDatagramSize
	}
	macStart := len(b) - datagramMACLen

	mac := hmac.New(sha256.New, secret)
	mac.Write(b[:macStart])
	if !hmac.Equal(mac.Sum(nil), b[macStart:]) {
		return Datagram{}, errDatagramMAC
	}

	return Datagram{
		Token:   binary.BigEndian.Uint64(b[:datagramTokenLen]),
		Seq:     binary.BigEndian.Uint32(b[datagramSeqOff:datagramOpOff]),
		Opcode:  packet.Opcode(binary.BigEndian.Uint16(b[datagramOpOff:datagramHdrLen])),
		Payload: b[datagramHdrLen:macStart],
	}, nil
}

// SealDatagram builds an authenticated datagram. Used by server-originated
// UDP sends and by tests standing in for the client.
func SealDatagram(token uint64, seq uint32, op packet.Opcode, payload, secret []byte) ([]byte, error) {
	total := datagramHdrLen + len(payload) + datagramMACLen
	if total > MaxDatagram {
		return nil, errDatagramSize
	}
	b := make([]byte, datagramHdrLen, total)
	binary.BigEndian.PutUint64(b[:datagramTokenLen], token)
	binary.BigEndian.PutUint32(b[datagramSeqOff:datagramOpOff], seq)
	binary.BigEndian.PutUint16(b[datagramOpOff:datagramHdrLen], uint16(op))
	b = append(b, payload...)

	mac := hmac.New(sha256.New, secret)
	mac.Write(b)
	return mac.Sum(b), nil
}
