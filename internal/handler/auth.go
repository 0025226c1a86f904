package handler

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/cache"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
)

// mintCredentials draws a fresh datagram token and HMAC secret. The token
// retries until it misses the registry; with 64 bits that loop is theory only.
func mintCredentials(deps *Deps) (uint64, []byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return 0, nil, err
	}
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, nil, err
		}
		token := binary.BigEndian.Uint64(buf[:])
		if token != 0 && deps.Secrets.Lookup(token) == nil {
			return token, secret, nil
		}
	}
}

// loginHeldCode distinguishes why the account's session lock is taken. A live
// local session means a genuine double login; no live session means the lock
// is only outliving a disconnect while its force-flush completes, and the
// client should simply retry.
func loginHeldCode(deps *Deps, accountID int64) packet.ErrorCode {
	for _, s := range deps.Live {
		if s.AccountID.Load() == accountID && !s.IsClosed() {
			return packet.ErrMultiLoginDenied
		}
	}
	return packet.ErrSessionBusy
}

// HandleLogin verifies the login ticket, takes the account's session lock,
// and answers with the datagram credentials plus the character list.
func HandleLogin(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.Login
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}

	claims, err := deps.Verifier.Verify(req.JWT)
	if err != nil {
		deps.Log.Warn("登入票證驗證失敗", zap.Uint64("session", sess.ID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_LOGIN, packet.ErrUnauthenticated)
		return
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	acct, err := deps.Accounts.Get(ctx, claims.AccountID)
	if err != nil {
		deps.Log.Error("帳號讀取失敗", zap.Int64("account", claims.AccountID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_LOGIN, packet.ErrUnauthenticated)
		return
	}
	if acct.Banned(time.Now()) {
		sess.SendError(packet.C_OPCODE_LOGIN, packet.ErrAccountBanned)
		return
	}

	token, secret, err := mintCredentials(deps)
	if err != nil {
		sess.SendError(packet.C_OPCODE_LOGIN, packet.ErrServerError)
		return
	}

	// 單一登入互斥鎖：前一個會話尚未沖寫釋放前，第二次登入在此失敗。
	err = deps.Sessions.Acquire(ctx, cache.SessionRecord{
		AccountID: claims.AccountID,
		Token:     token,
		Secret:    hex.EncodeToString(secret),
		ServerID:  deps.Config.Server.ID,
	})
	if errors.Is(err, cache.ErrSessionHeld) {
		code := loginHeldCode(deps, claims.AccountID)
		deps.Log.Info("帳號會話鎖被持有，拒絕登入",
			zap.Int64("account", claims.AccountID), zap.Uint16("code", uint16(code)))
		sess.SendError(packet.C_OPCODE_LOGIN, code)
		return
	}
	if err != nil {
		deps.Log.Error("會話鎖取得失敗", zap.Int64("account", claims.AccountID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_LOGIN, packet.ErrCacheUnavailable)
		return
	}

	sess.AccountID.Store(claims.AccountID)
	sess.BindUDP(token, secret)
	deps.Secrets.Bind(token, sess)
	deps.Live[sess.ID] = sess
	sess.SetState(packet.StateAuthenticated)

	if err := deps.Accounts.MarkLogin(ctx, claims.AccountID); err != nil {
		deps.Log.Warn("登入時間戳記失敗", zap.Int64("account", claims.AccountID), zap.Error(err))
	}
	deps.Log.Info("帳號登入",
		zap.Int64("account", claims.AccountID), zap.Uint64("session", sess.ID))

	ack := proto.LoginAck{AccountID: uint64(claims.AccountID), Token: token, Secret: secret}
	deps.Bc.ToSession(sess, packet.C_OPCODE_LOGIN, ack.Marshal())
	sendCharacterList(sess, deps)
}

// HandleHeartbeat echoes the client's clock so it can measure RTT. The
// activity timestamp is already refreshed by the frame reader.
func HandleHeartbeat(sess *net.Session, payload []byte, deps *Deps) {
	var hb proto.Heartbeat
	if err := hb.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	deps.Bc.ToSession(sess, packet.C_OPCODE_HEARTBEAT, hb.Marshal())
}
