package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionHeld means another live session already owns the account.
var ErrSessionHeld = errors.New("account session already held")

// sessionTTL bounds orphaned sessions when a server dies without cleanup.
const sessionTTL = 24 * time.Hour

// SessionRecord is the cross-process view of one authenticated session.
type SessionRecord struct {
	AccountID   int64  `redis:"account_id"`
	CharacterID uint64 `redis:"character_id"`
	Token       uint64 `redis:"token"`
	Secret      string `redis:"secret"` // hex-encoded datagram HMAC key
	ServerID    int    `redis:"server_id"`
}

// SessionStore keeps session records and the one-session-per-account lock.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func sessionKey(token uint64) string {
	return "session:" + strconv.FormatUint(token, 10)
}

func accountKey(accountID int64) string {
	return "session:account:" + strconv.FormatInt(accountID, 10)
}

// Acquire takes the account lock and stores the session record. The SETNX on
// the account key is the multi-login mutex: a second login fails here until
// the first session's state is flushed and released.
func (s *SessionStore) Acquire(ctx context.Context, rec SessionRecord) error {
	ok, err := s.rdb.SetNX(ctx, accountKey(rec.AccountID),
		strconv.FormatUint(rec.Token, 10), sessionTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire account lock: %w", err)
	}
	if !ok {
		return ErrSessionHeld
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sessionKey(rec.Token), rec)
	pipe.Expire(ctx, sessionKey(rec.Token), sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.rdb.Del(ctx, accountKey(rec.AccountID))
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// releaseScript deletes the account lock only if this token still owns it,
// so a crashed session's late release cannot evict its successor.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release frees the account lock and the session record. Called only after
// the character's state has been force-flushed.
func (s *SessionStore) Release(ctx context.Context, accountID int64, token uint64) error {
	if err := releaseScript.Run(ctx, s.rdb,
		[]string{accountKey(accountID)},
		strconv.FormatUint(token, 10)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release account lock: %w", err)
	}
	if err := s.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Get fetches a session record by token.
func (s *SessionStore) Get(ctx context.Context, token uint64) (*SessionRecord, error) {
	res := s.rdb.HGetAll(ctx, sessionKey(token))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(res.Val()) == 0 {
		return nil, redis.Nil
	}
	var rec SessionRecord
	if err := res.Scan(&rec); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &rec, nil
}

// Held reports whether an account's session lock is currently taken.
func (s *SessionStore) Held(ctx context.Context, accountID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, accountKey(accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("check account lock: %w", err)
	}
	return n > 0, nil
}
