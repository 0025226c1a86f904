package net

import "sync"

// missedCap bounds the negative cache of unknown tokens. Past the cap the
// set resets wholesale, which only means one extra fallback probe per token.
const missedCap = 65536

// SecretRegistry maps datagram tokens to live sessions. The UDP receive
// pipeline consults it on every datagram before any HMAC work, so it is a
// plain RWMutex map rather than anything cleverer.
//
// An unknown token falls back once to the configured source (the shared
// session store); the miss is then remembered so a flood of forged tokens
// cannot hammer the store.
type SecretRegistry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	missed   map[uint64]struct{}
	source   func(token uint64) *Session
}

func NewSecretRegistry() *SecretRegistry {
	return &SecretRegistry{
		sessions: make(map[uint64]*Session),
		missed:   make(map[uint64]struct{}),
	}
}

// SetSource installs the one-shot fallback consulted for unknown tokens.
func (r *SecretRegistry) SetSource(fn func(token uint64) *Session) {
	r.mu.Lock()
	r.source = fn
	r.mu.Unlock()
}

// Bind registers a session under its datagram token.
func (r *SecretRegistry) Bind(token uint64, sess *Session) {
	r.mu.Lock()
	r.sessions[token] = sess
	delete(r.missed, token)
	r.mu.Unlock()
}

// Unbind removes the token on disconnect.
func (r *SecretRegistry) Unbind(token uint64) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

// Lookup returns the session bound to token, or nil.
func (r *SecretRegistry) Lookup(token uint64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[token]
}

// Resolve is Lookup plus the one-shot source fallback: a token the map does
// not know is asked of the source exactly once, and a hit is bound for every
// later datagram.
func (r *SecretRegistry) Resolve(token uint64) *Session {
	if sess := r.Lookup(token); sess != nil {
		return sess
	}

	r.mu.Lock()
	if sess := r.sessions[token]; sess != nil {
		r.mu.Unlock()
		return sess
	}
	if _, tried := r.missed[token]; tried {
		r.mu.Unlock()
		return nil
	}
	if len(r.missed) >= missedCap {
		r.missed = make(map[uint64]struct{})
	}
	r.missed[token] = struct{}{}
	source := r.source
	r.mu.Unlock()

	if source == nil {
		return nil
	}
	sess := source(token)
	if sess == nil {
		return nil
	}
	r.Bind(token, sess)
	return sess
}
