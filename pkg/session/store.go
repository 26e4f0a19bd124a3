package session

import (
	"crypto/rand"
	"encoding/hex"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"skycast/pkg/core"
	"skycast/pkg/models"
)

const shardCount = 16

// Store maps opaque tokens to live sessions. It is sharded by token hash so
// that unrelated tokens never contend on the same lock.
type Store struct {
	shards [shardCount]shard
	ttl    time.Duration
	max    int
	count  atomic.Int64
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewStore(ttl time.Duration, maxSessions int) *Store {
	s := &Store{ttl: ttl, max: maxSessions}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]models.Session)
	}
	return s
}

func (s *Store) shardFor(token string) *shard {
	h := fnv.New32a()
	h.Write([]byte(token))
	return &s.shards[h.Sum32()%shardCount]
}

// Create issues a fresh session for an authenticated user. The token is
// 256 bits from crypto/rand; the capacity check is exact even under
// concurrent creates.
func (s *Store) Create(userID int, username string) (models.Session, error) {
	if s.max > 0 && s.count.Add(1) > int64(s.max) {
		s.count.Add(-1)
		return models.Session{}, core.ErrCapacityExceeded
	}

	now := time.Now()
	sess := models.Session{
		Token:     generateToken(),
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	sh := s.shardFor(sess.Token)
	sh.mu.Lock()
	sh.sessions[sess.Token] = sess
	sh.mu.Unlock()
	return sess, nil
}

// Validate returns the session for an exact, unexpired token match. Prefix
// matches and user-id shortcuts do not exist.
func (s *Store) Validate(token string) (models.Session, bool) {
	if token == "" {
		return models.Session{}, false
	}
	sh := s.shardFor(token)
	sh.mu.RLock()
	sess, ok := sh.sessions[token]
	sh.mu.RUnlock()
	if !ok || time.Now().After(sess.ExpiresAt) {
		return models.Session{}, false
	}
	return sess, true
}

// Destroy removes a session. Removing an absent token is not an error.
func (s *Store) Destroy(token string) {
	sh := s.shardFor(token)
	sh.mu.Lock()
	_, ok := sh.sessions[token]
	if ok {
		delete(sh.sessions, token)
	}
	sh.mu.Unlock()
	if ok {
		s.count.Add(-1)
	}
}

// SweepExpired removes sessions past their expiry, one shard at a time so a
// sweep never stalls validates for unrelated tokens.
func (s *Store) SweepExpired() int {
	now := time.Now()
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for token, sess := range sh.sessions {
			if now.After(sess.ExpiresAt) {
				delete(sh.sessions, token)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		s.count.Add(int64(-removed))
	}
	return removed
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return int(s.count.Load())
}

func generateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
