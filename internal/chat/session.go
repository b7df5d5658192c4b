package chat

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nimeshgurung/okrbuilder/internal/agent/ports"
)

const defaultMaxSessions = 256

// session holds one conversation's history. History excludes the system
// prompt and the state-snapshot context, which are rebuilt per turn.
type session struct {
	mu      sync.Mutex
	id      string
	history []ports.Message
}

func (s *session) append(msgs ...ports.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

func (s *session) snapshot() []ports.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Message, len(s.history))
	copy(out, s.history)
	return out
}

// sessionCache bounds the number of live conversations. The least recently
// used conversation is evicted wholesale when the bound is hit.
type sessionCache struct {
	cache *lru.Cache[string, *session]
}

func newSessionCache(maxSessions int) (*sessionCache, error) {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	cache, err := lru.New[string, *session](maxSessions)
	if err != nil {
		return nil, err
	}
	return &sessionCache{cache: cache}, nil
}

func (c *sessionCache) get(id string) *session {
	if existing, ok := c.cache.Get(id); ok {
		return existing
	}
	s := &session{id: id}
	if prior, ok, _ := c.cache.PeekOrAdd(id, s); ok {
		return prior
	}
	return s
}

func (c *sessionCache) len() int { return c.cache.Len() }
