package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// MaxTurnsPerSession bounds stored history; older turns are dropped first.
// Both implementations apply it, so a long chat keeps its latest turns.
const MaxTurnsPerSession = 100

// ConversationRepository stores the question/answer history shown in a
// chat session.
type ConversationRepository interface {
	Append(ctx context.Context, sessionID string, turn models.ConversationTurn) error
	// List returns up to limit most recent turns, oldest first. limit <= 0 means all.
	List(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error)
	Clear(ctx context.Context, sessionID string) error
}

type memorySession struct {
	turns    []models.ConversationTurn
	lastUsed time.Time
}

type memoryConversationRepository struct {
	mu        sync.RWMutex
	sessions  map[string]*memorySession
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryConversationRepository keeps history in process memory. History
// is lost on restart. A session idle for longer than ttl is dropped, the
// same as a Redis key expiring; ttl <= 0 keeps sessions until cleared.
func NewMemoryConversationRepository(ttl time.Duration) ConversationRepository {
	return &memoryConversationRepository{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

var _ ConversationRepository = (*memoryConversationRepository)(nil)

func (r *memoryConversationRepository) Append(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	sess, ok := r.sessions[sessionID]
	if !ok || r.expired(sess, now) {
		sess = &memorySession{}
		r.sessions[sessionID] = sess
	}
	sess.turns = append(sess.turns, turn)
	if len(sess.turns) > MaxTurnsPerSession {
		sess.turns = append([]models.ConversationTurn(nil), sess.turns[len(sess.turns)-MaxTurnsPerSession:]...)
	}
	sess.lastUsed = now
	return nil
}

func (r *memoryConversationRepository) List(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok || r.expired(sess, r.now()) {
		return []models.ConversationTurn{}, nil
	}
	turns := sess.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (r *memoryConversationRepository) Clear(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *memoryConversationRepository) expired(sess *memorySession, now time.Time) bool {
	return r.ttl > 0 && now.Sub(sess.lastUsed) > r.ttl
}

// sweep drops idle sessions, at most once per ttl. Caller holds the write lock.
func (r *memoryConversationRepository) sweep(now time.Time) {
	if r.ttl <= 0 || now.Sub(r.lastSweep) < r.ttl {
		return
	}
	r.lastSweep = now
	for id, sess := range r.sessions {
		if r.expired(sess, now) {
			delete(r.sessions, id)
		}
	}
}

type redisConversationRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisConversationRepository stores each session's history as a Redis
// list of JSON turns that expires ttl after the last append.
func NewRedisConversationRepository(client *redis.Client, ttl time.Duration) ConversationRepository {
	return &redisConversationRepository{client: client, ttl: ttl}
}

var _ ConversationRepository = (*redisConversationRepository)(nil)

func conversationKey(sessionID string) string {
	return "ekaya-ask:conversation:" + sessionID
}

func (r *redisConversationRepository) Append(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation turn: %w", err)
	}

	key := conversationKey(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -MaxTurnsPerSession, -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

func (r *redisConversationRepository) List(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, conversationKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (r *redisConversationRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, conversationKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}
