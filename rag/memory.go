package rag

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mudler/xlog"
	"github.com/redis/go-redis/v9"
)

const chatKeyPrefix = "astramind:chat:"

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMemory keeps per-session conversation history in redis with a TTL.
// Like Cache, an unreachable redis disables the feature instead of failing
// requests: History returns empty, Append drops the message.
type ChatMemory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewChatMemory connects to redis at addr. On connection failure a
// disabled memory is returned and the condition is logged.
func NewChatMemory(addr string, db int, ttl time.Duration) *ChatMemory {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: redisDialTimeout,
		ReadTimeout: redisDialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		xlog.Warn("Redis chat memory not reachable, conversation memory disabled", "addr", addr, "error", err)
		return &ChatMemory{}
	}

	return &ChatMemory{client: client, ttl: ttl}
}

func (m *ChatMemory) enabled() bool {
	return m != nil && m.client != nil
}

// History returns the conversation history for a session, oldest first.
func (m *ChatMemory) History(ctx context.Context, session string) []ChatMessage {
	if !m.enabled() {
		return []ChatMessage{}
	}

	data, err := m.client.Get(ctx, chatKeyPrefix+session).Bytes()
	if err != nil {
		if err != redis.Nil {
			xlog.Warn("Chat memory read failed", "session", session, "error", err)
		}
		return []ChatMessage{}
	}

	history := []ChatMessage{}
	if err := json.Unmarshal(data, &history); err != nil {
		xlog.Warn("Discarding malformed chat history", "session", session, "error", err)
		return []ChatMessage{}
	}
	return history
}

// Append adds a message to a session's history and refreshes its TTL.
func (m *ChatMemory) Append(ctx context.Context, session, role, content string) {
	if !m.enabled() {
		return
	}

	history := append(m.History(ctx, session), ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})

	data, err := json.Marshal(history)
	if err != nil {
		xlog.Warn("Failed to encode chat history", "session", session, "error", err)
		return
	}
	if err := m.client.Set(ctx, chatKeyPrefix+session, data, m.ttl).Err(); err != nil {
		xlog.Warn("Failed to store chat history", "session", session, "error", err)
	}
}

// Clear removes a session's history.
func (m *ChatMemory) Clear(ctx context.Context, session string) {
	if !m.enabled() {
		return
	}
	if err := m.client.Del(ctx, chatKeyPrefix+session).Err(); err != nil {
		xlog.Warn("Failed to clear chat memory", "session", session, "error", err)
	}
}

// SummarizeIfNeeded compacts a session once it exceeds threshold turns:
// the history is summarized with the given function, cleared, and replaced
// by a single system message carrying the summary. Returns whether a
// summarization happened. Summarization failures leave the history
// untouched.
func (m *ChatMemory) SummarizeIfNeeded(ctx context.Context, session string, threshold int, summarize func(context.Context, string) (string, error)) bool {
	if !m.enabled() {
		return false
	}

	history := m.History(ctx, session)
	if len(history) <= threshold {
		return false
	}

	transcript := ""
	for _, msg := range history[len(history)-threshold:] {
		transcript += msg.Role + ": " + msg.Content + "\n"
	}

	summary, err := summarize(ctx, transcript)
	if err != nil {
		xlog.Warn("Chat auto-summarization failed", "session", session, "error", err)
		return false
	}

	m.Clear(ctx, session)
	m.Append(ctx, session, "system", "Summary: "+summary)
	xlog.Info("Auto-summarized chat session", "session", session, "turns", len(history))
	return true
}
