package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store implements the TranscriptStore interface using Redis as
// the backend, keeping transcripts across process restarts.
// The keys namespace is organized as follows:
// - `/<prefix>/chatstore/messages/<chatID>` for storing conversation turns
// - `/<prefix>/chatstore/info/<chatID>` for storing chat metadata
// - `/<prefix>/chatstore/chats` for storing the set of known chat IDs

// maxStoredTurns bounds the transcript length kept per chat.
const maxStoredTurns = 50

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a TranscriptStore backed by Redis.
func NewRedisStore(client *redis.Client, prefix string) TranscriptStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) getRedisTurnsKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) getRedisChatInfoKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "info", chatID)
}

func (m *redisStore) getRedisChatListKey() string {
	return path.Join(m.prefix, "chatstore", "chats")
}

func (m *redisStore) Turns(ctx context.Context) []chatmodel.Turn {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "GetChatID", "err", err.Error())
		return nil
	}

	key := m.getRedisTurnsKey(chatID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "GetRedisTurns", "err", err.Error())
		return nil
	}

	var turns []chatmodel.Turn
	for _, item := range data {
		var t chatmodel.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal turn", "err", err.Error())
			continue
		}
		turns = append(turns, t)
	}
	return turns
}

func (m *redisStore) Add(ctx context.Context, turns ...chatmodel.Turn) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	key := m.getRedisTurnsKey(chatID)
	pipe := m.client.Pipeline()
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return errors.Wrap(err, "failed to marshal turn")
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, -maxStoredTurns, -1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store turns in Redis")
	}

	// Update the time
	return m.UpdateChat(ctx, "")
}

func (m *redisStore) Reset(ctx context.Context) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.getRedisTurnsKey(chatID))
	pipe.Del(ctx, m.getRedisChatInfoKey(chatID))
	pipe.SRem(ctx, m.getRedisChatListKey(), chatID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}

	return nil
}

// UpdateChat creates or updates the chat metadata for the chat ID from
// context. An empty title keeps the existing one.
func (m *redisStore) UpdateChat(ctx context.Context, title string) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	chat, err := m.getChatInfo(ctx, chatID)
	if err != nil {
		return err
	}
	isNew := chat == nil
	if isNew {
		chat = &ChatInfo{
			ID:        chatID,
			CreatedAt: now,
		}
	}
	if title != "" {
		chat.Title = title
	}
	chat.UpdatedAt = now

	data, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.getRedisChatInfoKey(chatID), data, 0)
	if isNew {
		pipe.SAdd(ctx, m.getRedisChatListKey(), chatID)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to update chat in Redis")
	}
	return nil
}

// ListChats returns the known chat IDs.
func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	ids, err := m.client.SMembers(ctx, m.getRedisChatListKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chats in Redis")
	}
	return ids, nil
}

// GetChatInfo returns the metadata of a chat, or an error when not found.
func (m *redisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	chat, err := m.getChatInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, errors.Newf("chat not found: %s", id)
	}
	return chat, nil
}

func (m *redisStore) getChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	data, err := m.client.Get(ctx, m.getRedisChatInfoKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get chat info from Redis")
	}
	var chat ChatInfo
	if err := json.Unmarshal([]byte(data), &chat); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return &chat, nil
}
