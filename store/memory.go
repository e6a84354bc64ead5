package store

import (
	"context"
	"sync"

	"github.com/effective-security/esagent/chatmodel"
	"github.com/effective-security/xlog"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]chatmodel.Turn
}

// NewMemoryStore returns a process-local TranscriptStore.
func NewMemoryStore() TranscriptStore {
	return &inMemory{}
}

func (m *inMemory) Turns(ctx context.Context) []chatmodel.Turn {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "GetChatID", "err", err.Error())
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	turns := m.storage[chatID]
	out := make([]chatmodel.Turn, len(turns))
	copy(out, turns)
	return out
}

func (m *inMemory) Add(ctx context.Context, turns ...chatmodel.Turn) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]chatmodel.Turn)
	}
	m.storage[chatID] = append(m.storage[chatID], turns...)
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	chatID, err := chatmodel.GetChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, chatID)
	}
	return nil
}
