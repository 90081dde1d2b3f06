package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/infrastructure/store/filestore"
	"jan-server/services/dm-api/internal/infrastructure/store/memstore"
)

func TestNewConversationStoreSelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, cleanup, err := NewConversationStore(ctx, &config.Config{StoreDriver: config.StoreDriverMemory}, zerolog.Nop())
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	cleanup()
	if _, ok := s.(*memstore.MemoryStore); !ok {
		t.Errorf("expected *memstore.MemoryStore, got %T", s)
	}

	s, cleanup, err = NewConversationStore(ctx, &config.Config{StoreDriver: config.StoreDriverFile, ChatHistoryDir: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	cleanup()
	if _, ok := s.(*filestore.FileStore); !ok {
		t.Errorf("expected *filestore.FileStore, got %T", s)
	}

	if _, _, err := NewConversationStore(ctx, &config.Config{StoreDriver: "etcd"}, zerolog.Nop()); err == nil {
		t.Error("expected unknown driver to fail")
	}
}
