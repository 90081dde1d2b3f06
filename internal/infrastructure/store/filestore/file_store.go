package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

const fileExt = ".json"

// FileStore keeps each transcript as <dir>/<user>/<game>.json.
// Writes go through a temp file and rename so readers never see a partial document.
type FileStore struct {
	dir string
	log zerolog.Logger
}

var _ conversation.Store = (*FileStore)(nil)

func New(dir string, log zerolog.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("chat history directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chat history directory: %w", err)
	}
	return &FileStore{dir: dir, log: log.With().Str("store", "file").Logger()}, nil
}

func (s *FileStore) path(key conversation.Key) string {
	return filepath.Join(s.dir, key.UserID, key.GameID+fileExt)
}

// Load implements conversation.Store.
func (s *FileStore) Load(ctx context.Context, key conversation.Key) ([]conversation.Message, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return []conversation.Message{}, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to read conversation", err, "filestore-read")
	}
	messages := []conversation.Message{}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeMalformed,
			"stored conversation is corrupt", err, "filestore-decode")
	}
	return messages, nil
}

// Save implements conversation.Store.
func (s *FileStore) Save(ctx context.Context, key conversation.Key, messages []conversation.Message) error {
	if messages == nil {
		messages = []conversation.Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode conversation", err, "filestore-encode")
	}

	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to create user directory", err, "filestore-mkdir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+key.GameID+"-*.tmp")
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to create temp file", err, "filestore-temp")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to write conversation", err, "filestore-write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to flush conversation", err, "filestore-close")
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to replace conversation", err, "filestore-rename")
	}
	return nil
}

// Delete implements conversation.Store.
func (s *FileStore) Delete(ctx context.Context, key conversation.Key) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to delete conversation", err, "filestore-delete")
	}
	return nil
}

// Purge implements conversation.Store. A transcript's age is its file's modification time.
func (s *FileStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != fileExt {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to purge conversations", err, "filestore-purge")
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("purged stale conversations")
	}
	return removed, nil
}
