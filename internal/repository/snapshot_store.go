package repository

import (
	"bytes"
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	"CandleCast/pkg/cache"
	"CandleCast/pkg/logger"
)

// FileSnapshotStore writes each outbound payload to a file, replacing the
// previous one, and mirrors it to a cache so it outlives the host.
// Messages that implement encoding.TextMarshaler are written as plain text;
// everything else as indented JSON with non-ASCII kept verbatim.
type FileSnapshotStore struct {
	path   string
	key    string
	mirror cache.Service
	ttl    time.Duration
	log    *logger.Logger
}

// NewFileSnapshotStore creates a store for one stage. mirror may be nil.
func NewFileSnapshotStore(path, stage string, mirror cache.Service, ttl time.Duration, log *logger.Logger) repository.SnapshotStore {
	return &FileSnapshotStore{
		path:   path,
		key:    "snapshot:" + stage,
		mirror: mirror,
		ttl:    ttl,
		log:    log,
	}
}

func (s *FileSnapshotStore) Path() string {
	return s.path
}

func (s *FileSnapshotStore) Save(ctx context.Context, msg models.Message) error {
	data, err := encodeSnapshot(msg)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.path, err)
	}
	if s.mirror != nil {
		if err := s.mirror.Set(ctx, s.key, data, s.ttl); err != nil {
			s.log.Warn("snapshot mirror write failed", logger.String("key", s.key), logger.Error(err))
		}
	}
	return nil
}

func (s *FileSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	if s.mirror == nil {
		return nil, models.ErrNoSnapshot
	}

	var mirrored []byte
	if err := s.mirror.Get(ctx, s.key, &mirrored); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, models.ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot mirror: %w", err)
	}
	s.log.Info("snapshot restored from mirror", logger.String("key", s.key))
	return mirrored, nil
}

func encodeSnapshot(msg models.Message) ([]byte, error) {
	if tm, ok := msg.(encoding.TextMarshaler); ok {
		return tm.MarshalText()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFileAtomic replaces path through a rename so readers never see a
// half written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
