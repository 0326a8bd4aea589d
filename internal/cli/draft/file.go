package draft

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"ojarena/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

const fileExt = ".json.zst"

// FileStore writes one zstd-compressed JSON file per draft.
type FileStore struct {
	dir string
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, errors.DraftStoreError, "create draft dir failed")
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errors.Wrapf(err, errors.DraftStoreError, "init zstd encoder failed")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, errors.Wrapf(err, errors.DraftStoreError, "init zstd decoder failed")
	}
	return &FileStore{dir: dir, enc: enc, dec: dec}, nil
}

func (s *FileStore) path(contestID, problemID string) string {
	return filepath.Join(s.dir, sanitize(contestID), sanitize(problemID)+fileExt)
}

func (s *FileStore) Save(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrapf(err, errors.DraftStoreError, "encode draft failed")
	}
	path := s.path(d.ContestID, d.ProblemID)

	s.mu.Lock()
	defer s.mu.Unlock()
	compressed := s.enc.EncodeAll(data, nil)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, errors.DraftStoreError, "create draft dir failed")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o600); err != nil {
		return errors.Wrapf(err, errors.DraftStoreError, "write draft failed")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, errors.DraftStoreError, "replace draft failed")
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, contestID, problemID string) (Draft, error) {
	compressed, err := os.ReadFile(s.path(contestID, problemID))
	if err != nil {
		if os.IsNotExist(err) {
			return Draft{}, notFound(contestID, problemID)
		}
		return Draft{}, errors.Wrapf(err, errors.DraftStoreError, "read draft failed")
	}
	s.mu.Lock()
	data, err := s.dec.DecodeAll(compressed, nil)
	s.mu.Unlock()
	if err != nil {
		return Draft{}, errors.Wrapf(err, errors.DraftStoreError, "decompress draft failed")
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, errors.Wrapf(err, errors.DraftStoreError, "decode draft failed")
	}
	return d, nil
}

func (s *FileStore) Delete(ctx context.Context, contestID, problemID string) error {
	if err := os.Remove(s.path(contestID, problemID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.DraftStoreError, "remove draft failed")
	}
	return nil
}

func (s *FileStore) Close() error {
	s.dec.Close()
	return s.enc.Close()
}
