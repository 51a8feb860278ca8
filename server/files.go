package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// fileStore keeps attachment bodies on local disk under uuid names.
type fileStore struct {
	dir      string
	maxBytes int64
}

func newFileStore(dir string, maxBytes int64) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &fileStore{dir: dir, maxBytes: maxBytes}, nil
}

type storedFile struct {
	Name     string
	Size     int64
	Checksum string
}

// Save copies r to a new file. Bodies larger than maxBytes are rejected
// with BadRequest and leave nothing behind.
func (fs *fileStore) Save(r io.Reader) (storedFile, error) {
	name := uuid.NewString()
	path := filepath.Join(fs.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return storedFile{}, err
	}
	h := blake3.New()
	n, err := io.Copy(io.MultiWriter(f, h), io.LimitReader(r, fs.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > fs.maxBytes {
		err = badRequest("file exceeds " + humanize.IBytes(uint64(fs.maxBytes)))
	}
	if err != nil {
		_ = os.Remove(path)
		return storedFile{}, err
	}
	return storedFile{Name: name, Size: n, Checksum: hex.EncodeToString(h.Sum(nil))}, nil
}

func (fs *fileStore) Open(name string) (*os.File, error) {
	f, err := os.Open(filepath.Join(fs.dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, notFound("file")
	}
	return f, err
}

func (fs *fileStore) Remove(name string) error {
	err := os.Remove(filepath.Join(fs.dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
