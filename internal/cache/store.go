package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrStoreClosed is returned by byte-store operations after Close.
var ErrStoreClosed = errors.New("byte store is closed")

// ByteStore is the durable key→bytes boundary the cache writes through.
// Implementations must be safe for concurrent use and byte-for-byte
// transparent: Get returns exactly what Put received.
type ByteStore interface {
	// Put stores data under key, replacing any previous value.
	Put(key string, data []byte) error

	// Get returns (data, true, nil) on hit and (nil, false, nil) on miss.
	Get(key string) ([]byte, bool, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// TotalSize returns the stored payload size in bytes.
	TotalSize() int64

	// Close releases resources held by the store.
	Close() error
}

const (
	audioExt      = ".audio"
	compressedExt = ".audio.zst"
)

// FileStore keeps one file per key under a private directory, optionally
// zstd-compressed on disk. Size accounting uses the uncompressed payload
// length so eviction works against the audio budget, not the disk budget.
type FileStore struct {
	dir      string
	compress bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu     sync.Mutex
	sizes  map[string]int64
	closed bool
}

// NewFileStore creates (or reopens) a file store rooted at dir. Files left
// over from a previous run are picked up so TotalSize stays accurate.
func NewFileStore(dir string, compress bool) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	fs := &FileStore{
		dir:      dir,
		compress: compress,
		sizes:    make(map[string]int64),
	}

	if compress {
		var err error
		fs.encoder, err = zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	// The decoder is always available so a store reopened without
	// compression can still read entries written with it.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	fs.decoder = decoder

	if err := fs.scan(); err != nil {
		return nil, err
	}
	return fs, nil
}

// scan indexes files already present in the store directory.
func (fs *FileStore) scan() error {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return fmt.Errorf("scan store directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var key string
		switch {
		case strings.HasSuffix(name, compressedExt):
			key = strings.TrimSuffix(name, compressedExt)
		case strings.HasSuffix(name, audioExt):
			key = strings.TrimSuffix(name, audioExt)
		default:
			continue
		}
		data, ok, err := fs.read(key)
		if err != nil || !ok {
			// Unreadable leftovers are dropped rather than poisoning
			// the size accounting.
			_ = os.Remove(filepath.Join(fs.dir, name))
			continue
		}
		fs.sizes[key] = int64(len(data))
	}
	return nil
}

// Put stores data under key.
func (fs *FileStore) Put(key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrStoreClosed
	}

	payload := data
	path := filepath.Join(fs.dir, key+audioExt)
	if fs.compress {
		payload = fs.encoder.EncodeAll(data, nil)
		path = filepath.Join(fs.dir, key+compressedExt)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	fs.sizes[key] = int64(len(data))
	return nil
}

// Get returns the bytes stored under key.
func (fs *FileStore) Get(key string) ([]byte, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return nil, false, ErrStoreClosed
	}
	return fs.read(key)
}

// read loads a key from disk, trying the compressed form first.
func (fs *FileStore) read(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, key+compressedExt))
	if err == nil {
		out, derr := fs.decoder.DecodeAll(data, nil)
		if derr != nil {
			return nil, false, fmt.Errorf("decompress audio file: %w", derr)
		}
		return out, true, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("read audio file: %w", err)
	}

	data, err = os.ReadFile(filepath.Join(fs.dir, key+audioExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read audio file: %w", err)
	}
	return data, true, nil
}

// Delete removes a key from disk.
func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrStoreClosed
	}
	_ = os.Remove(filepath.Join(fs.dir, key+compressedExt))
	_ = os.Remove(filepath.Join(fs.dir, key+audioExt))
	delete(fs.sizes, key)
	return nil
}

// Sizes returns a copy of the per-key uncompressed payload sizes.
func (fs *FileStore) Sizes() map[string]int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make(map[string]int64, len(fs.sizes))
	for key, n := range fs.sizes {
		out[key] = n
	}
	return out
}

// TotalSize returns the uncompressed payload size of all stored entries.
func (fs *FileStore) TotalSize() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var total int64
	for _, n := range fs.sizes {
		total += n
	}
	return total
}

// Close releases the compressor state.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return nil
	}
	fs.closed = true
	if fs.encoder != nil {
		_ = fs.encoder.Close()
	}
	fs.decoder.Close()
	return nil
}

// MemoryStore is an in-process ByteStore for tests and embedded use.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (ms *MemoryStore) Put(key string, data []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	ms.data[key] = buf
	return nil
}

// Get returns the bytes stored under key.
func (ms *MemoryStore) Get(key string) ([]byte, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.closed {
		return nil, false, ErrStoreClosed
	}
	data, ok := ms.data[key]
	return data, ok, nil
}

// Delete removes a key.
func (ms *MemoryStore) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	delete(ms.data, key)
	return nil
}

// Sizes returns a copy of the per-key payload sizes.
func (ms *MemoryStore) Sizes() map[string]int64 {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make(map[string]int64, len(ms.data))
	for key, d := range ms.data {
		out[key] = int64(len(d))
	}
	return out
}

// TotalSize returns the stored payload size in bytes.
func (ms *MemoryStore) TotalSize() int64 {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	var total int64
	for _, d := range ms.data {
		total += int64(len(d))
	}
	return total
}

// Close marks the store closed.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	return nil
}
