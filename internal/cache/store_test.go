package cache

import (
	"bytes"
	"testing"
)

func TestFileStore(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			fs, err := NewFileStore(dir, compress)
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			defer fs.Close()

			data := bytes.Repeat([]byte("vietvoice audio "), 64)
			if err := fs.Put("k1", data); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, ok, err := fs.Get("k1")
			if err != nil || !ok {
				t.Fatalf("Get failed: ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(got, data) {
				t.Error("store is not byte-for-byte transparent")
			}
			if fs.TotalSize() != int64(len(data)) {
				t.Errorf("TotalSize = %d, want %d", fs.TotalSize(), len(data))
			}

			if _, ok, err := fs.Get("missing"); ok || err != nil {
				t.Errorf("missing key: ok=%v err=%v", ok, err)
			}

			if err := fs.Delete("k1"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if fs.TotalSize() != 0 {
				t.Errorf("TotalSize after delete = %d", fs.TotalSize())
			}
			// Deleting again is not an error.
			if err := fs.Delete("k1"); err != nil {
				t.Errorf("repeat Delete failed: %v", err)
			}
		})
	}
}

func TestFileStoreReopen(t *testing.T) {
	dir := t.TempDir()

	fs, err := NewFileStore(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Repeat([]byte("persist "), 32)
	if err := fs.Put("survivor", data); err != nil {
		t.Fatal(err)
	}
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen without compression: old compressed entries stay readable.
	reopened, err := NewFileStore(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get("survivor")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, data) {
		t.Error("data corrupted across reopen")
	}
	if reopened.TotalSize() != int64(len(data)) {
		t.Errorf("TotalSize after reopen = %d, want %d", reopened.TotalSize(), len(data))
	}
}

func TestFileStoreClosed(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fs.Put("k", []byte("x")); err != ErrStoreClosed {
		t.Errorf("Put on closed store: %v", err)
	}
	if _, _, err := fs.Get("k"); err != ErrStoreClosed {
		t.Errorf("Get on closed store: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	data := []byte("hello")
	if err := ms.Put("k", data); err != nil {
		t.Fatal(err)
	}

	// The store must keep its own copy.
	data[0] = 'X'

	got, ok, err := ms.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "hello" {
		t.Errorf("store shares memory with caller: %q", got)
	}
	if ms.TotalSize() != 5 {
		t.Errorf("TotalSize = %d", ms.TotalSize())
	}

	if err := ms.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := ms.Get("k"); ok {
		t.Error("key should be gone after Delete")
	}
}
