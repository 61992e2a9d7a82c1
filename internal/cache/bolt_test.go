package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelflife/shelflife/internal/config"
	"github.com/shelflife/shelflife/internal/types"
)

func testBoltStoreConfig(t *testing.T) config.BoltStoreConfig {
	t.Helper()
	return config.BoltStoreConfig{
		Path:        filepath.Join(t.TempDir(), "shelflife-test.db"),
		Bucket:      "shelflife-test",
		OpenTimeout: 1 * time.Second,
	}
}

func TestNewBoltStore(t *testing.T) {
	t.Run("creates the database file", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		if store == nil {
			t.Fatal("NewBoltStore() returned nil")
		}
	})

	t.Run("returns error for unreachable path", func(t *testing.T) {
		cfg := testBoltStoreConfig(t)
		cfg.Path = filepath.Join(cfg.Path, "missing", "db") // parent is a file path

		if _, err := NewBoltStore(cfg, nil); err == nil {
			t.Error("NewBoltStore() should fail for an unreachable path")
		}
	})
}

func TestBoltStoreName(t *testing.T) {
	store, err := NewBoltStore(testBoltStoreConfig(t), nil)
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	defer store.Close()

	if name := store.Name(); name != "bolt" {
		t.Errorf("Name() = %s, want bolt", name)
	}
}

func TestBoltStoreReadWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("returns not found for missing namespace", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		_, err = store.Read(ctx, "missing")
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Read() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("round trips a blob", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		blob := []byte(`{"a":{"id":"a","value":1,"expires":9999999999999,"retention":"long"}}`)
		if err := store.Write(ctx, "ns", blob); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		got, err := store.Read(ctx, "ns")
		if err != nil {
			t.Errorf("Read() error = %v, want nil", err)
		}
		if string(got) != string(blob) {
			t.Errorf("Read() = %s, want %s", string(got), string(blob))
		}
	})

	t.Run("overwrites existing blob", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		_ = store.Write(ctx, "ns", []byte("blob1"))
		_ = store.Write(ctx, "ns", []byte("blob2"))

		got, _ := store.Read(ctx, "ns")
		if string(got) != "blob2" {
			t.Errorf("Read() = %s, want blob2", string(got))
		}
	})

	t.Run("keeps namespaces separate", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		_ = store.Write(ctx, "ns1", []byte("first"))
		_ = store.Write(ctx, "ns2", []byte("second"))

		got, _ := store.Read(ctx, "ns1")
		if string(got) != "first" {
			t.Errorf("Read(ns1) = %s, want first", string(got))
		}
		got, _ = store.Read(ctx, "ns2")
		if string(got) != "second" {
			t.Errorf("Read(ns2) = %s, want second", string(got))
		}
	})

	t.Run("returns error when closed", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		store.Close()

		if _, err := store.Read(ctx, "ns"); !errors.Is(err, types.ErrClosed) {
			t.Errorf("Read() error = %v, want ErrClosed", err)
		}
		if err := store.Write(ctx, "ns", []byte("blob")); !errors.Is(err, types.ErrClosed) {
			t.Errorf("Write() error = %v, want ErrClosed", err)
		}
	})
}

// TestBoltStorePersistence tests that blobs survive a close and
// reopen of the same database file.
func TestBoltStorePersistence(t *testing.T) {
	ctx := context.Background()
	cfg := testBoltStoreConfig(t)

	store, err := NewBoltStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}

	blob := []byte(`{"a":{"id":"a","value":42,"expires":9999999999999,"retention":"long"}}`)
	if err := store.Write(ctx, "ns", blob); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBoltStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewBoltStore() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Read(ctx, "ns")
	if err != nil {
		t.Fatalf("Read() after reopen error = %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("Read() after reopen = %s, want %s", string(got), string(blob))
	}
}

func TestBoltStoreClear(t *testing.T) {
	ctx := context.Background()

	t.Run("removes stored blob", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		_ = store.Write(ctx, "ns", []byte("blob"))

		if err := store.Clear(ctx, "ns"); err != nil {
			t.Errorf("Clear() error = %v, want nil", err)
		}

		_, err = store.Read(ctx, "ns")
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("Read() after Clear error = %v, want ErrNotFound", err)
		}
	})

	t.Run("no error for missing namespace", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		if err := store.Clear(ctx, "missing"); err != nil {
			t.Errorf("Clear() error = %v, want nil", err)
		}
	})
}

func TestBoltStorePing(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds when open", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		defer store.Close()

		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v, want nil", err)
		}
	})

	t.Run("returns error when closed", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		store.Close()

		if err := store.Ping(ctx); !errors.Is(err, types.ErrClosed) {
			t.Errorf("Ping() error = %v, want ErrClosed", err)
		}
	})
}

func TestBoltStoreClose(t *testing.T) {
	t.Run("double close is safe", func(t *testing.T) {
		store, err := NewBoltStore(testBoltStoreConfig(t), nil)
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}

		store.Close()
		if err := store.Close(); err != nil {
			t.Errorf("second Close() error = %v, want nil", err)
		}
	})
}
