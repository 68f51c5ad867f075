package cache

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	serrors "github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/position"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Errorf("Get() = %q, %v, want miss", data, hit)
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if err := c.(Clearer).Clear(ctx); err != nil {
		t.Errorf("Clear error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := c.Set(ctx, "a", []byte("alpha"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "alpha" {
		t.Errorf("Get(a) = %q, %v, %v, want alpha hit", data, hit, err)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get(missing) hit")
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get after Delete hit")
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Errorf("expired entry not removed: %v", err)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get(corrupt) = hit %v, err %v, want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after Clear = %d, want 0", len(entries))
	}
	if err := c.Set(ctx, "a", []byte("again"), 0); err != nil {
		t.Errorf("Set after Clear: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	tb := LayoutKeyOpts{Version: "v1", Options: layout.Options{RankDir: position.RankDirTB}}
	lr := LayoutKeyOpts{Version: "v1", Options: layout.Options{RankDir: position.RankDirLR}}
	v2 := LayoutKeyOpts{Version: "v2", Options: layout.Options{RankDir: position.RankDirTB}}

	base := k.LayoutKey("hash123", tb)
	if !strings.HasPrefix(base, "layout:") {
		t.Errorf("LayoutKey() = %q, want layout: prefix", base)
	}
	if base != k.LayoutKey("hash123", tb) {
		t.Error("LayoutKey should be deterministic")
	}
	for name, other := range map[string]string{
		"options": k.LayoutKey("hash123", lr),
		"version": k.LayoutKey("hash123", v2),
		"graph":   k.LayoutKey("hash456", tb),
	} {
		if other == base {
			t.Errorf("different %s produced the same key", name)
		}
	}
}

func TestDefaultKeyerParallel(t *testing.T) {
	k := NewDefaultKeyer()
	serial := LayoutKeyOpts{Version: "v1", Options: layout.Options{Parallel: 1}}
	parallel := LayoutKeyOpts{Version: "v1", Options: layout.Options{Parallel: 8}}
	if k.LayoutKey("h", serial) != k.LayoutKey("h", parallel) {
		t.Error("Parallel changed the layout key")
	}
}

func TestNullCacheLayoutKey(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	key := NewDefaultKeyer().LayoutKey(Hash([]byte(`{"nodes":[{"id":"a"}]}`)), LayoutKeyOpts{Version: "v1"})

	if err := c.Set(ctx, key, []byte(`{"width":54}`), TTLLayout); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Errorf("Get(%s) hit, want every layout lookup to miss", key)
	}
}

func TestScopedKeyer(t *testing.T) {
	opts := LayoutKeyOpts{Version: "v1"}
	scoped := NewScopedKeyer(NewDefaultKeyer(), "tenant:")
	got := scoped.LayoutKey("h", opts)
	if want := "tenant:" + NewDefaultKeyer().LayoutKey("h", opts); got != want {
		t.Errorf("LayoutKey() = %q, want %q", got, want)
	}

	if got := NewScopedKeyer(nil, "p:").LayoutKey("h", opts); !strings.HasPrefix(got, "p:layout:") {
		t.Errorf("nil inner LayoutKey() = %q", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), ErrNetwork.Error())
	}
	if IsRetryable(ErrNetwork) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = 100 * time.Millisecond })

	permanent := errors.New("permanent")
	tests := []struct {
		name      string
		failUntil int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"Success", 0, nil, 1, nil},
		{"NonRetryable", 10, permanent, 1, permanent},
		{"RecoversAfterRetry", 1, Retryable(ErrNetwork), 2, nil},
		{"GivesUp", 10, Retryable(ErrNetwork), 3, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failUntil {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
	netErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	if err := classify(netErr); !IsRetryable(err) || !errors.Is(err, ErrNetwork) {
		t.Errorf("classify(net error) = %v, want retryable ErrNetwork", err)
	}
	plain := errors.New("WRONGTYPE")
	if err := classify(plain); IsRetryable(err) {
		t.Errorf("classify(plain) = %v, want non-retryable", err)
	}
}

func TestNewRedisCacheInvalidURL(t *testing.T) {
	tests := []struct {
		url  string
		code serrors.Code
	}{
		{"", serrors.ErrCodeInvalidConfig},
		{"http://localhost:6379", serrors.ErrCodeInvalidConfig},
		{"redis://localhost:6379/notadb", serrors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := NewRedisCache(context.Background(), tt.url, "")
			if got := serrors.GetCode(err); got != tt.code {
				t.Errorf("NewRedisCache(%q) code = %q (err %v), want %q", tt.url, got, err, tt.code)
			}
		})
	}
}
