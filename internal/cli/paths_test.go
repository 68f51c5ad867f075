package cli

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	c := New(os.Stderr, LogInfo)

	dir, err := c.cacheDir()
	if err != nil {
		t.Skipf("no user cache dir: %v", err)
	}
	if !strings.HasSuffix(dir, appName) {
		t.Errorf("cacheDir() = %q, should end with %q", dir, appName)
	}
}

func TestCacheDirXDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" || runtime.GOOS == "plan9" {
		t.Skip("XDG_CACHE_HOME is only honored on unix-like systems")
	}
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := New(os.Stderr, LogInfo).cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(custom, appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirConfigured(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	c.Config.Cache.Dir = "/srv/stratum-cache"

	dir, err := c.cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/srv/stratum-cache" {
		t.Errorf("cacheDir() = %q, want configured dir", dir)
	}
	if got := c.cacheLocation(); got != dir {
		t.Errorf("cacheLocation() = %q, want %q", got, dir)
	}

	c.Config.Cache.RedisURL = "redis://localhost:6379"
	if got := c.cacheLocation(); got != "redis keys stratum:*" {
		t.Errorf("cacheLocation() = %q, want redis prefix", got)
	}
}
