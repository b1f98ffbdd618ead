package cache

import "testing"

func TestDefaultRoot(t *testing.T) {
	t.Setenv("CACHE_PATH", "")
	if got := DefaultRoot(); got != DefaultDiskRoot {
		t.Errorf("DefaultRoot() = %s, want %s", got, DefaultDiskRoot)
	}

	dir := t.TempDir()
	t.Setenv("CACHE_PATH", dir)
	if got := DefaultRoot(); got != dir {
		t.Errorf("DefaultRoot() = %s, want %s", got, dir)
	}
}
