package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T, maxEntries int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "history.db")
	s, err := Open(path, maxEntries)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = filepath.Base(e.Path)
	}
	return out
}

func TestStore_RecentNewestFirst(t *testing.T) {
	s, _ := openStore(t, 10)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s.Touch("a.mqb", "binary", 1, base)
	s.Touch("b.mqt", "text", 2, base.Add(time.Hour))
	s.Touch("c.mpb", "compressed dump", 3, base.Add(2*time.Hour))

	entries, err := s.Recent()
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	got := paths(entries)
	want := []string{"c.mpb", "b.mqt", "a.mqb"}
	if len(got) != len(want) {
		t.Fatalf("Recent() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Recent() = %v, want %v", got, want)
		}
	}
	if entries[0].Format != "compressed dump" || entries[0].Count != 3 {
		t.Errorf("entry = %+v", entries[0])
	}
	if !entries[0].At.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("At = %v", entries[0].At)
	}
	if !filepath.IsAbs(entries[0].Path) {
		t.Errorf("Path %q should be absolute", entries[0].Path)
	}
}

func TestStore_TouchUpdatesExisting(t *testing.T) {
	s, _ := openStore(t, 10)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s.Touch("a.mqb", "binary", 1, base)
	s.Touch("b.mqb", "binary", 1, base.Add(time.Minute))
	s.Touch("a.mqb", "binary", 7, base.Add(2*time.Minute))

	entries, err := s.Recent()
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if filepath.Base(entries[0].Path) != "a.mqb" || entries[0].Count != 7 {
		t.Errorf("first entry = %+v", entries[0])
	}
}

func TestStore_Prunes(t *testing.T) {
	s, _ := openStore(t, 2)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"one.mqb", "two.mqb", "three.mqb"} {
		if err := s.Touch(name, "binary", i, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}
	}

	entries, _ := s.Recent()
	got := paths(entries)
	if len(got) != 2 || got[0] != "three.mqb" || got[1] != "two.mqb" {
		t.Errorf("Recent() = %v, want [three.mqb two.mqb]", got)
	}
}

func TestStore_Remove(t *testing.T) {
	s, _ := openStore(t, 10)
	s.Touch("a.mqb", "binary", 1, time.Now())

	if err := s.Remove("a.mqb"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove("never.mqb"); err != nil {
		t.Errorf("Remove() of unknown path error = %v", err)
	}
	entries, _ := s.Recent()
	if len(entries) != 0 {
		t.Errorf("Recent() = %v, want empty", paths(entries))
	}
}

func TestStore_Persists(t *testing.T) {
	s, path := openStore(t, 10)
	s.Touch("a.mqb", "binary", 4, time.Now())
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.Recent(); !errors.Is(err, ErrClosed) {
		t.Errorf("Recent() after Close() error = %v, want ErrClosed", err)
	}

	reopened, err := Open(path, 10)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.Recent()
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Count != 4 {
		t.Errorf("Recent() = %+v", entries)
	}
}

func TestOpen_Invalid(t *testing.T) {
	if _, err := Open("", 10); err == nil {
		t.Error("Open() with empty path should fail")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "h.db"), 0); err == nil {
		t.Error("Open() with zero max should fail")
	}
}
