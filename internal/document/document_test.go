package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- helpers ----------------------------------------------------------------

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return p
}

// --- tests ------------------------------------------------------------------

func TestNew_ResolvesAbsolutePath(t *testing.T) {
	d, err := New("note.md")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !filepath.IsAbs(d.Path()) {
		t.Errorf("Path: got %q, want absolute", d.Path())
	}
	if d.Name() != "note.md" {
		t.Errorf("Name: got %q, want note.md", d.Name())
	}
	if d.Ext() != ".md" {
		t.Errorf("Ext: got %q, want .md", d.Ext())
	}
}

func TestNew_EmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty path, got nil")
	}
}

func TestMatches(t *testing.T) {
	d, _ := New("/tmp/docs/note.md")
	tests := []struct {
		name string
		want bool
	}{
		{"note.md", true},
		{"NOTE.MD", true},
		{"Note.Md", true},
		{"other.md", false},
		{"docs/note.md", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Matches(tc.name); got != tc.want {
				t.Errorf("Matches(%q): got %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestRead_Existing(t *testing.T) {
	d, _ := New(writeDoc(t, "note.md", "# Hi"))
	data, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "# Hi" {
		t.Errorf("Read: got %q, want %q", data, "# Hi")
	}
	if !d.Exists() {
		t.Error("Exists: got false, want true")
	}
}

func TestRead_MissingIsErrMissing(t *testing.T) {
	d, _ := New(filepath.Join(t.TempDir(), "gone.md"))
	if _, err := d.Read(); !errors.Is(err, ErrMissing) {
		t.Errorf("Read: got %v, want ErrMissing", err)
	}
	if _, err := d.ModTime(); !errors.Is(err, ErrMissing) {
		t.Errorf("ModTime: got %v, want ErrMissing", err)
	}
	if d.Exists() {
		t.Error("Exists: got true, want false")
	}
}

func TestModTime_TracksChtimes(t *testing.T) {
	p := writeDoc(t, "note.md", "x")
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(p, want, want); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	d, _ := New(p)
	got, err := d.ModTime()
	if err != nil {
		t.Fatalf("ModTime: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("ModTime: got %v, want %v", got, want)
	}
}

func TestObserve_Last(t *testing.T) {
	d, _ := New("note.md")
	if mt, c := d.Last(); !mt.IsZero() || c != nil {
		t.Fatalf("Last before Observe: got %v %q, want zero", mt, c)
	}
	now := time.Now()
	d.Observe(now, []byte("# Hi"))
	mt, c := d.Last()
	if !mt.Equal(now) || string(c) != "# Hi" {
		t.Errorf("Last: got %v %q", mt, c)
	}
}
