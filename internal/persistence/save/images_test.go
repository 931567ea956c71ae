package save

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"villagekeep/internal/sim/village"
)

func TestEmbedImage_DataURIPassthrough(t *testing.T) {
	s := New(t.TempDir(), Options{})
	uri := "data:image/png;base64,AAAA"
	got := s.embedImage("Elites", village.RosterEntry{Name: "Vanguard", Img: uri})
	if got != uri {
		t.Fatalf("got %q want passthrough", got)
	}
}

func TestEmbedImage_ResolvesByNameUnderRoot(t *testing.T) {
	root := t.TempDir()
	payload := []byte{0x89, 'P', 'N', 'G'}
	dir := filepath.Join(root, "Elites")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Vanguard.png"), payload, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(t.TempDir(), Options{AssetRoots: []string{root}})
	got := s.embedImage("Elites", village.RosterEntry{Name: "Vanguard"})
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEmbedImage_ExplicitPathWinsOverRoots(t *testing.T) {
	explicit := filepath.Join(t.TempDir(), "banner.jpg")
	if err := os.WriteFile(explicit, []byte("jpg-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	root := t.TempDir()
	dir := filepath.Join(root, "Elites")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Vanguard.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := New(t.TempDir(), Options{AssetRoots: []string{root}})
	got := s.embedImage("Elites", village.RosterEntry{Name: "Vanguard", Img: explicit})
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Fatalf("explicit path lost: %q", got)
	}
}

func TestEmbedImage_UnresolvedIsEmpty(t *testing.T) {
	s := New(t.TempDir(), Options{AssetRoots: []string{t.TempDir()}})
	if got := s.embedImage("Elites", village.RosterEntry{Name: "Nobody", Img: "missing.png"}); got != "" {
		t.Fatalf("got %q want empty", got)
	}
}

func TestRosterDocument_CarriesEmbeddedImage(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Elites")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Vanguard.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	saveDir := t.TempDir()
	s := New(saveDir, Options{AssetRoots: []string{root}})
	st := village.New()
	st.Elites = []village.RosterEntry{{ID: 1, Name: "Vanguard", LevelQuantity: 1}}
	if err := s.SaveGame(st); err != nil {
		t.Fatalf("save: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(saveDir, ElitesFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal(b, &docs); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs=%d want 1", len(docs))
	}
	img64, _ := docs[0]["img64"].(string)
	if !strings.HasPrefix(img64, "data:image/png;base64,") {
		t.Fatalf("img64=%q", img64)
	}
}
