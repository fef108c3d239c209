package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
)

func TestSessionFileRepository_LoadMissing(t *testing.T) {
	r := NewSessionFileRepository(t.TempDir())

	sess, err := r.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess != (domain.Session{}) {
		t.Errorf("Load() = %+v, want zero session", sess)
	}
}

func TestSessionFileRepository_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	r := NewSessionFileRepository(dir)
	want := domain.Session{
		WorldID:         42,
		NextSeq:         1002,
		LastConnectedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}

	if err := r.Save(context.Background(), want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(r.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	got, err := r.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.LastConnectedAt.Equal(want.LastConnectedAt) || got.WorldID != want.WorldID || got.NextSeq != want.NextSeq {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestSessionFileRepository_Corrupt(t *testing.T) {
	dir := t.TempDir()
	r := NewSessionFileRepository(dir)
	if err := os.WriteFile(r.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Load(context.Background()); err == nil {
		t.Error("Load() of corrupt file succeeded")
	}
}
