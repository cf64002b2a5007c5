package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nhle/checklist/internal/model"
)

func TestBlobLoadMissingIsEmpty(t *testing.T) {
	b := NewBlobBackend(filepath.Join(t.TempDir(), "data"), 0)

	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d records", snap.Len())
	}
}

func TestBlobSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewBlobBackend(filepath.Join(t.TempDir(), "data"), 0)
	want := sampleSnapshot(t)

	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("expected %d records, got %d", want.Len(), got.Len())
	}
	if got.Tasks[0].ID != "1712345678901.42" || !got.Tasks[0].DueDate.Equal(want.Tasks[0].DueDate) {
		t.Fatalf("unexpected task: %#v", got.Tasks[0])
	}
}

func TestBlobQuota(t *testing.T) {
	ctx := context.Background()
	b := NewBlobBackend(filepath.Join(t.TempDir(), "data"), 64)

	err := b.Save(ctx, sampleSnapshot(t))
	var se *model.StorageError
	if !errors.As(err, &se) || se.Kind != model.StorageQuota {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestBlobCorruptStateIsPreserved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, blobStateKey), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx := context.Background()
	b := NewBlobBackend(dir, 0)
	_, err := b.Load(ctx)
	var se *model.StorageError
	if !errors.As(err, &se) || se.Kind != model.StorageCorrupt {
		t.Fatalf("expected corrupt error, got %v", err)
	}

	if err := b.Preserve(ctx); err != nil {
		t.Fatalf("preserve: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, blobStateKey), []byte("{still not json"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := b.Preserve(ctx); err != nil {
		t.Fatalf("second preserve: %v", err)
	}

	second, err := os.ReadFile(filepath.Join(dir, blobCorruptKey+".2"))
	if err != nil || string(second) != "{still not json" {
		t.Fatalf("second copy must not replace the first: %q, %v", second, err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, blobCorruptKey))
	if err != nil {
		t.Fatalf("corrupt copy missing: %v", err)
	}
	if string(raw) != "{not json" {
		t.Fatalf("unexpected corrupt copy: %q", raw)
	}
}

func TestStoreOverBlobStartsEmptyOnCorruptState(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, blobStateKey), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := openStore(t, NewBlobBackend(dir, 0), 0)
	if !s.Empty() {
		t.Fatalf("expected empty store")
	}
	if s.LoadErr() == nil {
		t.Fatalf("expected LoadErr to be recorded")
	}

	putTaskWithSubtask(t, s, "t1", "s1")
	snap, err := NewBlobBackend(dir, 0).Load(context.Background())
	if err != nil {
		t.Fatalf("reload after overwrite: %v", err)
	}
	if len(snap.Tasks) != 1 {
		t.Fatalf("expected 1 task after overwrite, got %d", len(snap.Tasks))
	}
	raw, err := os.ReadFile(filepath.Join(dir, blobCorruptKey))
	if err != nil || string(raw) != "garbage" {
		t.Fatalf("unreadable state should be kept before the overwrite: %q, %v", raw, err)
	}
}
