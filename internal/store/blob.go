package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"syscall"

	"github.com/peterbourgon/diskv/v3"

	"github.com/nhle/checklist/internal/model"
)

const (
	blobStateKey   = "state"
	blobCorruptKey = "state.corrupt"
	blobVersion    = 1
)

// blobDocument is the on-disk layout of the blob backend.
type blobDocument struct {
	Version int `json:"version"`
	Snapshot
}

// BlobBackend persists snapshots as one JSON document in a diskv
// directory.
type BlobBackend struct {
	d        *diskv.Diskv
	maxBytes int64
}

// NewBlobBackend returns a BlobBackend rooted at dir. A positive maxBytes
// rejects saves whose encoded size exceeds it.
func NewBlobBackend(dir string, maxBytes int64) *BlobBackend {
	return &BlobBackend{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    func(string) []string { return []string{} },
			TempDir:      dir + ".tmp",
			CacheSizeMax: 0,
		}),
		maxBytes: maxBytes,
	}
}

// Load decodes the stored document. No document yields an empty
// snapshot.
func (b *BlobBackend) Load(_ context.Context) (Snapshot, error) {
	if !b.d.Has(blobStateKey) {
		return Snapshot{}, nil
	}

	raw, err := b.d.Read(blobStateKey)
	if err != nil {
		return Snapshot{}, mapBlobError("reading state", err)
	}

	var doc blobDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Snapshot{}, &model.StorageError{Op: "decoding state", Kind: model.StorageCorrupt, Err: err}
	}
	if doc.Version > blobVersion {
		return Snapshot{}, &model.StorageError{
			Op:   "decoding state",
			Kind: model.StorageCorrupt,
			Err:  fmt.Errorf("unsupported version %d", doc.Version),
		}
	}

	return doc.Snapshot, nil
}

// Save encodes snap and replaces the stored document.
func (b *BlobBackend) Save(_ context.Context, snap Snapshot) error {
	raw, err := json.Marshal(blobDocument{Version: blobVersion, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if b.maxBytes > 0 && int64(len(raw)) > b.maxBytes {
		return &model.StorageError{
			Op:   "writing state",
			Kind: model.StorageQuota,
			Err:  fmt.Errorf("%d bytes exceeds limit of %d", len(raw), b.maxBytes),
		}
	}
	if err := b.d.Write(blobStateKey, raw); err != nil {
		return mapBlobError("writing state", err)
	}
	return nil
}

// Preserve copies the stored document to "state.corrupt", or the first
// free "state.corrupt.N" key.
func (b *BlobBackend) Preserve(_ context.Context) error {
	if !b.d.Has(blobStateKey) {
		return nil
	}
	raw, err := b.d.Read(blobStateKey)
	if err != nil {
		return mapBlobError("reading state", err)
	}

	key := blobCorruptKey
	for n := 2; b.d.Has(key); n++ {
		key = fmt.Sprintf("%s.%d", blobCorruptKey, n)
	}
	if err := b.d.Write(key, raw); err != nil {
		return mapBlobError("preserving state", err)
	}
	log.Printf("store: copied unreadable state to %s", key)
	return nil
}

// Close is a no-op; diskv holds no open handles between calls.
func (b *BlobBackend) Close() error {
	return nil
}

func mapBlobError(op string, err error) error {
	kind := model.StorageUnavailable
	if errors.Is(err, syscall.ENOSPC) {
		kind = model.StorageQuota
	}
	return &model.StorageError{Op: op, Kind: kind, Err: err}
}
