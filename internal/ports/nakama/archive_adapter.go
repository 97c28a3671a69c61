package nakama

import (
	"context"

	"triad/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const settlementCollection = "settlements"

// StorageArchiveAdapter implements ports.Archive on Nakama's storage engine.
// Records are system-owned and publicly readable so either player can fetch
// their settlement bundle after the match instance is gone.
type StorageArchiveAdapter struct {
	nk runtime.NakamaModule
}

// NewStorageArchiveAdapter creates a new archive adapter.
func NewStorageArchiveAdapter(nk runtime.NakamaModule) *StorageArchiveAdapter {
	return &StorageArchiveAdapter{nk: nk}
}

// Store writes the serialized record under the game id.
func (a *StorageArchiveAdapter) Store(ctx context.Context, gameID string, payload []byte) error {
	writes := []*runtime.StorageWrite{
		{
			Collection:      settlementCollection,
			Key:             gameID,
			Value:           string(payload),
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}
	_, err := a.nk.StorageWrite(ctx, writes)
	return err
}

var _ ports.Archive = (*StorageArchiveAdapter)(nil)
