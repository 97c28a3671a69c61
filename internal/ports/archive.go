package ports

import "context"

// Archive persists finished-match artifacts once a settlement bundle has been
// assembled or a match is abandoned. Implementations decide durability; the
// Nakama adapter writes to the storage engine's settlements collection.
type Archive interface {
	// Store writes the serialized bundle for a game. Overwriting an existing
	// record for the same game id must be a no-op for identical payloads.
	Store(ctx context.Context, gameID string, payload []byte) error
}
