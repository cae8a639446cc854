package container

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest returns the hex BLAKE3 digest of a whole container. Because
// packing is deterministic, this digest identifies the logical export: two
// packs of the same content and session hash identically.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
