package common

import (
	"crypto/sha256"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// GetClientIdentifier returns a UUID that is stable for this machine. It is
// derived from the hardware id so the same install reports the same id
// across restarts.
func GetClientIdentifier() uuid.UUID {
	id, err := machineid.ProtectedID("portal")
	if err != nil {
		// Fallback to a random ephemeral UUID if machine ID cannot be obtained
		return uuid.New()
	}

	hash := sha256.Sum256([]byte(id))
	return uuid.UUID(hash[:16])
}
