package app

import (
	"strings"

	"github.com/google/uuid"
)

const holdNumberPrefix = "RES-"

func newID() string {
	return uuid.NewString()
}

// newHoldNumber mints a shareable checkout reference like RES-3F2A9C01.
// Collisions are possible and handled by the caller with bounded retries.
func newHoldNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return holdNumberPrefix + strings.ToUpper(raw[:8])
}
