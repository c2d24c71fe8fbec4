package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity anchor of the system. Usage counters are cumulative
// and mutated only by the metrics service; billing state lives on the
// user's subscription row.
type User struct {
	ID             uuid.UUID
	Username       string
	Email          string
	PasswordHash   []byte
	TotalMutedTime int64 // seconds of muted playback, lifetime
	TotalAdsMuted  int64
	CreatedAt      time.Time
}
