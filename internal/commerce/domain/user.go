package domain

import "time"

// User is an identity record. Created (or refreshed) at signin, read-only
// afterwards from the commerce core's perspective.
type User struct {
	ID            string
	Username      string
	CredentialRef string // opaque reference to the verified credential, never the credential itself
	DisplayName   string
	CreatedAt     time.Time
}

// Identity is a resolved session: who the caller is. Downstream mutations
// compare Identity.UserID against the order's owning user before writing.
type Identity struct {
	UserID   string
	Username string
}
