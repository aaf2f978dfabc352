package fanray

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier checks a username/password pair. Implementations must
// not reveal whether the username or the password was wrong.
type CredentialVerifier interface {
	Verify(username, password string) bool
}

// Accounts verifies credentials against a single configured account with a
// bcrypt password hash. It backs both the admin dashboard login and the
// MetaWeblog auth gate.
type Accounts struct {
	username     string
	passwordHash []byte
}

// NewAccounts builds an Accounts from the configured username and bcrypt hash.
func NewAccounts(username, passwordHash string) *Accounts {
	return &Accounts{username: username, passwordHash: []byte(passwordHash)}
}

// Verify reports whether the pair matches the configured account. An unknown
// username and a wrong password are indistinguishable to the caller; the
// bcrypt comparison runs either way so timing does not leak which one failed.
func (a *Accounts) Verify(username, password string) bool {
	hash := a.passwordHash
	known := username == a.username
	if !known {
		// Compare against a dummy hash to keep the work constant.
		hash = dummyHash
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	return known && err == nil
}

// dummyHash is a bcrypt hash of an unguessable throwaway value, used to
// equalize the cost of verifying unknown usernames.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// HashPassword returns a bcrypt hash suitable for SiteConfig.PasswordHash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}
