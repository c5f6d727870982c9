package domain

import "crypto/subtle"

// Authority is a bearer capability gating privileged operations. The operator
// authority covers administrative calls, the bridge authority covers the
// custody and mint operations driven by the transfer orchestrator.
type Authority string

// Matches compares two authorities in constant time.
func (a Authority) Matches(other Authority) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(other)) == 1
}

func (a Authority) IsZero() bool {
	return len(a) == 0
}
