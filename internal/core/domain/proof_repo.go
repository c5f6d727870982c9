package domain

import "context"

type ProofRepository interface {
	// MarkConsumed records the proof in the replay-protection set, failing
	// with ErrProofConsumed if the (domain, nonce) pair is already present.
	MarkConsumed(ctx context.Context, proof ConsumedProof) error
	IsConsumed(ctx context.Context, domain DomainID, nonce uint64) (bool, error)
	// GetConsumed returns the consumption record, or nil if the proof was
	// never consumed.
	GetConsumed(ctx context.Context, domain DomainID, nonce uint64) (*ConsumedProof, error)
	// Forget removes a consumed proof, used only to roll back a consuming
	// operation that failed after the replay check.
	Forget(ctx context.Context, domain DomainID, nonce uint64) error
	GetConsumedCount(ctx context.Context) (int64, error)
	Close()
}
