package ports

import (
	"context"
	"errors"

	"github.com/strait-labs/straitd/internal/core/domain"
)

var ErrProofInvalid = errors.New("invalid proof")

// ProofToken is an opaque capability handed out by the relay when a receipt
// is submitted. Holding a token that verifies is the only way to prove the
// underlying event happened, tokens cannot be forged without the relay key.
type ProofToken string

func (t ProofToken) String() string {
	return string(t)
}

// ProofRelay carries receipts between domains. Delivery is asynchronous and
// at-least-once: a submitted proof may be verified multiple times or, on
// relay failure, never at all. Consumers guard against replays themselves.
type ProofRelay interface {
	Submit(ctx context.Context, receipt domain.Receipt) (ProofToken, error)
	Verify(ctx context.Context, token ProofToken) (*domain.Receipt, error)
}
