package domain

import (
	"errors"
	"fmt"
)

var ErrProofConsumed = errors.New("proof already consumed")

// ErrMintReceiptMismatch rejects a receipt that verified but does not
// authorize the requested mint.
type ErrMintReceiptMismatch struct {
	Reason  string
	Receipt Receipt
}

func (e ErrMintReceiptMismatch) Error() string {
	return fmt.Sprintf(
		"receipt %s/%d rejected: %s", e.Receipt.Domain, e.Receipt.Nonce, e.Reason,
	)
}

type ReceiptKind uint8

const (
	ReceiptKindUnknown ReceiptKind = iota
	// ReceiptKindBurn attests that wrapped units were burned on a remote
	// domain.
	ReceiptKindBurn
	// ReceiptKindLock attests that home units were escrowed by the vault.
	ReceiptKindLock
)

func (k ReceiptKind) String() string {
	switch k {
	case ReceiptKindBurn:
		return "burn"
	case ReceiptKindLock:
		return "lock"
	default:
		return "unknown"
	}
}

// Receipt attests a domain-local event: a burn of wrapped units or an escrow
// lock. The (Domain, Nonce) pair is unique per receipt and is the key of the
// replay-protection set, each receipt authorizes at most one consuming
// operation anywhere in the system.
type Receipt struct {
	Kind      ReceiptKind
	Domain    DomainID
	Asset     AssetID
	Amount    uint64
	Holder    string
	Nonce     uint64
	RequestID string
	CreatedAt int64
}

func (r Receipt) ProofKey() string {
	return ProofKey(r.Domain, r.Nonce)
}

// ConsumedProof marks a (domain, nonce) pair as spent.
type ConsumedProof struct {
	Domain     DomainID
	Nonce      uint64
	RequestID  string
	ConsumedAt int64
}

func (p ConsumedProof) Key() string {
	return ProofKey(p.Domain, p.Nonce)
}

func ProofKey(domain DomainID, nonce uint64) string {
	return fmt.Sprintf("%s/%d", domain, nonce)
}
