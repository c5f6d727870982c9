package domain

import "errors"

var (
	ErrEscrowNotFound   = errors.New("escrow not found")
	ErrEscrowUnwound    = errors.New("escrow already unwound")
	ErrCustodyShortfall = errors.New("custody balance below requested amount")
)

// Escrow is the custody record created when the vault locks funds for a
// remote domain. Seq is assigned by the repository and is unique across the
// vault's lifetime, it doubles as the nonce of the lock receipt.
type Escrow struct {
	Seq               uint64
	Asset             AssetID
	Amount            uint64
	Holder            string
	DestinationDomain DomainID
	Unwound           bool
	CreatedAt         int64
}

// CustodyBalance tracks how much the vault currently escrows per asset and
// destination domain. The sum over all domains for one asset must equal the
// vault's holdings of that asset at all times.
type CustodyBalance struct {
	Asset    AssetID
	Domain   DomainID
	Escrowed uint64
}

func (b CustodyBalance) Key() string {
	return string(b.Asset) + "/" + string(b.Domain)
}
