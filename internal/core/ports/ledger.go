package ports

import (
	"context"
	"errors"

	"github.com/strait-labs/straitd/internal/core/domain"
)

var ErrLedgerShortfall = errors.New("ledger balance below requested amount")

// BalanceLedger is the view of an external balance ledger bound to one
// account, the vault or the exchange engine. Transfers are atomic and
// non-reentrant from the caller's perspective.
type BalanceLedger interface {
	// TransferIn moves amount of asset from the given holder into the bound
	// account, failing with ErrLedgerShortfall if the holder cannot cover it.
	TransferIn(ctx context.Context, asset domain.AssetID, amount uint64, from string) error
	// TransferOut moves amount of asset from the bound account to the given
	// holder.
	TransferOut(ctx context.Context, asset domain.AssetID, amount uint64, to string) error
	// Balance returns the bound account's holdings of asset.
	Balance(ctx context.Context, asset domain.AssetID) (uint64, error)
	BalanceOf(ctx context.Context, asset domain.AssetID, holder string) (uint64, error)
}
