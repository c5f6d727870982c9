package domain

import "context"

type TransferRepository interface {
	AddTransfer(ctx context.Context, transfer Transfer) error
	// UpdateTransfer applies fn to the stored transfer and persists the result
	// atomically with respect to other updates of the same request.
	UpdateTransfer(
		ctx context.Context, requestID string, fn func(*Transfer) (*Transfer, error),
	) error
	GetTransfer(ctx context.Context, requestID string) (*Transfer, error)
	GetTransferByBurnNonce(ctx context.Context, domain DomainID, nonce uint64) (*Transfer, error)
	// GetPendingTransfers returns every transfer not yet in a final state,
	// ordered by creation time.
	GetPendingTransfers(ctx context.Context) ([]Transfer, error)
	GetTransfers(ctx context.Context, after, before int64) ([]Transfer, error)
	Close()
}
