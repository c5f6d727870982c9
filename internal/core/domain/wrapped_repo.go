package domain

import "context"

type WrappedRepository interface {
	AddWrappedAsset(ctx context.Context, asset WrappedAsset) error
	GetWrappedAsset(ctx context.Context, domain DomainID, asset AssetID) (*WrappedAsset, error)
	GetWrappedAssetByHomeAsset(
		ctx context.Context, domain DomainID, homeAsset AssetID,
	) (*WrappedAsset, error)
	GetAllWrappedAssets(ctx context.Context, domain DomainID) ([]WrappedAsset, error)
	// Credit increases holder's balance and the asset supply by amount.
	Credit(ctx context.Context, domain DomainID, asset AssetID, holder string, amount uint64) error
	// Debit decreases holder's balance and the asset supply by amount, failing
	// with ErrWrappedBalanceShortfall if the balance is insufficient.
	Debit(ctx context.Context, domain DomainID, asset AssetID, holder string, amount uint64) error
	GetBalance(ctx context.Context, domain DomainID, asset AssetID, holder string) (uint64, error)
	GetSupply(ctx context.Context, domain DomainID, asset AssetID) (uint64, error)
	SetHalted(ctx context.Context, domain DomainID, asset AssetID, halted bool) error
	// NextNonce returns the next burn nonce for the domain. Nonces start at 1
	// and never repeat within a domain.
	NextNonce(ctx context.Context, domain DomainID) (uint64, error)
	Close()
}
