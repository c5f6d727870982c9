package domain

import "errors"

var (
	ErrWrappedBalanceShortfall = errors.New("wrapped balance below requested amount")
	ErrMintingHalted           = errors.New("minting halted")
)

// WrappedAsset is the controller-side record of a wrapped representation on
// one remote domain: its total circulating supply and whether minting was
// halted after a failed conservation check.
type WrappedAsset struct {
	AssetID     AssetID
	Domain      DomainID
	HomeAsset   AssetID
	DisplayName string
	Supply      uint64
	Halted      bool
	CreatedAt   int64
}

// WrappedBalance is one holder's balance of a wrapped asset on one domain.
type WrappedBalance struct {
	Domain DomainID
	Asset  AssetID
	Holder string
	Amount uint64
}

func (b WrappedBalance) Key() string {
	return string(b.Domain) + "/" + string(b.Asset) + "/" + b.Holder
}
