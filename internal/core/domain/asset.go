package domain

import "errors"

var (
	ErrMappingExists       = errors.New("asset mapping already exists")
	ErrMappingNotFound     = errors.New("asset mapping not found")
	ErrAssetSupported      = errors.New("asset already supported")
	ErrAssetNotSupported   = errors.New("asset not supported")
	ErrWrappedAssetExists  = errors.New("wrapped asset already exists")
	ErrWrappedAssetUnknown = errors.New("wrapped asset not found")
)

// DomainID identifies a value-transfer domain, either the home domain or one
// of the remote domains bridged to it.
type DomainID string

func (d DomainID) String() string {
	return string(d)
}

// AssetID is an opaque asset identifier, scoped to the domain it circulates on.
type AssetID string

func (a AssetID) String() string {
	return string(a)
}

// AssetMapping records the bijection between a home asset and its wrapped
// representation on one remote domain. Mappings are append-only: removing one
// while wrapped units still circulate would strand them without a home
// counterpart.
type AssetMapping struct {
	HomeAsset    AssetID
	RemoteDomain DomainID
	RemoteAsset  AssetID
	DisplayName  string
	CreatedAt    int64
}

// SupportedAsset marks a home asset as eligible for custody and exchange
// operations.
type SupportedAsset struct {
	Asset   AssetID
	AddedAt int64
}
