package domain

import "context"

type AssetRepository interface {
	AddMapping(ctx context.Context, mapping AssetMapping) error
	GetMappingByHomeAsset(
		ctx context.Context, homeAsset AssetID, remoteDomain DomainID,
	) (*AssetMapping, error)
	GetMappingByRemoteAsset(ctx context.Context, remoteAsset AssetID) (*AssetMapping, error)
	GetAllMappings(ctx context.Context, remoteDomain DomainID) ([]AssetMapping, error)
	AddSupportedAsset(ctx context.Context, asset AssetID) error
	RemoveSupportedAsset(ctx context.Context, asset AssetID) error
	IsSupportedAsset(ctx context.Context, asset AssetID) (bool, error)
	GetSupportedAssets(ctx context.Context) ([]AssetID, error)
	Close()
}
