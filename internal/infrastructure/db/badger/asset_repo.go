package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const assetStoreDir = "assets"

type assetRepository struct {
	store *badgerhold.Store
}

func NewAssetRepository(config ...interface{}) (domain.AssetRepository, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, assetStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset store: %s", err)
	}

	return &assetRepository{store}, nil
}

func (r *assetRepository) AddMapping(ctx context.Context, mapping domain.AssetMapping) error {
	insertFn := func() error {
		return r.store.Insert(string(mapping.RemoteAsset), mapping)
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrMappingExists
		}
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = insertFn()
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *assetRepository) GetMappingByHomeAsset(
	ctx context.Context, homeAsset domain.AssetID, remoteDomain domain.DomainID,
) (*domain.AssetMapping, error) {
	query := badgerhold.Where("HomeAsset").Eq(homeAsset).And("RemoteDomain").Eq(remoteDomain)
	mappings := make([]domain.AssetMapping, 0, 1)
	if err := r.store.Find(&mappings, query); err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, domain.ErrMappingNotFound
	}
	return &mappings[0], nil
}

func (r *assetRepository) GetMappingByRemoteAsset(
	ctx context.Context, remoteAsset domain.AssetID,
) (*domain.AssetMapping, error) {
	var mapping domain.AssetMapping
	if err := r.store.Get(string(remoteAsset), &mapping); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrMappingNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

func (r *assetRepository) GetAllMappings(
	ctx context.Context, remoteDomain domain.DomainID,
) ([]domain.AssetMapping, error) {
	query := &badgerhold.Query{}
	if len(remoteDomain) > 0 {
		query = badgerhold.Where("RemoteDomain").Eq(remoteDomain)
	}
	mappings := make([]domain.AssetMapping, 0)
	if err := r.store.Find(&mappings, query); err != nil {
		return nil, err
	}
	sort.SliceStable(mappings, func(i, j int) bool {
		return mappings[i].CreatedAt < mappings[j].CreatedAt
	})
	return mappings, nil
}

func (r *assetRepository) AddSupportedAsset(ctx context.Context, asset domain.AssetID) error {
	record := domain.SupportedAsset{Asset: asset, AddedAt: time.Now().Unix()}
	insertFn := func() error {
		return r.store.Insert(string(asset), record)
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrAssetSupported
		}
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = insertFn()
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *assetRepository) RemoveSupportedAsset(ctx context.Context, asset domain.AssetID) error {
	if err := r.store.Delete(string(asset), domain.SupportedAsset{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrAssetNotSupported
		}
		return err
	}
	return nil
}

func (r *assetRepository) IsSupportedAsset(
	ctx context.Context, asset domain.AssetID,
) (bool, error) {
	var record domain.SupportedAsset
	if err := r.store.Get(string(asset), &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *assetRepository) GetSupportedAssets(ctx context.Context) ([]domain.AssetID, error) {
	records := make([]domain.SupportedAsset, 0)
	if err := r.store.Find(&records, &badgerhold.Query{}); err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].AddedAt < records[j].AddedAt
	})
	assets := make([]domain.AssetID, 0, len(records))
	for _, record := range records {
		assets = append(assets, record.Asset)
	}
	return assets, nil
}

func (r *assetRepository) Close() {
	// nolint:all
	r.store.Close()
}
