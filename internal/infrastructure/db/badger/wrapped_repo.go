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

const wrappedStoreDir = "wrapped"

type wrappedRepository struct {
	store *badgerhold.Store
}

// burnNonce tracks the next burn nonce per domain, nonces are numbered
// from 1 and never reused.
type burnNonce struct {
	Next uint64
}

func NewWrappedRepository(config ...interface{}) (domain.WrappedRepository, error) {
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
		dir = filepath.Join(baseDir, wrappedStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open wrapped asset store: %s", err)
	}

	return &wrappedRepository{store}, nil
}

func (r *wrappedRepository) AddWrappedAsset(ctx context.Context, asset domain.WrappedAsset) error {
	insertFn := func() error {
		return r.store.Insert(wrappedAssetKey(asset.Domain, asset.AssetID), asset)
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrWrappedAssetExists
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

func (r *wrappedRepository) GetWrappedAsset(
	ctx context.Context, assetDomain domain.DomainID, asset domain.AssetID,
) (*domain.WrappedAsset, error) {
	var wrapped domain.WrappedAsset
	if err := r.store.Get(wrappedAssetKey(assetDomain, asset), &wrapped); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrWrappedAssetUnknown
		}
		return nil, err
	}
	return &wrapped, nil
}

func (r *wrappedRepository) GetWrappedAssetByHomeAsset(
	ctx context.Context, assetDomain domain.DomainID, homeAsset domain.AssetID,
) (*domain.WrappedAsset, error) {
	query := badgerhold.Where("Domain").Eq(assetDomain).And("HomeAsset").Eq(homeAsset)
	assets := make([]domain.WrappedAsset, 0, 1)
	if err := r.store.Find(&assets, query); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, domain.ErrWrappedAssetUnknown
	}
	return &assets[0], nil
}

func (r *wrappedRepository) GetAllWrappedAssets(
	ctx context.Context, assetDomain domain.DomainID,
) ([]domain.WrappedAsset, error) {
	assets := make([]domain.WrappedAsset, 0)
	if err := r.store.Find(&assets, badgerhold.Where("Domain").Eq(assetDomain)); err != nil {
		return nil, err
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].CreatedAt < assets[j].CreatedAt
	})
	return assets, nil
}

func (r *wrappedRepository) Credit(
	ctx context.Context, assetDomain domain.DomainID, asset domain.AssetID,
	holder string, amount uint64,
) error {
	return r.adjustBalance(assetDomain, asset, holder, amount, false)
}

func (r *wrappedRepository) Debit(
	ctx context.Context, assetDomain domain.DomainID, asset domain.AssetID,
	holder string, amount uint64,
) error {
	return r.adjustBalance(assetDomain, asset, holder, amount, true)
}

func (r *wrappedRepository) GetBalance(
	ctx context.Context, assetDomain domain.DomainID, asset domain.AssetID, holder string,
) (uint64, error) {
	balance := domain.WrappedBalance{Domain: assetDomain, Asset: asset, Holder: holder}
	if err := r.store.Get(balance.Key(), &balance); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return balance.Amount, nil
}

func (r *wrappedRepository) GetSupply(
	ctx context.Context, assetDomain domain.DomainID, asset domain.AssetID,
) (uint64, error) {
	wrapped, err := r.GetWrappedAsset(ctx, assetDomain, asset)
	if err != nil {
		return 0, err
	}
	return wrapped.Supply, nil
}

func (r *wrappedRepository) SetHalted(
	ctx context.Context, assetDomain domain.DomainID, asset domain.AssetID, halted bool,
) error {
	updateFn := func() error {
		var wrapped domain.WrappedAsset
		key := wrappedAssetKey(assetDomain, asset)
		if err := r.store.Get(key, &wrapped); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrWrappedAssetUnknown
			}
			return err
		}
		wrapped.Halted = halted
		return r.store.Update(key, wrapped)
	}
	if err := updateFn(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			attempts := 1
			for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
				time.Sleep(100 * time.Millisecond)
				err = updateFn()
				attempts++
			}
		}
		return err
	}
	return nil
}

func (r *wrappedRepository) NextNonce(
	ctx context.Context, assetDomain domain.DomainID,
) (uint64, error) {
	var nonce uint64
	var err error

	for range maxRetries {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			var counter burnNonce
			if err := r.store.TxGet(tx, string(assetDomain), &counter); err != nil {
				if !errors.Is(err, badgerhold.ErrNotFound) {
					return err
				}
				counter = burnNonce{Next: 1}
			}
			nonce = counter.Next
			if err := r.store.TxUpsert(
				tx, string(assetDomain), burnNonce{Next: nonce + 1},
			); err != nil {
				return err
			}

			return tx.Commit()
		}()
		if err == nil {
			return nonce, nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return 0, err
	}

	return 0, err
}

func (r *wrappedRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *wrappedRepository) adjustBalance(
	assetDomain domain.DomainID, asset domain.AssetID, holder string, amount uint64,
	debit bool,
) error {
	var err error

	for range maxRetries {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			var wrapped domain.WrappedAsset
			assetKey := wrappedAssetKey(assetDomain, asset)
			if err := r.store.TxGet(tx, assetKey, &wrapped); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return domain.ErrWrappedAssetUnknown
				}
				return err
			}

			balance := domain.WrappedBalance{Domain: assetDomain, Asset: asset, Holder: holder}
			if err := r.store.TxGet(tx, balance.Key(), &balance); err != nil {
				if !errors.Is(err, badgerhold.ErrNotFound) {
					return err
				}
				balance = domain.WrappedBalance{Domain: assetDomain, Asset: asset, Holder: holder}
			}

			if debit {
				if balance.Amount < amount || wrapped.Supply < amount {
					return domain.ErrWrappedBalanceShortfall
				}
				balance.Amount -= amount
				wrapped.Supply -= amount
			} else {
				balance.Amount += amount
				wrapped.Supply += amount
			}

			if err := r.store.TxUpsert(tx, balance.Key(), balance); err != nil {
				return err
			}
			if err := r.store.TxUpdate(tx, assetKey, wrapped); err != nil {
				return err
			}

			return tx.Commit()
		}()
		if err == nil {
			return nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return err
	}

	return err
}

func wrappedAssetKey(assetDomain domain.DomainID, asset domain.AssetID) string {
	return string(assetDomain) + "/" + string(asset)
}
