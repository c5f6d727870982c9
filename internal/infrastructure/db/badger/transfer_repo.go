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
	dbutil "github.com/strait-labs/straitd/internal/infrastructure/db/dbuitl"
	"github.com/timshannon/badgerhold/v4"
)

const transferStoreDir = "transfers"

type transferRepository struct {
	store *badgerhold.Store
}

func NewTransferRepository(config ...interface{}) (domain.TransferRepository, error) {
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
		dir = filepath.Join(baseDir, transferStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open transfer store: %s", err)
	}

	return &transferRepository{store}, nil
}

func (r *transferRepository) AddTransfer(ctx context.Context, transfer domain.Transfer) error {
	insertFn := func() error {
		return r.store.Insert(transfer.RequestID, transfer)
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("transfer %s already exists", transfer.RequestID)
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

func (r *transferRepository) UpdateTransfer(
	ctx context.Context, requestID string,
	fn func(*domain.Transfer) (*domain.Transfer, error),
) error {
	var err error

	for range maxRetries {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			var transfer domain.Transfer
			if err := r.store.TxGet(tx, requestID, &transfer); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return domain.ErrTransferNotFound
				}
				return err
			}

			updated, err := fn(&transfer)
			if err != nil {
				return err
			}
			if err := r.store.TxUpdate(tx, requestID, *updated); err != nil {
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

func (r *transferRepository) GetTransfer(
	ctx context.Context, requestID string,
) (*domain.Transfer, error) {
	var transfer domain.Transfer
	if err := r.store.Get(requestID, &transfer); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrTransferNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) GetTransferByBurnNonce(
	ctx context.Context, originDomain domain.DomainID, nonce uint64,
) (*domain.Transfer, error) {
	query := badgerhold.Where("OriginDomain").Eq(originDomain).And("BurnNonce").Eq(nonce)
	transfers := make([]domain.Transfer, 0, 1)
	if err := r.store.Find(&transfers, query); err != nil {
		return nil, err
	}
	if len(transfers) == 0 {
		return nil, domain.ErrTransferNotFound
	}
	return &transfers[0], nil
}

func (r *transferRepository) GetPendingTransfers(ctx context.Context) ([]domain.Transfer, error) {
	query := badgerhold.Where("State").Lt(domain.TransferStateCompleted)
	transfers := make([]domain.Transfer, 0)
	if err := r.store.Find(&transfers, query); err != nil {
		return nil, err
	}
	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt < transfers[j].CreatedAt
	})
	return transfers, nil
}

func (r *transferRepository) GetTransfers(
	ctx context.Context, after, before int64,
) ([]domain.Transfer, error) {
	if err := dbutil.ValidateTimeRange(after, before); err != nil {
		return nil, err
	}
	query := badgerhold.Where("CreatedAt").Ge(after)
	if before > 0 {
		query = query.And("CreatedAt").Le(before)
	}
	transfers := make([]domain.Transfer, 0)
	if err := r.store.Find(&transfers, query); err != nil {
		return nil, err
	}
	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].CreatedAt > transfers[j].CreatedAt
	})
	return transfers, nil
}

func (r *transferRepository) Close() {
	// nolint:all
	r.store.Close()
}
