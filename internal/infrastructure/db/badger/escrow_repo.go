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

const (
	escrowStoreDir    = "escrows"
	escrowSequenceKey = "sequence"
)

type escrowRepository struct {
	store *badgerhold.Store
}

// escrowSequence tracks the next escrow sequence number, escrows are
// numbered from 1 so a sequence can double as a lock receipt nonce.
type escrowSequence struct {
	Next uint64
}

func NewEscrowRepository(config ...interface{}) (domain.EscrowRepository, error) {
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
		dir = filepath.Join(baseDir, escrowStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open escrow store: %s", err)
	}

	return &escrowRepository{store}, nil
}

func (r *escrowRepository) AddEscrow(ctx context.Context, escrow domain.Escrow) (uint64, error) {
	var seq uint64
	var err error

	for range maxRetries {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			var counter escrowSequence
			if err := r.store.TxGet(tx, escrowSequenceKey, &counter); err != nil {
				if !errors.Is(err, badgerhold.ErrNotFound) {
					return err
				}
				counter = escrowSequence{Next: 1}
			}
			seq = counter.Next
			escrow.Seq = seq

			if err := r.store.TxInsert(tx, seq, escrow); err != nil {
				return err
			}
			if err := r.store.TxUpsert(
				tx, escrowSequenceKey, escrowSequence{Next: seq + 1},
			); err != nil {
				return err
			}

			balance := domain.CustodyBalance{
				Asset: escrow.Asset, Domain: escrow.DestinationDomain,
			}
			if err := r.store.TxGet(tx, balance.Key(), &balance); err != nil {
				if !errors.Is(err, badgerhold.ErrNotFound) {
					return err
				}
				balance = domain.CustodyBalance{
					Asset: escrow.Asset, Domain: escrow.DestinationDomain,
				}
			}
			balance.Escrowed += escrow.Amount
			if err := r.store.TxUpsert(tx, balance.Key(), balance); err != nil {
				return err
			}

			return tx.Commit()
		}()
		if err == nil {
			return seq, nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return 0, err
	}

	return 0, err
}

func (r *escrowRepository) GetEscrow(ctx context.Context, seq uint64) (*domain.Escrow, error) {
	var escrow domain.Escrow
	if err := r.store.Get(seq, &escrow); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrEscrowNotFound
		}
		return nil, err
	}
	return &escrow, nil
}

func (r *escrowRepository) UnwindEscrow(ctx context.Context, seq uint64) (*domain.Escrow, error) {
	var escrow domain.Escrow
	var err error

	for range maxRetries {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			if err := r.store.TxGet(tx, seq, &escrow); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return domain.ErrEscrowNotFound
				}
				return err
			}
			if escrow.Unwound {
				return domain.ErrEscrowUnwound
			}
			escrow.Unwound = true
			if err := r.store.TxUpdate(tx, seq, escrow); err != nil {
				return err
			}

			balance := domain.CustodyBalance{
				Asset: escrow.Asset, Domain: escrow.DestinationDomain,
			}
			if err := r.store.TxGet(tx, balance.Key(), &balance); err != nil {
				return err
			}
			if balance.Escrowed < escrow.Amount {
				return domain.ErrCustodyShortfall
			}
			balance.Escrowed -= escrow.Amount
			if err := r.store.TxUpdate(tx, balance.Key(), balance); err != nil {
				return err
			}

			return tx.Commit()
		}()
		if err == nil {
			return &escrow, nil
		}

		if errors.Is(err, badger.ErrConflict) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return nil, err
	}

	return nil, err
}

func (r *escrowRepository) Withdraw(
	ctx context.Context, asset domain.AssetID, escrowDomain domain.DomainID, amount uint64,
) error {
	return r.adjustBalance(asset, escrowDomain, amount, true)
}

func (r *escrowRepository) Deposit(
	ctx context.Context, asset domain.AssetID, escrowDomain domain.DomainID, amount uint64,
) error {
	return r.adjustBalance(asset, escrowDomain, amount, false)
}

func (r *escrowRepository) GetEscrowedAmount(
	ctx context.Context, asset domain.AssetID, escrowDomain domain.DomainID,
) (uint64, error) {
	balance := domain.CustodyBalance{Asset: asset, Domain: escrowDomain}
	if err := r.store.Get(balance.Key(), &balance); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return balance.Escrowed, nil
}

func (r *escrowRepository) GetTotalEscrowed(
	ctx context.Context, asset domain.AssetID,
) (uint64, error) {
	balances := make([]domain.CustodyBalance, 0)
	if err := r.store.Find(&balances, badgerhold.Where("Asset").Eq(asset)); err != nil {
		return 0, err
	}
	var total uint64
	for _, balance := range balances {
		total += balance.Escrowed
	}
	return total, nil
}

func (r *escrowRepository) GetCustodyBalances(ctx context.Context) ([]domain.CustodyBalance, error) {
	balances := make([]domain.CustodyBalance, 0)
	if err := r.store.Find(&balances, &badgerhold.Query{}); err != nil {
		return nil, err
	}
	sort.SliceStable(balances, func(i, j int) bool {
		return balances[i].Key() < balances[j].Key()
	})
	return balances, nil
}

func (r *escrowRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *escrowRepository) adjustBalance(
	asset domain.AssetID, escrowDomain domain.DomainID, amount uint64, withdraw bool,
) error {
	var err error

	for range maxRetries {
		err = func() error {
			tx := r.store.Badger().NewTransaction(true)
			defer tx.Discard()

			balance := domain.CustodyBalance{Asset: asset, Domain: escrowDomain}
			if err := r.store.TxGet(tx, balance.Key(), &balance); err != nil {
				if !errors.Is(err, badgerhold.ErrNotFound) {
					return err
				}
				balance = domain.CustodyBalance{Asset: asset, Domain: escrowDomain}
			}

			if withdraw {
				if balance.Escrowed < amount {
					return domain.ErrCustodyShortfall
				}
				balance.Escrowed -= amount
			} else {
				balance.Escrowed += amount
			}

			if err := r.store.TxUpsert(tx, balance.Key(), balance); err != nil {
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
