package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const exchangeStoreDir = "exchange"

type exchangeRepository struct {
	store  *badgerhold.Store
	locker *sync.Mutex
}

func NewExchangeRepository(config ...interface{}) (domain.ExchangeRepository, error) {
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
		dir = filepath.Join(baseDir, exchangeStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open exchange store: %s", err)
	}

	return &exchangeRepository{store, &sync.Mutex{}}, nil
}

func (r *exchangeRepository) AddPair(ctx context.Context, pair domain.ExchangePair) error {
	insertFn := func() error {
		return r.store.Insert(string(pair.Domain), pair)
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrPairExists
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

func (r *exchangeRepository) GetPair(
	ctx context.Context, pairDomain domain.DomainID,
) (*domain.ExchangePair, error) {
	var pair domain.ExchangePair
	if err := r.store.Get(string(pairDomain), &pair); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrPairNotFound
		}
		return nil, err
	}
	return &pair, nil
}

func (r *exchangeRepository) UpdatePair(
	ctx context.Context, pairDomain domain.DomainID,
	fn func(*domain.ExchangePair) (*domain.ExchangePair, error),
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	pair, err := r.GetPair(ctx, pairDomain)
	if err != nil {
		return err
	}
	updated, err := fn(pair)
	if err != nil {
		return err
	}
	updated.UpdatedAt = time.Now().Unix()

	updateFn := func() error {
		return r.store.Update(string(pairDomain), *updated)
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

func (r *exchangeRepository) Close() {
	// nolint:all
	r.store.Close()
}
