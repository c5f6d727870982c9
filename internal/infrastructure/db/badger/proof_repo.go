package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const proofStoreDir = "proofs"

type proofRepository struct {
	store *badgerhold.Store
}

func NewProofRepository(config ...interface{}) (domain.ProofRepository, error) {
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
		dir = filepath.Join(baseDir, proofStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open proof store: %s", err)
	}

	return &proofRepository{store}, nil
}

func (r *proofRepository) MarkConsumed(ctx context.Context, proof domain.ConsumedProof) error {
	if proof.ConsumedAt == 0 {
		proof.ConsumedAt = time.Now().Unix()
	}
	insertFn := func() error {
		return r.store.Insert(proof.Key(), proof)
	}
	if err := insertFn(); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrProofConsumed
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

func (r *proofRepository) IsConsumed(
	ctx context.Context, proofDomain domain.DomainID, nonce uint64,
) (bool, error) {
	var proof domain.ConsumedProof
	if err := r.store.Get(domain.ProofKey(proofDomain, nonce), &proof); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *proofRepository) GetConsumed(
	ctx context.Context, proofDomain domain.DomainID, nonce uint64,
) (*domain.ConsumedProof, error) {
	var proof domain.ConsumedProof
	if err := r.store.Get(domain.ProofKey(proofDomain, nonce), &proof); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proof, nil
}

func (r *proofRepository) Forget(
	ctx context.Context, proofDomain domain.DomainID, nonce uint64,
) error {
	err := r.store.Delete(domain.ProofKey(proofDomain, nonce), domain.ConsumedProof{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}
	return nil
}

func (r *proofRepository) GetConsumedCount(ctx context.Context) (int64, error) {
	count, err := r.store.Count(domain.ConsumedProof{}, &badgerhold.Query{})
	if err != nil {
		return 0, err
	}
	return int64(count), nil
}

func (r *proofRepository) Close() {
	// nolint:all
	r.store.Close()
}
