package db

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
	badgerdb "github.com/strait-labs/straitd/internal/infrastructure/db/badger"
	watermilldb "github.com/strait-labs/straitd/internal/infrastructure/db/watermill"
)

var (
	eventStoreTypes = map[string]func(...interface{}) (domain.EventRepository, error){
		"watermill": newWatermillEventRepository,
	}
	assetStoreTypes = map[string]func(...interface{}) (domain.AssetRepository, error){
		"badger": badgerdb.NewAssetRepository,
	}
	escrowStoreTypes = map[string]func(...interface{}) (domain.EscrowRepository, error){
		"badger": badgerdb.NewEscrowRepository,
	}
	wrappedStoreTypes = map[string]func(...interface{}) (domain.WrappedRepository, error){
		"badger": badgerdb.NewWrappedRepository,
	}
	exchangeStoreTypes = map[string]func(...interface{}) (domain.ExchangeRepository, error){
		"badger": badgerdb.NewExchangeRepository,
	}
	proofStoreTypes = map[string]func(...interface{}) (domain.ProofRepository, error){
		"badger": badgerdb.NewProofRepository,
	}
	transferStoreTypes = map[string]func(...interface{}) (domain.TransferRepository, error){
		"badger": badgerdb.NewTransferRepository,
	}
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type service struct {
	eventStore    domain.EventRepository
	assetStore    domain.AssetRepository
	escrowStore   domain.EscrowRepository
	wrappedStore  domain.WrappedRepository
	exchangeStore domain.ExchangeRepository
	proofStore    domain.ProofRepository
	transferStore domain.TransferRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	eventStoreFactory, ok := eventStoreTypes[config.EventStoreType]
	if !ok {
		return nil, fmt.Errorf("event store type not supported")
	}
	assetStoreFactory, ok := assetStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	escrowStoreFactory, ok := escrowStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	wrappedStoreFactory, ok := wrappedStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	exchangeStoreFactory, ok := exchangeStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	proofStoreFactory, ok := proofStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	transferStoreFactory, ok := transferStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	eventStore, err := eventStoreFactory(config.EventStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %s", err)
	}
	assetStore, err := assetStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset store: %s", err)
	}
	escrowStore, err := escrowStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open escrow store: %s", err)
	}
	wrappedStore, err := wrappedStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open wrapped asset store: %s", err)
	}
	exchangeStore, err := exchangeStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open exchange store: %s", err)
	}
	proofStore, err := proofStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open proof store: %s", err)
	}
	transferStore, err := transferStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to open transfer store: %s", err)
	}

	return &service{
		eventStore:    eventStore,
		assetStore:    assetStore,
		escrowStore:   escrowStore,
		wrappedStore:  wrappedStore,
		exchangeStore: exchangeStore,
		proofStore:    proofStore,
		transferStore: transferStore,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Assets() domain.AssetRepository {
	return s.assetStore
}

func (s *service) Escrows() domain.EscrowRepository {
	return s.escrowStore
}

func (s *service) Wrapped() domain.WrappedRepository {
	return s.wrappedStore
}

func (s *service) Exchange() domain.ExchangeRepository {
	return s.exchangeStore
}

func (s *service) Proofs() domain.ProofRepository {
	return s.proofStore
}

func (s *service) Transfers() domain.TransferRepository {
	return s.transferStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.assetStore.Close()
	s.escrowStore.Close()
	s.wrappedStore.Close()
	s.exchangeStore.Close()
	s.proofStore.Close()
	s.transferStore.Close()
}

func newWatermillEventRepository(args ...interface{}) (domain.EventRepository, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	publisher, ok := args[0].(message.Publisher)
	if !ok {
		return nil, fmt.Errorf("invalid publisher")
	}
	return watermilldb.NewWatermillEventRepository(publisher), nil
}
