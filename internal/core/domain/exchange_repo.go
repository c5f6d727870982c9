package domain

import "context"

type ExchangeRepository interface {
	AddPair(ctx context.Context, pair ExchangePair) error
	GetPair(ctx context.Context, domain DomainID) (*ExchangePair, error)
	// UpdatePair applies fn to the stored pair and persists the result
	// atomically with respect to other UpdatePair calls on the same domain.
	UpdatePair(
		ctx context.Context, domain DomainID, fn func(*ExchangePair) (*ExchangePair, error),
	) error
	Close()
}
