package ports

import "github.com/strait-labs/straitd/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Assets() domain.AssetRepository
	Escrows() domain.EscrowRepository
	Wrapped() domain.WrappedRepository
	Exchange() domain.ExchangeRepository
	Proofs() domain.ProofRepository
	Transfers() domain.TransferRepository
	Close()
}
