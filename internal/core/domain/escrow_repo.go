package domain

import "context"

type EscrowRepository interface {
	// AddEscrow persists the escrow, assigns the next sequence number and
	// increments the custody balance of (escrow.Asset, escrow.DestinationDomain).
	AddEscrow(ctx context.Context, escrow Escrow) (uint64, error)
	GetEscrow(ctx context.Context, seq uint64) (*Escrow, error)
	// UnwindEscrow marks the escrow unwound and decrements the custody balance
	// it contributed to. It fails with ErrEscrowUnwound on a second call.
	UnwindEscrow(ctx context.Context, seq uint64) (*Escrow, error)
	// Withdraw decrements the custody balance of (asset, domain) and fails with
	// ErrCustodyShortfall if the balance would go negative.
	Withdraw(ctx context.Context, asset AssetID, domain DomainID, amount uint64) error
	// Deposit increments the custody balance of (asset, domain) without
	// creating an escrow record. Used to roll back a failed withdrawal.
	Deposit(ctx context.Context, asset AssetID, domain DomainID, amount uint64) error
	GetEscrowedAmount(ctx context.Context, asset AssetID, domain DomainID) (uint64, error)
	GetTotalEscrowed(ctx context.Context, asset AssetID) (uint64, error)
	GetCustodyBalances(ctx context.Context) ([]CustodyBalance, error)
	Close()
}
