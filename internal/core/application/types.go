package application

import (
	"context"

	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/pkg/errors"
)

type Service interface {
	Start() error
	Stop()
	// SubmitSwapRequest burns the trader's wrapped input on the origin domain
	// and starts the cross-domain settlement. It returns the request id once
	// the burn is final, settlement continues in the background.
	SubmitSwapRequest(
		ctx context.Context, origin domain.DomainID, trader string,
		fromAsset, toAsset domain.AssetID, amountIn uint64,
	) (string, errors.Error)
	GetTransfer(ctx context.Context, requestID string) (*TransferInfo, errors.Error)
	GetTransfers(ctx context.Context, after, before int64) ([]TransferInfo, errors.Error)
	GetQuote(
		ctx context.Context, origin domain.DomainID, fromAsset, toAsset domain.AssetID,
		amountIn uint64,
	) (*QuoteInfo, errors.Error)
	GetWrappedBalance(
		ctx context.Context, origin domain.DomainID, asset domain.AssetID, holder string,
	) (uint64, errors.Error)
	GetEventsChannel(ctx context.Context) <-chan []domain.Event
	GetInfo(ctx context.Context) (*ServiceInfo, errors.Error)
}

type ServiceInfo struct {
	HomeDomain      domain.DomainID
	RemoteDomains   []domain.DomainID
	SupportedAssets []domain.AssetID
	BaseAsset       domain.AssetID
	CounterAsset    domain.AssetID
	TransferTimeout int64
	PendingCount    int64
}

type TransferInfo struct {
	RequestID         string
	OriginDomain      domain.DomainID
	Trader            string
	FromAsset         domain.AssetID
	ToAsset           domain.AssetID
	AmountIn          uint64
	AmountOut         uint64
	State             string
	FailureReason     string
	CompensatedAmount uint64
	CreatedAt         int64
	UpdatedAt         int64
}

type QuoteInfo struct {
	Domain    domain.DomainID
	FromAsset domain.AssetID
	ToAsset   domain.AssetID
	AmountIn  uint64
	AmountOut uint64
	Rate      uint64
	Precision uint64
}

type ReserveInfo struct {
	Domain         domain.DomainID
	Base           domain.AssetID
	Counter        domain.AssetID
	ForwardRate    uint64
	ReverseRate    uint64
	ReserveBase    uint64
	ReserveCounter uint64
}

type MappingInfo struct {
	HomeAsset    domain.AssetID
	RemoteDomain domain.DomainID
	RemoteAsset  domain.AssetID
	DisplayName  string
	CreatedAt    int64
}

type SupplyInfo struct {
	Domain        domain.DomainID
	Asset         domain.AssetID
	HomeAsset     domain.AssetID
	WrappedSupply uint64
	Escrowed      uint64
	Halted        bool
}

// AuditReport is the outcome of a conservation audit over every wrapped
// asset: per-asset supply versus escrow, plus the custody totals of the
// vault.
type AuditReport struct {
	Supplies        []SupplyInfo
	CustodyBalances []domain.CustodyBalance
	Violations      []SupplyInfo
	AuditedAt       int64
}

func (r AuditReport) Clean() bool {
	return len(r.Violations) == 0
}

func newTransferInfo(transfer domain.Transfer) TransferInfo {
	return TransferInfo{
		RequestID:         transfer.RequestID,
		OriginDomain:      transfer.OriginDomain,
		Trader:            transfer.Trader,
		FromAsset:         transfer.FromAsset,
		ToAsset:           transfer.ToAsset,
		AmountIn:          transfer.AmountIn,
		AmountOut:         transfer.AmountOut,
		State:             transfer.State.String(),
		FailureReason:     transfer.FailureReason,
		CompensatedAmount: transfer.CompensatedAmount,
		CreatedAt:         transfer.CreatedAt,
		UpdatedAt:         transfer.UpdatedAt,
	}
}
