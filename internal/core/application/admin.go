package application

import (
	"context"
	"time"

	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
	"github.com/strait-labs/straitd/pkg/errors"
)

type AdminService interface {
	RegisterAssetMapping(
		ctx context.Context, auth domain.Authority, homeAsset domain.AssetID,
		remoteDomain domain.DomainID, displayName string,
	) (domain.AssetID, errors.Error)
	AddSupportedAsset(
		ctx context.Context, auth domain.Authority, asset domain.AssetID,
	) errors.Error
	RemoveSupportedAsset(
		ctx context.Context, auth domain.Authority, asset domain.AssetID,
	) errors.Error
	SetExchangeRate(
		ctx context.Context, auth domain.Authority, fromAsset, toAsset domain.AssetID,
		rate int64,
	) errors.Error
	AddLiquidity(
		ctx context.Context, auth domain.Authority, amountBase, amountCounter uint64,
		fromHolder string,
	) errors.Error
	GetReserves(ctx context.Context) (*ReserveInfo, errors.Error)
	ListMappings(
		ctx context.Context, remoteDomain domain.DomainID,
	) ([]MappingInfo, errors.Error)
	GetSupply(
		ctx context.Context, origin domain.DomainID, asset domain.AssetID,
	) (*SupplyInfo, errors.Error)
	AuditConservation(ctx context.Context) (*AuditReport, errors.Error)
	ResumeMinting(
		ctx context.Context, auth domain.Authority, origin domain.DomainID,
		asset domain.AssetID,
	) errors.Error
}

type adminService struct {
	registry    *AssetRegistry
	vault       *CustodyVault
	engine      *ExchangeEngine
	controllers map[domain.DomainID]*WrappedAssetController
	repoManager ports.RepoManager
	operator    domain.Authority
}

func NewAdminService(
	registry *AssetRegistry,
	vault *CustodyVault,
	engine *ExchangeEngine,
	controllers map[domain.DomainID]*WrappedAssetController,
	repoManager ports.RepoManager,
	operator domain.Authority,
) AdminService {
	return &adminService{registry, vault, engine, controllers, repoManager, operator}
}

func (a *adminService) RegisterAssetMapping(
	ctx context.Context, auth domain.Authority, homeAsset domain.AssetID,
	remoteDomain domain.DomainID, displayName string,
) (domain.AssetID, errors.Error) {
	return a.registry.RegisterMapping(ctx, auth, homeAsset, remoteDomain, displayName)
}

func (a *adminService) AddSupportedAsset(
	ctx context.Context, auth domain.Authority, asset domain.AssetID,
) errors.Error {
	return a.vault.AddSupportedAsset(ctx, auth, asset)
}

func (a *adminService) RemoveSupportedAsset(
	ctx context.Context, auth domain.Authority, asset domain.AssetID,
) errors.Error {
	return a.vault.RemoveSupportedAsset(ctx, auth, asset)
}

func (a *adminService) SetExchangeRate(
	ctx context.Context, auth domain.Authority, fromAsset, toAsset domain.AssetID,
	rate int64,
) errors.Error {
	return a.engine.SetRate(ctx, auth, fromAsset, toAsset, rate)
}

func (a *adminService) AddLiquidity(
	ctx context.Context, auth domain.Authority, amountBase, amountCounter uint64,
	fromHolder string,
) errors.Error {
	return a.engine.AddLiquidity(ctx, auth, amountBase, amountCounter, fromHolder)
}

func (a *adminService) GetReserves(ctx context.Context) (*ReserveInfo, errors.Error) {
	return a.engine.Reserves(ctx)
}

func (a *adminService) ListMappings(
	ctx context.Context, remoteDomain domain.DomainID,
) ([]MappingInfo, errors.Error) {
	mappings, err := a.registry.ListMappings(ctx, remoteDomain)
	if err != nil {
		return nil, err
	}
	infos := make([]MappingInfo, 0, len(mappings))
	for _, mapping := range mappings {
		infos = append(infos, MappingInfo{
			HomeAsset:    mapping.HomeAsset,
			RemoteDomain: mapping.RemoteDomain,
			RemoteAsset:  mapping.RemoteAsset,
			DisplayName:  mapping.DisplayName,
			CreatedAt:    mapping.CreatedAt,
		})
	}
	return infos, nil
}

func (a *adminService) GetSupply(
	ctx context.Context, origin domain.DomainID, asset domain.AssetID,
) (*SupplyInfo, errors.Error) {
	if _, ok := a.controllers[origin]; !ok {
		return nil, errors.UNKNOWN_DOMAIN.New(
			"domain %s is not bridged", origin,
		).WithMetadata(errors.AssetMetadata{Domain: string(origin)})
	}
	wrapped, err := a.repoManager.Wrapped().GetWrappedAsset(ctx, origin, asset)
	if err != nil {
		if err == domain.ErrWrappedAssetUnknown {
			return nil, errors.ASSET_NOT_SUPPORTED.Wrap(err).WithMetadata(
				errors.AssetMetadata{Asset: string(asset), Domain: string(origin)},
			)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	escrowed, err := a.repoManager.Escrows().GetEscrowedAmount(ctx, wrapped.HomeAsset, origin)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return &SupplyInfo{
		Domain:        origin,
		Asset:         wrapped.AssetID,
		HomeAsset:     wrapped.HomeAsset,
		WrappedSupply: wrapped.Supply,
		Escrowed:      escrowed,
		Halted:        wrapped.Halted,
	}, nil
}

// AuditConservation walks every wrapped asset and compares its circulating
// supply against the escrow backing it on the home domain. It also verifies
// the vault ledger covers the tracked custody totals, a shortfall there
// fails the whole audit.
func (a *adminService) AuditConservation(ctx context.Context) (*AuditReport, errors.Error) {
	report := &AuditReport{AuditedAt: time.Now().Unix()}

	for origin := range a.controllers {
		wrappedAssets, err := a.repoManager.Wrapped().GetAllWrappedAssets(ctx, origin)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		for _, wrapped := range wrappedAssets {
			escrowed, err := a.repoManager.Escrows().GetEscrowedAmount(
				ctx, wrapped.HomeAsset, origin,
			)
			if err != nil {
				return nil, errors.INTERNAL_ERROR.Wrap(err)
			}
			info := SupplyInfo{
				Domain:        origin,
				Asset:         wrapped.AssetID,
				HomeAsset:     wrapped.HomeAsset,
				WrappedSupply: wrapped.Supply,
				Escrowed:      escrowed,
				Halted:        wrapped.Halted,
			}
			report.Supplies = append(report.Supplies, info)
			if wrapped.Supply > escrowed {
				report.Violations = append(report.Violations, info)
			}
		}
	}

	custodyBalances, err := a.vault.VerifyCustody(ctx)
	if err != nil {
		return nil, err
	}
	report.CustodyBalances = custodyBalances

	return report, nil
}

// ResumeMinting lifts a conservation halt. The asset must pass a fresh audit
// before the flag is cleared.
func (a *adminService) ResumeMinting(
	ctx context.Context, auth domain.Authority, origin domain.DomainID,
	asset domain.AssetID,
) errors.Error {
	if !auth.Matches(a.operator) {
		return errors.UNAUTHORIZED.New("operator authority required")
	}
	controller, ok := a.controllers[origin]
	if !ok {
		return errors.UNKNOWN_DOMAIN.New(
			"domain %s is not bridged", origin,
		).WithMetadata(errors.AssetMetadata{Domain: string(origin)})
	}

	report, err := a.AuditConservation(ctx)
	if err != nil {
		return err
	}
	for _, violation := range report.Violations {
		if violation.Domain == origin && violation.Asset == asset {
			return errors.CONSERVATION_VIOLATION.New(
				"%s on %s still exceeds its escrow, %d circulating against %d locked",
				asset, origin, violation.WrappedSupply, violation.Escrowed,
			).WithMetadata(errors.ConservationMetadata{
				RemoteAsset:   string(asset),
				RemoteDomain:  string(origin),
				WrappedSupply: violation.WrappedSupply,
				Escrowed:      violation.Escrowed,
			})
		}
	}

	return controller.ResumeMinting(ctx, asset)
}
