package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
	"github.com/strait-labs/straitd/pkg/errors"
)

// CustodyVault escrows home-domain funds backing the wrapped supply on the
// remote domains. All mutating operations run under a single lock, the home
// ledger is strictly sequential.
type CustodyVault struct {
	homeDomain  domain.DomainID
	repoManager ports.RepoManager
	ledger      ports.BalanceLedger
	relay       ports.ProofRelay
	operator    domain.Authority
	bridge      domain.Authority

	lock *sync.Mutex
}

func NewCustodyVault(
	homeDomain domain.DomainID, repoManager ports.RepoManager, ledger ports.BalanceLedger,
	relay ports.ProofRelay, operator, bridge domain.Authority,
) *CustodyVault {
	return &CustodyVault{
		homeDomain:  homeDomain,
		repoManager: repoManager,
		ledger:      ledger,
		relay:       relay,
		operator:    operator,
		bridge:      bridge,
		lock:        &sync.Mutex{},
	}
}

// AddSupportedAsset makes asset eligible for custody operations.
func (v *CustodyVault) AddSupportedAsset(
	ctx context.Context, auth domain.Authority, asset domain.AssetID,
) errors.Error {
	if !auth.Matches(v.operator) {
		return errors.UNAUTHORIZED.New("operator authority required")
	}
	if err := v.repoManager.Assets().AddSupportedAsset(ctx, asset); err != nil {
		if err == domain.ErrAssetSupported {
			return errors.ASSET_ALREADY_SUPPORTED.Wrap(err).WithMetadata(errors.AssetMetadata{
				Asset: string(asset), Domain: string(v.homeDomain),
			})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	log.Infof("vault: added supported asset %s", asset)
	return nil
}

// RemoveSupportedAsset blocks new locks of asset. Funds already escrowed stay
// releasable.
func (v *CustodyVault) RemoveSupportedAsset(
	ctx context.Context, auth domain.Authority, asset domain.AssetID,
) errors.Error {
	if !auth.Matches(v.operator) {
		return errors.UNAUTHORIZED.New("operator authority required")
	}
	if err := v.repoManager.Assets().RemoveSupportedAsset(ctx, asset); err != nil {
		if err == domain.ErrAssetNotSupported {
			return errors.ASSET_NOT_SUPPORTED.Wrap(err).WithMetadata(errors.AssetMetadata{
				Asset: string(asset), Domain: string(v.homeDomain),
			})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	log.Infof("vault: removed supported asset %s", asset)
	return nil
}

// Lock pulls amount of asset from fromHolder into custody for
// destinationDomain and returns the escrow together with its lock receipt.
// The receipt nonce is the escrow sequence number.
func (v *CustodyVault) Lock(
	ctx context.Context, auth domain.Authority, asset domain.AssetID, amount uint64,
	fromHolder string, destinationDomain domain.DomainID,
) (*domain.Escrow, *domain.Receipt, errors.Error) {
	if !auth.Matches(v.bridge) {
		return nil, nil, errors.UNAUTHORIZED.New("bridge authority required")
	}
	if amount == 0 {
		return nil, nil, errors.INVALID_AMOUNT.New(
			"lock amount must be positive",
		).WithMetadata(errors.AmountMetadata{Asset: string(asset)})
	}

	supported, err := v.repoManager.Assets().IsSupportedAsset(ctx, asset)
	if err != nil {
		return nil, nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if !supported {
		return nil, nil, errors.UNSUPPORTED_ASSET.New(
			"%s is not eligible for custody", asset,
		).WithMetadata(errors.AssetMetadata{
			Asset: string(asset), Domain: string(v.homeDomain),
		})
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	if err := v.ledger.TransferIn(ctx, asset, amount, fromHolder); err != nil {
		if err == ports.ErrLedgerShortfall {
			available, _ := v.ledger.BalanceOf(ctx, asset, fromHolder)
			return nil, nil, errors.INSUFFICIENT_BALANCE.Wrap(err).WithMetadata(
				errors.BalanceMetadata{
					Asset:     string(asset),
					Holder:    fromHolder,
					Requested: amount,
					Available: available,
				})
		}
		return nil, nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	now := time.Now().Unix()
	escrow := domain.Escrow{
		Asset:             asset,
		Amount:            amount,
		Holder:            fromHolder,
		DestinationDomain: destinationDomain,
		CreatedAt:         now,
	}
	seq, err := v.repoManager.Escrows().AddEscrow(ctx, escrow)
	if err != nil {
		if rbErr := v.ledger.TransferOut(ctx, asset, amount, fromHolder); rbErr != nil {
			log.WithError(rbErr).Errorf(
				"vault: failed to return %d %s to %s after escrow failure",
				amount, asset, fromHolder,
			)
		}
		return nil, nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	escrow.Seq = seq

	receipt := &domain.Receipt{
		Kind:      domain.ReceiptKindLock,
		Domain:    v.homeDomain,
		Asset:     asset,
		Amount:    amount,
		Holder:    fromHolder,
		Nonce:     seq,
		CreatedAt: now,
	}

	log.Debugf(
		"vault: locked %d %s for %s, escrow seq %d", amount, asset, destinationDomain, seq,
	)
	return &escrow, receipt, nil
}

// Release pays amount of asset out of custody to toHolder against a burn
// proof from sourceDomain. The proof is consumed before funds move, a replay
// of the same proof fails no matter the outcome of the first delivery.
func (v *CustodyVault) Release(
	ctx context.Context, auth domain.Authority, asset domain.AssetID, amount uint64,
	toHolder string, sourceDomain domain.DomainID, proof ports.ProofToken,
) errors.Error {
	if !auth.Matches(v.bridge) {
		return errors.UNAUTHORIZED.New("bridge authority required")
	}
	if amount == 0 {
		return errors.INVALID_AMOUNT.New(
			"release amount must be positive",
		).WithMetadata(errors.AmountMetadata{Asset: string(asset)})
	}

	receipt, err := v.relay.Verify(ctx, proof)
	if err != nil {
		return errors.PROOF_INVALID.Wrap(err)
	}
	if receipt.Kind != domain.ReceiptKindBurn {
		return errors.PROOF_INVALID.New(
			"expected burn receipt, got %s", receipt.Kind,
		).WithMetadata(errors.ProofMetadata{
			Domain: string(receipt.Domain), Nonce: receipt.Nonce,
		})
	}
	if receipt.Domain != sourceDomain || receipt.Amount != amount {
		return errors.PROOF_INVALID.New(
			"receipt attests %d units burned on %s, release claims %d from %s",
			receipt.Amount, receipt.Domain, amount, sourceDomain,
		).WithMetadata(errors.ProofMetadata{
			Domain: string(receipt.Domain), Nonce: receipt.Nonce,
		})
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	escrowed, err := v.repoManager.Escrows().GetEscrowedAmount(ctx, asset, sourceDomain)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if escrowed < amount {
		return errors.CONSERVATION_VIOLATION.New(
			"release of %d %s exceeds the %d escrowed for %s",
			amount, asset, escrowed, sourceDomain,
		).WithMetadata(errors.ConservationMetadata{
			HomeAsset:    string(asset),
			RemoteDomain: string(sourceDomain),
			Escrowed:     escrowed,
		})
	}

	consumed := domain.ConsumedProof{
		Domain:     receipt.Domain,
		Nonce:      receipt.Nonce,
		RequestID:  receipt.RequestID,
		ConsumedAt: time.Now().Unix(),
	}
	if err := v.repoManager.Proofs().MarkConsumed(ctx, consumed); err != nil {
		if err == domain.ErrProofConsumed {
			return errors.PROOF_ALREADY_USED.Wrap(err).WithMetadata(errors.ProofMetadata{
				Domain: string(receipt.Domain), Nonce: receipt.Nonce,
			})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := v.repoManager.Escrows().Withdraw(ctx, asset, sourceDomain, amount); err != nil {
		if fErr := v.repoManager.Proofs().Forget(ctx, receipt.Domain, receipt.Nonce); fErr != nil {
			log.WithError(fErr).Error("vault: failed to roll back proof consumption")
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := v.ledger.TransferOut(ctx, asset, amount, toHolder); err != nil {
		if rbErr := v.repoManager.Escrows().Deposit(ctx, asset, sourceDomain, amount); rbErr != nil {
			log.WithError(rbErr).Error("vault: failed to roll back withdrawal")
		}
		if fErr := v.repoManager.Proofs().Forget(ctx, receipt.Domain, receipt.Nonce); fErr != nil {
			log.WithError(fErr).Error("vault: failed to roll back proof consumption")
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.Debugf(
		"vault: released %d %s to %s against burn %d on %s",
		amount, asset, toHolder, receipt.Nonce, sourceDomain,
	)
	return nil
}

// UnwindEscrow reverts a lock whose mint never happened: the escrow record is
// closed, its custody contribution removed and the funds returned to the
// holder they were pulled from. The lock nonce is consumed so a late mint
// against the same receipt fails the replay check instead of inflating
// supply.
func (v *CustodyVault) UnwindEscrow(
	ctx context.Context, auth domain.Authority, seq uint64,
) (*domain.Escrow, errors.Error) {
	if !auth.Matches(v.bridge) {
		return nil, errors.UNAUTHORIZED.New("bridge authority required")
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	consumed := domain.ConsumedProof{
		Domain:     v.homeDomain,
		Nonce:      seq,
		ConsumedAt: time.Now().Unix(),
	}
	if err := v.repoManager.Proofs().MarkConsumed(ctx, consumed); err != nil {
		if err == domain.ErrProofConsumed {
			return nil, errors.PROOF_ALREADY_USED.Wrap(err).WithMetadata(errors.ProofMetadata{
				Domain: string(v.homeDomain), Nonce: seq,
			})
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	escrow, err := v.repoManager.Escrows().UnwindEscrow(ctx, seq)
	if err != nil {
		if fErr := v.repoManager.Proofs().Forget(ctx, v.homeDomain, seq); fErr != nil {
			log.WithError(fErr).Error("vault: failed to roll back proof consumption")
		}
		if err == domain.ErrEscrowNotFound {
			return nil, errors.PROOF_INVALID.New("no escrow with seq %d", seq)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := v.ledger.TransferOut(ctx, escrow.Asset, escrow.Amount, escrow.Holder); err != nil {
		log.WithError(err).Errorf(
			"vault: failed to return %d %s to %s after unwind",
			escrow.Amount, escrow.Asset, escrow.Holder,
		)
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.Debugf("vault: unwound escrow %d, returned %d %s to %s",
		seq, escrow.Amount, escrow.Asset, escrow.Holder)
	return escrow, nil
}

// GetSupportedAssets returns the assets eligible for custody.
func (v *CustodyVault) GetSupportedAssets(ctx context.Context) ([]domain.AssetID, errors.Error) {
	assets, err := v.repoManager.Assets().GetSupportedAssets(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return assets, nil
}

// GetEscrowedAmount returns the custody balance backing destinationDomain.
func (v *CustodyVault) GetEscrowedAmount(
	ctx context.Context, asset domain.AssetID, destinationDomain domain.DomainID,
) (uint64, errors.Error) {
	escrowed, err := v.repoManager.Escrows().GetEscrowedAmount(ctx, asset, destinationDomain)
	if err != nil {
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}
	return escrowed, nil
}

// VerifyCustody checks that the vault's ledger holdings cover the tracked
// custody balances, per asset.
func (v *CustodyVault) VerifyCustody(ctx context.Context) ([]domain.CustodyBalance, errors.Error) {
	balances, err := v.repoManager.Escrows().GetCustodyBalances(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	totals := make(map[domain.AssetID]uint64)
	for _, balance := range balances {
		totals[balance.Asset] += balance.Escrowed
	}
	for asset, total := range totals {
		held, err := v.ledger.Balance(ctx, asset)
		if err != nil {
			return nil, errors.INTERNAL_ERROR.Wrap(err)
		}
		if held < total {
			return nil, errors.CONSERVATION_VIOLATION.New(
				"vault holds %d %s but tracks %d in custody", held, asset, total,
			).WithMetadata(errors.ConservationMetadata{
				HomeAsset: string(asset), Escrowed: total,
			})
		}
	}
	return balances, nil
}
