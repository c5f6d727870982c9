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

// WrappedAssetController manages minting, burning and balances of the
// wrapped assets on one remote domain. Every mint is gated by the
// conservation check: the wrapped supply may never exceed the home-domain
// escrow backing it. A failed check halts the asset until an operator audit
// clears it.
type WrappedAssetController struct {
	domainID    domain.DomainID
	repoManager ports.RepoManager
	relay       ports.ProofRelay
	bridge      domain.Authority

	lock *sync.Mutex
}

func NewWrappedAssetController(
	domainID domain.DomainID, repoManager ports.RepoManager, relay ports.ProofRelay,
	bridge domain.Authority,
) *WrappedAssetController {
	return &WrappedAssetController{
		domainID:    domainID,
		repoManager: repoManager,
		relay:       relay,
		bridge:      bridge,
		lock:        &sync.Mutex{},
	}
}

func (c *WrappedAssetController) Domain() domain.DomainID {
	return c.domainID
}

// Mint credits amount of the wrapped asset to toHolder against a proof. A
// lock receipt from the home domain authorizes a regular mint, a burn
// receipt from this domain authorizes a compensating re-mint to the original
// burner. Each proof is consumed exactly once.
func (c *WrappedAssetController) Mint(
	ctx context.Context, auth domain.Authority, asset domain.AssetID, toHolder string,
	amount uint64, proof ports.ProofToken,
) errors.Error {
	if !auth.Matches(c.bridge) {
		return errors.UNAUTHORIZED.New("bridge authority required")
	}
	if amount == 0 {
		return errors.INVALID_AMOUNT.New(
			"mint amount must be positive",
		).WithMetadata(errors.AmountMetadata{Asset: string(asset)})
	}

	wrapped, err := c.repoManager.Wrapped().GetWrappedAsset(ctx, c.domainID, asset)
	if err != nil {
		if err == domain.ErrWrappedAssetUnknown {
			return errors.ASSET_NOT_SUPPORTED.Wrap(err).WithMetadata(errors.AssetMetadata{
				Asset: string(asset), Domain: string(c.domainID),
			})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if wrapped.Halted {
		return errors.MINT_HALTED.New(
			"%s is halted pending audit", asset,
		).WithMetadata(errors.AssetMetadata{
			Asset: string(asset), Domain: string(c.domainID),
		})
	}

	receipt, err := c.relay.Verify(ctx, proof)
	if err != nil {
		return errors.PROOF_INVALID.Wrap(err)
	}
	if err := c.validateMintReceipt(receipt, toHolder, amount); err != nil {
		return errors.PROOF_INVALID.Wrap(err).WithMetadata(errors.ProofMetadata{
			Domain: string(receipt.Domain), Nonce: receipt.Nonce,
		})
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	// the supply after this mint must stay covered by the home escrow
	escrowed, err := c.repoManager.Escrows().GetEscrowedAmount(
		ctx, wrapped.HomeAsset, c.domainID,
	)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	supply, err := c.repoManager.Wrapped().GetSupply(ctx, c.domainID, asset)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	if supply+amount > escrowed {
		c.halt(ctx, wrapped, supply+amount, escrowed)
		return errors.CONSERVATION_VIOLATION.New(
			"minting %d %s would put supply at %d with only %d escrowed",
			amount, asset, supply+amount, escrowed,
		).WithMetadata(errors.ConservationMetadata{
			HomeAsset:     string(wrapped.HomeAsset),
			RemoteAsset:   string(asset),
			RemoteDomain:  string(c.domainID),
			WrappedSupply: supply + amount,
			Escrowed:      escrowed,
		})
	}

	consumed := domain.ConsumedProof{
		Domain:     receipt.Domain,
		Nonce:      receipt.Nonce,
		RequestID:  receipt.RequestID,
		ConsumedAt: time.Now().Unix(),
	}
	if err := c.repoManager.Proofs().MarkConsumed(ctx, consumed); err != nil {
		if err == domain.ErrProofConsumed {
			return errors.PROOF_ALREADY_USED.Wrap(err).WithMetadata(errors.ProofMetadata{
				Domain: string(receipt.Domain), Nonce: receipt.Nonce,
			})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := c.repoManager.Wrapped().Credit(ctx, c.domainID, asset, toHolder, amount); err != nil {
		if fErr := c.repoManager.Proofs().Forget(ctx, receipt.Domain, receipt.Nonce); fErr != nil {
			log.WithError(fErr).Error("controller: failed to roll back proof consumption")
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.Debugf(
		"controller %s: minted %d %s to %s against %s %d",
		c.domainID, amount, asset, toHolder, receipt.Kind, receipt.Nonce,
	)
	return nil
}

// Burn debits amount of the wrapped asset from fromHolder and returns the
// burn receipt under a fresh domain-unique nonce.
func (c *WrappedAssetController) Burn(
	ctx context.Context, auth domain.Authority, asset domain.AssetID, fromHolder string,
	amount uint64,
) (*domain.Receipt, errors.Error) {
	if !auth.Matches(c.bridge) {
		return nil, errors.UNAUTHORIZED.New("bridge authority required")
	}
	if amount == 0 {
		return nil, errors.INVALID_AMOUNT.New(
			"burn amount must be positive",
		).WithMetadata(errors.AmountMetadata{Asset: string(asset)})
	}

	if _, err := c.repoManager.Wrapped().GetWrappedAsset(ctx, c.domainID, asset); err != nil {
		if err == domain.ErrWrappedAssetUnknown {
			return nil, errors.ASSET_NOT_SUPPORTED.Wrap(err).WithMetadata(errors.AssetMetadata{
				Asset: string(asset), Domain: string(c.domainID),
			})
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.repoManager.Wrapped().Debit(ctx, c.domainID, asset, fromHolder, amount); err != nil {
		if err == domain.ErrWrappedBalanceShortfall {
			available, _ := c.repoManager.Wrapped().GetBalance(ctx, c.domainID, asset, fromHolder)
			return nil, errors.INSUFFICIENT_BALANCE.Wrap(err).WithMetadata(
				errors.BalanceMetadata{
					Asset:     string(asset),
					Holder:    fromHolder,
					Requested: amount,
					Available: available,
				})
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	nonce, err := c.repoManager.Wrapped().NextNonce(ctx, c.domainID)
	if err != nil {
		if rbErr := c.repoManager.Wrapped().Credit(
			ctx, c.domainID, asset, fromHolder, amount,
		); rbErr != nil {
			log.WithError(rbErr).Error("controller: failed to roll back burn")
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	receipt := &domain.Receipt{
		Kind:      domain.ReceiptKindBurn,
		Domain:    c.domainID,
		Asset:     asset,
		Amount:    amount,
		Holder:    fromHolder,
		Nonce:     nonce,
		CreatedAt: time.Now().Unix(),
	}

	log.Debugf(
		"controller %s: burned %d %s from %s, nonce %d",
		c.domainID, amount, asset, fromHolder, nonce,
	)
	return receipt, nil
}

// ResumeMinting clears the halted flag after an operator audit.
func (c *WrappedAssetController) ResumeMinting(
	ctx context.Context, asset domain.AssetID,
) errors.Error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.repoManager.Wrapped().SetHalted(ctx, c.domainID, asset, false); err != nil {
		if err == domain.ErrWrappedAssetUnknown {
			return errors.ASSET_NOT_SUPPORTED.Wrap(err).WithMetadata(errors.AssetMetadata{
				Asset: string(asset), Domain: string(c.domainID),
			})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	events := []domain.Event{domain.MintingResumed{
		Type:      domain.EventTypeMintingResumed,
		Id:        string(asset),
		Domain:    c.domainID,
		Asset:     asset,
		Timestamp: time.Now().Unix(),
	}}
	if err := c.repoManager.Events().Save(
		ctx, domain.SupplyTopic, string(asset), events,
	); err != nil {
		log.WithError(err).Warn("failed to save minting resumed event")
	}

	log.Infof("controller %s: minting resumed for %s", c.domainID, asset)
	return nil
}

// BalanceOf returns holder's balance of the wrapped asset.
func (c *WrappedAssetController) BalanceOf(
	ctx context.Context, asset domain.AssetID, holder string,
) (uint64, errors.Error) {
	balance, err := c.repoManager.Wrapped().GetBalance(ctx, c.domainID, asset, holder)
	if err != nil {
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}
	return balance, nil
}

// Supply returns the circulating supply of the wrapped asset.
func (c *WrappedAssetController) Supply(
	ctx context.Context, asset domain.AssetID,
) (uint64, errors.Error) {
	supply, err := c.repoManager.Wrapped().GetSupply(ctx, c.domainID, asset)
	if err != nil {
		if err == domain.ErrWrappedAssetUnknown {
			return 0, errors.ASSET_NOT_SUPPORTED.Wrap(err).WithMetadata(errors.AssetMetadata{
				Asset: string(asset), Domain: string(c.domainID),
			})
		}
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}
	return supply, nil
}

func (c *WrappedAssetController) validateMintReceipt(
	receipt *domain.Receipt, toHolder string, amount uint64,
) error {
	if receipt.Amount != amount {
		return domain.ErrMintReceiptMismatch{
			Reason: "amount mismatch", Receipt: *receipt,
		}
	}
	switch receipt.Kind {
	case domain.ReceiptKindLock:
		if receipt.Domain == c.domainID {
			return domain.ErrMintReceiptMismatch{
				Reason: "lock receipt must come from the home domain", Receipt: *receipt,
			}
		}
	case domain.ReceiptKindBurn:
		// a burn receipt only re-mints to the holder that burned, on the
		// domain the burn happened on
		if receipt.Domain != c.domainID || receipt.Holder != toHolder {
			return domain.ErrMintReceiptMismatch{
				Reason: "burn receipt can only compensate its own burner", Receipt: *receipt,
			}
		}
	default:
		return domain.ErrMintReceiptMismatch{
			Reason: "unknown receipt kind", Receipt: *receipt,
		}
	}
	return nil
}

func (c *WrappedAssetController) halt(
	ctx context.Context, wrapped *domain.WrappedAsset, wouldBeSupply, escrowed uint64,
) {
	if err := c.repoManager.Wrapped().SetHalted(
		ctx, c.domainID, wrapped.AssetID, true,
	); err != nil {
		log.WithError(err).Errorf("controller: failed to halt %s", wrapped.AssetID)
		return
	}

	events := []domain.Event{domain.MintingHalted{
		Type:          domain.EventTypeMintingHalted,
		Id:            string(wrapped.AssetID),
		Domain:        c.domainID,
		Asset:         wrapped.AssetID,
		WrappedSupply: wouldBeSupply,
		Escrowed:      escrowed,
		Timestamp:     time.Now().Unix(),
	}}
	if err := c.repoManager.Events().Save(
		ctx, domain.SupplyTopic, string(wrapped.AssetID), events,
	); err != nil {
		log.WithError(err).Warn("failed to save minting halted event")
	}

	log.Warnf(
		"controller %s: halted %s, supply would reach %d with %d escrowed",
		c.domainID, wrapped.AssetID, wouldBeSupply, escrowed,
	)
}
