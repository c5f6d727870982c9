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

// ExchangeEngine converts between the two bridged assets at the configured
// fixed-point rates. The home instance holds the liquidity reserves and
// executes swaps, the remote instances are quote-only mirrors kept in sync
// through rate events.
type ExchangeEngine struct {
	domainID    domain.DomainID
	repoManager ports.RepoManager
	ledger      ports.BalanceLedger
	operator    domain.Authority
	bridge      domain.Authority

	lock *sync.Mutex
}

func NewExchangeEngine(
	domainID domain.DomainID, repoManager ports.RepoManager, ledger ports.BalanceLedger,
	operator, bridge domain.Authority,
) *ExchangeEngine {
	return &ExchangeEngine{
		domainID:    domainID,
		repoManager: repoManager,
		ledger:      ledger,
		operator:    operator,
		bridge:      bridge,
		lock:        &sync.Mutex{},
	}
}

func (e *ExchangeEngine) Domain() domain.DomainID {
	return e.domainID
}

// Bootstrap creates the pair record if the engine starts against an empty
// store. An existing pair wins over the bootstrap parameters.
func (e *ExchangeEngine) Bootstrap(
	ctx context.Context, base, counter domain.AssetID, forwardRate uint64,
) error {
	if _, err := e.repoManager.Exchange().GetPair(ctx, e.domainID); err == nil {
		return nil
	} else if err != domain.ErrPairNotFound {
		return err
	}

	reverseRate, err := domain.DeriveReverseRate(forwardRate)
	if err != nil {
		return err
	}
	pair := domain.ExchangePair{
		Domain:      e.domainID,
		Base:        base,
		Counter:     counter,
		ForwardRate: forwardRate,
		ReverseRate: reverseRate,
		UpdatedAt:   time.Now().Unix(),
	}
	if err := e.repoManager.Exchange().AddPair(ctx, pair); err != nil {
		if err == domain.ErrPairExists {
			return nil
		}
		return err
	}

	log.Infof(
		"engine %s: bootstrapped pair %s/%s at rate %d/%d",
		e.domainID, base, counter, forwardRate, domain.RatePrecision,
	)
	return nil
}

// Quote converts amountIn at the stored rate without touching reserves.
func (e *ExchangeEngine) Quote(
	ctx context.Context, fromAsset, toAsset domain.AssetID, amountIn uint64,
) (*QuoteInfo, errors.Error) {
	pair, err := e.repoManager.Exchange().GetPair(ctx, e.domainID)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if !pair.Tradable(fromAsset, toAsset) {
		return nil, errors.UNSUPPORTED_ASSET.New(
			"engine %s cannot convert %s to %s", e.domainID, fromAsset, toAsset,
		).WithMetadata(errors.AssetMetadata{
			Asset: string(fromAsset), Domain: string(e.domainID),
		})
	}

	amountOut, err := pair.Quote(fromAsset, toAsset, amountIn)
	if err != nil {
		return nil, errors.INVALID_AMOUNT.Wrap(err).WithMetadata(errors.AmountMetadata{
			Asset: string(fromAsset), Amount: amountIn,
		})
	}
	rate, _ := pair.Rate(fromAsset, toAsset)

	return &QuoteInfo{
		Domain:    e.domainID,
		FromAsset: fromAsset,
		ToAsset:   toAsset,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Rate:      rate,
		Precision: domain.RatePrecision,
	}, nil
}

// Swap converts amountIn of trader's input asset into the output asset,
// moving both legs through the engine's reserve. The output amount always
// equals the quote at the current rate.
func (e *ExchangeEngine) Swap(
	ctx context.Context, auth domain.Authority, fromAsset, toAsset domain.AssetID,
	amountIn uint64, trader string,
) (uint64, errors.Error) {
	if !auth.Matches(e.bridge) && !auth.Matches(e.operator) {
		return 0, errors.UNAUTHORIZED.New("bridge or operator authority required")
	}
	if e.ledger == nil {
		return 0, errors.INTERNAL_ERROR.New("engine %s is quote-only", e.domainID)
	}
	if amountIn == 0 {
		return 0, errors.INVALID_AMOUNT.New(
			"swap amount must be positive",
		).WithMetadata(errors.AmountMetadata{Asset: string(fromAsset)})
	}

	quote, qErr := e.Quote(ctx, fromAsset, toAsset, amountIn)
	if qErr != nil {
		return 0, qErr
	}
	amountOut := quote.AmountOut
	if amountOut == 0 {
		return 0, errors.INVALID_AMOUNT.New(
			"%d %s converts to zero %s at the current rate", amountIn, fromAsset, toAsset,
		).WithMetadata(errors.AmountMetadata{Asset: string(fromAsset), Amount: amountIn})
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.ledger.TransferIn(ctx, fromAsset, amountIn, trader); err != nil {
		if err == ports.ErrLedgerShortfall {
			available, _ := e.ledger.BalanceOf(ctx, fromAsset, trader)
			return 0, errors.INSUFFICIENT_BALANCE.Wrap(err).WithMetadata(
				errors.BalanceMetadata{
					Asset:     string(fromAsset),
					Holder:    trader,
					Requested: amountIn,
					Available: available,
				})
		}
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}

	var available uint64
	err := e.repoManager.Exchange().UpdatePair(
		ctx, e.domainID, func(pair *domain.ExchangePair) (*domain.ExchangePair, error) {
			out, err := pair.ReserveOf(toAsset)
			if err != nil {
				return nil, err
			}
			if out < amountOut {
				available = out
				return nil, domain.ErrReserveShortfall
			}
			if toAsset == pair.Counter {
				pair.ReserveBase += amountIn
				pair.ReserveCounter -= amountOut
			} else {
				pair.ReserveCounter += amountIn
				pair.ReserveBase -= amountOut
			}
			pair.UpdatedAt = time.Now().Unix()
			return pair, nil
		},
	)
	if err != nil {
		if rbErr := e.ledger.TransferOut(ctx, fromAsset, amountIn, trader); rbErr != nil {
			log.WithError(rbErr).Errorf(
				"engine: failed to return %d %s to %s after reserve failure",
				amountIn, fromAsset, trader,
			)
		}
		if err == domain.ErrReserveShortfall {
			return 0, errors.INSUFFICIENT_RESERVE.Wrap(err).WithMetadata(
				errors.ReserveMetadata{
					Asset:     string(toAsset),
					Requested: amountOut,
					Available: available,
				})
		}
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := e.ledger.TransferOut(ctx, toAsset, amountOut, trader); err != nil {
		log.WithError(err).Errorf(
			"engine: failed to pay out %d %s to %s", amountOut, toAsset, trader,
		)
		return 0, errors.INTERNAL_ERROR.Wrap(err)
	}

	log.Debugf(
		"engine %s: swapped %d %s into %d %s for %s",
		e.domainID, amountIn, fromAsset, amountOut, toAsset, trader,
	)
	return amountOut, nil
}

// SetRate updates the conversion rate for the given direction and derives
// the opposite direction so a round trip can never mint value.
func (e *ExchangeEngine) SetRate(
	ctx context.Context, auth domain.Authority, fromAsset, toAsset domain.AssetID, rate int64,
) errors.Error {
	if !auth.Matches(e.operator) {
		return errors.UNAUTHORIZED.New("operator authority required")
	}
	if rate <= 0 {
		return errors.INVALID_RATE.New(
			"rate must be positive, got %d", rate,
		).WithMetadata(errors.RateMetadata{
			Base: string(fromAsset), Counter: string(toAsset), Rate: rate,
		})
	}
	derived, err := domain.DeriveReverseRate(uint64(rate))
	if err != nil {
		return errors.INVALID_RATE.Wrap(err).WithMetadata(errors.RateMetadata{
			Base: string(fromAsset), Counter: string(toAsset), Rate: rate,
		})
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	var updated domain.ExchangePair
	uErr := e.repoManager.Exchange().UpdatePair(
		ctx, e.domainID, func(pair *domain.ExchangePair) (*domain.ExchangePair, error) {
			switch {
			case fromAsset == pair.Base && toAsset == pair.Counter:
				pair.ForwardRate = uint64(rate)
				pair.ReverseRate = derived
			case fromAsset == pair.Counter && toAsset == pair.Base:
				pair.ReverseRate = uint64(rate)
				pair.ForwardRate = derived
			default:
				return nil, domain.ErrAssetNotInPair
			}
			pair.UpdatedAt = time.Now().Unix()
			updated = *pair
			return pair, nil
		},
	)
	if uErr != nil {
		if uErr == domain.ErrAssetNotInPair {
			return errors.UNSUPPORTED_ASSET.Wrap(uErr).WithMetadata(errors.AssetMetadata{
				Asset: string(fromAsset), Domain: string(e.domainID),
			})
		}
		return errors.INTERNAL_ERROR.Wrap(uErr)
	}

	events := []domain.Event{domain.RateUpdated{
		Type:        domain.EventTypeRateUpdated,
		Id:          string(e.domainID),
		Domain:      e.domainID,
		Base:        updated.Base,
		Counter:     updated.Counter,
		ForwardRate: updated.ForwardRate,
		ReverseRate: updated.ReverseRate,
		Timestamp:   updated.UpdatedAt,
	}}
	if err := e.repoManager.Events().Save(
		ctx, domain.ExchangeTopic, string(e.domainID), events,
	); err != nil {
		log.WithError(err).Warn("failed to save rate updated event")
	}

	log.Infof(
		"engine %s: rate %s -> %s set to %d, derived %d for the way back",
		e.domainID, fromAsset, toAsset, rate, derived,
	)
	return nil
}

// ApplyRates overwrites both rate directions, used to keep mirrors in sync
// with the home engine.
func (e *ExchangeEngine) ApplyRates(ctx context.Context, forward, reverse uint64) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	return e.repoManager.Exchange().UpdatePair(
		ctx, e.domainID, func(pair *domain.ExchangePair) (*domain.ExchangePair, error) {
			pair.ForwardRate = forward
			pair.ReverseRate = reverse
			pair.UpdatedAt = time.Now().Unix()
			return pair, nil
		},
	)
}

// AddLiquidity tops up both reserves from fromHolder's balances.
func (e *ExchangeEngine) AddLiquidity(
	ctx context.Context, auth domain.Authority, amountBase, amountCounter uint64,
	fromHolder string,
) errors.Error {
	if !auth.Matches(e.operator) {
		return errors.UNAUTHORIZED.New("operator authority required")
	}
	if e.ledger == nil {
		return errors.INTERNAL_ERROR.New("engine %s is quote-only", e.domainID)
	}
	if amountBase == 0 && amountCounter == 0 {
		return errors.INVALID_AMOUNT.New("nothing to add")
	}

	pair, err := e.repoManager.Exchange().GetPair(ctx, e.domainID)
	if err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	if amountBase > 0 {
		if err := e.ledger.TransferIn(ctx, pair.Base, amountBase, fromHolder); err != nil {
			return e.liquidityError(ctx, pair.Base, fromHolder, amountBase, err)
		}
	}
	if amountCounter > 0 {
		if err := e.ledger.TransferIn(ctx, pair.Counter, amountCounter, fromHolder); err != nil {
			if amountBase > 0 {
				if rbErr := e.ledger.TransferOut(
					ctx, pair.Base, amountBase, fromHolder,
				); rbErr != nil {
					log.WithError(rbErr).Error("engine: failed to roll back base leg")
				}
			}
			return e.liquidityError(ctx, pair.Counter, fromHolder, amountCounter, err)
		}
	}

	if err := e.repoManager.Exchange().UpdatePair(
		ctx, e.domainID, func(pair *domain.ExchangePair) (*domain.ExchangePair, error) {
			pair.ReserveBase += amountBase
			pair.ReserveCounter += amountCounter
			pair.UpdatedAt = time.Now().Unix()
			return pair, nil
		},
	); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	events := []domain.Event{domain.LiquidityAdded{
		Type:          domain.EventTypeLiquidityAdded,
		Id:            string(e.domainID),
		Domain:        e.domainID,
		AmountBase:    amountBase,
		AmountCounter: amountCounter,
		Timestamp:     time.Now().Unix(),
	}}
	if err := e.repoManager.Events().Save(
		ctx, domain.ExchangeTopic, string(e.domainID), events,
	); err != nil {
		log.WithError(err).Warn("failed to save liquidity added event")
	}

	log.Infof(
		"engine %s: added liquidity %d %s, %d %s",
		e.domainID, amountBase, pair.Base, amountCounter, pair.Counter,
	)
	return nil
}

// Reserves returns the current pair state.
func (e *ExchangeEngine) Reserves(ctx context.Context) (*ReserveInfo, errors.Error) {
	pair, err := e.repoManager.Exchange().GetPair(ctx, e.domainID)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return &ReserveInfo{
		Domain:         pair.Domain,
		Base:           pair.Base,
		Counter:        pair.Counter,
		ForwardRate:    pair.ForwardRate,
		ReverseRate:    pair.ReverseRate,
		ReserveBase:    pair.ReserveBase,
		ReserveCounter: pair.ReserveCounter,
	}, nil
}

func (e *ExchangeEngine) liquidityError(
	ctx context.Context, asset domain.AssetID, holder string, amount uint64, err error,
) errors.Error {
	if err == ports.ErrLedgerShortfall {
		available, _ := e.ledger.BalanceOf(ctx, asset, holder)
		return errors.INSUFFICIENT_BALANCE.Wrap(err).WithMetadata(errors.BalanceMetadata{
			Asset:     string(asset),
			Holder:    holder,
			Requested: amount,
			Available: available,
		})
	}
	return errors.INTERNAL_ERROR.Wrap(err)
}
