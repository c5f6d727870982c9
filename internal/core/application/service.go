package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
	"github.com/strait-labs/straitd/pkg/errors"
)

// service is the cross-domain orchestrator. It drives every transfer through
// burn, release, swap, lock and mint, holding the per-request lock while it
// does, and reverts with compensation when a leg fails or the deadline
// passes.
type service struct {
	// services
	registry    *AssetRegistry
	vault       *CustodyVault
	engine      *ExchangeEngine
	controllers map[domain.DomainID]*WrappedAssetController
	mirrors     map[domain.DomainID]*ExchangeEngine
	repoManager ports.RepoManager
	relay       ports.ProofRelay
	liveStore   ports.LiveStore
	sweeper     *sweeper

	// config
	homeDomain      domain.DomainID
	bridge          domain.Authority
	bridgeAccount   string
	transferTimeout time.Duration

	// channels
	eventsCh chan []domain.Event

	// stop and settlement go routine handlers
	stop func()
	ctx  context.Context
	wg   *sync.WaitGroup
}

func NewService(
	registry *AssetRegistry,
	vault *CustodyVault,
	engine *ExchangeEngine,
	controllers map[domain.DomainID]*WrappedAssetController,
	mirrors map[domain.DomainID]*ExchangeEngine,
	repoManager ports.RepoManager,
	relay ports.ProofRelay,
	liveStore ports.LiveStore,
	scheduler ports.SchedulerService,
	bridge domain.Authority,
	bridgeAccount string,
	transferTimeout time.Duration,
) (Service, error) {
	if transferTimeout <= 0 {
		return nil, fmt.Errorf("transfer timeout must be positive")
	}
	if bridge.IsZero() {
		return nil, fmt.Errorf("missing bridge authority")
	}
	for _, remoteDomain := range registry.RemoteDomains() {
		if _, ok := controllers[remoteDomain]; !ok {
			return nil, fmt.Errorf("missing wrapped asset controller for %s", remoteDomain)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	svc := &service{
		registry:        registry,
		vault:           vault,
		engine:          engine,
		controllers:     controllers,
		mirrors:         mirrors,
		repoManager:     repoManager,
		relay:           relay,
		liveStore:       liveStore,
		homeDomain:      registry.HomeDomain(),
		bridge:          bridge,
		bridgeAccount:   bridgeAccount,
		transferTimeout: transferTimeout,
		eventsCh:        make(chan []domain.Event, 64),
		stop:            cancel,
		ctx:             ctx,
		wg:              &sync.WaitGroup{},
	}
	svc.sweeper = newSweeper(
		repoManager, liveStore, scheduler, transferTimeout, svc.revertTransfer,
	)

	forward := func(events []domain.Event) {
		select {
		case svc.eventsCh <- events:
		default:
			log.Debug("events channel full, dropping events")
		}
	}
	for _, topic := range []string{
		domain.TransferTopic, domain.RegistryTopic, domain.SupplyTopic,
	} {
		repoManager.Events().RegisterEventsHandler(topic, forward)
	}
	repoManager.Events().RegisterEventsHandler(
		domain.ExchangeTopic, func(events []domain.Event) {
			forward(events)
			svc.syncMirrors(events)
		},
	)

	return svc, nil
}

func (s *service) Start() error {
	log.Debug("starting sweeper service...")
	if err := s.sweeper.start(); err != nil {
		return err
	}

	log.Debug("resuming pending transfers...")
	pendingTransfers, err := s.repoManager.Transfers().GetPendingTransfers(s.ctx)
	if err != nil {
		return err
	}
	for _, transfer := range pendingTransfers {
		s.wg.Add(1)
		go s.settleTransfer(transfer.RequestID)
	}
	if len(pendingTransfers) > 0 {
		log.Infof("resumed %d pending transfers", len(pendingTransfers))
	}
	return nil
}

func (s *service) Stop() {
	s.stop()
	s.wg.Wait()
	s.sweeper.stop()
	s.repoManager.Close()
	log.Debug("closed connection to db")
	close(s.eventsCh)
}

func (s *service) SubmitSwapRequest(
	ctx context.Context, origin domain.DomainID, trader string,
	fromAsset, toAsset domain.AssetID, amountIn uint64,
) (string, errors.Error) {
	controller, ok := s.controllers[origin]
	if !ok {
		return "", errors.UNKNOWN_DOMAIN.New(
			"domain %s is not bridged", origin,
		).WithMetadata(errors.AssetMetadata{Domain: string(origin)})
	}
	if amountIn == 0 {
		return "", errors.INVALID_AMOUNT.New(
			"swap amount must be positive",
		).WithMetadata(errors.AmountMetadata{Asset: string(fromAsset)})
	}
	if trader == "" {
		return "", errors.INVALID_AMOUNT.New("missing trader account")
	}
	if fromAsset == toAsset {
		return "", errors.INVALID_ASSET.New(
			"cannot swap %s into itself", fromAsset,
		).WithMetadata(errors.AssetMetadata{
			Asset: string(fromAsset), Domain: string(origin),
		})
	}

	homeFromAsset, fromDomain, resErr := s.registry.ResolveToHome(ctx, fromAsset)
	if resErr != nil {
		return "", resErr
	}
	homeToAsset, toDomain, resErr := s.registry.ResolveToHome(ctx, toAsset)
	if resErr != nil {
		return "", resErr
	}
	if fromDomain != origin || toDomain != origin {
		return "", errors.INVALID_ASSET.New(
			"both assets must circulate on %s", origin,
		).WithMetadata(errors.AssetMetadata{
			Asset: string(fromAsset), Domain: string(origin),
		})
	}

	// the home counterparts must be custody-eligible and convertible, and the
	// conversion must not round down to nothing
	for _, homeAsset := range []domain.AssetID{homeFromAsset, homeToAsset} {
		supported, err := s.repoManager.Assets().IsSupportedAsset(ctx, homeAsset)
		if err != nil {
			return "", errors.INTERNAL_ERROR.Wrap(err)
		}
		if !supported {
			return "", errors.UNSUPPORTED_ASSET.New(
				"%s is not eligible for custody", homeAsset,
			).WithMetadata(errors.AssetMetadata{
				Asset: string(homeAsset), Domain: string(s.homeDomain),
			})
		}
	}
	quote, qErr := s.engine.Quote(ctx, homeFromAsset, homeToAsset, amountIn)
	if qErr != nil {
		return "", qErr
	}
	if quote.AmountOut == 0 {
		return "", errors.INVALID_AMOUNT.New(
			"%d %s converts to zero %s at the current rate", amountIn, fromAsset, toAsset,
		).WithMetadata(errors.AmountMetadata{Asset: string(fromAsset), Amount: amountIn})
	}

	requestID := uuid.New().String()
	transfer := domain.NewTransfer(
		requestID, origin, trader, fromAsset, toAsset, homeFromAsset, homeToAsset, amountIn,
	)
	events := transfer.PopEvents()
	if err := s.repoManager.Transfers().AddTransfer(ctx, *transfer); err != nil {
		return "", errors.INTERNAL_ERROR.Wrap(err)
	}
	s.saveEvents(ctx, requestID, events)

	// burn the trader's input, after this point every failure is compensated
	receipt, bErr := controller.Burn(ctx, s.bridge, fromAsset, trader, amountIn)
	if bErr != nil {
		if _, err := s.applyTransfer(ctx, requestID, func(t *domain.Transfer) error {
			return t.Revert(fmt.Sprintf("burn failed: %s", bErr), 0)
		}); err != nil {
			log.WithError(err).Errorf("failed to finalize transfer %s", requestID)
		}
		return "", bErr
	}
	receipt.RequestID = requestID

	if _, err := s.applyTransfer(ctx, requestID, func(t *domain.Transfer) error {
		return t.BurnInput(receipt.Nonce)
	}); err != nil {
		return "", errors.INTERNAL_ERROR.Wrap(err)
	}

	if err := s.sweeper.track(
		ctx, requestID, transfer.Deadline(s.transferTimeout),
	); err != nil {
		log.WithError(err).Warnf("failed to track deadline for %s", requestID)
	}

	s.wg.Add(1)
	go s.settleTransfer(requestID)

	log.Infof(
		"transfer %s: %s swapping %d %s into %s on %s",
		requestID, trader, amountIn, fromAsset, toAsset, origin,
	)
	return requestID, nil
}

func (s *service) GetTransfer(
	ctx context.Context, requestID string,
) (*TransferInfo, errors.Error) {
	transfer, err := s.repoManager.Transfers().GetTransfer(ctx, requestID)
	if err != nil {
		if err == domain.ErrTransferNotFound {
			return nil, errors.TRANSFER_NOT_FOUND.New(
				"no transfer with id %s", requestID,
			).WithMetadata(errors.TransferMetadata{RequestID: requestID})
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	info := newTransferInfo(*transfer)
	return &info, nil
}

func (s *service) GetTransfers(
	ctx context.Context, after, before int64,
) ([]TransferInfo, errors.Error) {
	transfers, err := s.repoManager.Transfers().GetTransfers(ctx, after, before)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	infos := make([]TransferInfo, 0, len(transfers))
	for _, transfer := range transfers {
		infos = append(infos, newTransferInfo(transfer))
	}
	return infos, nil
}

func (s *service) GetQuote(
	ctx context.Context, origin domain.DomainID, fromAsset, toAsset domain.AssetID,
	amountIn uint64,
) (*QuoteInfo, errors.Error) {
	if origin == s.homeDomain {
		return s.engine.Quote(ctx, fromAsset, toAsset, amountIn)
	}

	mirror, ok := s.mirrors[origin]
	if !ok {
		return nil, errors.UNKNOWN_DOMAIN.New(
			"domain %s is not bridged", origin,
		).WithMetadata(errors.AssetMetadata{Domain: string(origin)})
	}
	homeFromAsset, fromDomain, err := s.registry.ResolveToHome(ctx, fromAsset)
	if err != nil {
		return nil, err
	}
	homeToAsset, toDomain, err := s.registry.ResolveToHome(ctx, toAsset)
	if err != nil {
		return nil, err
	}
	if fromDomain != origin || toDomain != origin {
		return nil, errors.INVALID_ASSET.New(
			"both assets must circulate on %s", origin,
		).WithMetadata(errors.AssetMetadata{
			Asset: string(fromAsset), Domain: string(origin),
		})
	}

	quote, err := mirror.Quote(ctx, homeFromAsset, homeToAsset, amountIn)
	if err != nil {
		return nil, err
	}
	// report the quote in the wrapped identifiers the caller asked about
	quote.FromAsset = fromAsset
	quote.ToAsset = toAsset
	return quote, nil
}

func (s *service) GetWrappedBalance(
	ctx context.Context, origin domain.DomainID, asset domain.AssetID, holder string,
) (uint64, errors.Error) {
	controller, ok := s.controllers[origin]
	if !ok {
		return 0, errors.UNKNOWN_DOMAIN.New(
			"domain %s is not bridged", origin,
		).WithMetadata(errors.AssetMetadata{Domain: string(origin)})
	}
	return controller.BalanceOf(ctx, asset, holder)
}

func (s *service) GetEventsChannel(ctx context.Context) <-chan []domain.Event {
	return s.eventsCh
}

func (s *service) GetInfo(ctx context.Context) (*ServiceInfo, errors.Error) {
	supportedAssets, err := s.vault.GetSupportedAssets(ctx)
	if err != nil {
		return nil, err
	}
	reserves, err := s.engine.Reserves(ctx)
	if err != nil {
		return nil, err
	}
	pendingCount, lErr := s.liveStore.Deadlines().Len(ctx)
	if lErr != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(lErr)
	}

	return &ServiceInfo{
		HomeDomain:      s.homeDomain,
		RemoteDomains:   s.registry.RemoteDomains(),
		SupportedAssets: supportedAssets,
		BaseAsset:       reserves.Base,
		CounterAsset:    reserves.Counter,
		TransferTimeout: int64(s.transferTimeout.Seconds()),
		PendingCount:    pendingCount,
	}, nil
}

// settleTransfer drives a transfer from its current state to completion. It
// is re-entrant: on restart the driver picks up wherever the last persisted
// state left off. Failures hand over to the revert path.
func (s *service) settleTransfer(requestID string) {
	defer s.wg.Done()

	ctx := s.ctx

	acquired, err := s.liveStore.RequestLocks().TryAcquire(ctx, requestID)
	if err != nil || !acquired {
		return
	}
	defer func() {
		if err := s.liveStore.RequestLocks().Release(ctx, requestID); err != nil {
			log.WithError(err).Warnf("failed to release request lock for %s", requestID)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		transfer, err := s.repoManager.Transfers().GetTransfer(ctx, requestID)
		if err != nil {
			log.WithError(err).Errorf("failed to load transfer %s", requestID)
			return
		}
		if transfer.IsFinal() {
			s.sweeper.cancel(ctx, requestID)
			return
		}

		var stepErr errors.Error
		switch transfer.State {
		case domain.TransferStateInitiated:
			// the burn never committed, nothing to compensate
			s.finalizeRevert(ctx, transfer, "burn was not committed", 0)
			return
		case domain.TransferStateBurned:
			stepErr = s.stepSubmitBurnProof(ctx, transfer)
		case domain.TransferStateReleaseRequested:
			stepErr = s.stepRelease(ctx, transfer)
		case domain.TransferStateReleased:
			stepErr = s.stepSwap(ctx, transfer)
		case domain.TransferStateSwapped:
			stepErr = s.stepLock(ctx, transfer)
		case domain.TransferStateLockRequested:
			// crashed between persisting the intent and recording the escrow,
			// the lock outcome is unknown so the transfer cannot go forward
			s.compensateAndRevert(ctx, transfer, "lock outcome unknown after restart")
			return
		case domain.TransferStateLocked:
			stepErr = s.stepSubmitLockProof(ctx, transfer)
		case domain.TransferStateMintRequested:
			stepErr = s.stepMint(ctx, transfer)
		}

		if stepErr != nil {
			log.WithError(stepErr).Warnf(
				"transfer %s: %s leg failed, reverting", requestID, transfer.State,
			)
			s.compensateAndRevert(ctx, transfer, stepErr.Error())
			return
		}
	}
}

func (s *service) stepSubmitBurnProof(
	ctx context.Context, transfer *domain.Transfer,
) errors.Error {
	receipt := burnReceiptOf(transfer)
	token, err := s.relay.Submit(ctx, receipt)
	if err != nil {
		return errors.PROOF_INVALID.Wrap(err).WithMetadata(errors.ProofMetadata{
			Domain: string(receipt.Domain), Nonce: receipt.Nonce,
		})
	}
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.RequestRelease(string(token))
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

func (s *service) stepRelease(ctx context.Context, transfer *domain.Transfer) errors.Error {
	err := s.vault.Release(
		ctx, s.bridge, transfer.HomeFromAsset, transfer.AmountIn, s.bridgeAccount,
		transfer.OriginDomain, ports.ProofToken(transfer.BurnProof),
	)
	if err != nil && !s.consumedByUs(ctx, transfer.OriginDomain, transfer.BurnNonce, transfer.RequestID, err) {
		return err
	}
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.ReleaseInput()
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

func (s *service) stepSwap(ctx context.Context, transfer *domain.Transfer) errors.Error {
	amountOut, err := s.engine.Swap(
		ctx, s.bridge, transfer.HomeFromAsset, transfer.HomeToAsset,
		transfer.AmountIn, s.bridgeAccount,
	)
	if err != nil {
		return err
	}
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.SwapOutput(amountOut)
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

func (s *service) stepLock(ctx context.Context, transfer *domain.Transfer) errors.Error {
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.RequestLock()
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	escrow, _, err := s.vault.Lock(
		ctx, s.bridge, transfer.HomeToAsset, transfer.AmountOut, s.bridgeAccount,
		transfer.OriginDomain,
	)
	if err != nil {
		return err
	}
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.LockOutput(escrow.Seq)
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

func (s *service) stepSubmitLockProof(
	ctx context.Context, transfer *domain.Transfer,
) errors.Error {
	receipt := lockReceiptOf(transfer, s.homeDomain, s.bridgeAccount)
	token, err := s.relay.Submit(ctx, receipt)
	if err != nil {
		return errors.PROOF_INVALID.Wrap(err).WithMetadata(errors.ProofMetadata{
			Domain: string(receipt.Domain), Nonce: receipt.Nonce,
		})
	}
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.RequestMint(string(token))
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	return nil
}

func (s *service) stepMint(ctx context.Context, transfer *domain.Transfer) errors.Error {
	controller := s.controllers[transfer.OriginDomain]
	err := controller.Mint(
		ctx, s.bridge, transfer.ToAsset, transfer.Trader, transfer.AmountOut,
		ports.ProofToken(transfer.MintProof),
	)
	if err != nil && !s.consumedByUs(ctx, s.homeDomain, transfer.LockSeq, transfer.RequestID, err) {
		return err
	}
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.CompleteMint()
	}); err != nil {
		return errors.INTERNAL_ERROR.Wrap(err)
	}
	s.sweeper.cancel(ctx, transfer.RequestID)
	log.Infof(
		"transfer %s: completed, %s received %d %s",
		transfer.RequestID, transfer.Trader, transfer.AmountOut, transfer.ToAsset,
	)
	return nil
}

// revertTransfer is invoked by the sweeper when a transfer exceeds its
// deadline. It competes with the settlement driver for the request lock, an
// in-flight driver keeps ownership and the periodic scan retries later.
func (s *service) revertTransfer(requestID, reason string) {
	ctx := s.ctx

	acquired, err := s.liveStore.RequestLocks().TryAcquire(ctx, requestID)
	if err != nil || !acquired {
		return
	}
	defer func() {
		if err := s.liveStore.RequestLocks().Release(ctx, requestID); err != nil {
			log.WithError(err).Warnf("failed to release request lock for %s", requestID)
		}
	}()

	transfer, err := s.repoManager.Transfers().GetTransfer(ctx, requestID)
	if err != nil {
		log.WithError(err).Errorf("failed to load transfer %s", requestID)
		return
	}
	if transfer.IsFinal() {
		s.sweeper.cancel(ctx, requestID)
		return
	}

	log.Warnf("transfer %s: reverting in state %s: %s", requestID, transfer.State, reason)
	s.compensateAndRevert(ctx, transfer, reason)
}

// compensateAndRevert undoes whatever the transfer already moved and
// finalizes it. Compensation always ends with input-side wrapped units
// minted back to the trader, covered by escrow re-locked on the home domain.
func (s *service) compensateAndRevert(
	ctx context.Context, transfer *domain.Transfer, reason string,
) {
	compensated := uint64(0)

	switch transfer.State {
	case domain.TransferStateInitiated:
		// nothing moved

	case domain.TransferStateBurned, domain.TransferStateReleaseRequested:
		// escrow is untouched, the burn receipt itself covers the re-mint
		compensated = s.mintBack(ctx, transfer, burnReceiptOf(transfer))

	case domain.TransferStateReleased:
		// released funds sit in the bridge account, lock them again
		compensated = s.relockAndMintBack(ctx, transfer, transfer.AmountIn)

	case domain.TransferStateSwapped, domain.TransferStateLockRequested:
		compensated = s.swapBackAndCompensate(ctx, transfer)

	case domain.TransferStateLocked, domain.TransferStateMintRequested:
		// the output escrow must be unwound before anything else
		escrow, err := s.vault.UnwindEscrow(ctx, s.bridge, transfer.LockSeq)
		if err != nil {
			if err.Code() == errors.PROOF_ALREADY_USED.Code &&
				transfer.State == domain.TransferStateMintRequested {
				// the mint landed before the deadline fired, finish forward
				if _, err := s.applyTransfer(
					ctx, transfer.RequestID, func(t *domain.Transfer) error {
						return t.CompleteMint()
					},
				); err != nil {
					log.WithError(err).Errorf(
						"failed to finalize transfer %s", transfer.RequestID,
					)
					return
				}
				s.sweeper.cancel(ctx, transfer.RequestID)
				log.Infof("transfer %s: completed during revert", transfer.RequestID)
				return
			}
			log.WithError(err).Errorf(
				"transfer %s: failed to unwind escrow %d",
				transfer.RequestID, transfer.LockSeq,
			)
		} else {
			log.Debugf(
				"transfer %s: unwound escrow %d, %d %s back in bridge account",
				transfer.RequestID, escrow.Seq, escrow.Amount, escrow.Asset,
			)
			compensated = s.swapBackAndCompensate(ctx, transfer)
		}
	}

	s.finalizeRevert(ctx, transfer, reason, compensated)
}

// swapBackAndCompensate converts the output-side amount back into the input
// asset and hands it to the trader as re-minted wrapped units. The reverse
// rate guarantees the swap back never needs more reserve than the forward
// leg deposited.
func (s *service) swapBackAndCompensate(
	ctx context.Context, transfer *domain.Transfer,
) uint64 {
	amountBack, err := s.engine.Swap(
		ctx, s.bridge, transfer.HomeToAsset, transfer.HomeFromAsset,
		transfer.AmountOut, s.bridgeAccount,
	)
	if err != nil {
		log.WithError(err).Errorf(
			"transfer %s: failed to swap back %d %s",
			transfer.RequestID, transfer.AmountOut, transfer.HomeToAsset,
		)
		return 0
	}
	return s.relockAndMintBack(ctx, transfer, amountBack)
}

// relockAndMintBack escrows amount of the input-side home asset for the
// origin domain and mints the matching wrapped units back to the trader.
func (s *service) relockAndMintBack(
	ctx context.Context, transfer *domain.Transfer, amount uint64,
) uint64 {
	if amount == 0 {
		return 0
	}

	_, receipt, err := s.vault.Lock(
		ctx, s.bridge, transfer.HomeFromAsset, amount, s.bridgeAccount,
		transfer.OriginDomain,
	)
	if err != nil {
		log.WithError(err).Errorf(
			"transfer %s: failed to re-lock %d %s",
			transfer.RequestID, amount, transfer.HomeFromAsset,
		)
		return 0
	}
	receipt.RequestID = transfer.RequestID

	return s.compensationMint(ctx, transfer, *receipt, transfer.FromAsset, amount)
}

// mintBack re-mints the input against the original burn receipt, used when
// the escrowed counterpart never left the vault.
func (s *service) mintBack(
	ctx context.Context, transfer *domain.Transfer, receipt domain.Receipt,
) uint64 {
	return s.compensationMint(ctx, transfer, receipt, transfer.FromAsset, transfer.AmountIn)
}

func (s *service) compensationMint(
	ctx context.Context, transfer *domain.Transfer, receipt domain.Receipt,
	asset domain.AssetID, amount uint64,
) uint64 {
	controller, ok := s.controllers[transfer.OriginDomain]
	if !ok {
		return 0
	}

	token, err := s.relay.Submit(ctx, receipt)
	if err != nil {
		log.WithError(err).Errorf(
			"transfer %s: failed to submit compensation proof", transfer.RequestID,
		)
		return 0
	}

	if mErr := controller.Mint(
		ctx, s.bridge, asset, transfer.Trader, amount, token,
	); mErr != nil {
		if s.consumedByUs(ctx, receipt.Domain, receipt.Nonce, transfer.RequestID, mErr) {
			return amount
		}
		log.WithError(mErr).Errorf(
			"transfer %s: failed to mint %d %s back to %s",
			transfer.RequestID, amount, asset, transfer.Trader,
		)
		return 0
	}
	return amount
}

func (s *service) finalizeRevert(
	ctx context.Context, transfer *domain.Transfer, reason string, compensated uint64,
) {
	if _, err := s.applyTransfer(ctx, transfer.RequestID, func(t *domain.Transfer) error {
		return t.Revert(reason, compensated)
	}); err != nil {
		log.WithError(err).Errorf("failed to finalize transfer %s", transfer.RequestID)
		return
	}
	s.sweeper.cancel(ctx, transfer.RequestID)
	log.Infof(
		"transfer %s: reverted, compensated %d %s to %s",
		transfer.RequestID, compensated, transfer.FromAsset, transfer.Trader,
	)
}

// consumedByUs disambiguates a replay rejection: if the proof was consumed
// under this very request id, the consuming operation already happened
// before a crash or race and the step can be treated as done.
func (s *service) consumedByUs(
	ctx context.Context, proofDomain domain.DomainID, nonce uint64, requestID string,
	cause errors.Error,
) bool {
	if cause.Code() != errors.PROOF_ALREADY_USED.Code {
		return false
	}
	consumed, err := s.repoManager.Proofs().GetConsumed(ctx, proofDomain, nonce)
	if err != nil || consumed == nil {
		return false
	}
	return consumed.RequestID == requestID
}

// applyTransfer runs a state transition against the stored transfer and
// flushes the raised events.
func (s *service) applyTransfer(
	ctx context.Context, requestID string, apply func(*domain.Transfer) error,
) (*domain.Transfer, error) {
	var updated *domain.Transfer
	var events []domain.Event
	if err := s.repoManager.Transfers().UpdateTransfer(
		ctx, requestID, func(t *domain.Transfer) (*domain.Transfer, error) {
			if err := apply(t); err != nil {
				return nil, err
			}
			events = t.PopEvents()
			updated = t
			return t, nil
		},
	); err != nil {
		return nil, err
	}
	s.saveEvents(ctx, requestID, events)
	return updated, nil
}

func (s *service) saveEvents(ctx context.Context, id string, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.repoManager.Events().Save(ctx, domain.TransferTopic, id, events); err != nil {
		log.WithError(err).Warn("failed to save transfer events")
	}
}

// syncMirrors pushes home-engine rate changes to the quote-only mirrors.
func (s *service) syncMirrors(events []domain.Event) {
	for _, event := range events {
		rateEvent, ok := event.(domain.RateUpdated)
		if !ok || rateEvent.Domain != s.homeDomain {
			continue
		}
		for _, mirror := range s.mirrors {
			if err := mirror.ApplyRates(
				s.ctx, rateEvent.ForwardRate, rateEvent.ReverseRate,
			); err != nil {
				log.WithError(err).Warnf(
					"failed to sync rates to mirror %s", mirror.Domain(),
				)
			}
		}
	}
}

func burnReceiptOf(transfer *domain.Transfer) domain.Receipt {
	return domain.Receipt{
		Kind:      domain.ReceiptKindBurn,
		Domain:    transfer.OriginDomain,
		Asset:     transfer.FromAsset,
		Amount:    transfer.AmountIn,
		Holder:    transfer.Trader,
		Nonce:     transfer.BurnNonce,
		RequestID: transfer.RequestID,
		CreatedAt: transfer.CreatedAt,
	}
}

func lockReceiptOf(
	transfer *domain.Transfer, homeDomain domain.DomainID, bridgeAccount string,
) domain.Receipt {
	return domain.Receipt{
		Kind:      domain.ReceiptKindLock,
		Domain:    homeDomain,
		Asset:     transfer.HomeToAsset,
		Amount:    transfer.AmountOut,
		Holder:    bridgeAccount,
		Nonce:     transfer.LockSeq,
		RequestID: transfer.RequestID,
		CreatedAt: transfer.CreatedAt,
	}
}
