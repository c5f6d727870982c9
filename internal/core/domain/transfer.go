package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrTransferNotFound = errors.New("transfer not found")

type TransferState uint8

const (
	TransferStateInitiated TransferState = iota
	TransferStateBurned
	TransferStateReleaseRequested
	TransferStateReleased
	TransferStateSwapped
	TransferStateLockRequested
	TransferStateLocked
	TransferStateMintRequested
	TransferStateCompleted
	TransferStateReverted
)

func (s TransferState) String() string {
	states := []string{
		"initiated",
		"burned",
		"release_requested",
		"released",
		"swapped",
		"lock_requested",
		"locked",
		"mint_requested",
		"completed",
		"reverted",
	}
	if int(s) >= len(states) {
		return "unknown"
	}
	return states[s]
}

// IsFinal reports whether the state accepts no further transitions.
func (s TransferState) IsFinal() bool {
	return s == TransferStateCompleted || s == TransferStateReverted
}

// Transfer is the cross-domain swap saga. It progresses strictly forward
// through the lifecycle states and ends in either Completed or Reverted,
// every transition appends an event that is flushed on persist.
type Transfer struct {
	RequestID         string
	OriginDomain      DomainID
	Trader            string
	FromAsset         AssetID
	ToAsset           AssetID
	HomeFromAsset     AssetID
	HomeToAsset       AssetID
	AmountIn          uint64
	AmountOut         uint64
	State             TransferState
	BurnNonce         uint64
	BurnProof         string
	LockSeq           uint64
	MintProof         string
	FailureReason     string
	CompensatedAmount uint64
	CreatedAt         int64
	UpdatedAt         int64

	changes []Event
}

func NewTransfer(
	requestID string, origin DomainID, trader string,
	fromAsset, toAsset, homeFromAsset, homeToAsset AssetID, amountIn uint64,
) *Transfer {
	now := time.Now().Unix()
	transfer := &Transfer{
		RequestID:     requestID,
		OriginDomain:  origin,
		Trader:        trader,
		FromAsset:     fromAsset,
		ToAsset:       toAsset,
		HomeFromAsset: homeFromAsset,
		HomeToAsset:   homeToAsset,
		AmountIn:      amountIn,
		State:         TransferStateInitiated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	transfer.raise(TransferInitiated{
		Type:          EventTypeTransferInitiated,
		Id:            requestID,
		OriginDomain:  origin,
		Trader:        trader,
		FromAsset:     fromAsset,
		ToAsset:       toAsset,
		HomeFromAsset: homeFromAsset,
		HomeToAsset:   homeToAsset,
		AmountIn:      amountIn,
		Timestamp:     now,
	})
	return transfer
}

// BurnInput records that the trader's wrapped input was burned on the origin
// domain under the given nonce.
func (t *Transfer) BurnInput(nonce uint64) error {
	if err := t.ensureState(TransferStateInitiated); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateBurned
	t.BurnNonce = nonce
	t.raise(InputBurned{
		Type:      EventTypeInputBurned,
		Id:        t.RequestID,
		Domain:    t.OriginDomain,
		Asset:     t.FromAsset,
		Amount:    t.AmountIn,
		Nonce:     nonce,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// RequestRelease records that the burn proof was submitted to the relay.
func (t *Transfer) RequestRelease(burnProof string) error {
	if err := t.ensureState(TransferStateBurned); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateReleaseRequested
	t.BurnProof = burnProof
	t.raise(ReleaseRequested{
		Type:      EventTypeReleaseRequested,
		Id:        t.RequestID,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// ReleaseInput records that the vault released the escrowed home counterpart
// of the burned input.
func (t *Transfer) ReleaseInput() error {
	if err := t.ensureState(TransferStateReleaseRequested); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateReleased
	t.raise(InputReleased{
		Type:      EventTypeInputReleased,
		Id:        t.RequestID,
		Asset:     t.HomeFromAsset,
		Amount:    t.AmountIn,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// SwapOutput records the home-domain exchange of the released input into
// amountOut units of the output asset.
func (t *Transfer) SwapOutput(amountOut uint64) error {
	if err := t.ensureState(TransferStateReleased); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateSwapped
	t.AmountOut = amountOut
	t.raise(OutputSwapped{
		Type:      EventTypeOutputSwapped,
		Id:        t.RequestID,
		FromAsset: t.HomeFromAsset,
		ToAsset:   t.HomeToAsset,
		AmountIn:  t.AmountIn,
		AmountOut: amountOut,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// RequestLock records that the output escrow was requested from the vault.
func (t *Transfer) RequestLock() error {
	if err := t.ensureState(TransferStateSwapped); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateLockRequested
	t.raise(LockRequested{
		Type:      EventTypeLockRequested,
		Id:        t.RequestID,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// LockOutput records the escrow of the swapped output under the given
// sequence number.
func (t *Transfer) LockOutput(seq uint64) error {
	if err := t.ensureState(TransferStateLockRequested); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateLocked
	t.LockSeq = seq
	t.raise(OutputLocked{
		Type:      EventTypeOutputLocked,
		Id:        t.RequestID,
		Seq:       seq,
		Asset:     t.HomeToAsset,
		Amount:    t.AmountOut,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// RequestMint records that the lock proof was submitted to the relay.
func (t *Transfer) RequestMint(mintProof string) error {
	if err := t.ensureState(TransferStateLocked); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateMintRequested
	t.MintProof = mintProof
	t.raise(MintRequested{
		Type:      EventTypeMintRequested,
		Id:        t.RequestID,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// CompleteMint records the mint of the wrapped output to the trader and
// finalizes the transfer.
func (t *Transfer) CompleteMint() error {
	if err := t.ensureState(TransferStateMintRequested); err != nil {
		return err
	}
	t.touch()
	t.State = TransferStateCompleted
	t.raise(OutputMinted{
		Type:      EventTypeOutputMinted,
		Id:        t.RequestID,
		Domain:    t.OriginDomain,
		Asset:     t.ToAsset,
		Amount:    t.AmountOut,
		Holder:    t.Trader,
		Timestamp: t.UpdatedAt,
	})
	return nil
}

// Revert finalizes the transfer after a failure, recording the state it
// failed in and the amount handed back to the trader by compensation.
func (t *Transfer) Revert(reason string, compensatedAmount uint64) error {
	if t.State.IsFinal() {
		return fmt.Errorf("transfer %s already finalized in state %s", t.RequestID, t.State)
	}
	failedState := t.State
	t.State = TransferStateReverted
	t.FailureReason = reason
	t.CompensatedAmount = compensatedAmount
	t.touch()
	t.changes = append(t.changes, TransferReverted{
		Type:              EventTypeTransferReverted,
		Id:                t.RequestID,
		Reason:            reason,
		FailedState:       failedState,
		CompensatedAmount: compensatedAmount,
		Timestamp:         t.UpdatedAt,
	})
	return nil
}

func (t *Transfer) IsFinal() bool {
	return t.State.IsFinal()
}

// Deadline returns the unix time at which the transfer times out.
func (t *Transfer) Deadline(timeout time.Duration) int64 {
	return t.CreatedAt + int64(timeout.Seconds())
}

// PopEvents returns the uncommitted events raised since the last call and
// clears them.
func (t *Transfer) PopEvents() []Event {
	events := t.changes
	t.changes = nil
	return events
}

func (t *Transfer) ensureState(expected TransferState) error {
	if t.State != expected {
		return fmt.Errorf(
			"transfer %s in state %s, expected %s", t.RequestID, t.State, expected,
		)
	}
	return nil
}

func (t *Transfer) raise(event Event) {
	t.changes = append(t.changes, event)
}

func (t *Transfer) touch() {
	t.UpdatedAt = time.Now().Unix()
}
