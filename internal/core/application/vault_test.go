package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCustodyVaultLock(t *testing.T) {
	ctx := context.Background()

	t.Run("sequences escrows and mirrors them in receipts", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed("alice", baseAsset, 800)

		escrow, receipt, err := b.vault.Lock(
			ctx, bridgeAuth, baseAsset, 500, "alice", remoteDomain,
		)
		require.NoError(t, err)
		require.Equal(t, uint64(1), escrow.Seq)
		require.Equal(t, domain.ReceiptKindLock, receipt.Kind)
		require.Equal(t, homeDomain, receipt.Domain)
		require.Equal(t, baseAsset, receipt.Asset)
		require.Equal(t, uint64(500), receipt.Amount)
		require.Equal(t, "alice", receipt.Holder)
		require.Equal(t, escrow.Seq, receipt.Nonce)

		escrow, _, err = b.vault.Lock(ctx, bridgeAuth, baseAsset, 300, "alice", remoteDomain)
		require.NoError(t, err)
		require.Equal(t, uint64(2), escrow.Seq)

		escrowed, err := b.vault.GetEscrowedAmount(ctx, baseAsset, remoteDomain)
		require.NoError(t, err)
		require.Equal(t, uint64(800), escrowed)

		held, lErr := b.ledger.View(vaultAccount).Balance(ctx, baseAsset)
		require.NoError(t, lErr)
		require.Equal(t, uint64(800), held)
	})

	t.Run("requires bridge authority", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		_, _, err := b.vault.Lock(ctx, operatorAuth, baseAsset, 500, "alice", remoteDomain)
		require.Error(t, err)
		require.Equal(t, errors.UNAUTHORIZED.Code, err.Code())
	})

	t.Run("rejects assets outside the custody set", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed("alice", "BRIE", 500)

		_, _, err := b.vault.Lock(ctx, bridgeAuth, "BRIE", 500, "alice", remoteDomain)
		require.Error(t, err)
		require.Equal(t, errors.UNSUPPORTED_ASSET.Code, err.Code())
	})

	t.Run("rejects zero amounts", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		_, _, err := b.vault.Lock(ctx, bridgeAuth, baseAsset, 0, "alice", remoteDomain)
		require.Error(t, err)
		require.Equal(t, errors.INVALID_AMOUNT.Code, err.Code())
	})

	t.Run("fails when the holder cannot cover the lock", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed("alice", baseAsset, 100)

		_, _, err := b.vault.Lock(ctx, bridgeAuth, baseAsset, 500, "alice", remoteDomain)
		require.Error(t, err)
		require.Equal(t, errors.INSUFFICIENT_BALANCE.Code, err.Code())

		balance, lErr := b.ledger.View(vaultAccount).BalanceOf(ctx, baseAsset, "alice")
		require.NoError(t, lErr)
		require.Equal(t, uint64(100), balance)
	})
}

func TestCustodyVaultRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("pays out against a burn proof and consumes it", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.deposit(t, "alice", baseAsset, b.wrappedBase, 1000)

		receipt, err := b.controller.Burn(ctx, bridgeAuth, b.wrappedBase, "alice", 400)
		require.NoError(t, err)
		token, sErr := b.relay.Submit(ctx, *receipt)
		require.NoError(t, sErr)

		require.NoError(t, b.vault.Release(
			ctx, bridgeAuth, baseAsset, 400, "bob", remoteDomain, token,
		))

		escrowed, err := b.vault.GetEscrowedAmount(ctx, baseAsset, remoteDomain)
		require.NoError(t, err)
		require.Equal(t, uint64(600), escrowed)

		balance, lErr := b.ledger.View(vaultAccount).BalanceOf(ctx, baseAsset, "bob")
		require.NoError(t, lErr)
		require.Equal(t, uint64(400), balance)

		// replaying the same proof fails even though the escrow still covers it
		rErr := b.vault.Release(ctx, bridgeAuth, baseAsset, 400, "bob", remoteDomain, token)
		require.Error(t, rErr)
		require.Equal(t, errors.PROOF_ALREADY_USED.Code, rErr.Code())

		balance, lErr = b.ledger.View(vaultAccount).BalanceOf(ctx, baseAsset, "bob")
		require.NoError(t, lErr)
		require.Equal(t, uint64(400), balance)
	})

	t.Run("rejects a lock receipt where a burn is required", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed("carol", baseAsset, 500)

		_, receipt, err := b.vault.Lock(ctx, bridgeAuth, baseAsset, 500, "carol", remoteDomain)
		require.NoError(t, err)
		token, sErr := b.relay.Submit(ctx, *receipt)
		require.NoError(t, sErr)

		rErr := b.vault.Release(ctx, bridgeAuth, baseAsset, 500, "carol", homeDomain, token)
		require.Error(t, rErr)
		require.Equal(t, errors.PROOF_INVALID.Code, rErr.Code())
	})

	t.Run("rejects mismatched amount or origin", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.deposit(t, "alice", baseAsset, b.wrappedBase, 1000)

		receipt, err := b.controller.Burn(ctx, bridgeAuth, b.wrappedBase, "alice", 400)
		require.NoError(t, err)
		token, sErr := b.relay.Submit(ctx, *receipt)
		require.NoError(t, sErr)

		// claim more than the receipt attests
		rErr := b.vault.Release(ctx, bridgeAuth, baseAsset, 500, "alice", remoteDomain, token)
		require.Error(t, rErr)
		require.Equal(t, errors.PROOF_INVALID.Code, rErr.Code())

		// claim the burn happened on the wrong domain
		rErr = b.vault.Release(ctx, bridgeAuth, baseAsset, 400, "alice", homeDomain, token)
		require.Error(t, rErr)
		require.Equal(t, errors.PROOF_INVALID.Code, rErr.Code())

		escrowed, err := b.vault.GetEscrowedAmount(ctx, baseAsset, remoteDomain)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), escrowed)
	})

	t.Run("rejects a release exceeding the escrow", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.deposit(t, "alice", baseAsset, b.wrappedBase, 500)

		// the relay signs whatever the bridge hands it, a receipt over amounts
		// that were never locked must still be stopped by the escrow check
		forged := domain.Receipt{
			Kind:      domain.ReceiptKindBurn,
			Domain:    remoteDomain,
			Asset:     b.wrappedBase,
			Amount:    600,
			Holder:    "alice",
			Nonce:     999,
			CreatedAt: time.Now().Unix(),
		}
		token, sErr := b.relay.Submit(ctx, forged)
		require.NoError(t, sErr)

		rErr := b.vault.Release(ctx, bridgeAuth, baseAsset, 600, "alice", remoteDomain, token)
		require.Error(t, rErr)
		require.Equal(t, errors.CONSERVATION_VIOLATION.Code, rErr.Code())

		// the rejected proof was not consumed
		consumed, pErr := b.repoManager.Proofs().IsConsumed(ctx, remoteDomain, 999)
		require.NoError(t, pErr)
		require.False(t, consumed)
	})

	t.Run("rejects forged or damaged tokens", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.deposit(t, "alice", baseAsset, b.wrappedBase, 500)

		rErr := b.vault.Release(
			ctx, bridgeAuth, baseAsset, 500, "alice", remoteDomain, "not-a-token",
		)
		require.Error(t, rErr)
		require.Equal(t, errors.PROOF_INVALID.Code, rErr.Code())

		receipt, err := b.controller.Burn(ctx, bridgeAuth, b.wrappedBase, "alice", 400)
		require.NoError(t, err)
		token, sErr := b.relay.Submit(ctx, *receipt)
		require.NoError(t, sErr)

		rErr = b.vault.Release(
			ctx, bridgeAuth, baseAsset, 400, "alice", remoteDomain, token+"x",
		)
		require.Error(t, rErr)
		require.Equal(t, errors.PROOF_INVALID.Code, rErr.Code())
	})
}

func TestCustodyVaultUnwind(t *testing.T) {
	ctx := context.Background()

	t.Run("returns escrowed funds to the holder", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed("dave", baseAsset, 500)

		escrow, _, err := b.vault.Lock(ctx, bridgeAuth, baseAsset, 500, "dave", remoteDomain)
		require.NoError(t, err)

		unwound, err := b.vault.UnwindEscrow(ctx, bridgeAuth, escrow.Seq)
		require.NoError(t, err)
		require.Equal(t, uint64(500), unwound.Amount)
		require.Equal(t, "dave", unwound.Holder)

		escrowed, err := b.vault.GetEscrowedAmount(ctx, baseAsset, remoteDomain)
		require.NoError(t, err)
		require.Zero(t, escrowed)

		balance, lErr := b.ledger.View(vaultAccount).BalanceOf(ctx, baseAsset, "dave")
		require.NoError(t, lErr)
		require.Equal(t, uint64(500), balance)

		// a second unwind of the same escrow hits the consumed nonce
		_, err = b.vault.UnwindEscrow(ctx, bridgeAuth, escrow.Seq)
		require.Error(t, err)
		require.Equal(t, errors.PROOF_ALREADY_USED.Code, err.Code())
	})

	t.Run("a late mint against an unwound lock is rejected", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.deposit(t, "alice", baseAsset, b.wrappedBase, 500)
		b.ledger.Seed("dave", baseAsset, 300)
		b.ledger.Seed("carol", baseAsset, 400)

		escrow, receipt, err := b.vault.Lock(ctx, bridgeAuth, baseAsset, 300, "dave", remoteDomain)
		require.NoError(t, err)
		token, sErr := b.relay.Submit(ctx, *receipt)
		require.NoError(t, sErr)

		// an unrelated lock keeps the escrow total above the supply, so only
		// the consumed nonce can stop the late mint
		_, _, err = b.vault.Lock(ctx, bridgeAuth, baseAsset, 400, "carol", remoteDomain)
		require.NoError(t, err)

		_, err = b.vault.UnwindEscrow(ctx, bridgeAuth, escrow.Seq)
		require.NoError(t, err)

		mErr := b.controller.Mint(ctx, bridgeAuth, b.wrappedBase, "dave", 300, token)
		require.Error(t, mErr)
		require.Equal(t, errors.PROOF_ALREADY_USED.Code, mErr.Code())

		supply, cErr := b.controller.Supply(ctx, b.wrappedBase)
		require.NoError(t, cErr)
		require.Equal(t, uint64(500), supply)
	})

	t.Run("an unknown sequence does not burn the nonce", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		_, err := b.vault.UnwindEscrow(ctx, bridgeAuth, 999)
		require.Error(t, err)
		require.Equal(t, errors.PROOF_INVALID.Code, err.Code())

		consumed, pErr := b.repoManager.Proofs().IsConsumed(ctx, homeDomain, 999)
		require.NoError(t, pErr)
		require.False(t, consumed)
	})

	t.Run("requires bridge authority", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		_, err := b.vault.UnwindEscrow(ctx, operatorAuth, 1)
		require.Error(t, err)
		require.Equal(t, errors.UNAUTHORIZED.Code, err.Code())
	})
}

func TestVerifyCustody(t *testing.T) {
	ctx := context.Background()

	t.Run("reports the tracked custody balances", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.deposit(t, "alice", baseAsset, b.wrappedBase, 500)

		balances, err := b.vault.VerifyCustody(ctx)
		require.NoError(t, err)
		require.Len(t, balances, 1)
		require.Equal(t, baseAsset, balances[0].Asset)
		require.Equal(t, remoteDomain, balances[0].Domain)
		require.Equal(t, uint64(500), balances[0].Escrowed)
	})

	t.Run("detects a vault shortfall", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.deposit(t, "alice", baseAsset, b.wrappedBase, 500)

		// drain part of the vault account behind the custody tracker's back
		require.NoError(t, b.ledger.View(vaultAccount).TransferOut(ctx, baseAsset, 100, "thief"))

		_, err := b.vault.VerifyCustody(ctx)
		require.Error(t, err)
		require.Equal(t, errors.CONSERVATION_VIOLATION.Code, err.Code())

		// the audit surfaces the same shortfall
		_, aErr := b.admin.AuditConservation(ctx)
		require.Error(t, aErr)
		require.Equal(t, errors.CONSERVATION_VIOLATION.Code, aErr.Code())
	})
}
