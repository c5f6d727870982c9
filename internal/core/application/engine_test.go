package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/strait-labs/straitd/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestExchangeEngineSwap(t *testing.T) {
	ctx := context.Background()

	t.Run("moves both legs through the reserve", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.addLiquidity(t, 10_000, 10_000)
		b.ledger.Seed("tex", baseAsset, 500)

		amountOut, err := b.engine.Swap(ctx, bridgeAuth, baseAsset, counterAsset, 500, "tex")
		require.NoError(t, err)
		require.Equal(t, uint64(250), amountOut)

		view := b.ledger.View(engineAccount)
		traderBase, lErr := view.BalanceOf(ctx, baseAsset, "tex")
		require.NoError(t, lErr)
		require.Zero(t, traderBase)
		traderCounter, lErr := view.BalanceOf(ctx, counterAsset, "tex")
		require.NoError(t, lErr)
		require.Equal(t, uint64(250), traderCounter)

		reserves, err := b.engine.Reserves(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(10_500), reserves.ReserveBase)
		require.Equal(t, uint64(9_750), reserves.ReserveCounter)
	})

	t.Run("fails on reserve shortfall and returns the input", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed("tex", baseAsset, 500)

		_, err := b.engine.Swap(ctx, bridgeAuth, baseAsset, counterAsset, 500, "tex")
		require.Error(t, err)
		require.Equal(t, errors.INSUFFICIENT_RESERVE.Code, err.Code())

		balance, lErr := b.ledger.View(engineAccount).BalanceOf(ctx, baseAsset, "tex")
		require.NoError(t, lErr)
		require.Equal(t, uint64(500), balance)
	})

	t.Run("fails when the trader cannot cover the input", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.addLiquidity(t, 10_000, 10_000)

		_, err := b.engine.Swap(ctx, bridgeAuth, baseAsset, counterAsset, 500, "tex")
		require.Error(t, err)
		require.Equal(t, errors.INSUFFICIENT_BALANCE.Code, err.Code())
	})

	t.Run("rejects conversions that round down to zero", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.addLiquidity(t, 10_000, 10_000)
		b.ledger.Seed("tex", baseAsset, 1)

		_, err := b.engine.Swap(ctx, bridgeAuth, baseAsset, counterAsset, 1, "tex")
		require.Error(t, err)
		require.Equal(t, errors.INVALID_AMOUNT.Code, err.Code())
	})

	t.Run("quote only mirrors cannot swap", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		_, err := b.mirror.Swap(ctx, bridgeAuth, baseAsset, counterAsset, 500, "tex")
		require.Error(t, err)
		require.Equal(t, errors.INTERNAL_ERROR.Code, err.Code())
	})

	t.Run("requires bridge or operator authority", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		_, err := b.engine.Swap(ctx, "intruder", baseAsset, counterAsset, 500, "tex")
		require.Error(t, err)
		require.Equal(t, errors.UNAUTHORIZED.Code, err.Code())
	})
}

func TestExchangeEngineRates(t *testing.T) {
	ctx := context.Background()

	t.Run("setting a rate derives the reverse direction", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		require.NoError(t, b.engine.SetRate(ctx, operatorAuth, baseAsset, counterAsset, 4000))

		reserves, err := b.engine.Reserves(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(4000), reserves.ForwardRate)
		require.Equal(t, uint64(25_000), reserves.ReverseRate)

		// setting the reverse direction derives the forward one
		require.NoError(t, b.engine.SetRate(ctx, operatorAuth, counterAsset, baseAsset, 40_000))

		reserves, err = b.engine.Reserves(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(2500), reserves.ForwardRate)
		require.Equal(t, uint64(40_000), reserves.ReverseRate)
	})

	t.Run("requires operator authority", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		err := b.engine.SetRate(ctx, bridgeAuth, baseAsset, counterAsset, 4000)
		require.Error(t, err)
		require.Equal(t, errors.UNAUTHORIZED.Code, err.Code())
	})

	t.Run("rejects non-positive rates", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		for _, rate := range []int64{0, -1, -5000} {
			err := b.engine.SetRate(ctx, operatorAuth, baseAsset, counterAsset, rate)
			require.Error(t, err)
			require.Equal(t, errors.INVALID_RATE.Code, err.Code())
		}
	})

	t.Run("rejects assets outside the pair", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		err := b.engine.SetRate(ctx, operatorAuth, "BRIE", counterAsset, 4000)
		require.Error(t, err)
		require.Equal(t, errors.UNSUPPORTED_ASSET.Code, err.Code())
	})
}

func TestAddLiquidity(t *testing.T) {
	ctx := context.Background()

	t.Run("tops up both reserves", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed(liquidityAccount, baseAsset, 1000)
		b.ledger.Seed(liquidityAccount, counterAsset, 2000)

		require.NoError(t, b.engine.AddLiquidity(ctx, operatorAuth, 1000, 2000, liquidityAccount))

		reserves, err := b.engine.Reserves(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1000), reserves.ReserveBase)
		require.Equal(t, uint64(2000), reserves.ReserveCounter)
	})

	t.Run("rolls back the base leg when the counter leg fails", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)
		b.ledger.Seed(liquidityAccount, baseAsset, 1000)

		err := b.engine.AddLiquidity(ctx, operatorAuth, 1000, 2000, liquidityAccount)
		require.Error(t, err)
		require.Equal(t, errors.INSUFFICIENT_BALANCE.Code, err.Code())

		balance, lErr := b.ledger.View(engineAccount).BalanceOf(ctx, baseAsset, liquidityAccount)
		require.NoError(t, lErr)
		require.Equal(t, uint64(1000), balance)

		reserves, rErr := b.engine.Reserves(ctx)
		require.NoError(t, rErr)
		require.Zero(t, reserves.ReserveBase)
		require.Zero(t, reserves.ReserveCounter)
	})

	t.Run("requires operator authority", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		err := b.engine.AddLiquidity(ctx, bridgeAuth, 1000, 2000, liquidityAccount)
		require.Error(t, err)
		require.Equal(t, errors.UNAUTHORIZED.Code, err.Code())
	})

	t.Run("rejects an empty top up", func(t *testing.T) {
		b := newTestBridge(t, nil, time.Minute)
		b.setupMarket(t)

		err := b.engine.AddLiquidity(ctx, operatorAuth, 0, 0, liquidityAccount)
		require.Error(t, err)
		require.Equal(t, errors.INVALID_AMOUNT.Code, err.Code())
	})
}

func TestEngineBootstrap(t *testing.T) {
	ctx := context.Background()

	b := newTestBridge(t, nil, time.Minute)

	// the fixture already bootstrapped the pair, different parameters must
	// not overwrite it
	require.NoError(t, b.engine.Bootstrap(ctx, baseAsset, counterAsset, 9999))

	reserves, err := b.engine.Reserves(ctx)
	require.NoError(t, err)
	require.Equal(t, forwardRate, reserves.ForwardRate)
	require.Equal(t, uint64(20_000), reserves.ReverseRate)
	require.Equal(t, baseAsset, reserves.Base)
	require.Equal(t, counterAsset, reserves.Counter)
}
