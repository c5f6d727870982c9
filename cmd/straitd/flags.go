package main

import (
	"fmt"

	"github.com/strait-labs/straitd/internal/config"
	"github.com/urfave/cli/v2"
)

const (
	urlFlagName           = "url"
	tokenFlagName         = "token"
	assetFlagName         = "asset"
	homeAssetFlagName     = "home-asset"
	fromAssetFlagName     = "from-asset"
	toAssetFlagName       = "to-asset"
	domainFlagName        = "domain"
	displayNameFlagName   = "display-name"
	rateFlagName          = "rate"
	amountFlagName        = "amount"
	amountBaseFlagName    = "amount-base"
	amountCounterFlagName = "amount-counter"
	fromHolderFlagName    = "from-holder"
	holderFlagName        = "holder"
	traderFlagName        = "trader"
	requestIdFlagName     = "id"
	afterFlagName         = "after"
	beforeFlagName        = "before"
)

var (
	urlFlag = &cli.StringFlag{
		Name:  urlFlagName,
		Usage: "the url where to reach straitd",
		Value: fmt.Sprintf("http://127.0.0.1:%d", config.DefaultPort),
	}
	tokenFlag = &cli.StringFlag{
		Name:    tokenFlagName,
		Usage:   "operator token used for authenticated requests",
		EnvVars: []string{"STRAITD_OPERATOR_TOKEN"},
	}
	assetFlag = &cli.StringFlag{
		Name:     assetFlagName,
		Usage:    "asset identifier",
		Required: true,
	}
	homeAssetFlag = &cli.StringFlag{
		Name:     homeAssetFlagName,
		Usage:    "home domain asset to mirror on the remote domain",
		Required: true,
	}
	fromAssetFlag = &cli.StringFlag{
		Name:     fromAssetFlagName,
		Usage:    "asset given in",
		Required: true,
	}
	toAssetFlag = &cli.StringFlag{
		Name:     toAssetFlagName,
		Usage:    "asset taken out",
		Required: true,
	}
	domainFlag = func(required bool) *cli.StringFlag {
		return &cli.StringFlag{
			Name:     domainFlagName,
			Usage:    "domain identifier",
			Required: required,
		}
	}
	displayNameFlag = &cli.StringFlag{
		Name:  displayNameFlagName,
		Usage: "human readable name for the wrapped asset",
	}
	rateFlag = &cli.StringFlag{
		Name:     rateFlagName,
		Usage:    "exchange rate as a decimal, e.g. 0.5",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:     amountFlagName,
		Usage:    "amount in base units",
		Required: true,
	}
	amountBaseFlag = &cli.Uint64Flag{
		Name:     amountBaseFlagName,
		Usage:    "base asset amount to add to the reserves",
		Required: true,
	}
	amountCounterFlag = &cli.Uint64Flag{
		Name:     amountCounterFlagName,
		Usage:    "counter asset amount to add to the reserves",
		Required: true,
	}
	fromHolderFlag = &cli.StringFlag{
		Name:     fromHolderFlagName,
		Usage:    "ledger account the liquidity is drawn from",
		Required: true,
	}
	holderFlag = &cli.StringFlag{
		Name:     holderFlagName,
		Usage:    "holder identifier",
		Required: true,
	}
	traderFlag = &cli.StringFlag{
		Name:     traderFlagName,
		Usage:    "trader submitting the swap",
		Required: true,
	}
	requestIdFlag = &cli.StringFlag{
		Name:     requestIdFlagName,
		Usage:    "id of the transfer request",
		Required: true,
	}
	afterFlag = &cli.Int64Flag{
		Name:  afterFlagName,
		Usage: "only list transfers created after this unix timestamp",
	}
	beforeFlag = &cli.Int64Flag{
		Name:  beforeFlagName,
		Usage: "only list transfers created before this unix timestamp",
	}
)
