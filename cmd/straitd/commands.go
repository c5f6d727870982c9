package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"
)

var commands = []*cli.Command{
	infoCmd,
	quoteCmd,
	swapCmd,
	transferCmd,
	transfersCmd,
	balanceCmd,
	reservesCmd,
	mappingsCmd,
	supplyCmd,
	adminCmd,
}

var (
	infoCmd = &cli.Command{
		Name:   "info",
		Usage:  "print info about the running daemon",
		Flags:  []cli.Flag{urlFlag},
		Action: infoAction,
	}
	quoteCmd = &cli.Command{
		Name:  "quote",
		Usage: "quote a swap without executing it",
		Flags: []cli.Flag{
			urlFlag, domainFlag(true), fromAssetFlag, toAssetFlag, amountFlag,
		},
		Action: quoteAction,
	}
	swapCmd = &cli.Command{
		Name:  "swap",
		Usage: "submit a cross-domain swap request",
		Flags: []cli.Flag{
			urlFlag, domainFlag(true), traderFlag, fromAssetFlag, toAssetFlag, amountFlag,
		},
		Action: swapAction,
	}
	transferCmd = &cli.Command{
		Name:   "transfer",
		Usage:  "get a transfer by request id",
		Flags:  []cli.Flag{urlFlag, requestIdFlag},
		Action: transferAction,
	}
	transfersCmd = &cli.Command{
		Name:   "transfers",
		Usage:  "list transfers",
		Flags:  []cli.Flag{urlFlag, afterFlag, beforeFlag},
		Action: transfersAction,
	}
	balanceCmd = &cli.Command{
		Name:   "balance",
		Usage:  "get the wrapped balance of a holder",
		Flags:  []cli.Flag{urlFlag, domainFlag(true), assetFlag, holderFlag},
		Action: balanceAction,
	}
	reservesCmd = &cli.Command{
		Name:   "reserves",
		Usage:  "print the exchange pair and its reserves",
		Flags:  []cli.Flag{urlFlag},
		Action: reservesAction,
	}
	mappingsCmd = &cli.Command{
		Name:   "mappings",
		Usage:  "list registered asset mappings",
		Flags:  []cli.Flag{urlFlag, domainFlag(false)},
		Action: mappingsAction,
	}
	supplyCmd = &cli.Command{
		Name:   "supply",
		Usage:  "get the wrapped supply of an asset",
		Flags:  []cli.Flag{urlFlag, domainFlag(true), assetFlag},
		Action: supplyAction,
	}
	adminCmd = &cli.Command{
		Name:  "admin",
		Usage: "operator commands, require --token",
		Subcommands: []*cli.Command{
			registerMappingCmd,
			addAssetCmd,
			removeAssetCmd,
			setRateCmd,
			addLiquidityCmd,
			auditCmd,
			resumeMintingCmd,
		},
	}

	registerMappingCmd = &cli.Command{
		Name:  "register-mapping",
		Usage: "register a wrapped asset mapping on a remote domain",
		Flags: []cli.Flag{
			urlFlag, tokenFlag, homeAssetFlag, domainFlag(true), displayNameFlag,
		},
		Action: registerMappingAction,
	}
	addAssetCmd = &cli.Command{
		Name:   "add-asset",
		Usage:  "add an asset to the supported set",
		Flags:  []cli.Flag{urlFlag, tokenFlag, assetFlag},
		Action: addAssetAction,
	}
	removeAssetCmd = &cli.Command{
		Name:   "remove-asset",
		Usage:  "remove an asset from the supported set",
		Flags:  []cli.Flag{urlFlag, tokenFlag, assetFlag},
		Action: removeAssetAction,
	}
	setRateCmd = &cli.Command{
		Name:   "set-rate",
		Usage:  "update the exchange rate of a pair",
		Flags:  []cli.Flag{urlFlag, tokenFlag, fromAssetFlag, toAssetFlag, rateFlag},
		Action: setRateAction,
	}
	addLiquidityCmd = &cli.Command{
		Name:  "add-liquidity",
		Usage: "move funds from a ledger account into the exchange reserves",
		Flags: []cli.Flag{
			urlFlag, tokenFlag, amountBaseFlag, amountCounterFlag, fromHolderFlag,
		},
		Action: addLiquidityAction,
	}
	auditCmd = &cli.Command{
		Name:   "audit",
		Usage:  "run a conservation audit, halting assets found in violation",
		Flags:  []cli.Flag{urlFlag, tokenFlag},
		Action: auditAction,
	}
	resumeMintingCmd = &cli.Command{
		Name:   "resume-minting",
		Usage:  "lift the halt on a wrapped asset",
		Flags:  []cli.Flag{urlFlag, tokenFlag, domainFlag(true), assetFlag},
		Action: resumeMintingAction,
	}
)

func infoAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/info", ctx.String(urlFlagName))
	info, err := get[serviceInfo](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(info)
	return nil
}

func quoteAction(ctx *cli.Context) error {
	qs := url.Values{}
	qs.Set("domain", ctx.String(domainFlagName))
	qs.Set("from_asset", ctx.String(fromAssetFlagName))
	qs.Set("to_asset", ctx.String(toAssetFlagName))
	qs.Set("amount_in", strconv.FormatUint(ctx.Uint64(amountFlagName), 10))
	reqURL := fmt.Sprintf("%s/v1/quote?%s", ctx.String(urlFlagName), qs.Encode())
	res, err := get[quote](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func swapAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/swaps", ctx.String(urlFlagName))
	body := fmt.Sprintf(
		`{"origin_domain":%q,"trader":%q,"from_asset":%q,"to_asset":%q,"amount_in":%d}`,
		ctx.String(domainFlagName), ctx.String(traderFlagName),
		ctx.String(fromAssetFlagName), ctx.String(toAssetFlagName),
		ctx.Uint64(amountFlagName),
	)
	receipt, err := post[swapReceipt](reqURL, body, "")
	if err != nil {
		return err
	}
	fmt.Println(receipt)
	return nil
}

func transferAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf(
		"%s/v1/swaps/%s",
		ctx.String(urlFlagName), url.PathEscape(ctx.String(requestIdFlagName)),
	)
	res, err := get[transfer](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func transfersAction(ctx *cli.Context) error {
	qs := url.Values{}
	if after := ctx.Int64(afterFlagName); after > 0 {
		qs.Set("after", strconv.FormatInt(after, 10))
	}
	if before := ctx.Int64(beforeFlagName); before > 0 {
		qs.Set("before", strconv.FormatInt(before, 10))
	}
	reqURL := fmt.Sprintf("%s/v1/swaps", ctx.String(urlFlagName))
	if len(qs) > 0 {
		reqURL += "?" + qs.Encode()
	}
	res, err := get[transferList](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func balanceAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf(
		"%s/v1/balances/%s/%s/%s",
		ctx.String(urlFlagName),
		url.PathEscape(ctx.String(domainFlagName)),
		url.PathEscape(ctx.String(assetFlagName)),
		url.PathEscape(ctx.String(holderFlagName)),
	)
	res, err := get[wrappedBalance](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func reservesAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/reserves", ctx.String(urlFlagName))
	res, err := get[reserves](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func mappingsAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/mappings", ctx.String(urlFlagName))
	if remoteDomain := ctx.String(domainFlagName); remoteDomain != "" {
		reqURL += "?domain=" + url.QueryEscape(remoteDomain)
	}
	res, err := get[mappingList](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func supplyAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf(
		"%s/v1/supply/%s/%s",
		ctx.String(urlFlagName),
		url.PathEscape(ctx.String(domainFlagName)),
		url.PathEscape(ctx.String(assetFlagName)),
	)
	res, err := get[supply](reqURL)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func registerMappingAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/admin/mappings", ctx.String(urlFlagName))
	body := fmt.Sprintf(
		`{"home_asset":%q,"remote_domain":%q,"display_name":%q}`,
		ctx.String(homeAssetFlagName), ctx.String(domainFlagName),
		ctx.String(displayNameFlagName),
	)
	res, err := post[registeredMapping](reqURL, body, ctx.String(tokenFlagName))
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func addAssetAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/admin/assets", ctx.String(urlFlagName))
	body := fmt.Sprintf(`{"asset":%q}`, ctx.String(assetFlagName))
	if _, err := post[struct{}](reqURL, body, ctx.String(tokenFlagName)); err != nil {
		return err
	}
	fmt.Println("asset added")
	return nil
}

func removeAssetAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf(
		"%s/v1/admin/assets/%s",
		ctx.String(urlFlagName), url.PathEscape(ctx.String(assetFlagName)),
	)
	if err := del(reqURL, ctx.String(tokenFlagName)); err != nil {
		return err
	}
	fmt.Println("asset removed")
	return nil
}

func setRateAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/admin/rate", ctx.String(urlFlagName))
	body := fmt.Sprintf(
		`{"from_asset":%q,"to_asset":%q,"rate":%q}`,
		ctx.String(fromAssetFlagName), ctx.String(toAssetFlagName),
		ctx.String(rateFlagName),
	)
	if _, err := post[struct{}](reqURL, body, ctx.String(tokenFlagName)); err != nil {
		return err
	}
	fmt.Println("rate updated")
	return nil
}

func addLiquidityAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/admin/liquidity", ctx.String(urlFlagName))
	body := fmt.Sprintf(
		`{"amount_base":%d,"amount_counter":%d,"from_holder":%q}`,
		ctx.Uint64(amountBaseFlagName), ctx.Uint64(amountCounterFlagName),
		ctx.String(fromHolderFlagName),
	)
	if _, err := post[struct{}](reqURL, body, ctx.String(tokenFlagName)); err != nil {
		return err
	}
	fmt.Println("liquidity added")
	return nil
}

func auditAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/admin/audit", ctx.String(urlFlagName))
	report, err := post[auditReport](reqURL, "", ctx.String(tokenFlagName))
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

func resumeMintingAction(ctx *cli.Context) error {
	reqURL := fmt.Sprintf("%s/v1/admin/resume-minting", ctx.String(urlFlagName))
	body := fmt.Sprintf(
		`{"origin_domain":%q,"asset":%q}`,
		ctx.String(domainFlagName), ctx.String(assetFlagName),
	)
	if _, err := post[struct{}](reqURL, body, ctx.String(tokenFlagName)); err != nil {
		return err
	}
	fmt.Println("minting resumed")
	return nil
}
