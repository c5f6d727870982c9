package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/strait-labs/straitd/internal/core/application"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
	"github.com/strait-labs/straitd/internal/infrastructure/db"
	inmemoryledger "github.com/strait-labs/straitd/internal/infrastructure/ledger/inmemory"
	inmemorylivestore "github.com/strait-labs/straitd/internal/infrastructure/live-store/inmemory"
	localrelay "github.com/strait-labs/straitd/internal/infrastructure/relay/local"
	timescheduler "github.com/strait-labs/straitd/internal/infrastructure/scheduler/gocron"
	"github.com/strait-labs/straitd/internal/interface/http/handlers"
)

// The suite runs the whole stack in process: badger on a temp dir, the
// watermill event bus, the gocron scheduler, the HMAC proof relay and the
// in-process ledger, all driven through the REST handlers over the wire.

const (
	homeDomain   = domain.DomainID("HUB")
	remoteDomain = domain.DomainID("L2A")

	baseAsset    = domain.AssetID("CHEESE")
	counterAsset = domain.AssetID("SLOTH")

	operatorToken = "operator-secret"
	bridgeToken   = "bridge-secret"

	bridgeAccount    = "bridge"
	vaultAccount     = "vault"
	engineAccount    = "engine"
	liquidityAccount = "lp"

	forwardRate = uint64(5000)

	settleWait = 5 * time.Second
	settleTick = 25 * time.Millisecond
)

type daemon struct {
	server     *httptest.Server
	ledger     *inmemoryledger.Ledger
	vault      *application.CustodyVault
	controller *application.WrappedAssetController
	relay      ports.ProofRelay
}

func startDaemon(t *testing.T) *daemon {
	t.Helper()
	ctx := context.Background()

	operator := domain.Authority(operatorToken)
	bridge := domain.Authority(bridgeToken)

	relay, err := localrelay.NewProofRelay([]byte("e2e-relay-key"))
	require.NoError(t, err)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "watermill",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{pubSub},
		DataStoreConfig:  []interface{}{t.TempDir(), nil},
	})
	require.NoError(t, err)

	ledger := inmemoryledger.NewLedger()
	liveStore := inmemorylivestore.NewLiveStore()

	registry := application.NewAssetRegistry(
		homeDomain, []domain.DomainID{remoteDomain}, repoManager, operator,
	)
	vault := application.NewCustodyVault(
		homeDomain, repoManager, ledger.View(vaultAccount), relay, operator, bridge,
	)
	engine := application.NewExchangeEngine(
		homeDomain, repoManager, ledger.View(engineAccount), operator, bridge,
	)
	require.NoError(t, engine.Bootstrap(ctx, baseAsset, counterAsset, forwardRate))
	mirror := application.NewExchangeEngine(
		remoteDomain, repoManager, nil, operator, bridge,
	)
	require.NoError(t, mirror.Bootstrap(ctx, baseAsset, counterAsset, forwardRate))
	controller := application.NewWrappedAssetController(
		remoteDomain, repoManager, relay, bridge,
	)

	controllers := map[domain.DomainID]*application.WrappedAssetController{
		remoteDomain: controller,
	}
	mirrors := map[domain.DomainID]*application.ExchangeEngine{remoteDomain: mirror}

	svc, err := application.NewService(
		registry, vault, engine, controllers, mirrors, repoManager, relay, liveStore,
		timescheduler.NewScheduler(), bridge, bridgeAccount, time.Minute,
	)
	require.NoError(t, err)
	admin := application.NewAdminService(
		registry, vault, engine, controllers, repoManager, operator,
	)

	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	handler := handlers.NewHandler("e2e", svc, admin)
	mux := chi.NewRouter()
	mux.Route("/v1", func(r chi.Router) {
		r.Get("/info", handler.GetInfo)
		r.Get("/quote", handler.GetQuote)
		r.Get("/reserves", handler.GetReserves)
		r.Get("/mappings", handler.ListMappings)
		r.Get("/supply/{domain}/{asset}", handler.GetSupply)
		r.Get("/balances/{domain}/{asset}/{holder}", handler.GetWrappedBalance)
		r.Post("/swaps", handler.SubmitSwap)
		r.Get("/swaps", handler.ListTransfers)
		r.Get("/swaps/{requestID}", handler.GetTransfer)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/mappings", handler.RegisterMapping)
			r.Post("/assets", handler.AddSupportedAsset)
			r.Delete("/assets/{asset}", handler.RemoveSupportedAsset)
			r.Post("/rate", handler.SetRate)
			r.Post("/liquidity", handler.AddLiquidity)
			r.Post("/audit", handler.RunAudit)
			r.Post("/resume-minting", handler.ResumeMinting)
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &daemon{
		server:     server,
		ledger:     ledger,
		vault:      vault,
		controller: controller,
		relay:      relay,
	}
}

// setupMarket provisions the market over the admin endpoints and returns the
// two wrapped asset ids.
func (d *daemon) setupMarket(t *testing.T) (domain.AssetID, domain.AssetID) {
	t.Helper()

	d.postJSON(t, "/v1/admin/assets", fmt.Sprintf(`{"asset": %q}`, baseAsset), http.StatusNoContent)
	d.postJSON(t, "/v1/admin/assets", fmt.Sprintf(`{"asset": %q}`, counterAsset), http.StatusNoContent)

	var registered struct {
		RemoteAsset string `json:"remote_asset"`
	}
	body := d.postJSON(t, "/v1/admin/mappings", fmt.Sprintf(
		`{"home_asset": %q, "remote_domain": %q, "display_name": "Wrapped Cheese"}`,
		baseAsset, remoteDomain,
	), http.StatusCreated)
	require.NoError(t, json.Unmarshal(body, &registered))
	wrappedBase := domain.AssetID(registered.RemoteAsset)

	body = d.postJSON(t, "/v1/admin/mappings", fmt.Sprintf(
		`{"home_asset": %q, "remote_domain": %q, "display_name": "Wrapped Sloth"}`,
		counterAsset, remoteDomain,
	), http.StatusCreated)
	require.NoError(t, json.Unmarshal(body, &registered))
	wrappedCounter := domain.AssetID(registered.RemoteAsset)

	d.ledger.Seed(liquidityAccount, baseAsset, 10_000)
	d.ledger.Seed(liquidityAccount, counterAsset, 10_000)
	d.postJSON(t, "/v1/admin/liquidity", fmt.Sprintf(
		`{"amount_base": 10000, "amount_counter": 10000, "from_holder": %q}`,
		liquidityAccount,
	), http.StatusNoContent)

	return wrappedBase, wrappedCounter
}

// deposit runs the bridge-in flow the way the custody daemon would: fund the
// holder on the home ledger, lock into custody, relay the receipt and mint
// the wrapped counterpart.
func (d *daemon) deposit(
	t *testing.T, holder string, homeAsset, wrappedAsset domain.AssetID, amount uint64,
) {
	t.Helper()
	ctx := context.Background()
	bridge := domain.Authority(bridgeToken)

	d.ledger.Seed(holder, homeAsset, amount)
	_, receipt, err := d.vault.Lock(ctx, bridge, homeAsset, amount, holder, remoteDomain)
	require.NoError(t, err)
	token, sErr := d.relay.Submit(ctx, *receipt)
	require.NoError(t, sErr)
	require.NoError(t, d.controller.Mint(ctx, bridge, wrappedAsset, holder, amount, token))
}

func (d *daemon) getJSON(t *testing.T, path string, expectedStatus int) []byte {
	t.Helper()

	resp, err := http.Get(d.server.URL + path)
	require.NoError(t, err)
	// nolint
	defer resp.Body.Close()

	body := make([]byte, 0)
	var raw json.RawMessage
	if dErr := json.NewDecoder(resp.Body).Decode(&raw); dErr == nil {
		body = raw
	}
	require.Equal(t, expectedStatus, resp.StatusCode, "GET %s: %s", path, body)
	return body
}

func (d *daemon) postJSON(t *testing.T, path, body string, expectedStatus int) []byte {
	t.Helper()

	req, err := http.NewRequest(
		http.MethodPost, d.server.URL+path, strings.NewReader(body),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.OperatorTokenHeader, operatorToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	// nolint
	defer resp.Body.Close()

	res := make([]byte, 0)
	var raw json.RawMessage
	if dErr := json.NewDecoder(resp.Body).Decode(&raw); dErr == nil {
		res = raw
	}
	require.Equal(t, expectedStatus, resp.StatusCode, "POST %s: %s", path, res)
	return res
}

func TestSwapOverTheWire(t *testing.T) {
	d := startDaemon(t)
	wrappedBase, wrappedCounter := d.setupMarket(t)
	d.deposit(t, "alice", baseAsset, wrappedBase, 500)

	var receipt struct {
		RequestID string `json:"request_id"`
	}
	body := d.postJSON(t, "/v1/swaps", fmt.Sprintf(
		`{"origin_domain": %q, "trader": "alice", "from_asset": %q, "to_asset": %q, "amount_in": 500}`,
		remoteDomain, wrappedBase, wrappedCounter,
	), http.StatusCreated)
	require.NoError(t, json.Unmarshal(body, &receipt))
	require.NotEmpty(t, receipt.RequestID)

	var transfer struct {
		State     string `json:"state"`
		AmountIn  uint64 `json:"amount_in"`
		AmountOut uint64 `json:"amount_out"`
	}
	require.Eventually(t, func() bool {
		body := d.getJSON(t, "/v1/swaps/"+receipt.RequestID, http.StatusOK)
		if err := json.Unmarshal(body, &transfer); err != nil {
			return false
		}
		return transfer.State == domain.TransferStateCompleted.String()
	}, settleWait, settleTick, "transfer %s never completed", receipt.RequestID)
	require.Equal(t, uint64(500), transfer.AmountIn)
	require.Equal(t, uint64(250), transfer.AmountOut)

	var balance struct {
		Balance uint64 `json:"balance"`
	}
	body = d.getJSON(
		t, fmt.Sprintf("/v1/balances/%s/%s/alice", remoteDomain, wrappedCounter),
		http.StatusOK,
	)
	require.NoError(t, json.Unmarshal(body, &balance))
	require.Equal(t, uint64(250), balance.Balance)

	var reserves struct {
		ReserveBase    uint64 `json:"reserve_base"`
		ReserveCounter uint64 `json:"reserve_counter"`
	}
	body = d.getJSON(t, "/v1/reserves", http.StatusOK)
	require.NoError(t, json.Unmarshal(body, &reserves))
	require.Equal(t, uint64(10_500), reserves.ReserveBase)
	require.Equal(t, uint64(9_750), reserves.ReserveCounter)

	var audit struct {
		Clean bool `json:"clean"`
	}
	body = d.postJSON(t, "/v1/admin/audit", "", http.StatusOK)
	require.NoError(t, json.Unmarshal(body, &audit))
	require.True(t, audit.Clean)

	var transfers struct {
		Transfers []json.RawMessage `json:"transfers"`
	}
	body = d.getJSON(t, "/v1/swaps", http.StatusOK)
	require.NoError(t, json.Unmarshal(body, &transfers))
	require.Len(t, transfers.Transfers, 1)
}

func TestQuoteOverTheWire(t *testing.T) {
	d := startDaemon(t)
	wrappedBase, wrappedCounter := d.setupMarket(t)

	var quote struct {
		AmountOut     uint64 `json:"amount_out"`
		EffectiveRate string `json:"effective_rate"`
	}
	path := fmt.Sprintf(
		"/v1/quote?domain=%s&from_asset=%s&to_asset=%s&amount_in=500",
		remoteDomain, wrappedBase, wrappedCounter,
	)
	body := d.getJSON(t, path, http.StatusOK)
	require.NoError(t, json.Unmarshal(body, &quote))
	require.Equal(t, uint64(250), quote.AmountOut)
	require.Equal(t, "0.5", quote.EffectiveRate)
}

func TestOperatorAuthOverTheWire(t *testing.T) {
	d := startDaemon(t)

	req, err := http.NewRequest(
		http.MethodPost, d.server.URL+"/v1/admin/assets",
		strings.NewReader(fmt.Sprintf(`{"asset": %q}`, baseAsset)),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.OperatorTokenHeader, "not-the-operator")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	// nolint
	defer resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
