package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/strait-labs/straitd/internal/core/application"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Start() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockService) Stop() {
	m.Called()
}

func (m *mockService) SubmitSwapRequest(
	ctx context.Context, origin domain.DomainID, trader string,
	fromAsset, toAsset domain.AssetID, amountIn uint64,
) (string, errors.Error) {
	args := m.Called(ctx, origin, trader, fromAsset, toAsset, amountIn)
	return args.String(0), asError(args.Get(1))
}

func (m *mockService) GetTransfer(
	ctx context.Context, requestID string,
) (*application.TransferInfo, errors.Error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).(*application.TransferInfo), asError(args.Get(1))
}

func (m *mockService) GetTransfers(
	ctx context.Context, after, before int64,
) ([]application.TransferInfo, errors.Error) {
	args := m.Called(ctx, after, before)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).([]application.TransferInfo), asError(args.Get(1))
}

func (m *mockService) GetQuote(
	ctx context.Context, origin domain.DomainID, fromAsset, toAsset domain.AssetID,
	amountIn uint64,
) (*application.QuoteInfo, errors.Error) {
	args := m.Called(ctx, origin, fromAsset, toAsset, amountIn)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).(*application.QuoteInfo), asError(args.Get(1))
}

func (m *mockService) GetWrappedBalance(
	ctx context.Context, origin domain.DomainID, asset domain.AssetID, holder string,
) (uint64, errors.Error) {
	args := m.Called(ctx, origin, asset, holder)
	return args.Get(0).(uint64), asError(args.Get(1))
}

func (m *mockService) GetEventsChannel(ctx context.Context) <-chan []domain.Event {
	args := m.Called(ctx)
	return args.Get(0).(<-chan []domain.Event)
}

func (m *mockService) GetInfo(
	ctx context.Context,
) (*application.ServiceInfo, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).(*application.ServiceInfo), asError(args.Get(1))
}

var _ application.Service = (*mockService)(nil)

type mockAdminService struct {
	mock.Mock
}

func (m *mockAdminService) RegisterAssetMapping(
	ctx context.Context, auth domain.Authority, homeAsset domain.AssetID,
	remoteDomain domain.DomainID, displayName string,
) (domain.AssetID, errors.Error) {
	args := m.Called(ctx, auth, homeAsset, remoteDomain, displayName)
	return args.Get(0).(domain.AssetID), asError(args.Get(1))
}

func (m *mockAdminService) AddSupportedAsset(
	ctx context.Context, auth domain.Authority, asset domain.AssetID,
) errors.Error {
	args := m.Called(ctx, auth, asset)
	return asError(args.Get(0))
}

func (m *mockAdminService) RemoveSupportedAsset(
	ctx context.Context, auth domain.Authority, asset domain.AssetID,
) errors.Error {
	args := m.Called(ctx, auth, asset)
	return asError(args.Get(0))
}

func (m *mockAdminService) SetExchangeRate(
	ctx context.Context, auth domain.Authority, fromAsset, toAsset domain.AssetID,
	rate int64,
) errors.Error {
	args := m.Called(ctx, auth, fromAsset, toAsset, rate)
	return asError(args.Get(0))
}

func (m *mockAdminService) AddLiquidity(
	ctx context.Context, auth domain.Authority, amountBase, amountCounter uint64,
	fromHolder string,
) errors.Error {
	args := m.Called(ctx, auth, amountBase, amountCounter, fromHolder)
	return asError(args.Get(0))
}

func (m *mockAdminService) GetReserves(
	ctx context.Context,
) (*application.ReserveInfo, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).(*application.ReserveInfo), asError(args.Get(1))
}

func (m *mockAdminService) ListMappings(
	ctx context.Context, remoteDomain domain.DomainID,
) ([]application.MappingInfo, errors.Error) {
	args := m.Called(ctx, remoteDomain)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).([]application.MappingInfo), asError(args.Get(1))
}

func (m *mockAdminService) GetSupply(
	ctx context.Context, origin domain.DomainID, asset domain.AssetID,
) (*application.SupplyInfo, errors.Error) {
	args := m.Called(ctx, origin, asset)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).(*application.SupplyInfo), asError(args.Get(1))
}

func (m *mockAdminService) AuditConservation(
	ctx context.Context,
) (*application.AuditReport, errors.Error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, asError(args.Get(1))
	}
	return args.Get(0).(*application.AuditReport), asError(args.Get(1))
}

func (m *mockAdminService) ResumeMinting(
	ctx context.Context, auth domain.Authority, origin domain.DomainID,
	asset domain.AssetID,
) errors.Error {
	args := m.Called(ctx, auth, origin, asset)
	return asError(args.Get(0))
}

var _ application.AdminService = (*mockAdminService)(nil)

func asError(v interface{}) errors.Error {
	if v == nil {
		return nil
	}
	return v.(errors.Error)
}

func newTestHandler() (*Handler, *mockService, *mockAdminService) {
	svc := &mockService{}
	adminSvc := &mockAdminService{}
	return NewHandler("test", svc, adminSvc), svc, adminSvc
}

// withURLParams injects chi route params for handlers called outside a router.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var res errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestSubmitSwap(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		svc.On(
			"SubmitSwapRequest", mock.Anything, domain.DomainID("L2A"), "alice",
			domain.AssetID("wCHEESE@L2A"), domain.AssetID("wSLOTH@L2A"), uint64(500),
		).Return("req-1", nil)

		body := `{
			"origin_domain": "L2A", "trader": "alice",
			"from_asset": "wCHEESE@L2A", "to_asset": "wSLOTH@L2A", "amount_in": 500
		}`
		req := httptest.NewRequest(http.MethodPost, "/v1/swaps", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.SubmitSwap(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var res submitSwapResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "req-1", res.RequestID)
		svc.AssertExpectations(t)
	})

	t.Run("unsupported asset", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		svc.On(
			"SubmitSwapRequest", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything,
		).Return("", errors.UNSUPPORTED_ASSET.New("asset wDOGE@L2A is not supported"))

		body := `{
			"origin_domain": "L2A", "trader": "alice",
			"from_asset": "wDOGE@L2A", "to_asset": "wSLOTH@L2A", "amount_in": 500
		}`
		req := httptest.NewRequest(http.MethodPost, "/v1/swaps", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.SubmitSwap(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		res := decodeErrorResponse(t, w)
		assert.Equal(t, uint16(3), res.Code)
		assert.Equal(t, "UNSUPPORTED_ASSET", res.Name)
		assert.Contains(t, res.Message, "wDOGE@L2A")
	})

	t.Run("malformed body", func(t *testing.T) {
		handler, svc, _ := newTestHandler()

		req := httptest.NewRequest(
			http.MethodPost, "/v1/swaps", strings.NewReader("{not json"),
		)
		w := httptest.NewRecorder()
		handler.SubmitSwap(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		res := decodeErrorResponse(t, w)
		assert.Equal(t, "INVALID_REQUEST", res.Name)
		svc.AssertNotCalled(t, "SubmitSwapRequest")
	})
}

func TestGetTransfer(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		svc.On("GetTransfer", mock.Anything, "req-1").Return(&application.TransferInfo{
			RequestID:    "req-1",
			OriginDomain: "L2A",
			Trader:       "alice",
			FromAsset:    "wCHEESE@L2A",
			ToAsset:      "wSLOTH@L2A",
			AmountIn:     500,
			AmountOut:    250,
			State:        "completed",
			CreatedAt:    100,
			UpdatedAt:    105,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/swaps/req-1", nil)
		req = withURLParams(req, map[string]string{"requestID": "req-1"})
		w := httptest.NewRecorder()
		handler.GetTransfer(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var res transferResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "completed", res.State)
		assert.Equal(t, uint64(250), res.AmountOut)
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		svc.On("GetTransfer", mock.Anything, "missing").Return(
			nil, errors.TRANSFER_NOT_FOUND.New("transfer missing not found").
				WithMetadata(errors.TransferMetadata{RequestID: "missing"}),
		)

		req := httptest.NewRequest(http.MethodGet, "/v1/swaps/missing", nil)
		req = withURLParams(req, map[string]string{"requestID": "missing"})
		w := httptest.NewRecorder()
		handler.GetTransfer(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		res := decodeErrorResponse(t, w)
		assert.Equal(t, "TRANSFER_NOT_FOUND", res.Name)
		assert.Equal(t, "missing", res.Metadata["request_id"])
	})
}

func TestListTransfers(t *testing.T) {
	t.Run("range is passed through", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		svc.On("GetTransfers", mock.Anything, int64(100), int64(200)).
			Return([]application.TransferInfo{{RequestID: "req-1", State: "reverted"}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/swaps?after=100&before=200", nil)
		w := httptest.NewRecorder()
		handler.ListTransfers(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var res transfersResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res.Transfers, 1)
		assert.Equal(t, "reverted", res.Transfers[0].State)
		svc.AssertExpectations(t)
	})

	t.Run("absent range defaults to zero", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		svc.On("GetTransfers", mock.Anything, int64(0), int64(0)).
			Return([]application.TransferInfo{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/swaps", nil)
		w := httptest.NewRecorder()
		handler.ListTransfers(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid range", func(t *testing.T) {
		handler, svc, _ := newTestHandler()

		req := httptest.NewRequest(http.MethodGet, "/v1/swaps?after=abc", nil)
		w := httptest.NewRecorder()
		handler.ListTransfers(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetTransfers")
	})
}

func TestGetQuote(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		svc.On(
			"GetQuote", mock.Anything, domain.DomainID("L2A"),
			domain.AssetID("wCHEESE@L2A"), domain.AssetID("wSLOTH@L2A"), uint64(500),
		).Return(&application.QuoteInfo{
			Domain:    "L2A",
			FromAsset: "wCHEESE@L2A",
			ToAsset:   "wSLOTH@L2A",
			AmountIn:  500,
			AmountOut: 250,
			Rate:      5000,
			Precision: 10000,
		}, nil)

		target := "/v1/quote?domain=L2A&from_asset=wCHEESE%40L2A&to_asset=wSLOTH%40L2A&amount_in=500"
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		handler.GetQuote(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var res quoteResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, uint64(250), res.AmountOut)
		assert.Equal(t, "0.5", res.EffectiveRate)
		svc.AssertExpectations(t)
	})

	t.Run("missing amount", func(t *testing.T) {
		handler, svc, _ := newTestHandler()

		target := "/v1/quote?domain=L2A&from_asset=wCHEESE%40L2A&to_asset=wSLOTH%40L2A"
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		handler.GetQuote(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		res := decodeErrorResponse(t, w)
		assert.Contains(t, res.Message, "amount_in")
		svc.AssertNotCalled(t, "GetQuote")
	})
}

func TestGetInfo(t *testing.T) {
	handler, svc, _ := newTestHandler()
	svc.On("GetInfo", mock.Anything).Return(&application.ServiceInfo{
		HomeDomain:      "HUB",
		RemoteDomains:   []domain.DomainID{"L2A"},
		SupportedAssets: []domain.AssetID{"CHEESE", "SLOTH"},
		BaseAsset:       "CHEESE",
		CounterAsset:    "SLOTH",
		TransferTimeout: 300,
		PendingCount:    2,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	w := httptest.NewRecorder()
	handler.GetInfo(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var res infoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "test", res.Version)
	assert.Equal(t, "HUB", res.HomeDomain)
	assert.Equal(t, []string{"L2A"}, res.RemoteDomains)
	assert.Equal(t, int64(2), res.PendingCount)
	svc.AssertExpectations(t)
}

func TestGetReserves(t *testing.T) {
	handler, _, adminSvc := newTestHandler()
	adminSvc.On("GetReserves", mock.Anything).Return(&application.ReserveInfo{
		Domain:         "HUB",
		Base:           "CHEESE",
		Counter:        "SLOTH",
		ForwardRate:    5000,
		ReverseRate:    20000,
		ReserveBase:    100_000,
		ReserveCounter: 50_000,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/reserves", nil)
	w := httptest.NewRecorder()
	handler.GetReserves(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var res reservesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "0.5", res.EffectiveRate)
	assert.Equal(t, uint64(100_000), res.ReserveBase)
	adminSvc.AssertExpectations(t)
}

func TestGetSupply(t *testing.T) {
	handler, _, adminSvc := newTestHandler()
	adminSvc.On(
		"GetSupply", mock.Anything, domain.DomainID("L2A"), domain.AssetID("wCHEESE@L2A"),
	).Return(&application.SupplyInfo{
		Domain:        "L2A",
		Asset:         "wCHEESE@L2A",
		HomeAsset:     "CHEESE",
		WrappedSupply: 1000,
		Escrowed:      1000,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/supply/L2A/wCHEESE@L2A", nil)
	req = withURLParams(req, map[string]string{"domain": "L2A", "asset": "wCHEESE@L2A"})
	w := httptest.NewRecorder()
	handler.GetSupply(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var res supplyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, uint64(1000), res.WrappedSupply)
	assert.False(t, res.Halted)
	adminSvc.AssertExpectations(t)
}

func TestGetWrappedBalance(t *testing.T) {
	handler, svc, _ := newTestHandler()
	svc.On(
		"GetWrappedBalance", mock.Anything, domain.DomainID("L2A"),
		domain.AssetID("wCHEESE@L2A"), "alice",
	).Return(uint64(750), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/balances/L2A/wCHEESE@L2A/alice", nil)
	req = withURLParams(req, map[string]string{
		"domain": "L2A", "asset": "wCHEESE@L2A", "holder": "alice",
	})
	w := httptest.NewRecorder()
	handler.GetWrappedBalance(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var res balanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, uint64(750), res.Balance)
	svc.AssertExpectations(t)
}

func TestRegisterMapping(t *testing.T) {
	handler, _, adminSvc := newTestHandler()
	adminSvc.On(
		"RegisterAssetMapping", mock.Anything, domain.Authority("op-secret"),
		domain.AssetID("GOLD"), domain.DomainID("L2A"), "Wrapped Gold",
	).Return(domain.AssetID("wGOLD@L2A"), nil)

	body := `{"home_asset": "GOLD", "remote_domain": "L2A", "display_name": "Wrapped Gold"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/mappings", strings.NewReader(body))
	req.Header.Set(OperatorTokenHeader, "op-secret")
	w := httptest.NewRecorder()
	handler.RegisterMapping(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var res registerMappingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "wGOLD@L2A", res.RemoteAsset)
	adminSvc.AssertExpectations(t)
}

func TestSupportedAssets(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		handler, _, adminSvc := newTestHandler()
		adminSvc.On(
			"AddSupportedAsset", mock.Anything, domain.Authority("op-secret"),
			domain.AssetID("GOLD"),
		).Return(nil)

		body := `{"asset": "GOLD"}`
		req := httptest.NewRequest(
			http.MethodPost, "/v1/admin/assets", strings.NewReader(body),
		)
		req.Header.Set(OperatorTokenHeader, "op-secret")
		w := httptest.NewRecorder()
		handler.AddSupportedAsset(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		adminSvc.AssertExpectations(t)
	})

	t.Run("remove", func(t *testing.T) {
		handler, _, adminSvc := newTestHandler()
		adminSvc.On(
			"RemoveSupportedAsset", mock.Anything, domain.Authority("op-secret"),
			domain.AssetID("GOLD"),
		).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/v1/admin/assets/GOLD", nil)
		req = withURLParams(req, map[string]string{"asset": "GOLD"})
		req.Header.Set(OperatorTokenHeader, "op-secret")
		w := httptest.NewRecorder()
		handler.RemoveSupportedAsset(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		adminSvc.AssertExpectations(t)
	})
}

func TestSetRate(t *testing.T) {
	testCases := []struct {
		name         string
		rate         string
		expectedRate int64
		rejected     bool
	}{
		{name: "fraction", rate: "0.5", expectedRate: 5000},
		{name: "integer", rate: "2", expectedRate: 20000},
		{name: "smallest step", rate: "0.0001", expectedRate: 1},
		{name: "finer than precision", rate: "0.00005", rejected: true},
		{name: "not a number", rate: "half", rejected: true},
		{name: "out of range", rate: "99999999999999999999", rejected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, _, adminSvc := newTestHandler()
			if !tc.rejected {
				adminSvc.On(
					"SetExchangeRate", mock.Anything, domain.Authority("op-secret"),
					domain.AssetID("CHEESE"), domain.AssetID("SLOTH"), tc.expectedRate,
				).Return(nil)
			}

			body := `{"from_asset": "CHEESE", "to_asset": "SLOTH", "rate": "` + tc.rate + `"}`
			req := httptest.NewRequest(
				http.MethodPost, "/v1/admin/rate", strings.NewReader(body),
			)
			req.Header.Set(OperatorTokenHeader, "op-secret")
			w := httptest.NewRecorder()
			handler.SetRate(w, req)

			if tc.rejected {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				res := decodeErrorResponse(t, w)
				assert.Equal(t, "INVALID_RATE", res.Name)
				adminSvc.AssertNotCalled(t, "SetExchangeRate")
				return
			}
			assert.Equal(t, http.StatusNoContent, w.Code)
			adminSvc.AssertExpectations(t)
		})
	}
}

func TestAddLiquidity(t *testing.T) {
	handler, _, adminSvc := newTestHandler()
	adminSvc.On(
		"AddLiquidity", mock.Anything, domain.Authority("op-secret"),
		uint64(100_000), uint64(50_000), "treasury",
	).Return(nil)

	body := `{"amount_base": 100000, "amount_counter": 50000, "from_holder": "treasury"}`
	req := httptest.NewRequest(
		http.MethodPost, "/v1/admin/liquidity", strings.NewReader(body),
	)
	req.Header.Set(OperatorTokenHeader, "op-secret")
	w := httptest.NewRecorder()
	handler.AddLiquidity(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	adminSvc.AssertExpectations(t)
}

func TestRunAudit(t *testing.T) {
	handler, _, adminSvc := newTestHandler()
	adminSvc.On("AuditConservation", mock.Anything).Return(&application.AuditReport{
		Supplies: []application.SupplyInfo{
			{Domain: "L2A", Asset: "wCHEESE@L2A", HomeAsset: "CHEESE", WrappedSupply: 1200, Escrowed: 1000, Halted: true},
		},
		CustodyBalances: []domain.CustodyBalance{
			{Asset: "CHEESE", Domain: "L2A", Escrowed: 1000},
		},
		Violations: []application.SupplyInfo{
			{Domain: "L2A", Asset: "wCHEESE@L2A", HomeAsset: "CHEESE", WrappedSupply: 1200, Escrowed: 1000, Halted: true},
		},
		AuditedAt: 100,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/audit", nil)
	req.Header.Set(OperatorTokenHeader, "op-secret")
	w := httptest.NewRecorder()
	handler.RunAudit(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var res auditResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Clean)
	require.Len(t, res.Violations, 1)
	assert.True(t, res.Violations[0].Halted)
	adminSvc.AssertExpectations(t)
}

func TestResumeMinting(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, _, adminSvc := newTestHandler()
		adminSvc.On(
			"ResumeMinting", mock.Anything, domain.Authority("op-secret"),
			domain.DomainID("L2A"), domain.AssetID("wCHEESE@L2A"),
		).Return(nil)

		body := `{"origin_domain": "L2A", "asset": "wCHEESE@L2A"}`
		req := httptest.NewRequest(
			http.MethodPost, "/v1/admin/resume-minting", strings.NewReader(body),
		)
		req.Header.Set(OperatorTokenHeader, "op-secret")
		w := httptest.NewRecorder()
		handler.ResumeMinting(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		adminSvc.AssertExpectations(t)
	})

	t.Run("wrong token is rejected by the app layer", func(t *testing.T) {
		handler, _, adminSvc := newTestHandler()
		adminSvc.On(
			"ResumeMinting", mock.Anything, domain.Authority("wrong"),
			domain.DomainID("L2A"), domain.AssetID("wCHEESE@L2A"),
		).Return(errors.UNAUTHORIZED.New("operator authority required"))

		body := `{"origin_domain": "L2A", "asset": "wCHEESE@L2A"}`
		req := httptest.NewRequest(
			http.MethodPost, "/v1/admin/resume-minting", strings.NewReader(body),
		)
		req.Header.Set(OperatorTokenHeader, "wrong")
		w := httptest.NewRecorder()
		handler.ResumeMinting(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		res := decodeErrorResponse(t, w)
		assert.Equal(t, "UNAUTHORIZED", res.Name)
	})
}
