package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/strait-labs/straitd/internal/core/application"
	"github.com/strait-labs/straitd/internal/core/domain"
)

type infoResponse struct {
	Version         string   `json:"version"`
	HomeDomain      string   `json:"home_domain"`
	RemoteDomains   []string `json:"remote_domains"`
	SupportedAssets []string `json:"supported_assets"`
	BaseAsset       string   `json:"base_asset"`
	CounterAsset    string   `json:"counter_asset"`
	TransferTimeout int64    `json:"transfer_timeout"`
	PendingCount    int64    `json:"pending_count"`
}

type quoteResponse struct {
	Domain        string `json:"domain"`
	FromAsset     string `json:"from_asset"`
	ToAsset       string `json:"to_asset"`
	AmountIn      uint64 `json:"amount_in"`
	AmountOut     uint64 `json:"amount_out"`
	Rate          uint64 `json:"rate"`
	Precision     uint64 `json:"precision"`
	EffectiveRate string `json:"effective_rate"`
}

type reservesResponse struct {
	Domain         string `json:"domain"`
	Base           string `json:"base"`
	Counter        string `json:"counter"`
	ForwardRate    uint64 `json:"forward_rate"`
	ReverseRate    uint64 `json:"reverse_rate"`
	EffectiveRate  string `json:"effective_rate"`
	ReserveBase    uint64 `json:"reserve_base"`
	ReserveCounter uint64 `json:"reserve_counter"`
}

type mappingResponse struct {
	HomeAsset    string `json:"home_asset"`
	RemoteDomain string `json:"remote_domain"`
	RemoteAsset  string `json:"remote_asset"`
	DisplayName  string `json:"display_name,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

type mappingsResponse struct {
	Mappings []mappingResponse `json:"mappings"`
}

type supplyResponse struct {
	Domain        string `json:"domain"`
	Asset         string `json:"asset"`
	HomeAsset     string `json:"home_asset"`
	WrappedSupply uint64 `json:"wrapped_supply"`
	Escrowed      uint64 `json:"escrowed"`
	Halted        bool   `json:"halted"`
}

type balanceResponse struct {
	Domain  string `json:"domain"`
	Asset   string `json:"asset"`
	Holder  string `json:"holder"`
	Balance uint64 `json:"balance"`
}

// effectiveRate renders a fixed-point rate as a decimal string, so a rate of
// 5000 over precision 10000 comes out as "0.5".
func effectiveRate(rate, precision uint64) string {
	return decimal.NewFromInt(int64(rate)).
		Div(decimal.NewFromInt(int64(precision))).String()
}

func newSupplyResponse(info application.SupplyInfo) supplyResponse {
	return supplyResponse{
		Domain:        string(info.Domain),
		Asset:         string(info.Asset),
		HomeAsset:     string(info.HomeAsset),
		WrappedSupply: info.WrappedSupply,
		Escrowed:      info.Escrowed,
		Halted:        info.Halted,
	}
}

func (h *Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.GetInfo(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	remoteDomains := make([]string, 0, len(info.RemoteDomains))
	for _, remoteDomain := range info.RemoteDomains {
		remoteDomains = append(remoteDomains, string(remoteDomain))
	}
	supportedAssets := make([]string, 0, len(info.SupportedAssets))
	for _, asset := range info.SupportedAssets {
		supportedAssets = append(supportedAssets, string(asset))
	}

	WriteJSON(w, http.StatusOK, infoResponse{
		Version:         h.version,
		HomeDomain:      string(info.HomeDomain),
		RemoteDomains:   remoteDomains,
		SupportedAssets: supportedAssets,
		BaseAsset:       string(info.BaseAsset),
		CounterAsset:    string(info.CounterAsset),
		TransferTimeout: info.TransferTimeout,
		PendingCount:    info.PendingCount,
	})
}

func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	domainID, err := parseStringParam(r, "domain")
	if err != nil {
		WriteError(w, err)
		return
	}
	fromAsset, err := parseStringParam(r, "from_asset")
	if err != nil {
		WriteError(w, err)
		return
	}
	toAsset, err := parseStringParam(r, "to_asset")
	if err != nil {
		WriteError(w, err)
		return
	}
	amountIn, err := parseUintParam(r, "amount_in")
	if err != nil {
		WriteError(w, err)
		return
	}

	quote, err := h.svc.GetQuote(
		r.Context(), domain.DomainID(domainID),
		domain.AssetID(fromAsset), domain.AssetID(toAsset), amountIn,
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, quoteResponse{
		Domain:        string(quote.Domain),
		FromAsset:     string(quote.FromAsset),
		ToAsset:       string(quote.ToAsset),
		AmountIn:      quote.AmountIn,
		AmountOut:     quote.AmountOut,
		Rate:          quote.Rate,
		Precision:     quote.Precision,
		EffectiveRate: effectiveRate(quote.Rate, quote.Precision),
	})
}

func (h *Handler) GetReserves(w http.ResponseWriter, r *http.Request) {
	reserves, err := h.adminSvc.GetReserves(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, reservesResponse{
		Domain:         string(reserves.Domain),
		Base:           string(reserves.Base),
		Counter:        string(reserves.Counter),
		ForwardRate:    reserves.ForwardRate,
		ReverseRate:    reserves.ReverseRate,
		EffectiveRate:  effectiveRate(reserves.ForwardRate, domain.RatePrecision),
		ReserveBase:    reserves.ReserveBase,
		ReserveCounter: reserves.ReserveCounter,
	})
}

func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	remoteDomain := r.URL.Query().Get("domain")

	infos, err := h.adminSvc.ListMappings(r.Context(), domain.DomainID(remoteDomain))
	if err != nil {
		WriteError(w, err)
		return
	}

	mappings := make([]mappingResponse, 0, len(infos))
	for _, info := range infos {
		mappings = append(mappings, mappingResponse{
			HomeAsset:    string(info.HomeAsset),
			RemoteDomain: string(info.RemoteDomain),
			RemoteAsset:  string(info.RemoteAsset),
			DisplayName:  info.DisplayName,
			CreatedAt:    info.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, mappingsResponse{Mappings: mappings})
}

func (h *Handler) GetSupply(w http.ResponseWriter, r *http.Request) {
	origin := chi.URLParam(r, "domain")
	asset := chi.URLParam(r, "asset")

	info, err := h.adminSvc.GetSupply(
		r.Context(), domain.DomainID(origin), domain.AssetID(asset),
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, newSupplyResponse(*info))
}

func (h *Handler) GetWrappedBalance(w http.ResponseWriter, r *http.Request) {
	origin := chi.URLParam(r, "domain")
	asset := chi.URLParam(r, "asset")
	holder := chi.URLParam(r, "holder")

	balance, err := h.svc.GetWrappedBalance(
		r.Context(), domain.DomainID(origin), domain.AssetID(asset), holder,
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, balanceResponse{
		Domain:  origin,
		Asset:   asset,
		Holder:  holder,
		Balance: balance,
	})
}
