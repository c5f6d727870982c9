package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/pkg/errors"
)

// operatorAuthority hands the presented token through to the application
// layer, which verifies it again against the configured operator.
func operatorAuthority(r *http.Request) domain.Authority {
	return domain.Authority(r.Header.Get(OperatorTokenHeader))
}

type registerMappingRequest struct {
	HomeAsset    string `json:"home_asset"`
	RemoteDomain string `json:"remote_domain"`
	DisplayName  string `json:"display_name,omitempty"`
}

type registerMappingResponse struct {
	HomeAsset    string `json:"home_asset"`
	RemoteDomain string `json:"remote_domain"`
	RemoteAsset  string `json:"remote_asset"`
}

type supportedAssetRequest struct {
	Asset string `json:"asset"`
}

type setRateRequest struct {
	FromAsset string `json:"from_asset"`
	ToAsset   string `json:"to_asset"`
	Rate      string `json:"rate"`
}

type addLiquidityRequest struct {
	AmountBase    uint64 `json:"amount_base"`
	AmountCounter uint64 `json:"amount_counter"`
	FromHolder    string `json:"from_holder"`
}

type resumeMintingRequest struct {
	OriginDomain string `json:"origin_domain"`
	Asset        string `json:"asset"`
}

type custodyBalanceResponse struct {
	Asset    string `json:"asset"`
	Domain   string `json:"domain"`
	Escrowed uint64 `json:"escrowed"`
}

type auditResponse struct {
	Supplies        []supplyResponse         `json:"supplies"`
	CustodyBalances []custodyBalanceResponse `json:"custody_balances"`
	Violations      []supplyResponse         `json:"violations"`
	Clean           bool                     `json:"clean"`
	AuditedAt       int64                    `json:"audited_at"`
}

func (h *Handler) RegisterMapping(w http.ResponseWriter, r *http.Request) {
	var req registerMappingRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	remoteAsset, err := h.adminSvc.RegisterAssetMapping(
		r.Context(), operatorAuthority(r),
		domain.AssetID(req.HomeAsset), domain.DomainID(req.RemoteDomain), req.DisplayName,
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, registerMappingResponse{
		HomeAsset:    req.HomeAsset,
		RemoteDomain: req.RemoteDomain,
		RemoteAsset:  string(remoteAsset),
	})
}

func (h *Handler) AddSupportedAsset(w http.ResponseWriter, r *http.Request) {
	var req supportedAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.adminSvc.AddSupportedAsset(
		r.Context(), operatorAuthority(r), domain.AssetID(req.Asset),
	); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveSupportedAsset(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")

	if err := h.adminSvc.RemoveSupportedAsset(
		r.Context(), operatorAuthority(r), domain.AssetID(asset),
	); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetRate accepts the rate as a decimal string and converts it to the
// fixed-point numerator, "0.5" becomes 5000 at precision 10000. Rates finer
// than the precision are rejected instead of silently rounded.
func (h *Handler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req setRateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		WriteError(w, errors.INVALID_RATE.New(
			"invalid rate %q: %s", req.Rate, err,
		).WithMetadata(errors.RateMetadata{Base: req.FromAsset, Counter: req.ToAsset}))
		return
	}
	scaled := rate.Mul(decimal.NewFromInt(domain.RatePrecision))
	if !scaled.IsInteger() {
		WriteError(w, errors.INVALID_RATE.New(
			"rate %s must be a multiple of 1/%d", req.Rate, domain.RatePrecision,
		).WithMetadata(errors.RateMetadata{Base: req.FromAsset, Counter: req.ToAsset}))
		return
	}
	if !scaled.BigInt().IsInt64() {
		WriteError(w, errors.INVALID_RATE.New(
			"rate %s is out of range", req.Rate,
		).WithMetadata(errors.RateMetadata{Base: req.FromAsset, Counter: req.ToAsset}))
		return
	}

	if err := h.adminSvc.SetExchangeRate(
		r.Context(), operatorAuthority(r),
		domain.AssetID(req.FromAsset), domain.AssetID(req.ToAsset), scaled.IntPart(),
	); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req addLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.adminSvc.AddLiquidity(
		r.Context(), operatorAuthority(r), req.AmountBase, req.AmountCounter,
		req.FromHolder,
	); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RunAudit walks every wrapped asset and compares supply against escrow.
// Assets found in violation are halted as a side effect, hence POST.
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.adminSvc.AuditConservation(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	supplies := make([]supplyResponse, 0, len(report.Supplies))
	for _, info := range report.Supplies {
		supplies = append(supplies, newSupplyResponse(info))
	}
	violations := make([]supplyResponse, 0, len(report.Violations))
	for _, info := range report.Violations {
		violations = append(violations, newSupplyResponse(info))
	}
	custodyBalances := make([]custodyBalanceResponse, 0, len(report.CustodyBalances))
	for _, balance := range report.CustodyBalances {
		custodyBalances = append(custodyBalances, custodyBalanceResponse{
			Asset:    string(balance.Asset),
			Domain:   string(balance.Domain),
			Escrowed: balance.Escrowed,
		})
	}

	WriteJSON(w, http.StatusOK, auditResponse{
		Supplies:        supplies,
		CustodyBalances: custodyBalances,
		Violations:      violations,
		Clean:           report.Clean(),
		AuditedAt:       report.AuditedAt,
	})
}

func (h *Handler) ResumeMinting(w http.ResponseWriter, r *http.Request) {
	var req resumeMintingRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.adminSvc.ResumeMinting(
		r.Context(), operatorAuthority(r),
		domain.DomainID(req.OriginDomain), domain.AssetID(req.Asset),
	); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
