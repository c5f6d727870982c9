package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/strait-labs/straitd/internal/core/application"
	"github.com/strait-labs/straitd/internal/core/domain"
)

type submitSwapRequest struct {
	OriginDomain string `json:"origin_domain"`
	Trader       string `json:"trader"`
	FromAsset    string `json:"from_asset"`
	ToAsset      string `json:"to_asset"`
	AmountIn     uint64 `json:"amount_in"`
}

type submitSwapResponse struct {
	RequestID string `json:"request_id"`
}

type transferResponse struct {
	RequestID         string `json:"request_id"`
	OriginDomain      string `json:"origin_domain"`
	Trader            string `json:"trader"`
	FromAsset         string `json:"from_asset"`
	ToAsset           string `json:"to_asset"`
	AmountIn          uint64 `json:"amount_in"`
	AmountOut         uint64 `json:"amount_out,omitempty"`
	State             string `json:"state"`
	FailureReason     string `json:"failure_reason,omitempty"`
	CompensatedAmount uint64 `json:"compensated_amount,omitempty"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

func newTransferResponse(info application.TransferInfo) transferResponse {
	return transferResponse{
		RequestID:         info.RequestID,
		OriginDomain:      string(info.OriginDomain),
		Trader:            info.Trader,
		FromAsset:         string(info.FromAsset),
		ToAsset:           string(info.ToAsset),
		AmountIn:          info.AmountIn,
		AmountOut:         info.AmountOut,
		State:             info.State,
		FailureReason:     info.FailureReason,
		CompensatedAmount: info.CompensatedAmount,
		CreatedAt:         info.CreatedAt,
		UpdatedAt:         info.UpdatedAt,
	}
}

type transfersResponse struct {
	Transfers []transferResponse `json:"transfers"`
}

// SubmitSwap burns the trader's wrapped input and kicks off settlement. The
// response carries the request id, settlement continues in the background.
func (h *Handler) SubmitSwap(w http.ResponseWriter, r *http.Request) {
	var req submitSwapRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	requestID, err := h.svc.SubmitSwapRequest(
		r.Context(), domain.DomainID(req.OriginDomain), req.Trader,
		domain.AssetID(req.FromAsset), domain.AssetID(req.ToAsset), req.AmountIn,
	)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, submitSwapResponse{RequestID: requestID})
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	info, err := h.svc.GetTransfer(r.Context(), requestID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, newTransferResponse(*info))
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	after, err := parseIntParam(r, "after")
	if err != nil {
		WriteError(w, err)
		return
	}
	before, err := parseIntParam(r, "before")
	if err != nil {
		WriteError(w, err)
		return
	}

	infos, err := h.svc.GetTransfers(r.Context(), after, before)
	if err != nil {
		WriteError(w, err)
		return
	}

	transfers := make([]transferResponse, 0, len(infos))
	for _, info := range infos {
		transfers = append(transfers, newTransferResponse(info))
	}
	WriteJSON(w, http.StatusOK, transfersResponse{Transfers: transfers})
}
