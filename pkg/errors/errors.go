package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code       uint16
	Name       string
	HTTPStatus int
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	HTTPStatus() int
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) HTTPStatus() int {
	return e.code.HTTPStatus
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type AmountMetadata struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

type AssetMetadata struct {
	Asset  string `json:"asset"`
	Domain string `json:"domain"`
}

type MappingMetadata struct {
	HomeAsset    string `json:"home_asset"`
	RemoteDomain string `json:"remote_domain"`
	RemoteAsset  string `json:"remote_asset,omitempty"`
}

type BalanceMetadata struct {
	Asset     string `json:"asset"`
	Holder    string `json:"holder"`
	Requested uint64 `json:"requested"`
	Available uint64 `json:"available"`
}

type ReserveMetadata struct {
	Asset     string `json:"asset"`
	Requested uint64 `json:"requested"`
	Available uint64 `json:"available"`
}

type RateMetadata struct {
	Base    string `json:"base"`
	Counter string `json:"counter"`
	Rate    int64  `json:"rate"`
}

type ProofMetadata struct {
	Domain string `json:"domain"`
	Nonce  uint64 `json:"nonce"`
}

type TransferMetadata struct {
	RequestID string `json:"request_id"`
	State     string `json:"state,omitempty"`
}

type ConservationMetadata struct {
	HomeAsset     string `json:"home_asset"`
	RemoteAsset   string `json:"remote_asset"`
	RemoteDomain  string `json:"remote_domain"`
	WrappedSupply uint64 `json:"wrapped_supply"`
	Escrowed      uint64 `json:"escrowed"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", http.StatusInternalServerError}

var INVALID_AMOUNT = Code[AmountMetadata]{1, "INVALID_AMOUNT", http.StatusBadRequest}
var INVALID_ASSET = Code[AssetMetadata]{2, "INVALID_ASSET", http.StatusBadRequest}

var UNSUPPORTED_ASSET = Code[AssetMetadata]{
	3,
	"UNSUPPORTED_ASSET",
	http.StatusUnprocessableEntity,
}

var ASSET_ALREADY_SUPPORTED = Code[AssetMetadata]{4, "ASSET_ALREADY_SUPPORTED", http.StatusConflict}
var ASSET_NOT_SUPPORTED = Code[AssetMetadata]{5, "ASSET_NOT_SUPPORTED", http.StatusNotFound}

var ALREADY_MAPPED = Code[MappingMetadata]{6, "ALREADY_MAPPED", http.StatusConflict}
var NOT_MAPPED = Code[MappingMetadata]{7, "NOT_MAPPED", http.StatusNotFound}

var UNAUTHORIZED = Code[map[string]any]{8, "UNAUTHORIZED", http.StatusForbidden}

var INSUFFICIENT_BALANCE = Code[BalanceMetadata]{
	9,
	"INSUFFICIENT_BALANCE",
	http.StatusUnprocessableEntity,
}

var INSUFFICIENT_RESERVE = Code[ReserveMetadata]{
	10,
	"INSUFFICIENT_RESERVE",
	http.StatusUnprocessableEntity,
}

var PROOF_INVALID = Code[ProofMetadata]{11, "PROOF_INVALID", http.StatusBadRequest}
var PROOF_ALREADY_USED = Code[ProofMetadata]{12, "PROOF_ALREADY_USED", http.StatusConflict}

var INVALID_RATE = Code[RateMetadata]{13, "INVALID_RATE", http.StatusBadRequest}

var TRANSFER_TIMEOUT = Code[TransferMetadata]{14, "TRANSFER_TIMEOUT", http.StatusGatewayTimeout}
var TRANSFER_NOT_FOUND = Code[TransferMetadata]{15, "TRANSFER_NOT_FOUND", http.StatusNotFound}

var CONSERVATION_VIOLATION = Code[ConservationMetadata]{
	16,
	"CONSERVATION_VIOLATION",
	http.StatusInternalServerError,
}

var MINT_HALTED = Code[AssetMetadata]{17, "MINT_HALTED", http.StatusServiceUnavailable}

var UNKNOWN_DOMAIN = Code[AssetMetadata]{18, "UNKNOWN_DOMAIN", http.StatusNotFound}

var INVALID_REQUEST = Code[map[string]any]{19, "INVALID_REQUEST", http.StatusBadRequest}
