package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []Error {
	return []Error{
		// INTERNAL_ERROR
		INTERNAL_ERROR.New("internal error occurred").
			WithMetadata(map[string]any{
				"component": "database",
				"operation": "query",
			}),

		// INVALID_AMOUNT
		INVALID_AMOUNT.New("amount must be greater than zero").
			WithMetadata(AmountMetadata{
				Asset:  "CHEESE",
				Amount: 0,
			}),

		// UNSUPPORTED_ASSET
		UNSUPPORTED_ASSET.New("asset not supported on domain").
			WithMetadata(AssetMetadata{
				Asset:  "SLOTH",
				Domain: "L2A",
			}),

		// ALREADY_MAPPED
		ALREADY_MAPPED.New("mapping already registered").
			WithMetadata(MappingMetadata{
				HomeAsset:    "CHEESE",
				RemoteDomain: "L2A",
				RemoteAsset:  "wCHEESE@L2A",
			}),

		// NOT_MAPPED
		NOT_MAPPED.New("no mapping for asset").
			WithMetadata(MappingMetadata{
				HomeAsset:    "CHEESE",
				RemoteDomain: "L2B",
			}),

		// INSUFFICIENT_BALANCE
		INSUFFICIENT_BALANCE.New("wrapped balance too low").
			WithMetadata(BalanceMetadata{
				Asset:     "wCHEESE@L2A",
				Holder:    "trader-1",
				Requested: 500,
				Available: 100,
			}),

		// INSUFFICIENT_RESERVE
		INSUFFICIENT_RESERVE.New("reserve cannot cover output").
			WithMetadata(ReserveMetadata{
				Asset:     "SLOTH",
				Requested: 25_000,
				Available: 10_000,
			}),

		// PROOF_ALREADY_USED
		PROOF_ALREADY_USED.New("proof nonce already consumed").
			WithMetadata(ProofMetadata{
				Domain: "L2A",
				Nonce:  42,
			}),

		// INVALID_RATE
		INVALID_RATE.New("rate must be positive").
			WithMetadata(RateMetadata{
				Base:    "CHEESE",
				Counter: "SLOTH",
				Rate:    -1,
			}),

		// TRANSFER_TIMEOUT
		TRANSFER_TIMEOUT.New("transfer timed out waiting for proof").
			WithMetadata(TransferMetadata{
				RequestID: "req-123",
				State:     "ReleaseRequested",
			}),

		// CONSERVATION_VIOLATION
		CONSERVATION_VIOLATION.New("wrapped supply exceeds escrow").
			WithMetadata(ConservationMetadata{
				HomeAsset:     "CHEESE",
				RemoteAsset:   "wCHEESE@L2A",
				RemoteDomain:  "L2A",
				WrappedSupply: 1_000,
				Escrowed:      900,
			}),
	}
}

func TestErrorMetadata(t *testing.T) {
	fixtures := generateErrorFixtures()

	for _, err := range fixtures {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())
		require.NotEmpty(t, err.CodeName())
		require.GreaterOrEqual(t, err.HTTPStatus(), http.StatusOK)

		metadata := err.Metadata()
		require.NotEmpty(t, metadata)
	}
}

func TestErrorHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, INVALID_AMOUNT.New("zero amount").HTTPStatus())
	require.Equal(t, http.StatusConflict, PROOF_ALREADY_USED.New("replayed").HTTPStatus())
	require.Equal(t, http.StatusForbidden, UNAUTHORIZED.New("bad token").HTTPStatus())
	require.Equal(
		t, http.StatusInternalServerError, CONSERVATION_VIOLATION.New("broken").HTTPStatus(),
	)
}
