package localrelay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
)

// relay issues self-contained proof tokens: the serialized receipt plus an
// HMAC over it. Verification needs no lookup, any token that authenticates
// against the relay key reproduces the receipt it was minted for. Single
// process deployments run both domains against the same relay.
type relay struct {
	key []byte
}

func NewProofRelay(key []byte) (ports.ProofRelay, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("relay key is required")
	}
	return &relay{key: key}, nil
}

func (r *relay) Submit(
	ctx context.Context, receipt domain.Receipt,
) (ports.ProofToken, error) {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("failed to serialize receipt: %w", err)
	}
	token := fmt.Sprintf(
		"%s.%s",
		base64.RawURLEncoding.EncodeToString(payload),
		base64.RawURLEncoding.EncodeToString(r.sign(payload)),
	)
	return ports.ProofToken(token), nil
}

func (r *relay) Verify(
	ctx context.Context, token ports.ProofToken,
) (*domain.Receipt, error) {
	parts := strings.Split(token.String(), ".")
	if len(parts) != 2 {
		return nil, ports.ErrProofInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ports.ErrProofInvalid
	}
	mac, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ports.ErrProofInvalid
	}
	if !hmac.Equal(mac, r.sign(payload)) {
		return nil, ports.ErrProofInvalid
	}

	var receipt domain.Receipt
	if err := json.Unmarshal(payload, &receipt); err != nil {
		return nil, ports.ErrProofInvalid
	}
	return &receipt, nil
}

func (r *relay) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, r.key)
	// nolint:errcheck
	mac.Write(payload)
	return mac.Sum(nil)
}
