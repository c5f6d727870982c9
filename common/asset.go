package common

import (
	"fmt"
	"strings"
)

const (
	// WrappedAssetPrefix marks an asset identifier as the wrapped
	// representation of a home-domain asset.
	WrappedAssetPrefix = "w"
	// WrappedAssetSeparator splits the asset part from the domain part of a
	// wrapped asset identifier.
	WrappedAssetSeparator = "@"

	maxAssetIDLength  = 64
	maxDomainIDLength = 32
)

// WrappedAssetID derives the canonical identifier of the wrapped
// representation of homeAsset on remoteDomain, for example
// WrappedAssetID("CHEESE", "L2A") returns "wCHEESE@L2A".
func WrappedAssetID(homeAsset, remoteDomain string) (string, error) {
	if err := ValidateAssetID(homeAsset); err != nil {
		return "", err
	}
	if err := ValidateDomainID(remoteDomain); err != nil {
		return "", err
	}
	if strings.HasPrefix(homeAsset, WrappedAssetPrefix) && strings.Contains(homeAsset, WrappedAssetSeparator) {
		return "", fmt.Errorf("home asset %s is already a wrapped identifier", homeAsset)
	}
	return fmt.Sprintf(
		"%s%s%s%s", WrappedAssetPrefix, homeAsset, WrappedAssetSeparator, remoteDomain,
	), nil
}

// ParseWrappedAssetID decomposes a wrapped asset identifier into the home
// asset and the remote domain it circulates on. It fails on identifiers that
// were not produced by WrappedAssetID.
func ParseWrappedAssetID(assetID string) (homeAsset string, remoteDomain string, err error) {
	if !strings.HasPrefix(assetID, WrappedAssetPrefix) {
		return "", "", fmt.Errorf("invalid wrapped asset %s: missing %s prefix", assetID, WrappedAssetPrefix)
	}
	trimmed := strings.TrimPrefix(assetID, WrappedAssetPrefix)
	parts := strings.Split(trimmed, WrappedAssetSeparator)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid wrapped asset %s: expected single %s separator", assetID, WrappedAssetSeparator)
	}
	if err := ValidateAssetID(parts[0]); err != nil {
		return "", "", fmt.Errorf("invalid wrapped asset %s: %s", assetID, err)
	}
	if err := ValidateDomainID(parts[1]); err != nil {
		return "", "", fmt.Errorf("invalid wrapped asset %s: %s", assetID, err)
	}
	return parts[0], parts[1], nil
}

// IsWrappedAssetID reports whether assetID parses as a wrapped asset
// identifier.
func IsWrappedAssetID(assetID string) bool {
	_, _, err := ParseWrappedAssetID(assetID)
	return err == nil
}

// ValidateAssetID enforces the identifier charset shared by every domain:
// non-empty, at most 64 chars, alphanumerics plus '-' and '_'.
func ValidateAssetID(assetID string) error {
	if len(assetID) == 0 {
		return fmt.Errorf("missing asset id")
	}
	if len(assetID) > maxAssetIDLength {
		return fmt.Errorf("asset id too long, max %d chars", maxAssetIDLength)
	}
	if !isIdentifier(assetID) {
		return fmt.Errorf("asset id %s contains invalid chars", assetID)
	}
	return nil
}

// ValidateDomainID enforces the domain identifier charset: non-empty, at most
// 32 chars, alphanumerics plus '-' and '_'.
func ValidateDomainID(domainID string) error {
	if len(domainID) == 0 {
		return fmt.Errorf("missing domain id")
	}
	if len(domainID) > maxDomainIDLength {
		return fmt.Errorf("domain id too long, max %d chars", maxDomainIDLength)
	}
	if !isIdentifier(domainID) {
		return fmt.Errorf("domain id %s contains invalid chars", domainID)
	}
	return nil
}

func isIdentifier(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
