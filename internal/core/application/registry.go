package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/common"
	"github.com/strait-labs/straitd/internal/core/domain"
	"github.com/strait-labs/straitd/internal/core/ports"
	"github.com/strait-labs/straitd/pkg/errors"
)

// AssetRegistry owns the home-to-remote asset mappings. Registering a mapping
// also creates the wrapped asset record on the remote domain so the
// controller can track its supply from zero.
type AssetRegistry struct {
	homeDomain    domain.DomainID
	remoteDomains map[domain.DomainID]struct{}
	repoManager   ports.RepoManager
	operator      domain.Authority
}

func NewAssetRegistry(
	homeDomain domain.DomainID, remoteDomains []domain.DomainID,
	repoManager ports.RepoManager, operator domain.Authority,
) *AssetRegistry {
	domains := make(map[domain.DomainID]struct{}, len(remoteDomains))
	for _, remoteDomain := range remoteDomains {
		domains[remoteDomain] = struct{}{}
	}
	return &AssetRegistry{
		homeDomain:    homeDomain,
		remoteDomains: domains,
		repoManager:   repoManager,
		operator:      operator,
	}
}

// RegisterMapping derives the wrapped identifier for homeAsset on
// remoteDomain and records the mapping. The wrapped identifier is
// deterministic, registering the same pair twice fails.
func (r *AssetRegistry) RegisterMapping(
	ctx context.Context, auth domain.Authority,
	homeAsset domain.AssetID, remoteDomain domain.DomainID, displayName string,
) (domain.AssetID, errors.Error) {
	if !auth.Matches(r.operator) {
		return "", errors.UNAUTHORIZED.New("operator authority required")
	}
	if err := common.ValidateAssetID(string(homeAsset)); err != nil {
		return "", errors.INVALID_ASSET.Wrap(err).WithMetadata(errors.AssetMetadata{
			Asset: string(homeAsset), Domain: string(r.homeDomain),
		})
	}
	if _, ok := r.remoteDomains[remoteDomain]; !ok {
		return "", errors.UNKNOWN_DOMAIN.New(
			"domain %s is not bridged", remoteDomain,
		).WithMetadata(errors.AssetMetadata{
			Asset: string(homeAsset), Domain: string(remoteDomain),
		})
	}

	if mapping, err := r.repoManager.Assets().GetMappingByHomeAsset(
		ctx, homeAsset, remoteDomain,
	); err == nil && mapping != nil {
		return "", errors.ALREADY_MAPPED.New(
			"%s is already mapped on %s as %s", homeAsset, remoteDomain, mapping.RemoteAsset,
		).WithMetadata(errors.MappingMetadata{
			HomeAsset:    string(homeAsset),
			RemoteDomain: string(remoteDomain),
			RemoteAsset:  string(mapping.RemoteAsset),
		})
	}

	remoteAssetID, err := common.WrappedAssetID(string(homeAsset), string(remoteDomain))
	if err != nil {
		return "", errors.INVALID_ASSET.Wrap(err).WithMetadata(errors.AssetMetadata{
			Asset: string(homeAsset), Domain: string(remoteDomain),
		})
	}
	remoteAsset := domain.AssetID(remoteAssetID)

	now := time.Now().Unix()
	mapping := domain.AssetMapping{
		HomeAsset:    homeAsset,
		RemoteDomain: remoteDomain,
		RemoteAsset:  remoteAsset,
		DisplayName:  displayName,
		CreatedAt:    now,
	}
	if err := r.repoManager.Assets().AddMapping(ctx, mapping); err != nil {
		if err == domain.ErrMappingExists {
			return "", errors.ALREADY_MAPPED.Wrap(err).WithMetadata(errors.MappingMetadata{
				HomeAsset: string(homeAsset), RemoteDomain: string(remoteDomain),
			})
		}
		return "", errors.INTERNAL_ERROR.Wrap(err)
	}

	wrappedAsset := domain.WrappedAsset{
		AssetID:     remoteAsset,
		Domain:      remoteDomain,
		HomeAsset:   homeAsset,
		DisplayName: displayName,
		CreatedAt:   now,
	}
	if err := r.repoManager.Wrapped().AddWrappedAsset(ctx, wrappedAsset); err != nil {
		if err != domain.ErrWrappedAssetExists {
			return "", errors.INTERNAL_ERROR.Wrap(err)
		}
	}

	events := []domain.Event{domain.MappingRegistered{
		Type:         domain.EventTypeMappingRegistered,
		Id:           string(remoteAsset),
		HomeAsset:    homeAsset,
		RemoteDomain: remoteDomain,
		RemoteAsset:  remoteAsset,
		Timestamp:    now,
	}}
	if err := r.repoManager.Events().Save(
		ctx, domain.RegistryTopic, string(remoteAsset), events,
	); err != nil {
		log.WithError(err).Warn("failed to save mapping registered event")
	}

	log.Infof("registered mapping %s -> %s on %s", homeAsset, remoteAsset, remoteDomain)
	return remoteAsset, nil
}

// ResolveToRemote returns the wrapped counterpart of homeAsset on
// remoteDomain.
func (r *AssetRegistry) ResolveToRemote(
	ctx context.Context, homeAsset domain.AssetID, remoteDomain domain.DomainID,
) (domain.AssetID, errors.Error) {
	mapping, err := r.repoManager.Assets().GetMappingByHomeAsset(ctx, homeAsset, remoteDomain)
	if err != nil {
		if err == domain.ErrMappingNotFound {
			return "", errors.NOT_MAPPED.New(
				"%s has no wrapped counterpart on %s", homeAsset, remoteDomain,
			).WithMetadata(errors.MappingMetadata{
				HomeAsset: string(homeAsset), RemoteDomain: string(remoteDomain),
			})
		}
		return "", errors.INTERNAL_ERROR.Wrap(err)
	}
	return mapping.RemoteAsset, nil
}

// ResolveToHome returns the home counterpart of a wrapped asset.
func (r *AssetRegistry) ResolveToHome(
	ctx context.Context, remoteAsset domain.AssetID,
) (domain.AssetID, domain.DomainID, errors.Error) {
	mapping, err := r.repoManager.Assets().GetMappingByRemoteAsset(ctx, remoteAsset)
	if err != nil {
		if err == domain.ErrMappingNotFound {
			return "", "", errors.NOT_MAPPED.New(
				"%s has no home counterpart", remoteAsset,
			).WithMetadata(errors.MappingMetadata{RemoteAsset: string(remoteAsset)})
		}
		return "", "", errors.INTERNAL_ERROR.Wrap(err)
	}
	return mapping.HomeAsset, mapping.RemoteDomain, nil
}

// ListMappings returns every mapping, optionally filtered by remote domain.
func (r *AssetRegistry) ListMappings(
	ctx context.Context, remoteDomain domain.DomainID,
) ([]domain.AssetMapping, errors.Error) {
	mappings, err := r.repoManager.Assets().GetAllMappings(ctx, remoteDomain)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return mappings, nil
}

// IsBridgedDomain reports whether the given domain is one of the configured
// remote domains.
func (r *AssetRegistry) IsBridgedDomain(remoteDomain domain.DomainID) bool {
	_, ok := r.remoteDomains[remoteDomain]
	return ok
}

func (r *AssetRegistry) HomeDomain() domain.DomainID {
	return r.homeDomain
}

func (r *AssetRegistry) RemoteDomains() []domain.DomainID {
	domains := make([]domain.DomainID, 0, len(r.remoteDomains))
	for remoteDomain := range r.remoteDomains {
		domains = append(domains, remoteDomain)
	}
	return domains
}
