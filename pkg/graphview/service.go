package graphview

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	"github.com/Ramsey-B/fern/internal/repositories/roletag"
	"github.com/Ramsey-B/fern/pkg/cache"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	viewHierarchy = "hierarchy"
	viewClusters  = "clusters"
	viewGraph     = "graph"
)

// Service builds derived graph views over the role dictionary and
// relationship store, with an optional Redis cache in front.
type Service struct {
	roles         role.RoleRepository
	relationships relationship.RelationshipRepository
	tags          roletag.RoleTagRepository
	cache         *cache.Cache
	logger        ectologger.Logger
}

// NewService creates a new graph view service. cache may be nil, in which
// case every call rebuilds from the database.
func NewService(
	roles role.RoleRepository,
	relationships relationship.RelationshipRepository,
	tags roletag.RoleTagRepository,
	c *cache.Cache,
	logger ectologger.Logger,
) *Service {
	return &Service{
		roles:         roles,
		relationships: relationships,
		tags:          tags,
		cache:         c,
		logger:        logger,
	}
}

func (s *Service) load(ctx context.Context, tenantID string) ([]models.Role, []models.Relationship, error) {
	roles, err := s.roles.ListActive(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	edges, err := s.relationships.Query(ctx, tenantID, "", "")
	if err != nil {
		return nil, nil, err
	}

	return roles, edges, nil
}

// GetHierarchy returns the cycle-safe hierarchy tree for a tenant
func (s *Service) GetHierarchy(ctx context.Context, tenantID string) (*HierarchyTree, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphViewService.GetHierarchy")
	defer span.End()

	if s.cache != nil {
		var cached HierarchyTree
		if ok, err := s.cache.Get(ctx, tenantID, viewHierarchy, &cached); err != nil {
			s.logger.Warnf("Hierarchy cache read failed for tenant %s: %v", tenantID, err)
		} else if ok {
			return &cached, nil
		}
	}

	start := time.Now()
	roles, edges, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	primaryTags, err := s.tags.PrimaryTags(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tree := BuildTree(roles, edges, primaryTags)
	metrics.GraphBuildDuration.WithLabelValues(viewHierarchy).Observe(time.Since(start).Seconds())

	s.store(ctx, tenantID, viewHierarchy, tree)
	return tree, nil
}

// GetClusters returns connected-component clusters for a tenant
func (s *Service) GetClusters(ctx context.Context, tenantID string) ([]Cluster, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphViewService.GetClusters")
	defer span.End()

	if s.cache != nil {
		var cached []Cluster
		if ok, err := s.cache.Get(ctx, tenantID, viewClusters, &cached); err != nil {
			s.logger.Warnf("Cluster cache read failed for tenant %s: %v", tenantID, err)
		} else if ok {
			return cached, nil
		}
	}

	start := time.Now()
	roles, edges, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	clusters := BuildClusters(roles, edges)
	metrics.GraphBuildDuration.WithLabelValues(viewClusters).Observe(time.Since(start).Seconds())

	s.store(ctx, tenantID, viewClusters, clusters)
	return clusters, nil
}

// GetClusterRoots returns the entry points of the named cluster
func (s *Service) GetClusterRoots(ctx context.Context, tenantID, clusterName string, topN int) ([]ClusterRoot, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphViewService.GetClusterRoots")
	defer span.End()

	clusters, err := s.GetClusters(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	for _, c := range clusters {
		if c.Name == clusterName {
			edges, err := s.relationships.Query(ctx, tenantID, "", "")
			if err != nil {
				return nil, err
			}
			return ClusterRoots(c, edges, topN), nil
		}
	}

	return nil, &models.NotFoundError{Resource: "cluster", Key: clusterName}
}

// GetNeighborhood returns the immediate parents, children, and peers of a role
func (s *Service) GetNeighborhood(ctx context.Context, tenantID, roleName string) (*Neighborhood, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphViewService.GetNeighborhood")
	defer span.End()

	r, err := s.roles.GetByName(ctx, tenantID, roleName)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &models.NotFoundError{Resource: "role", Key: roleName}
	}

	edges, err := s.relationships.Query(ctx, tenantID, roleName, "")
	if err != nil {
		return nil, err
	}

	return BuildNeighborhood(r.NormalizedName, edges), nil
}

// GetGraph returns the full node-link graph, capped at maxNodes and
// filtered to links of at least minWeight
func (s *Service) GetGraph(ctx context.Context, tenantID string, maxNodes, minWeight int) (*Graph, error) {
	ctx, span := tracing.StartSpan(ctx, "GraphViewService.GetGraph")
	defer span.End()

	// Only the unfiltered view is cached; parameterized views are cheap
	// enough to rebuild and would fragment the cache.
	useCache := s.cache != nil && maxNodes <= 0 && minWeight <= 0

	if useCache {
		var cached Graph
		if ok, err := s.cache.Get(ctx, tenantID, viewGraph, &cached); err != nil {
			s.logger.Warnf("Graph cache read failed for tenant %s: %v", tenantID, err)
		} else if ok {
			return &cached, nil
		}
	}

	start := time.Now()
	roles, edges, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	graph := BuildGraph(roles, edges, maxNodes, minWeight)
	metrics.GraphBuildDuration.WithLabelValues(viewGraph).Observe(time.Since(start).Seconds())

	if useCache {
		s.store(ctx, tenantID, viewGraph, graph)
	}
	return graph, nil
}

// Invalidate drops all cached views for a tenant
func (s *Service) Invalidate(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warnf("Cache invalidation failed for tenant %s: %v", tenantID, err)
	}
}

func (s *Service) store(ctx context.Context, tenantID, view string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, tenantID, view, value); err != nil {
		s.logger.Warnf("Failed to cache %s view for tenant %s: %v", view, tenantID, err)
	}
}
