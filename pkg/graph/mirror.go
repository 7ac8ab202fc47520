package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Mirror keeps role nodes and relationship edges in the graph database in
// step with the dictionary. All writes here are best-effort mirrors of state
// already committed to Postgres; the dictionary is the source of truth.
type Mirror struct {
	client *Client
	logger ectologger.Logger
}

// NewMirror creates a new graph mirror
func NewMirror(client *Client, logger ectologger.Logger) *Mirror {
	return &Mirror{
		client: client,
		logger: logger,
	}
}

// UpsertRole creates or updates a role node keyed by tenant and normalized name.
func (m *Mirror) UpsertRole(ctx context.Context, role *models.Role) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.UpsertRole")
	defer span.End()

	props := map[string]any{
		"tenant_id":       role.TenantID,
		"normalized_name": role.NormalizedName,
		"name":            role.Name,
		"category":        role.Category,
		"disposition":     role.Disposition,
		"is_deliverable":  role.IsDeliverable,
		"is_active":       role.IsActive,
	}

	cypher := `
		MERGE (r:Role {normalized_name: $normalized_name, tenant_id: $tenant_id})
		SET r = $props
		RETURN r
	`

	_, err := m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"normalized_name": role.NormalizedName,
			"tenant_id":       role.TenantID,
			"props":           props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"role": role.NormalizedName,
		}).Error("failed to upsert role node")
		return fmt.Errorf("failed to upsert role node: %w", err)
	}

	return nil
}

// RemoveRole detaches and deletes a role node and its edges.
func (m *Mirror) RemoveRole(ctx context.Context, tenantID, normalizedName string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.RemoveRole")
	defer span.End()

	cypher := `
		MATCH (r:Role {normalized_name: $normalized_name, tenant_id: $tenant_id})
		DETACH DELETE r
	`

	_, err := m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"normalized_name": normalizedName,
			"tenant_id":       tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to remove role node: %w", err)
	}

	return nil
}

// RenameRole moves a node's identity key, rewiring nothing: edges follow the
// node.
func (m *Mirror) RenameRole(ctx context.Context, tenantID, oldNorm, newNorm, newName string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.RenameRole")
	defer span.End()

	cypher := `
		MATCH (r:Role {normalized_name: $old, tenant_id: $tenant_id})
		SET r.normalized_name = $new, r.name = $name
		RETURN r
	`

	_, err := m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"old":       oldNorm,
			"new":       newNorm,
			"name":      newName,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to rename role node: %w", err)
	}

	return nil
}

// UpsertRelationship mirrors a typed edge. The relationship type becomes the
// edge label, so direction-aware Cypher queries stay cheap.
func (m *Mirror) UpsertRelationship(ctx context.Context, rel *models.Relationship) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.UpsertRelationship")
	defer span.End()

	cypher := fmt.Sprintf(`
		MERGE (a:Role {normalized_name: $source, tenant_id: $tenant_id})
		MERGE (b:Role {normalized_name: $target, tenant_id: $tenant_id})
		MERGE (a)-[e:%s]->(b)
		SET e.weight = $weight, e.source_tag = $source_tag
	`, edgeLabel(rel.Type))

	_, err := m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"source":     rel.SourceRole,
			"target":     rel.TargetRole,
			"tenant_id":  rel.TenantID,
			"weight":     rel.Weight,
			"source_tag": rel.SourceTag,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert relationship edge: %w", err)
	}

	return nil
}

// RemoveRelationship deletes the mirrored edge for a triple.
func (m *Mirror) RemoveRelationship(ctx context.Context, tenantID, source, target, relType string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.RemoveRelationship")
	defer span.End()

	cypher := fmt.Sprintf(`
		MATCH (a:Role {normalized_name: $source, tenant_id: $tenant_id})-[e:%s]->(b:Role {normalized_name: $target, tenant_id: $tenant_id})
		DELETE e
	`, edgeLabel(relType))

	_, err := m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"source":    source,
			"target":    target,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to remove relationship edge: %w", err)
	}

	return nil
}

// Rebuild wipes a tenant's mirrored graph and reloads it from the given
// dictionary state in one write transaction per batch.
func (m *Mirror) Rebuild(ctx context.Context, tenantID string, roles []models.Role, edges []models.Relationship) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.Rebuild")
	defer span.End()

	_, err := m.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `MATCH (r:Role {tenant_id: $tenant_id}) DETACH DELETE r`, map[string]any{
			"tenant_id": tenantID,
		}); err != nil {
			return nil, err
		}

		nodeBatch := make([]map[string]any, 0, len(roles))
		for i := range roles {
			nodeBatch = append(nodeBatch, map[string]any{
				"tenant_id":       tenantID,
				"normalized_name": roles[i].NormalizedName,
				"name":            roles[i].Name,
				"category":        roles[i].Category,
				"disposition":     roles[i].Disposition,
				"is_deliverable":  roles[i].IsDeliverable,
				"is_active":       roles[i].IsActive,
			})
		}
		if _, err := tx.Run(ctx, `
			UNWIND $batch AS props
			MERGE (r:Role {normalized_name: props.normalized_name, tenant_id: props.tenant_id})
			SET r = props
		`, map[string]any{"batch": nodeBatch}); err != nil {
			return nil, err
		}

		byType := make(map[string][]map[string]any)
		for i := range edges {
			byType[edges[i].Type] = append(byType[edges[i].Type], map[string]any{
				"source":     edges[i].SourceRole,
				"target":     edges[i].TargetRole,
				"weight":     edges[i].Weight,
				"source_tag": edges[i].SourceTag,
			})
		}
		for relType, batch := range byType {
			cypher := fmt.Sprintf(`
				UNWIND $batch AS edge
				MERGE (a:Role {normalized_name: edge.source, tenant_id: $tenant_id})
				MERGE (b:Role {normalized_name: edge.target, tenant_id: $tenant_id})
				MERGE (a)-[e:%s]->(b)
				SET e.weight = edge.weight, e.source_tag = edge.source_tag
			`, edgeLabel(relType))
			if _, err := tx.Run(ctx, cypher, map[string]any{"batch": batch, "tenant_id": tenantID}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Error("failed to rebuild mirrored graph")
		return fmt.Errorf("failed to rebuild mirrored graph: %w", err)
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"nodes":     len(roles),
		"edges":     len(edges),
	}).Info("rebuilt mirrored graph")

	return nil
}

// Neighborhood returns the names of roles within the given number of hops of
// a node, any edge type and direction.
func (m *Mirror) Neighborhood(ctx context.Context, tenantID, normalizedName string, hops int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.Neighborhood")
	defer span.End()

	if hops < 1 {
		hops = 1
	}

	cypher := fmt.Sprintf(`
		MATCH (r:Role {normalized_name: $name, tenant_id: $tenant_id})-[*1..%d]-(n:Role)
		WHERE n.tenant_id = $tenant_id
		RETURN DISTINCT n.normalized_name AS name
		ORDER BY name
	`, hops)

	result, err := m.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rows, err := tx.Run(ctx, cypher, map[string]any{
			"name":      normalizedName,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}

		var names []string
		for rows.Next(ctx) {
			if v, ok := rows.Record().Get("name"); ok {
				if s, ok := v.(string); ok {
					names = append(names, s)
				}
			}
		}
		return names, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query neighborhood: %w", err)
	}

	names, _ := result.([]string)
	return names, nil
}

// edgeLabel maps a relationship type to a Cypher-safe edge label.
func edgeLabel(relType string) string {
	label := strings.ToUpper(relType)
	label = strings.NewReplacer("-", "_", " ", "_").Replace(label)
	var b strings.Builder
	for _, r := range label {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "RELATED_TO"
	}
	return b.String()
}
