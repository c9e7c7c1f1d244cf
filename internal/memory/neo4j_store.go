package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore is an alternate hypergraph memory backend: nodes become
// (:Node) vertices, hyperedges become (:HyperEdge) vertices connected to
// their members via (:HyperEdge)-[:MEMBER {role, position}]->(:Node), which
// models unbounded-arity hyperedges without forcing every edge to be
// binary. Selected via Config.Backend == BackendNeo4j.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

var _ Store = (*Neo4jStore)(nil)

// NewNeo4jStore connects to a Neo4j instance and ensures required indexes
// exist.
func NewNeo4jStore(uri, username, password string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, newStorageError("neo4j.connect", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, newStorageError("neo4j.verify", err)
	}

	s := &Neo4jStore{driver: driver}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Neo4jStore) ensureIndexes(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	stmts := []string{
		"CREATE CONSTRAINT node_id IF NOT EXISTS FOR (n:Node) REQUIRE n.id IS UNIQUE",
		"CREATE CONSTRAINT edge_id IF NOT EXISTS FOR (e:HyperEdge) REQUIRE e.id IS UNIQUE",
		"CREATE FULLTEXT INDEX node_content IF NOT EXISTS FOR (n:Node) ON EACH [n.content]",
	}
	for _, stmt := range stmts {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return newStorageError("neo4j.index", err)
		}
	}
	return nil
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func nodeToProps(n *Node) map[string]interface{} {
	props := map[string]interface{}{
		"id":               n.ID,
		"node_type":        string(n.Kind),
		"subtype":          n.Subtype,
		"content":          n.Content,
		"tier":             int64(n.Tier),
		"confidence":       n.Confidence,
		"created_at":       n.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":       n.UpdatedAt.UTC().Format(time.RFC3339),
		"last_accessed_at": n.LastAccessed.UTC().Format(time.RFC3339),
		"access_count":     n.AccessCount,
		"metadata":         marshalOrWarn(n.Metadata, "node.metadata"),
	}
	if n.Provenance != nil {
		props["provenance_source"] = string(n.Provenance.Source)
		props["provenance_observed_at"] = n.Provenance.ObservedAt.UTC().Format(time.RFC3339)
		props["provenance_context"] = n.Provenance.Context
	}
	return props
}

func recordToNode(rec *neo4j.Record) (*Node, error) {
	m, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "n")
	if err != nil {
		return nil, err
	}
	p := m.Props
	n := &Node{
		ID:         asString(p["id"]),
		Kind:       NodeKind(asString(p["node_type"])),
		Subtype:    asString(p["subtype"]),
		Content:    asString(p["content"]),
		Tier:       Tier(asInt(p["tier"])),
		Confidence: asFloat(p["confidence"]),
		CreatedAt:  parseTimeOrNow(asString(p["created_at"]), "created_at"),
		UpdatedAt:  parseTimeOrNow(asString(p["updated_at"]), "updated_at"),
		LastAccessed: parseTimeOrNow(asString(p["last_accessed_at"]), "last_accessed_at"),
		AccessCount:  int64(asInt(p["access_count"])),
	}
	if src := asString(p["provenance_source"]); src != "" {
		n.Provenance = &Provenance{
			Source:     SourceType(src),
			ObservedAt: parseTimeOrNow(asString(p["provenance_observed_at"]), "provenance.observed_at"),
			Context:    asString(p["provenance_context"]),
		}
	}
	if meta := asString(p["metadata"]); meta != "" {
		var mm map[string]interface{}
		if err := json.Unmarshal([]byte(meta), &mm); err != nil {
			log.Printf("Warning: failed to unmarshal node metadata for %s: %v", n.ID, err)
		} else {
			n.Metadata = mm
		}
	}
	return n, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
func asInt(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	}
	return 0
}
func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	}
	return 0
}

func (s *Neo4jStore) AddNode(ctx context.Context, n *Node) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.LastAccessed.IsZero() {
		n.LastAccessed = now
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, "CREATE (n:Node $props)", map[string]interface{}{"props": nodeToProps(n)})
		return nil, err
	})
	if err != nil {
		return newStorageError("add_node", err)
	}
	return nil
}

func (s *Neo4jStore) GetNode(ctx context.Context, id string) (*Node, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `MATCH (n:Node {id: $id})
			SET n.last_accessed_at = $now, n.access_count = coalesce(n.access_count, 0) + 1
			RETURN n`, map[string]interface{}{"id": id, "now": time.Now().UTC().Format(time.RFC3339)})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, nil
		}
		return recordToNode(rec)
	})
	if err != nil {
		return nil, newStorageError("get_node", err)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*Node), nil
}

func (s *Neo4jStore) UpdateNode(ctx context.Context, n *Node) error {
	n.UpdatedAt = time.Now().UTC()
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, `MATCH (n:Node {id: $id})
			SET n.content=$content, n.tier=$tier, n.confidence=$confidence,
				n.updated_at=$updated_at, n.last_accessed_at=$last_accessed_at,
				n.access_count=$access_count, n.metadata=$metadata`,
			map[string]interface{}{
				"id": n.ID, "content": n.Content, "tier": int64(n.Tier), "confidence": n.Confidence,
				"updated_at": n.UpdatedAt.Format(time.RFC3339), "last_accessed_at": n.LastAccessed.Format(time.RFC3339),
				"access_count": n.AccessCount, "metadata": marshalOrWarn(n.Metadata, "node.metadata"),
			})
		return nil, err
	})
	if err != nil {
		return newStorageError("update_node", err)
	}
	return nil
}

func (s *Neo4jStore) DeleteNode(ctx context.Context, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, `MATCH (n:Node {id: $id})
			OPTIONAL MATCH (e:HyperEdge)-[:MEMBER]->(n)
			DETACH DELETE n, e`, map[string]interface{}{"id": id})
		return nil, err
	})
	if err != nil {
		return newStorageError("delete_node", err)
	}
	return nil
}

func (s *Neo4jStore) QueryNodes(ctx context.Context, q NodeQuery) ([]*Node, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	cypher := "MATCH (n:Node) WHERE n.confidence >= $min_confidence"
	params := map[string]interface{}{"min_confidence": q.MinConfidence}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		cypher += " AND n.node_type IN $kinds"
		params["kinds"] = kinds
	}
	if len(q.Tiers) > 0 {
		tiers := make([]int64, len(q.Tiers))
		for i, t := range q.Tiers {
			tiers[i] = int64(t)
		}
		cypher += " AND n.tier IN $tiers"
		params["tiers"] = tiers
	}
	cypher += " RETURN n ORDER BY n.last_accessed_at DESC"
	if q.Limit > 0 {
		cypher += fmt.Sprintf(" SKIP %d LIMIT %d", q.Offset, q.Limit)
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []*Node
		for res.Next(ctx) {
			n, err := recordToNode(res.Record())
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, newStorageError("query_nodes", err)
	}
	return result.([]*Node), nil
}

func (s *Neo4jStore) SearchContent(ctx context.Context, query string, limit int) ([]*Node, error) {
	if limit <= 0 {
		limit = 20
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `CALL db.index.fulltext.queryNodes("node_content", $query) YIELD node, score
			RETURN node AS n ORDER BY score DESC LIMIT $limit`,
			map[string]interface{}{"query": query, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		var out []*Node
		for res.Next(ctx) {
			n, err := recordToNode(res.Record())
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, newStorageError("search_content", err)
	}
	return result.([]*Node), nil
}

func (s *Neo4jStore) AddEdge(ctx context.Context, e *HyperEdge) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Weight == 0 {
		e.Weight = 1.0
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		if _, err := tx.Run(ctx, `CREATE (e:HyperEdge {id:$id, edge_type:$edge_type, label:$label, weight:$weight,
			created_at:$created_at, metadata:$metadata})`,
			map[string]interface{}{
				"id": e.ID, "edge_type": string(e.Kind), "label": e.Label, "weight": e.Weight,
				"created_at": e.CreatedAt.Format(time.RFC3339), "metadata": marshalOrWarn(e.Metadata, "edge.metadata"),
			}); err != nil {
			return nil, err
		}
		for _, m := range e.Members {
			if _, err := tx.Run(ctx, `MATCH (e:HyperEdge {id:$eid}), (n:Node {id:$nid})
				CREATE (e)-[:MEMBER {role:$role, position:$position}]->(n)`,
				map[string]interface{}{"eid": e.ID, "nid": m.NodeID, "role": m.Role, "position": int64(m.Position)}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return newStorageError("add_edge", err)
	}
	return nil
}

func (s *Neo4jStore) GetEdgesForNode(ctx context.Context, nodeID string) ([]*HyperEdge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `MATCH (e:HyperEdge)-[:MEMBER]->(n:Node {id:$id})
			MATCH (e)-[r:MEMBER]->(m:Node)
			RETURN e, collect({node_id:m.id, role:r.role, position:r.position}) AS members
			ORDER BY e.created_at`, map[string]interface{}{"id": nodeID})
		if err != nil {
			return nil, err
		}
		var out []*HyperEdge
		for res.Next(ctx) {
			rec := res.Record()
			en, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "e")
			if err != nil {
				return nil, err
			}
			edge := &HyperEdge{
				ID:        asString(en.Props["id"]),
				Kind:      EdgeKind(asString(en.Props["edge_type"])),
				Label:     asString(en.Props["label"]),
				Weight:    asFloat(en.Props["weight"]),
				CreatedAt: parseTimeOrNow(asString(en.Props["created_at"]), "edge.created_at"),
			}
			membersRaw, _ := rec.Get("members")
			if ms, ok := membersRaw.([]interface{}); ok {
				for _, mi := range ms {
					if mm, ok := mi.(map[string]interface{}); ok {
						edge.Members = append(edge.Members, Member{
							NodeID:   asString(mm["node_id"]),
							Role:     asString(mm["role"]),
							Position: int(asInt(mm["position"])),
						})
					}
				}
			}
			out = append(out, edge)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, newStorageError("get_edges_for_node", err)
	}
	return result.([]*HyperEdge), nil
}

func (s *Neo4jStore) DeleteEdge(ctx context.Context, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, `MATCH (e:HyperEdge {id:$id}) DETACH DELETE e`, map[string]interface{}{"id": id})
		return nil, err
	})
	if err != nil {
		return newStorageError("delete_edge", err)
	}
	return nil
}

func (s *Neo4jStore) Promote(ctx context.Context, nodeIDs []string, reason string) ([]*Node, error) {
	var promoted []*Node
	for _, id := range nodeIDs {
		n, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if n == nil {
			continue
		}
		next, ok := n.Tier.Next()
		if !ok {
			continue
		}
		from := n.Tier
		n.Tier = next
		if err := s.UpdateNode(ctx, n); err != nil {
			return nil, err
		}
		if err := s.logEvolution(ctx, n.ID, "promote", &from, &next, reason); err != nil {
			return nil, err
		}
		promoted = append(promoted, n)
	}
	return promoted, nil
}

func (s *Neo4jStore) logEvolution(ctx context.Context, nodeID, op string, from, to *Tier, reason string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	params := map[string]interface{}{
		"node_id": nodeID, "operation": op, "reason": reason, "created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if from != nil {
		params["from_tier"] = int64(*from)
	}
	if to != nil {
		params["to_tier"] = int64(*to)
	}
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, `CREATE (:Evolution $props)`, map[string]interface{}{"props": params})
		return nil, err
	})
	return err
}

func (s *Neo4jStore) Decay(ctx context.Context, factor, minConfidence float64) ([]*Node, error) {
	nodes, err := s.QueryNodes(ctx, NodeQuery{MinConfidence: minConfidence})
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var decayed []*Node
	for _, n := range nodes {
		hours := now.Sub(n.LastAccessed).Hours()
		if hours < 0 {
			hours = 0
		}
		newConfidence := n.Confidence * math.Pow(factor, hours/24.0)
		if newConfidence < 0 {
			newConfidence = 0
		}
		if newConfidence >= n.Confidence {
			continue
		}
		n.Confidence = newConfidence
		if err := s.UpdateNode(ctx, n); err != nil {
			return nil, err
		}
		decayed = append(decayed, n)
	}
	return decayed, nil
}

func (s *Neo4jStore) Consolidate(ctx context.Context, fromTier, toTier Tier) (*ConsolidationResult, error) {
	nodes, err := s.QueryNodes(ctx, NodeQuery{Tiers: []Tier{fromTier}})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	promoted, err := s.Promote(ctx, ids, fmt.Sprintf("consolidate %s -> %s", fromTier, toTier))
	if err != nil {
		return nil, err
	}
	promotedIDs := make([]string, len(promoted))
	for i, n := range promoted {
		promotedIDs[i] = n.ID
	}
	return &ConsolidationResult{
		SourceNodes:   ids,
		PromotedNodes: promotedIDs,
		ArchivedNodes: []string{},
		Summary:       fmt.Sprintf("consolidated %d of %d nodes from %s to %s", len(promotedIDs), len(ids), fromTier, toTier),
	}, nil
}

func (s *Neo4jStore) GetEvolutionHistory(ctx context.Context, nodeID string) ([]*EvolutionEntry, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `MATCH (e:Evolution {node_id:$id}) RETURN e ORDER BY e.created_at DESC`,
			map[string]interface{}{"id": nodeID})
		if err != nil {
			return nil, err
		}
		var out []*EvolutionEntry
		for res.Next(ctx) {
			en, _, err := neo4j.GetRecordValue[neo4j.Node](res.Record(), "e")
			if err != nil {
				return nil, err
			}
			entry := &EvolutionEntry{
				NodeID:    asString(en.Props["node_id"]),
				Operation: asString(en.Props["operation"]),
				Reason:    asString(en.Props["reason"]),
				CreatedAt: parseTimeOrNow(asString(en.Props["created_at"]), "evolution.created_at"),
			}
			if v, ok := en.Props["from_tier"]; ok {
				t := Tier(asInt(v))
				entry.FromTier = &t
			}
			if v, ok := en.Props["to_tier"]; ok {
				t := Tier(asInt(v))
				entry.ToTier = &t
			}
			out = append(out, entry)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, newStorageError("evolution_history", err)
	}
	return result.([]*EvolutionEntry), nil
}

func (s *Neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		stats := &Stats{NodesByTier: map[string]int{}, NodesByKind: map[string]int{}}

		res, err := tx.Run(ctx, `MATCH (n:Node) RETURN count(n) AS c`, nil)
		if err != nil {
			return nil, err
		}
		if rec, err := res.Single(ctx); err == nil {
			c, _ := rec.Get("c")
			stats.NodeCount = int(asInt(c))
		}

		res, err = tx.Run(ctx, `MATCH (e:HyperEdge) RETURN count(e) AS c`, nil)
		if err != nil {
			return nil, err
		}
		if rec, err := res.Single(ctx); err == nil {
			c, _ := rec.Get("c")
			stats.EdgeCount = int(asInt(c))
		}

		res, err = tx.Run(ctx, `MATCH (n:Node) RETURN n.tier AS tier, count(*) AS c`, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			rec := res.Record()
			tier, _ := rec.Get("tier")
			c, _ := rec.Get("c")
			stats.NodesByTier[Tier(asInt(tier)).String()] = int(asInt(c))
		}

		res, err = tx.Run(ctx, `MATCH (n:Node) RETURN n.node_type AS kind, count(*) AS c`, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			rec := res.Record()
			kind, _ := rec.Get("kind")
			c, _ := rec.Get("c")
			stats.NodesByKind[asString(kind)] = int(asInt(c))
		}

		return stats, nil
	})
	if err != nil {
		return nil, newStorageError("stats", err)
	}
	return result.(*Stats), nil
}
