package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the hypergraph memory store backed by a single SQLite
// connection. All mutations serialize on mu so that a read following a
// successful write on this handle always observes the write.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	stmtInsertNode   *sql.Stmt
	stmtGetNode      *sql.Stmt
	stmtUpdateNode   *sql.Stmt
	stmtDeleteNode   *sql.Stmt
	stmtInsertEdge   *sql.Stmt
	stmtInsertMember *sql.Stmt
	stmtInsertEvo    *sql.Stmt
	stmtTouchNode    *sql.Stmt
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if necessary) a hypergraph memory store at
// dbPath. dbPath may be ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string, busyTimeoutMs int) (*SQLiteStore, error) {
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = 5000
	}
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(%d)", dbPath, busyTimeoutMs)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newStorageError("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, newStorageError("ping", err)
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, newStorageError("configure", err)
	}
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, newStorageError("schema", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, newStorageError("prepare", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error
	s.stmtInsertNode, err = s.db.Prepare(`
		INSERT INTO nodes (id, node_type, subtype, content, embedding, tier, confidence,
			provenance_source, provenance_observed_at, provenance_context,
			created_at, updated_at, last_accessed_at, access_count, metadata)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	s.stmtGetNode, err = s.db.Prepare(`SELECT id, node_type, subtype, content, embedding, tier, confidence,
			provenance_source, provenance_observed_at, provenance_context,
			created_at, updated_at, last_accessed_at, access_count, metadata
		FROM nodes WHERE id = ?`)
	if err != nil {
		return err
	}
	s.stmtUpdateNode, err = s.db.Prepare(`UPDATE nodes SET content=?, embedding=?, tier=?, confidence=?,
			updated_at=?, last_accessed_at=?, access_count=?, metadata=? WHERE id=?`)
	if err != nil {
		return err
	}
	s.stmtDeleteNode, err = s.db.Prepare(`DELETE FROM nodes WHERE id=?`)
	if err != nil {
		return err
	}
	s.stmtInsertEdge, err = s.db.Prepare(`INSERT INTO hyperedges (id, edge_type, label, weight, created_at, metadata)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	s.stmtInsertMember, err = s.db.Prepare(`INSERT INTO membership (hyperedge_id, node_id, role, position)
		VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	s.stmtInsertEvo, err = s.db.Prepare(`INSERT INTO evolution_log (node_id, operation, from_tier, to_tier, reason, created_at)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	s.stmtTouchNode, err = s.db.Prepare(`UPDATE nodes SET last_accessed_at=?, access_count=access_count+1 WHERE id=?`)
	return err
}

func (s *SQLiteStore) Close() error {
	for _, st := range []*sql.Stmt{s.stmtInsertNode, s.stmtGetNode, s.stmtUpdateNode, s.stmtDeleteNode,
		s.stmtInsertEdge, s.stmtInsertMember, s.stmtInsertEvo, s.stmtTouchNode} {
		if st != nil {
			st.Close()
		}
	}
	return s.db.Close()
}

func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func marshalOrWarn(v interface{}, field string) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("Warning: failed to marshal %s: %v", field, err)
		return ""
	}
	return string(b)
}

func parseTimeOrNow(s string, field string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		log.Printf("Warning: failed to parse %s timestamp %q, using now: %v", field, s, err)
		return time.Now().UTC()
	}
	return t
}

// AddNode inserts a new node, generating an ID if one is not set.
func (s *SQLiteStore) AddNode(ctx context.Context, n *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	var provSource, provObserved, provContext string
	if n.Provenance != nil {
		provSource = string(n.Provenance.Source)
		provObserved = n.Provenance.ObservedAt.UTC().Format(time.RFC3339)
		provContext = n.Provenance.Context
	}

	_, err := s.stmtInsertNode.ExecContext(ctx, n.ID, string(n.Kind), n.Subtype, n.Content,
		encodeEmbedding(n.Embedding), int(n.Tier), n.Confidence,
		provSource, provObserved, provContext,
		n.CreatedAt.Format(time.RFC3339), n.UpdatedAt.Format(time.RFC3339), n.LastAccessed.Format(time.RFC3339),
		n.AccessCount, marshalOrWarn(n.Metadata, "node.metadata"))
	if err != nil {
		return newStorageError("add_node", err)
	}
	return nil
}

func (s *SQLiteStore) rowToNode(row interface {
	Scan(dest ...interface{}) error
}) (*Node, error) {
	var id, kind, subtype, content, provSource, provObserved, provContext string
	var embedding []byte
	var tier int
	var confidence float64
	var createdAt, updatedAt, lastAccessed string
	var accessCount int64
	var metadataJSON sql.NullString

	if err := row.Scan(&id, &kind, &subtype, &content, &embedding, &tier, &confidence,
		&provSource, &provObserved, &provContext,
		&createdAt, &updatedAt, &lastAccessed, &accessCount, &metadataJSON); err != nil {
		return nil, err
	}

	n := &Node{
		ID:           id,
		Kind:         NodeKind(kind),
		Subtype:      subtype,
		Content:      content,
		Embedding:    decodeEmbedding(embedding),
		Tier:         Tier(tier),
		Confidence:   confidence,
		CreatedAt:    parseTimeOrNow(createdAt, "created_at"),
		UpdatedAt:    parseTimeOrNow(updatedAt, "updated_at"),
		LastAccessed: parseTimeOrNow(lastAccessed, "last_accessed_at"),
		AccessCount:  accessCount,
	}
	if provSource != "" {
		n.Provenance = &Provenance{
			Source:     SourceType(provSource),
			ObservedAt: parseTimeOrNow(provObserved, "provenance.observed_at"),
			Context:    provContext,
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(metadataJSON.String), &m); err != nil {
			log.Printf("Warning: failed to unmarshal node metadata for %s: %v", id, err)
		} else {
			n.Metadata = m
		}
	}
	return n, nil
}

// GetNode fetches a node by ID and bumps its access bookkeeping.
func (s *SQLiteStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.stmtGetNode.QueryRowContext(ctx, id)
	n, err := s.rowToNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, newStorageError("get_node", err)
	}

	now := time.Now().UTC()
	if _, err := s.stmtTouchNode.ExecContext(ctx, now.Format(time.RFC3339), id); err != nil {
		return nil, newStorageError("touch_node", err)
	}
	n.LastAccessed = now
	n.AccessCount++
	return n, nil
}

// UpdateNode persists content/embedding/tier/confidence/metadata changes.
// node_type, subtype, and provenance are immutable post-creation.
func (s *SQLiteStore) UpdateNode(ctx context.Context, n *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.UpdatedAt = time.Now().UTC()
	_, err := s.stmtUpdateNode.ExecContext(ctx, n.Content, encodeEmbedding(n.Embedding), int(n.Tier), n.Confidence,
		n.UpdatedAt.Format(time.RFC3339), n.LastAccessed.Format(time.RFC3339), n.AccessCount,
		marshalOrWarn(n.Metadata, "node.metadata"), n.ID)
	if err != nil {
		return newStorageError("update_node", err)
	}
	return nil
}

// DeleteNode removes a node and cascades: every hyperedge referencing it is
// dropped, along with now-orphaned membership rows.
func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newStorageError("delete_node.begin", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT hyperedge_id FROM membership WHERE node_id = ?`, id)
	if err != nil {
		return newStorageError("delete_node.find_edges", err)
	}
	var edgeIDs []string
	for rows.Next() {
		var eid string
		if err := rows.Scan(&eid); err != nil {
			rows.Close()
			return newStorageError("delete_node.scan_edge", err)
		}
		edgeIDs = append(edgeIDs, eid)
	}
	rows.Close()

	for _, eid := range edgeIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM membership WHERE hyperedge_id = ?`, eid); err != nil {
			return newStorageError("delete_node.clear_membership", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM hyperedges WHERE id = ?`, eid); err != nil {
			return newStorageError("delete_node.drop_edge", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return newStorageError("delete_node", err)
	}
	return tx.Commit()
}

// QueryNodes filters by kind set, tier set, and minimum confidence, ordered
// by last_accessed descending.
func (s *SQLiteStore) QueryNodes(ctx context.Context, q NodeQuery) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []interface{}

	if len(q.Kinds) > 0 {
		placeholders := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, fmt.Sprintf("node_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(q.Tiers) > 0 {
		placeholders := make([]string, len(q.Tiers))
		for i, t := range q.Tiers {
			placeholders[i] = "?"
			args = append(args, int(t))
		}
		where = append(where, fmt.Sprintf("tier IN (%s)", strings.Join(placeholders, ",")))
	}
	if q.MinConfidence > 0 {
		where = append(where, "confidence >= ?")
		args = append(args, q.MinConfidence)
	}

	query := "SELECT id, node_type, subtype, content, embedding, tier, confidence, " +
		"provenance_source, provenance_observed_at, provenance_context, " +
		"created_at, updated_at, last_accessed_at, access_count, metadata FROM nodes"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_accessed_at DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError("query_nodes", err)
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := s.rowToNode(rows)
		if err != nil {
			return nil, newStorageError("query_nodes.scan", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// SearchContent performs a full-text match over node content, ordered by
// match rank (best first).
func (s *SQLiteStore) SearchContent(ctx context.Context, query string, limit int) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.node_type, n.subtype, n.content, n.embedding, n.tier, n.confidence,
			n.provenance_source, n.provenance_observed_at, n.provenance_context,
			n.created_at, n.updated_at, n.last_accessed_at, n.access_count, n.metadata
		FROM nodes_fts f
		JOIN nodes n ON n.rowid = f.rowid
		WHERE f.content MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, newStorageError("search_content", err)
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := s.rowToNode(rows)
		if err != nil {
			return nil, newStorageError("search_content.scan", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// AddEdge inserts a hyperedge and each of its member tuples.
func (s *SQLiteStore) AddEdge(ctx context.Context, e *HyperEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Weight == 0 {
		e.Weight = 1.0
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newStorageError("add_edge.begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.Stmt(s.stmtInsertEdge).ExecContext(ctx, e.ID, string(e.Kind), e.Label, e.Weight,
		e.CreatedAt.Format(time.RFC3339), marshalOrWarn(e.Metadata, "edge.metadata")); err != nil {
		return newStorageError("add_edge", err)
	}
	for _, m := range e.Members {
		if _, err := tx.Stmt(s.stmtInsertMember).ExecContext(ctx, e.ID, m.NodeID, m.Role, m.Position); err != nil {
			return newStorageError("add_edge.member", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) getEdgeInternal(ctx context.Context, id string) (*HyperEdge, error) {
	var kind, label string
	var weight float64
	var createdAt string
	var metadataJSON sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT edge_type, label, weight, created_at, metadata FROM hyperedges WHERE id = ?`, id)
	if err := row.Scan(&kind, &label, &weight, &createdAt, &metadataJSON); err != nil {
		return nil, err
	}

	e := &HyperEdge{ID: id, Kind: EdgeKind(kind), Label: label, Weight: weight, CreatedAt: parseTimeOrNow(createdAt, "edge.created_at")}
	if metadataJSON.Valid && metadataJSON.String != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(metadataJSON.String), &m); err != nil {
			log.Printf("Warning: failed to unmarshal edge metadata for %s: %v", id, err)
		} else {
			e.Metadata = m
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT node_id, role, position FROM membership WHERE hyperedge_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m Member
		var role sql.NullString
		if err := rows.Scan(&m.NodeID, &role, &m.Position); err != nil {
			return nil, err
		}
		m.Role = role.String
		e.Members = append(e.Members, m)
	}
	return e, nil
}

// GetEdgesForNode returns every hyperedge that includes nodeID as a member.
func (s *SQLiteStore) GetEdgesForNode(ctx context.Context, nodeID string) ([]*HyperEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT hyperedge_id FROM membership WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, newStorageError("get_edges_for_node", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, newStorageError("get_edges_for_node.scan", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	var out []*HyperEdge
	for _, id := range ids {
		e, err := s.getEdgeInternal(ctx, id)
		if err != nil {
			return nil, newStorageError("get_edges_for_node.hydrate", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteEdge removes a hyperedge and its membership rows.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newStorageError("delete_edge.begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM membership WHERE hyperedge_id = ?`, id); err != nil {
		return newStorageError("delete_edge.membership", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM hyperedges WHERE id = ?`, id); err != nil {
		return newStorageError("delete_edge", err)
	}
	return tx.Commit()
}

// Promote raises each node's tier to tier.Next(), appending an evolution
// entry. Nodes already at Archive are skipped silently.
func (s *SQLiteStore) Promote(ctx context.Context, nodeIDs []string, reason string) ([]*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var promoted []*Node
	for _, id := range nodeIDs {
		row := s.stmtGetNode.QueryRowContext(ctx, id)
		n, err := s.rowToNode(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, newStorageError("promote.get", err)
		}
		next, ok := n.Tier.Next()
		if !ok {
			continue
		}
		from := n.Tier
		n.Tier = next
		n.UpdatedAt = time.Now().UTC()
		if _, err := s.stmtUpdateNode.ExecContext(ctx, n.Content, encodeEmbedding(n.Embedding), int(n.Tier), n.Confidence,
			n.UpdatedAt.Format(time.RFC3339), n.LastAccessed.Format(time.RFC3339), n.AccessCount,
			marshalOrWarn(n.Metadata, "node.metadata"), n.ID); err != nil {
			return nil, newStorageError("promote.update", err)
		}
		if _, err := s.stmtInsertEvo.ExecContext(ctx, n.ID, "promote", int(from), int(next), reason, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return nil, newStorageError("promote.log", err)
		}
		promoted = append(promoted, n)
	}
	return promoted, nil
}

// Decay applies confidence' = confidence * factor^(hours_since_access/24),
// clamped at 0, to every node with confidence >= minConfidence. Only nodes
// whose confidence strictly decreased are persisted and returned.
func (s *SQLiteStore) Decay(ctx context.Context, factor, minConfidence float64) ([]*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, node_type, subtype, content, embedding, tier, confidence,
		provenance_source, provenance_observed_at, provenance_context,
		created_at, updated_at, last_accessed_at, access_count, metadata
		FROM nodes WHERE confidence >= ?`, minConfidence)
	if err != nil {
		return nil, newStorageError("decay.query", err)
	}
	var candidates []*Node
	for rows.Next() {
		n, err := s.rowToNode(rows)
		if err != nil {
			rows.Close()
			return nil, newStorageError("decay.scan", err)
		}
		candidates = append(candidates, n)
	}
	rows.Close()

	now := time.Now().UTC()
	var decayed []*Node
	for _, n := range candidates {
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
		n.UpdatedAt = now
		if _, err := s.stmtUpdateNode.ExecContext(ctx, n.Content, encodeEmbedding(n.Embedding), int(n.Tier), n.Confidence,
			n.UpdatedAt.Format(time.RFC3339), n.LastAccessed.Format(time.RFC3339), n.AccessCount,
			marshalOrWarn(n.Metadata, "node.metadata"), n.ID); err != nil {
			return nil, newStorageError("decay.update", err)
		}
		decayed = append(decayed, n)
	}
	return decayed, nil
}

// Consolidate promotes every eligible node at fromTier (toTier is recorded
// in the summary; promotion itself always moves one tier step at a time).
func (s *SQLiteStore) Consolidate(ctx context.Context, fromTier, toTier Tier) (*ConsolidationResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM nodes WHERE tier = ?`, int(fromTier))
	if err != nil {
		return nil, newStorageError("consolidate.query", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, newStorageError("consolidate.scan", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

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

// GetEvolutionHistory returns a node's lifecycle log, newest first.
func (s *SQLiteStore) GetEvolutionHistory(ctx context.Context, nodeID string) ([]*EvolutionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT node_id, operation, from_tier, to_tier, reason, created_at
		FROM evolution_log WHERE node_id = ? ORDER BY created_at DESC`, nodeID)
	if err != nil {
		return nil, newStorageError("evolution_history", err)
	}
	defer rows.Close()

	var out []*EvolutionEntry
	for rows.Next() {
		var e EvolutionEntry
		var from, to sql.NullInt64
		var createdAt string
		if err := rows.Scan(&e.NodeID, &e.Operation, &from, &to, &e.Reason, &createdAt); err != nil {
			return nil, newStorageError("evolution_history.scan", err)
		}
		e.CreatedAt = parseTimeOrNow(createdAt, "evolution.created_at")
		if from.Valid {
			t := Tier(from.Int64)
			e.FromTier = &t
		}
		if to.Valid {
			t := Tier(to.Int64)
			e.ToTier = &t
		}
		out = append(out, &e)
	}
	return out, nil
}

// Stats summarises the current store contents.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{NodesByTier: map[string]int{}, NodesByKind: map[string]int{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&stats.NodeCount); err != nil {
		return nil, newStorageError("stats.nodes", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hyperedges`).Scan(&stats.EdgeCount); err != nil {
		return nil, newStorageError("stats.edges", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT tier, COUNT(*) FROM nodes GROUP BY tier`)
	if err != nil {
		return nil, newStorageError("stats.by_tier", err)
	}
	for rows.Next() {
		var tier, count int
		if err := rows.Scan(&tier, &count); err != nil {
			rows.Close()
			return nil, newStorageError("stats.by_tier.scan", err)
		}
		stats.NodesByTier[Tier(tier).String()] = count
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT node_type, COUNT(*) FROM nodes GROUP BY node_type`)
	if err != nil {
		return nil, newStorageError("stats.by_kind", err)
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, newStorageError("stats.by_kind.scan", err)
		}
		stats.NodesByKind[kind] = count
	}
	rows.Close()

	return stats, nil
}
