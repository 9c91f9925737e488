// Package sqlite keeps the learning graph in a single SQLite file, for local runs and the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"recommender/domain/core/entities"
	pkgerrors "recommender/pkg/errors"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		kind  TEXT NOT NULL,
		id    TEXT NOT NULL,
		attrs TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (kind, id)
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		kind    TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id   TEXT NOT NULL,
		slot    TEXT NOT NULL,
		data    TEXT NOT NULL,
		PRIMARY KEY (kind, from_id, slot)
	)`,
	`CREATE INDEX IF NOT EXISTS edges_incoming ON edges (kind, to_id)`,
}

// GraphStore is a ports.GraphStore over database/sql and the pure-Go SQLite driver
type GraphStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates or opens the database at path
func Open(path string, logger *zap.Logger) (*GraphStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	logger.Info("SQLite graph store opened", zap.String("path", path))
	return &GraphStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *GraphStore) Close() error {
	return s.db.Close()
}

// PutNode merges attrs into the stored vertex with json_patch
func (s *GraphStore) PutNode(ctx context.Context, node entities.Node) error {
	attrs := node.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal attrs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (kind, id, attrs) VALUES (?, ?, ?)
		 ON CONFLICT(kind, id) DO UPDATE SET attrs = json_patch(nodes.attrs, excluded.attrs)`,
		string(node.Kind), node.ID, string(data),
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("upsert node", err)
	}
	return nil
}

// PutEdges writes the batch in one transaction
func (s *GraphStore) PutEdges(ctx context.Context, edges []entities.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewDatabaseError("begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (kind, from_id, to_id, slot, data) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(kind, from_id, slot) DO UPDATE SET data = excluded.data`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		e = e.EnsureID()
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal edge: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, string(e.Kind), e.From, e.To, slot(e), string(data)); err != nil {
			return pkgerrors.NewDatabaseError("upsert edge", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewDatabaseError("commit edges", err)
	}
	return nil
}

// slot is the per-source key: the target for upsert kinds, target and id for append kinds
func slot(e entities.Edge) string {
	if e.Kind.MustSpec().Append {
		return e.To + "#" + e.ID
	}
	return e.To
}

// Node returns the vertex or nil
func (s *GraphStore) Node(ctx context.Context, kind entities.NodeKind, id string) (*entities.Node, error) {
	var attrs string
	err := s.db.QueryRowContext(ctx, "SELECT attrs FROM nodes WHERE kind = ? AND id = ?", string(kind), id).Scan(&attrs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get node", err)
	}
	node, err := decodeNode(kind, id, attrs)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// Nodes lists every vertex of a kind
func (s *GraphStore) Nodes(ctx context.Context, kind entities.NodeKind) ([]entities.Node, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, attrs FROM nodes WHERE kind = ? ORDER BY id", string(kind))
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list nodes", err)
	}
	defer rows.Close()

	var nodes []entities.Node
	for rows.Next() {
		var id, attrs string
		if err := rows.Scan(&id, &attrs); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		node, err := decodeNode(kind, id, attrs)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("list nodes", err)
	}
	entities.SortNodes(nodes)
	return nodes, nil
}

func decodeNode(kind entities.NodeKind, id, attrs string) (entities.Node, error) {
	record := make(map[string]any)
	if err := json.Unmarshal([]byte(attrs), &record); err != nil {
		return entities.Node{}, fmt.Errorf("decode node attrs: %w", err)
	}
	record[kind.IDField()] = id
	return entities.NodeFromRecord(kind, record)
}

// Outgoing lists edges of a kind leaving from
func (s *GraphStore) Outgoing(ctx context.Context, kind entities.EdgeKind, from string) ([]entities.Edge, error) {
	return s.queryEdges(ctx, "SELECT data FROM edges WHERE kind = ? AND from_id = ?", string(kind), from)
}

// Incoming lists edges of a kind arriving at to
func (s *GraphStore) Incoming(ctx context.Context, kind entities.EdgeKind, to string) ([]entities.Edge, error) {
	return s.queryEdges(ctx, "SELECT data FROM edges WHERE kind = ? AND to_id = ?", string(kind), to)
}

// Edges lists every edge of a kind
func (s *GraphStore) Edges(ctx context.Context, kind entities.EdgeKind) ([]entities.Edge, error) {
	return s.queryEdges(ctx, "SELECT data FROM edges WHERE kind = ?", string(kind))
}

func (s *GraphStore) queryEdges(ctx context.Context, query string, args ...any) ([]entities.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query edges", err)
	}
	defer rows.Close()

	var edges []entities.Edge
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		var e entities.Edge
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decode edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("query edges", err)
	}
	entities.SortEdges(edges)
	return edges, nil
}
