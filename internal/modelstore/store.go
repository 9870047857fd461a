// Package modelstore persists factored transition models in SQLite.
// Networks of all three kinds (plain DBN, compact DDN, factored DDN)
// are stored as one row per model plus one row per conditional
// probability table, with CPT entries encoded as little-endian float64
// blobs. Models are validated on save; a loaded model is usable as-is.
package modelstore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/factored-mdp/internal/bayesnet"
	"github.com/danielpatrickdp/factored-mdp/internal/factored"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS models (
	model_id     TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	kind         TEXT NOT NULL CHECK (kind IN ('dbn', 'compact', 'factored')),
	space_json   TEXT NOT NULL,
	actions_json TEXT,
	action_count INTEGER,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dbn_nodes (
	model_id TEXT NOT NULL,
	child    INTEGER NOT NULL,
	tag_json TEXT NOT NULL,
	rows     INTEGER NOT NULL,
	cols     INTEGER NOT NULL,
	cpt      BLOB NOT NULL,
	PRIMARY KEY (model_id, child),
	FOREIGN KEY (model_id) REFERENCES models(model_id)
);

CREATE TABLE IF NOT EXISTS diff_nodes (
	model_id TEXT NOT NULL,
	action   INTEGER NOT NULL,
	child    INTEGER NOT NULL,
	tag_json TEXT NOT NULL,
	rows     INTEGER NOT NULL,
	cols     INTEGER NOT NULL,
	cpt      BLOB NOT NULL,
	PRIMARY KEY (model_id, action, child),
	FOREIGN KEY (model_id) REFERENCES models(model_id)
);

CREATE TABLE IF NOT EXISTS action_nodes (
	model_id        TEXT NOT NULL,
	child           INTEGER NOT NULL,
	action_tag_json TEXT NOT NULL,
	idx             INTEGER NOT NULL,
	tag_json        TEXT NOT NULL,
	rows            INTEGER NOT NULL,
	cols            INTEGER NOT NULL,
	cpt             BLOB NOT NULL,
	PRIMARY KEY (model_id, child, idx),
	FOREIGN KEY (model_id) REFERENCES models(model_id)
);
`

// #endregion schema

// #region types

// Kind names for stored models.
const (
	KindDBN      = "dbn"
	KindCompact  = "compact"
	KindFactored = "factored"
)

// ModelInfo summarizes one stored model.
type ModelInfo struct {
	ID        string
	Name      string
	Kind      string
	Space     factored.Factors
	Actions   factored.Factors // factored kind only
	NumAction int              // compact kind only
	CreatedAt time.Time
}

// Store manages persisted transition models in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion types

// #region constructor

// NewStore opens (or creates) a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save

// SaveDBN validates and persists a plain DBN under the given name,
// returning the new model id.
func (s *Store) SaveDBN(name string, space factored.Factors, d *bayesnet.DBN) (string, error) {
	if err := bayesnet.ValidateDBN(space, d); err != nil {
		return "", fmt.Errorf("validate %q: %w", name, err)
	}

	id := uuid.New().String()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertModel(tx, id, name, KindDBN, space, nil, 0); err != nil {
		return "", err
	}
	for i := range d.Nodes {
		if err := insertNode(tx, "dbn_nodes", id, []any{i}, &d.Nodes[i]); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// SaveCompactDDN validates and persists a compact DDN: the default
// network goes to dbn_nodes, the per-action replacements to
// diff_nodes.
func (s *Store) SaveCompactDDN(name string, space factored.Factors, c *bayesnet.CompactDDN) (string, error) {
	if err := bayesnet.ValidateCompactDDN(space, c); err != nil {
		return "", fmt.Errorf("validate %q: %w", name, err)
	}

	id := uuid.New().String()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertModel(tx, id, name, KindCompact, space, nil, c.ActionCount()); err != nil {
		return "", err
	}
	def := c.DefaultTransition()
	for i := range def.Nodes {
		if err := insertNode(tx, "dbn_nodes", id, []any{i}, &def.Nodes[i]); err != nil {
			return "", err
		}
	}
	for a, list := range c.DiffNodes() {
		for i := range list {
			if err := insertNode(tx, "diff_nodes", id, []any{a, list[i].ID}, &list[i].Node); err != nil {
				return "", err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// SaveFactoredDDN validates and persists a factored DDN.
func (s *Store) SaveFactoredDDN(name string, space, actions factored.Factors, f *bayesnet.FactoredDDN) (string, error) {
	if err := bayesnet.ValidateFactoredDDN(space, actions, f); err != nil {
		return "", fmt.Errorf("validate %q: %w", name, err)
	}

	id := uuid.New().String()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertModel(tx, id, name, KindFactored, space, actions, 0); err != nil {
		return "", err
	}
	for i := range f.Nodes {
		an := &f.Nodes[i]
		actionTagJSON, err := json.Marshal(an.ActionTag)
		if err != nil {
			return "", fmt.Errorf("marshal action tag: %w", err)
		}
		for j := range an.Nodes {
			n := &an.Nodes[j]
			tagJSON, err := json.Marshal(n.Tag)
			if err != nil {
				return "", fmt.Errorf("marshal tag: %w", err)
			}
			rows, cols := n.CPT.Dims()
			_, err = tx.Exec(
				`INSERT INTO action_nodes (model_id, child, action_tag_json, idx, tag_json, rows, cols, cpt)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, i, string(actionTagJSON), j, string(tagJSON), rows, cols, encodeCPT(n.CPT),
			)
			if err != nil {
				return "", fmt.Errorf("insert action node: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func insertModel(tx *sql.Tx, id, name, kind string, space, actions factored.Factors, actionCount int) error {
	spaceJSON, err := json.Marshal(space)
	if err != nil {
		return fmt.Errorf("marshal space: %w", err)
	}
	var actionsJSON any
	if actions != nil {
		b, err := json.Marshal(actions)
		if err != nil {
			return fmt.Errorf("marshal actions: %w", err)
		}
		actionsJSON = string(b)
	}
	var count any
	if actionCount > 0 {
		count = actionCount
	}
	_, err = tx.Exec(
		`INSERT INTO models (model_id, name, kind, space_json, actions_json, action_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, kind, string(spaceJSON), actionsJSON, count,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

func insertNode(tx *sql.Tx, table, id string, keys []any, n *bayesnet.Node) error {
	tagJSON, err := json.Marshal(n.Tag)
	if err != nil {
		return fmt.Errorf("marshal tag: %w", err)
	}
	rows, cols := n.CPT.Dims()
	args := append([]any{id}, keys...)
	args = append(args, string(tagJSON), rows, cols, encodeCPT(n.CPT))
	switch table {
	case "dbn_nodes":
		_, err = tx.Exec(
			`INSERT INTO dbn_nodes (model_id, child, tag_json, rows, cols, cpt) VALUES (?, ?, ?, ?, ?, ?)`,
			args...,
		)
	case "diff_nodes":
		_, err = tx.Exec(
			`INSERT INTO diff_nodes (model_id, action, child, tag_json, rows, cols, cpt) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			args...,
		)
	default:
		return fmt.Errorf("unknown node table %q", table)
	}
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// #endregion save

// #region load

// GetModel returns the summary row of one model by id.
func (s *Store) GetModel(id string) (ModelInfo, error) {
	row := s.db.QueryRow(
		`SELECT model_id, name, kind, space_json, actions_json, action_count, created_at FROM models WHERE model_id = ?`,
		id,
	)
	return scanModel(row)
}

// ListModels returns summaries of all stored models, oldest first.
func (s *Store) ListModels() ([]ModelInfo, error) {
	rows, err := s.db.Query(
		`SELECT model_id, name, kind, space_json, actions_json, action_count, created_at FROM models ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var infos []ModelInfo
	for rows.Next() {
		info, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// LoadDBN loads a plain DBN by model id, returning its space as well.
func (s *Store) LoadDBN(id string) (factored.Factors, *bayesnet.DBN, error) {
	info, err := s.GetModel(id)
	if err != nil {
		return nil, nil, err
	}
	if info.Kind != KindDBN {
		return nil, nil, fmt.Errorf("model %s has kind %s, want %s", id, info.Kind, KindDBN)
	}
	nodes, err := s.loadDBNNodes(id, len(info.Space))
	if err != nil {
		return nil, nil, err
	}
	return info.Space, &bayesnet.DBN{Nodes: nodes}, nil
}

// LoadCompactDDN loads a compact DDN by model id.
func (s *Store) LoadCompactDDN(id string) (factored.Factors, *bayesnet.CompactDDN, error) {
	info, err := s.GetModel(id)
	if err != nil {
		return nil, nil, err
	}
	if info.Kind != KindCompact {
		return nil, nil, fmt.Errorf("model %s has kind %s, want %s", id, info.Kind, KindCompact)
	}
	defNodes, err := s.loadDBNNodes(id, len(info.Space))
	if err != nil {
		return nil, nil, err
	}

	diffs := make([][]bayesnet.Diff, info.NumAction)
	rows, err := s.db.Query(
		`SELECT action, child, tag_json, rows, cols, cpt FROM diff_nodes WHERE model_id = ? ORDER BY action, child`,
		id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load diff nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var action, child int
		node, err := scanNode(rows, &action, &child)
		if err != nil {
			return nil, nil, err
		}
		if action < 0 || action >= info.NumAction {
			return nil, nil, fmt.Errorf("diff action %d out of range", action)
		}
		if child < 0 || child >= len(info.Space) {
			return nil, nil, fmt.Errorf("diff child %d out of range", child)
		}
		diffs[action] = append(diffs[action], bayesnet.Diff{ID: child, Node: node})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return info.Space, bayesnet.NewCompactDDN(diffs, bayesnet.DBN{Nodes: defNodes}), nil
}

// LoadFactoredDDN loads a factored DDN by model id, returning its
// state and action spaces.
func (s *Store) LoadFactoredDDN(id string) (factored.Factors, factored.Factors, *bayesnet.FactoredDDN, error) {
	info, err := s.GetModel(id)
	if err != nil {
		return nil, nil, nil, err
	}
	if info.Kind != KindFactored {
		return nil, nil, nil, fmt.Errorf("model %s has kind %s, want %s", id, info.Kind, KindFactored)
	}

	nodes := make([]bayesnet.ActionNode, len(info.Space))
	rows, err := s.db.Query(
		`SELECT child, action_tag_json, idx, tag_json, rows, cols, cpt FROM action_nodes WHERE model_id = ? ORDER BY child, idx`,
		id,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load action nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var child, idx int
		var actionTagJSON, tagJSON string
		var nRows, nCols int
		var blob []byte
		if err := rows.Scan(&child, &actionTagJSON, &idx, &tagJSON, &nRows, &nCols, &blob); err != nil {
			return nil, nil, nil, fmt.Errorf("scan action node: %w", err)
		}
		if child < 0 || child >= len(nodes) {
			return nil, nil, nil, fmt.Errorf("action node child %d out of range", child)
		}
		node, err := buildNode(tagJSON, nRows, nCols, blob)
		if err != nil {
			return nil, nil, nil, err
		}
		if nodes[child].ActionTag == nil {
			var actionTag factored.Tag
			if err := json.Unmarshal([]byte(actionTagJSON), &actionTag); err != nil {
				return nil, nil, nil, fmt.Errorf("unmarshal action tag: %w", err)
			}
			if actionTag == nil {
				actionTag = factored.Tag{}
			}
			nodes[child].ActionTag = actionTag
		}
		if idx != len(nodes[child].Nodes) {
			return nil, nil, nil, fmt.Errorf("child %d: non-contiguous table index %d", child, idx)
		}
		nodes[child].Nodes = append(nodes[child].Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}
	ddn := &bayesnet.FactoredDDN{Nodes: nodes}
	if err := bayesnet.ValidateFactoredDDN(info.Space, info.Actions, ddn); err != nil {
		return nil, nil, nil, fmt.Errorf("model %s: %w", id, err)
	}
	return info.Space, info.Actions, ddn, nil
}

func (s *Store) loadDBNNodes(id string, n int) ([]bayesnet.Node, error) {
	rows, err := s.db.Query(
		`SELECT child, tag_json, rows, cols, cpt FROM dbn_nodes WHERE model_id = ? ORDER BY child`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load dbn nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]bayesnet.Node, n)
	seen := 0
	for rows.Next() {
		var child int
		node, err := scanNode(rows, &child)
		if err != nil {
			return nil, err
		}
		if child < 0 || child >= n {
			return nil, fmt.Errorf("dbn node child %d out of range", child)
		}
		nodes[child] = node
		seen++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if seen != n {
		return nil, fmt.Errorf("model has %d dbn nodes, want %d", seen, n)
	}
	return nodes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (ModelInfo, error) {
	var info ModelInfo
	var spaceJSON string
	var actionsJSON sql.NullString
	var actionCount sql.NullInt64
	var ts string
	if err := row.Scan(&info.ID, &info.Name, &info.Kind, &spaceJSON, &actionsJSON, &actionCount, &ts); err != nil {
		return ModelInfo{}, fmt.Errorf("scan model: %w", err)
	}
	if err := json.Unmarshal([]byte(spaceJSON), &info.Space); err != nil {
		return ModelInfo{}, fmt.Errorf("unmarshal space: %w", err)
	}
	if actionsJSON.Valid {
		if err := json.Unmarshal([]byte(actionsJSON.String), &info.Actions); err != nil {
			return ModelInfo{}, fmt.Errorf("unmarshal actions: %w", err)
		}
	}
	if actionCount.Valid {
		info.NumAction = int(actionCount.Int64)
	}
	info.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return info, nil
}

// scanNode scans (keys..., tag_json, rows, cols, cpt) into a node.
func scanNode(rows *sql.Rows, keys ...*int) (bayesnet.Node, error) {
	var tagJSON string
	var nRows, nCols int
	var blob []byte
	dest := make([]any, 0, len(keys)+4)
	for _, k := range keys {
		dest = append(dest, k)
	}
	dest = append(dest, &tagJSON, &nRows, &nCols, &blob)
	if err := rows.Scan(dest...); err != nil {
		return bayesnet.Node{}, fmt.Errorf("scan node: %w", err)
	}
	return buildNode(tagJSON, nRows, nCols, blob)
}

func buildNode(tagJSON string, nRows, nCols int, blob []byte) (bayesnet.Node, error) {
	var tag factored.Tag
	if err := json.Unmarshal([]byte(tagJSON), &tag); err != nil {
		return bayesnet.Node{}, fmt.Errorf("unmarshal tag: %w", err)
	}
	if tag == nil {
		tag = factored.Tag{}
	}
	cpt, err := decodeCPT(blob, nRows, nCols)
	if err != nil {
		return bayesnet.Node{}, err
	}
	return bayesnet.Node{Tag: tag, CPT: cpt}, nil
}

// #endregion load

// #region blob

func encodeCPT(m *mat.Dense) []byte {
	rows, cols := m.Dims()
	buf := make([]byte, rows*cols*8)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			binary.LittleEndian.PutUint64(buf[(r*cols+c)*8:], math.Float64bits(m.At(r, c)))
		}
	}
	return buf
}

func decodeCPT(b []byte, rows, cols int) (*mat.Dense, error) {
	if len(b) != rows*cols*8 {
		return nil, fmt.Errorf("cpt blob is %d bytes, want %d", len(b), rows*cols*8)
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return mat.NewDense(rows, cols, data), nil
}

// #endregion blob
