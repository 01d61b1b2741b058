package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cznic"

	"spock/internal/logging"
	"spock/internal/vectorspace"
)

// NamedVector is one nearest-neighbor hit: a symbol name and its
// distance from the query. SQLiteVectorIndex.Nearest leaves Vector empty.
type NamedVector struct {
	Name     string
	Vector   vectorspace.Vector
	Distance float64
}

// VectorIndex is the nearest-neighbor lookup surface SPEC_FULL.md §6.2
// adds on top of SessionManager: every vector a session stores as a
// local symbol through SetSymbol (auto-generated concepts included) is
// mirrored here so the planner can restrict candidate generation to the
// candidateLimit nearest named vectors. Overlay and global symbols are
// not mirrored.
type VectorIndex interface {
	Upsert(name string, v vectorspace.Vector) error
	Nearest(ctx context.Context, v vectorspace.Vector, k int) ([]NamedVector, error)
	Close() error
}

func init() {
	sqlitevec.Auto()
}

// SQLiteVectorIndex backs VectorIndex with a sqlite-vec virtual table
// layered on the same modernc.org/sqlite connection the engine opens
// for the versioning lineage index (SPEC_FULL.md §6.2, §6.3).
type SQLiteVectorIndex struct {
	mu    sync.Mutex
	db    *sql.DB
	dim   int
	table string
	names []string // rowid-1 -> name, append-only
}

// NewSQLiteVectorIndex creates (if needed) a vec0 virtual table over db
// sized for dim-dimensional float vectors.
func NewSQLiteVectorIndex(db *sql.DB, table string, dim int) (*SQLiteVectorIndex, error) {
	ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d])`, table, dim)
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("session: create vector index table: %w", err)
	}
	return &SQLiteVectorIndex{db: db, dim: dim, table: table}, nil
}

func (idx *SQLiteVectorIndex) Upsert(name string, v vectorspace.Vector) error {
	if len(v.Data) != idx.dim {
		return fmt.Errorf("session: vector index dimension mismatch: want %d got %d", idx.dim, len(v.Data))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	blob, err := sqlitevec.SerializeFloat32(toFloat32(v.Data))
	if err != nil {
		return fmt.Errorf("session: serialize vector: %w", err)
	}

	rowID := int64(len(idx.names) + 1)
	query := fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)
		ON CONFLICT(rowid) DO UPDATE SET embedding = excluded.embedding`, idx.table)
	if _, err := idx.db.Exec(query, rowID, blob); err != nil {
		return fmt.Errorf("session: insert vector: %w", err)
	}
	idx.names = append(idx.names, name)
	return nil
}

func (idx *SQLiteVectorIndex) Nearest(ctx context.Context, v vectorspace.Vector, k int) ([]NamedVector, error) {
	if len(v.Data) != idx.dim {
		return nil, fmt.Errorf("session: vector index dimension mismatch: want %d got %d", idx.dim, len(v.Data))
	}
	blob, err := sqlitevec.SerializeFloat32(toFloat32(v.Data))
	if err != nil {
		return nil, fmt.Errorf("session: serialize query vector: %w", err)
	}

	query := fmt.Sprintf(`SELECT rowid, distance FROM %s WHERE embedding MATCH ? AND k = ? ORDER BY distance`, idx.table)
	rows, err := idx.db.QueryContext(ctx, query, blob, k)
	if err != nil {
		return nil, fmt.Errorf("session: nearest-neighbor query: %w", err)
	}
	defer rows.Close()

	var out []NamedVector
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for rows.Next() {
		var rowID int64
		var distance float64
		if err := rows.Scan(&rowID, &distance); err != nil {
			return nil, fmt.Errorf("session: scan nearest-neighbor row: %w", err)
		}
		if rowID < 1 || int(rowID) > len(idx.names) {
			continue
		}
		out = append(out, NamedVector{Name: idx.names[rowID-1], Distance: distance})
	}
	logging.SessionDebug("nearest-neighbor query returned %d candidates", len(out))
	return out, rows.Err()
}

func (idx *SQLiteVectorIndex) Close() error { return nil } // db lifetime is owned by the engine

func toFloat32(data []float64) []float32 {
	out := make([]float32, len(data))
	for i, x := range data {
		out[i] = float32(x)
	}
	return out
}

// NearestSymbols resolves the k nearest named vectors to v among the
// symbols mirrored into the attached vector index; that index may be
// shared with other sessions, whose symbols are then returned too.
// Returns an empty slice (not an error) when no index is attached.
func (s *Session) NearestSymbols(ctx context.Context, v vectorspace.Vector, k int) ([]NamedVector, error) {
	if s.index == nil {
		return nil, nil
	}
	return s.index.Nearest(ctx, v, k)
}

// formatTableName sanitizes a theory name into a safe SQL identifier
// suffix for per-theory vector index tables.
func formatTableName(prefix, name string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
