package versioning

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"spock/internal/logging"
	"spock/internal/theorystore"
)

// Manager maintains the versioning lineage index (SPEC_FULL.md §6.3): a
// modernc.org/sqlite table mirroring each descriptor's {name, versionId,
// parentVersionId, mergedFrom, createdAt}, derived from and rebuildable
// from the sidecar metadata files TheoryStore already owns. The sidecar
// files remain authoritative; this index only answers ancestry and
// ordering queries without re-reading every file from disk.
type Manager struct {
	db *sql.DB
}

// NewManager creates (if needed) the theory_versions table on db.
func NewManager(db *sql.DB) (*Manager, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS theory_versions (
		name TEXT NOT NULL,
		version_id TEXT NOT NULL PRIMARY KEY,
		parent_version_id TEXT,
		merged_from TEXT,
		created_at TEXT NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("versioning: create lineage table: %w", err)
	}
	return &Manager{db: db}, nil
}

// Record upserts desc's lineage row.
func (m *Manager) Record(desc *theorystore.Descriptor) error {
	const stmt = `INSERT INTO theory_versions(name, version_id, parent_version_id, merged_from, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(version_id) DO UPDATE SET
			name = excluded.name,
			parent_version_id = excluded.parent_version_id,
			merged_from = excluded.merged_from,
			created_at = excluded.created_at`
	_, err := m.db.Exec(stmt, desc.Name, desc.VersionID, nullable(desc.ParentVersionID), nullable(strings.Join(desc.MergedFrom, ",")), desc.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("versioning: record lineage for %q: %w", desc.Name, err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// RebuildFromStore repopulates the lineage table from store's sidecar
// files, the way the teacher's knowledge graph rebuilds itself from
// fact files when its derived index is missing or stale.
func (m *Manager) RebuildFromStore(store *theorystore.Store) error {
	names, err := store.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		desc, err := store.Load(name)
		if err != nil {
			return err
		}
		if err := m.Record(desc); err != nil {
			return err
		}
	}
	logging.VersioningDebug("rebuilt lineage index from %d theories", len(names))
	return nil
}

// IsAncestor reports whether ancestorVersionID appears anywhere in
// versionID's parent chain.
func (m *Manager) IsAncestor(ctx context.Context, ancestorVersionID, versionID string) (bool, error) {
	current := versionID
	for i := 0; i < 10000; i++ {
		var parent sql.NullString
		err := m.db.QueryRowContext(ctx, `SELECT parent_version_id FROM theory_versions WHERE version_id = ?`, current).Scan(&parent)
		if err == sql.ErrNoRows || !parent.Valid {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("versioning: ancestry lookup: %w", err)
		}
		if parent.String == ancestorVersionID {
			return true, nil
		}
		current = parent.String
	}
	return false, fmt.Errorf("versioning: ancestry chain exceeded depth limit for %q", versionID)
}

// VersionsAfter returns the version ids of every row recorded strictly
// after t, ordered oldest to newest.
func (m *Manager) VersionsAfter(ctx context.Context, t time.Time) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version_id FROM theory_versions WHERE created_at > ? ORDER BY created_at ASC`, t.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("versioning: versions-after query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("versioning: scan version row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
