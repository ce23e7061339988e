package storage

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

var ErrNoSnapshot = errors.New("storage: no snapshot")

// SnapshotInfo describes one stored snapshot. Payload bytes are returned
// separately.
type SnapshotInfo struct {
	ID        string
	Name      string
	Format    string
	Order     int
	Keys      int
	Size      int
	CreatedAt time.Time
}

// SnapshotStore keeps encoded tree snapshots in a SQLite database, grouped
// by name, newest last.
type SnapshotStore struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	format     TEXT NOT NULL,
	tree_order INTEGER NOT NULL,
	key_count  INTEGER NOT NULL,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_name ON snapshots (name, seq);`

// OpenSnapshotStore opens or creates the database at path.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: open %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "storage: init schema")
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "storage: pragma")
	}
	return &SnapshotStore{db: db}, nil
}

// Save stores payload under info.Name and returns the completed info.
// ID, Size and CreatedAt are assigned here.
func (s *SnapshotStore) Save(ctx context.Context, info SnapshotInfo, payload []byte) (SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info.ID = uuid.NewString()
	info.Size = len(payload)
	info.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, format, tree_order, key_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Name, info.Format, info.Order, info.Keys, payload, info.CreatedAt.UnixNano())
	if err != nil {
		return SnapshotInfo{}, errors.Wrapf(err, "storage: save snapshot %q", info.Name)
	}
	return info, nil
}

const selectInfo = `SELECT id, name, format, tree_order, key_count, length(payload), created_at FROM snapshots`

// Latest returns the most recently saved snapshot named name.
func (s *SnapshotStore) Latest(ctx context.Context, name string) (SnapshotInfo, []byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, format, tree_order, key_count, length(payload), created_at, payload
		 FROM snapshots WHERE name = ? ORDER BY seq DESC LIMIT 1`, name)
	info, payload, err := scanWithPayload(row)
	if err != nil {
		return SnapshotInfo{}, nil, errors.Wrapf(err, "storage: latest %q", name)
	}
	return info, payload, nil
}

// Get returns the snapshot with the given id.
func (s *SnapshotStore) Get(ctx context.Context, id string) (SnapshotInfo, []byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, format, tree_order, key_count, length(payload), created_at, payload
		 FROM snapshots WHERE id = ?`, id)
	info, payload, err := scanWithPayload(row)
	if err != nil {
		return SnapshotInfo{}, nil, errors.Wrapf(err, "storage: get %s", id)
	}
	return info, payload, nil
}

// List returns the snapshots named name, newest first, without payloads.
func (s *SnapshotStore) List(ctx context.Context, name string) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, selectInfo+` WHERE name = ? ORDER BY seq DESC`, name)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: list %q", name)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var created int64
		if err := rows.Scan(&info.ID, &info.Name, &info.Format, &info.Order, &info.Keys, &info.Size, &created); err != nil {
			return nil, errors.Wrap(err, "storage: scan snapshot row")
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		infos = append(infos, info)
	}
	return infos, errors.Wrap(rows.Err(), "storage: list rows")
}

// Prune deletes all but the newest keep snapshots named name and returns
// how many were removed.
func (s *SnapshotStore) Prune(ctx context.Context, name string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE name = ? AND seq NOT IN (
			SELECT seq FROM snapshots WHERE name = ? ORDER BY seq DESC LIMIT ?
		)`, name, name, keep)
	if err != nil {
		return 0, errors.Wrapf(err, "storage: prune %q", name)
	}
	return res.RowsAffected()
}

// Delete removes one snapshot. Deleting an unknown id is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	return errors.Wrapf(err, "storage: delete %s", id)
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func scanWithPayload(row *sql.Row) (SnapshotInfo, []byte, error) {
	var info SnapshotInfo
	var created int64
	var payload []byte
	err := row.Scan(&info.ID, &info.Name, &info.Format, &info.Order, &info.Keys, &info.Size, &created, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, nil, ErrNoSnapshot
	}
	if err != nil {
		return SnapshotInfo{}, nil, err
	}
	info.CreatedAt = time.Unix(0, created).UTC()
	return info, payload, nil
}
