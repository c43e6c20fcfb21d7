package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/skx/snapvm/disk"

	_ "modernc.org/sqlite"
)

// TajoFormat is the name of the SQLite disk format.
const TajoFormat = "tajo"

// TajoSuffix is the suffix of the database used by the tajo format.
const TajoSuffix = ".db"

const tajoSchema = `
CREATE TABLE IF NOT EXISTS geometry (
    sectors INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sectors (
    id   INTEGER PRIMARY KEY,
    data BLOB NOT NULL
);
`

// tajoHandle keeps the disk as a SQLite database of sectors.
//
// Sectors which were never written are absent from the database, and
// read as zeros.
type tajoHandle struct {
	snapshotter

	// path of the database.
	path string

	db   *sql.DB
	pack *disk.Pack
}

// OpenTajo opens an image which has a sector database beside it.
func OpenTajo(paths Paths, opts Options) (Handle, error) {
	opts = opts.withDefaults()
	path := paths.Base + TajoSuffix

	// SQLite would happily create a missing database, so look first.
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("disk '%s': %w", path, ErrNoDisk)
		}
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open disk '%s': %w", path, err)
	}

	pack, err := readTajo(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("disk '%s': %w", path, err)
	}

	mem, err := loadImage(paths)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &tajoHandle{
		snapshotter: snapshotter{mem: mem, paths: paths, opts: opts},
		path:        path,
		db:          db,
		pack:        pack,
	}, nil
}

// readTajo populates a pack from the database.
func readTajo(db *sql.DB) (*disk.Pack, error) {
	var count int
	err := db.QueryRow(`SELECT sectors FROM geometry LIMIT 1`).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("read geometry: %w", err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("invalid sector count %d", count)
	}

	pack := disk.New(count)

	rows, err := db.Query(`SELECT id, data FROM sectors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read sectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("read sectors: %w", err)
		}
		if err := pack.Load(id, data); err != nil {
			return nil, err
		}
	}
	return pack, rows.Err()
}

// CreateTajo writes the given pack as a new sector database.
func CreateTajo(path string, pack *disk.Pack) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err = db.Exec(tajoSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err = db.Exec(`DELETE FROM geometry`); err != nil {
		return err
	}
	if _, err = db.Exec(`INSERT INTO geometry (sectors) VALUES (?)`, pack.Sectors()); err != nil {
		return err
	}

	ids := make([]int, pack.Sectors())
	data := make([][]byte, len(ids))
	for i := range ids {
		ids[i] = i
		data[i], _ = pack.Read(i)
	}
	return upsertSectors(db, ids, data)
}

// upsertSectors writes the given sectors in a single transaction.
func upsertSectors(db *sql.DB, ids []int, data [][]byte) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO sectors (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, n := range ids {
		if _, err := stmt.Exec(n, data[i]); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveDiskChanges writes the changed sectors to the database.
func (t *tajoHandle) SaveDiskChanges() bool {
	ids, data := t.pack.Changes()
	if len(ids) == 0 {
		return true
	}

	if err := upsertSectors(t.db, ids, data); err != nil {
		fmt.Fprintf(t.opts.Out, "error: failed to save disk changes to '%s': %s\n", t.path, err)
		t.opts.Logger.Error("saving disk changes failed",
			slog.String("format", TajoFormat),
			slog.String("path", t.path),
			slog.String("error", err.Error()))
		return false
	}

	t.pack.MarkClean(ids)
	fmt.Fprintf(t.opts.Out, "saved %d changed sector(s) to '%s'\n", len(ids), t.path)
	return true
}

// Drive returns the disk pack.
func (t *tajoHandle) Drive() *disk.Pack {
	return t.pack
}

// Format returns the name of this format.
func (t *tajoHandle) Format() string {
	return TajoFormat
}

// Close closes the database.
func (t *tajoHandle) Close() error {
	return t.db.Close()
}
