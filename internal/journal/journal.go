// Package journal records terrain edit snapshots in a SQLite database so an
// earlier sculpting state can be restored.
package journal

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"terraining/internal/terrain"
)

// ErrNoRevision is returned when the requested revision does not exist.
var ErrNoRevision = errors.New("journal: no such revision")

// Revision describes one recorded snapshot.
type Revision struct {
	ID      uuid.UUID
	Seq     int64
	Created time.Time
	Note    string
	Tiles   int
}

// Journal is an append-only store of edit snapshots.
type Journal struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS revisions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			note TEXT NOT NULL,
			tiles INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tile_edits (
			revision TEXT NOT NULL REFERENCES revisions(id) ON DELETE CASCADE,
			tile_key TEXT NOT NULL,
			count INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (revision, tile_key)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Close() error {
	j.enc.Close()
	j.dec.Close()
	return j.db.Close()
}

// Record stores edits as a new revision inside a single transaction.
func (j *Journal) Record(ctx context.Context, note string, edits map[terrain.TileCoord][]float32) (Revision, error) {
	rev := Revision{
		ID:      uuid.New(),
		Created: time.Now().UTC(),
		Note:    note,
		Tiles:   len(edits),
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO revisions(id,created_at,note,tiles) VALUES(?,?,?,?)`,
		rev.ID.String(), rev.Created.Format(time.RFC3339Nano), note, rev.Tiles)
	if err != nil {
		return Revision{}, fmt.Errorf("journal: insert revision: %w", err)
	}
	if rev.Seq, err = res.LastInsertId(); err != nil {
		return Revision{}, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tile_edits(revision,tile_key,count,payload) VALUES(?,?,?,?)`)
	if err != nil {
		return Revision{}, err
	}
	defer stmt.Close()

	coords := make([]terrain.TileCoord, 0, len(edits))
	for c := range edits {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(a, b int) bool { return coords[a].ID() < coords[b].ID() })
	for _, c := range coords {
		buf := edits[c]
		if _, err := stmt.ExecContext(ctx, rev.ID.String(), c.Key(), len(buf), j.pack(buf)); err != nil {
			return Revision{}, fmt.Errorf("journal: insert tile %s: %w", c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, err
	}
	log.Printf("journal: recorded revision %s with %d tiles", rev.ID, rev.Tiles)
	return rev, nil
}

// Revisions lists every revision, oldest first.
func (j *Journal) Revisions(ctx context.Context) ([]Revision, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT seq,id,created_at,note,tiles FROM revisions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Latest returns the most recently recorded revision.
func (j *Journal) Latest(ctx context.Context) (Revision, error) {
	row := j.db.QueryRowContext(ctx, `SELECT seq,id,created_at,note,tiles FROM revisions ORDER BY seq DESC LIMIT 1`)
	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, ErrNoRevision
	}
	return rev, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(s scanner) (Revision, error) {
	var (
		rev     Revision
		id      string
		created string
	)
	if err := s.Scan(&rev.Seq, &id, &created, &rev.Note, &rev.Tiles); err != nil {
		return Revision{}, err
	}
	var err error
	if rev.ID, err = uuid.Parse(id); err != nil {
		return Revision{}, fmt.Errorf("journal: revision %d: %w", rev.Seq, err)
	}
	if rev.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Revision{}, fmt.Errorf("journal: revision %d: %w", rev.Seq, err)
	}
	return rev, nil
}

// Load returns the edits recorded under id.
func (j *Journal) Load(ctx context.Context, id uuid.UUID) (map[terrain.TileCoord][]float32, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revisions WHERE id=?`, id.String()).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRevision, id)
	}

	rows, err := j.db.QueryContext(ctx, `SELECT tile_key,count,payload FROM tile_edits WHERE revision=?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[terrain.TileCoord][]float32)
	for rows.Next() {
		var (
			key     string
			count   int
			payload []byte
		)
		if err := rows.Scan(&key, &count, &payload); err != nil {
			return nil, err
		}
		c, err := terrain.ParseKey(key)
		if err != nil {
			return nil, fmt.Errorf("journal: revision %s: %w", id, err)
		}
		buf, err := j.unpack(payload, count)
		if err != nil {
			return nil, fmt.Errorf("journal: revision %s tile %s: %w", id, key, err)
		}
		out[c] = buf
	}
	return out, rows.Err()
}

// Restore loads the latest revision into m.
func (j *Journal) Restore(ctx context.Context, m *terrain.Manager) (Revision, error) {
	rev, err := j.Latest(ctx)
	if err != nil {
		return Revision{}, err
	}
	edits, err := j.Load(ctx, rev.ID)
	if err != nil {
		return Revision{}, err
	}
	if err := m.ImportEdits(edits); err != nil {
		return Revision{}, err
	}
	log.Printf("journal: restored revision %s (%d tiles)", rev.ID, len(edits))
	return rev, nil
}

// pack stores values as little-endian float32, zstd compressed.
func (j *Journal) pack(values []float32) []byte {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return j.enc.EncodeAll(raw, nil)
}

func (j *Journal) unpack(payload []byte, count int) ([]float32, error) {
	raw, err := j.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, err
	}
	if len(raw) != 4*count {
		return nil, fmt.Errorf("payload holds %d bytes, want %d", len(raw), 4*count)
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}
