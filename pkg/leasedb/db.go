package leasedb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/veesix-networks/dhclient/pkg/logger"
)

// RewriteThreshold is the number of appends after which the file is
// compacted.
const RewriteThreshold = 20

// DB is the append-only lease database. It is used from the dispatcher
// goroutine only.
type DB struct {
	path    string
	file    *os.File
	appends int
	damaged bool
	logger  *slog.Logger
}

func Open(path string) *DB {
	return &DB{
		path:   path,
		logger: logger.Get(logger.LeaseDB),
	}
}

func (db *DB) Path() string {
	return db.path
}

// Load parses every lease in the file in file order. A missing file yields
// no records. Blocks that cannot be parsed or interpreted are skipped with
// a warning, and a damaged file is rewritten on the next write.
func (db *DB) Load() ([]*Record, error) {
	f, err := os.Open(db.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open lease file: %w", err)
	}
	defer f.Close()

	return db.parse(f)
}

func (db *DB) parse(r io.Reader) ([]*Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lease file %s: %w", db.path, err)
	}

	chunks, tail := splitBlocks(data)
	recs := make([]*Record, 0, len(chunks))
	for i, chunk := range chunks {
		blk, err := leaseParser.ParseBytes(db.path, chunk)
		if err != nil {
			db.logger.Warn("Skipping unparsable lease", "index", i, "error", err)
			db.damaged = true
			continue
		}
		rec, err := blk.record()
		if err != nil {
			db.logger.Warn("Skipping lease", "index", i, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	if tail != nil {
		db.logger.Warn("Discarding incomplete lease at end of file", "path", db.path, "bytes", len(tail))
		db.damaged = true
	}
	return recs, nil
}

// splitBlocks cuts data after every closing brace that is outside a string
// or comment. Trailing bytes that hold anything besides whitespace and
// comments are returned as tail.
func splitBlocks(data []byte) (blocks [][]byte, tail []byte) {
	start := 0
	inString, inComment, escaped, content := false, false, false, false
	for i, ch := range data {
		switch {
		case inComment:
			inComment = ch != '\n'
		case inString:
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
		case ch == '#':
			inComment = true
		case ch == '"':
			inString, content = true, true
		case ch == '}':
			blocks = append(blocks, data[start:i+1])
			start, content = i+1, false
		case ch != ' ' && ch != '\t' && ch != '\r' && ch != '\n':
			content = true
		}
	}
	if content {
		tail = data[start:]
	}
	return blocks, tail
}

func (db *DB) openAppend() error {
	if db.file != nil {
		return nil
	}
	f, err := os.OpenFile(db.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open lease file for append: %w", err)
	}
	db.file = f
	return nil
}

// Append writes one lease block at the end of the file. With sync the
// file is flushed to stable storage before returning.
func (db *DB) Append(rec *Record, sync bool) error {
	if err := db.openAppend(); err != nil {
		return err
	}
	if _, err := io.WriteString(db.file, rec.Format()); err != nil {
		return fmt.Errorf("append lease: %w", err)
	}
	if sync {
		if err := db.file.Sync(); err != nil {
			return fmt.Errorf("sync lease file: %w", err)
		}
	}
	return nil
}

// NoteWrite counts an incremental write and reports whether the file is
// due for a rewrite.
func (db *DB) NoteWrite() bool {
	db.appends++
	return db.damaged || db.appends > RewriteThreshold
}

// Rewrite replaces the file with recs and syncs it.
func (db *DB) Rewrite(recs []*Record) error {
	if db.file != nil {
		db.file.Close()
		db.file = nil
	}
	db.appends = 0

	dir := filepath.Dir(db.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(db.path)+".*")
	if err != nil {
		return fmt.Errorf("create lease file: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, rec := range recs {
		if _, err := io.WriteString(tmp, rec.Format()); err != nil {
			tmp.Close()
			return fmt.Errorf("write lease file: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync lease file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod lease file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close lease file: %w", err)
	}
	if err := os.Rename(tmp.Name(), db.path); err != nil {
		return fmt.Errorf("replace lease file: %w", err)
	}

	db.damaged = false
	db.logger.Debug("Rewrote lease file", "path", db.path, "leases", len(recs))
	return db.openAppend()
}

func (db *DB) Close() error {
	if db.file == nil {
		return nil
	}
	err := db.file.Close()
	db.file = nil
	return err
}
