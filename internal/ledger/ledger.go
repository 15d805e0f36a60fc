// Package ledger records one row per `sclc build` invocation to a local
// SQLite database via GORM: source path, content hash, output path,
// block count, error count, duration, and timestamp. It is bookkeeping
// only — it never gates or skips a compilation, it only gives `sclc
// history` something to report. See SPEC_FULL.md §6.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Run is one recorded compilation attempt.
type Run struct {
	ID         uint   `gorm:"primaryKey"`
	SourcePath string `gorm:"index"`
	SourceHash string
	OutputPath string
	Mode       string
	BlockCount int
	ErrorCount int
	ErrorText  string
	DurationMS int64
	RanAt      time.Time `gorm:"index"`
}

// Ledger wraps the underlying GORM handle for one SQLite database file.
type Ledger struct {
	db *gorm.DB
}

// Open connects to (and, on first use, creates) the ledger database at
// path, migrating the Run schema.
func Open(path string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// HashSource returns the content hash recorded for a Run's SourceHash
// field, so two builds of byte-identical source are visibly the same
// input in `sclc history` even when invoked from different paths.
func HashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Record inserts one Run row. Called after a build attempt completes,
// whether it succeeded or failed — a failed build is still a build.
func (l *Ledger) Record(run Run) error {
	return l.db.Create(&run).Error
}

// Recent returns the last n Run rows, most recent first.
func (l *Ledger) Recent(n int) ([]Run, error) {
	var runs []Run
	err := l.db.Order("ran_at desc").Limit(n).Find(&runs).Error
	return runs, err
}

// Close releases the underlying database connection.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
