package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// FacetResult records the outcome of one facet's operations during a run.
type FacetResult struct {
	Facet     Facet
	Attempted int
	Succeeded int
	Failed    int
}

// SyncRun is the persisted record of a single synchronization run.
type SyncRun struct {
	ID         uint64 `boltholdKey:"ID"`
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []FacetResult
	Error      string // fatal error, empty on success
}

// Database wraps the bolthold store holding the run history
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// RecordRun persists the outcome of a sync run
func (db *Database) RecordRun(run *SyncRun) error {
	return db.store.Insert(bolthold.NextSequence(), run)
}

// RecentRuns retrieves the most recent runs, newest first
func (db *Database) RecentRuns(limit int) ([]*SyncRun, error) {
	var runs []*SyncRun
	err := db.store.Find(&runs, (&bolthold.Query{}).SortBy("StartedAt").Reverse().Limit(limit))
	return runs, err
}

// LastSuccessfulRun retrieves the newest run that finished without a fatal
// error, or bolthold.ErrNotFound when none exists.
func (db *Database) LastSuccessfulRun() (*SyncRun, error) {
	var runs []*SyncRun
	err := db.store.Find(&runs, bolthold.Where("Error").Eq("").SortBy("StartedAt").Reverse().Limit(1))
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, bolthold.ErrNotFound
	}
	return runs[0], nil
}
