package back

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// Back holds the whole ladder: the match ledger, the rating store, and the
// operations that keep both consistent. The web layer only ever talks to it
// through exported methods, every one of which runs in its own transaction.
type Back struct {
	db *sqlx.DB
}

func New(sqlDriver string, sqlDSN string) (*Back, error) {
	// Why even bother converting names? A single greppable string across all
	// your source code is better than any odd conversion scheme you could ever
	// come up with.
	// HACK: This is global but putting this in init() makes test ugly.
	// As only the Back relies on the DB, this seems like an okay-ish place.
	sqlx.NameMapper = func(v string) string { return v }

	db, err := sqlx.Connect(sqlDriver, sqlDSN)
	if err != nil {
		return nil, err
	}

	return &Back{
		db: db,
	}, nil
}

func (b *Back) Run(wg *sync.WaitGroup, done <-chan struct{}) {
	wg.Add(1)
	defer wg.Done()
	log.Print("info: starting Back dæmon")

	for {
		if err := b.runPeriodicTasks(); err != nil {
			log.Printf("error: runPeriodicTasks: %s", err)
		}

		select {
		case <-time.After(10 * time.Minute):
		case <-done:
			return
		}
	}
}

// runPeriodicTasks watches for live matches that have no rating snapshots,
// which means someone edited the ledger without going through the
// coordinator. This cannot be repaired automatically without guessing, so
// it is only reported.
func (b *Back) runPeriodicTasks() error {
	return b.transaction(func(tx *sqlx.Tx) error {
		var orphans int
		if err := tx.Get(&orphans, `
            SELECT COUNT(*) FROM Match
            WHERE Match.ApprovedByWinners = 1 AND Match.ApprovedByLosers = 1
            AND NOT EXISTS (
                SELECT 1 FROM RatingSnapshot
                WHERE RatingSnapshot.MatchID = Match.ID
            )`,
		); err != nil {
			return err
		}

		if orphans > 0 {
			log.Printf("warning: %d live matches have no rating snapshots, run a recompute", orphans)
		}

		return nil
	})
}

type transactionCallback func(*sqlx.Tx) error

func (b *Back) transaction(cb transactionCallback) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("rollback error: %s\noriginal error: %s", err2, err)
		}

		return err
	}

	return tx.Commit()
}
