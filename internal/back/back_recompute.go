package back

import (
	"fmt"
	"log"
	"time"

	"moneyball/internal/util"

	"github.com/jmoiron/sqlx"
)

// Recompute rebuilds the entire rating store from the beginning of time.
// The result only depends on ledger contents and match timestamps, never on
// the order matches were originally entered.
func (b *Back) Recompute() error {
	start := time.Now()

	if err := b.transaction(func(tx *sqlx.Tx) error {
		return b.recomputeFrom(tx, util.TimeAsTimestamp(time.Time{}))
	}); err != nil {
		return err
	}

	log.Printf("info: full recompute done in %s", time.Since(start))

	return nil
}

// recomputeFrom invalidates every rating snapshot effective at or after a
// point in time and deterministically rebuilds them by replaying the
// fully-approved part of the ledger.
//
// Replay order must be strictly ascending by PlayedAt: Elo and the
// paired-comparison model are path-dependent, replaying out of order gives
// different results.
func (b *Back) recomputeFrom(tx *sqlx.Tx, after util.TimeAsTimestamp) error {
	users, err := getUsers(tx)
	if err != nil {
		return fmt.Errorf("unable to fetch users: %w", err)
	}

	// Earliest snapshot times double as registration times, read them
	// before the prune wipes them out.
	earliest, err := getEarliestRatingTimes(tx)
	if err != nil {
		return fmt.Errorf("unable to fetch first rating timestamps: %w", err)
	}

	if err := deleteRatingSnapshotsFrom(tx, after); err != nil {
		return fmt.Errorf("unable to prune rating snapshots: %w", err)
	}

	for k := range users {
		seedAt, ok := earliest[users[k].ID]
		if !ok {
			// Never had any history at all, treat their registration row as
			// the seed point.
			seedAt = users[k].CreatedAt
		}

		// Users whose whole history sat inside the invalidated window lost
		// their seeds too, put them back. Anyone else keeps their earlier
		// rows; if they somehow have none, the engine falls back to
		// defaults instead of failing.
		if !seedAt.Before(after) {
			if err := seedUserRatings(tx, users[k].ID, seedAt); err != nil {
				return fmt.Errorf("unable to re-seed user ratings: %w", err)
			}
		}
	}

	matches, err := getApprovedMatchesFrom(tx, after)
	if err != nil {
		return fmt.Errorf("unable to fetch matches to replay: %w", err)
	}

	for k := range matches {
		// NOTE: a match played before a participant registered reads that
		// user's later seed as "current". The source data cannot say what
		// the right answer would be, so this is left as-is.
		if err := b.applyMatchRatings(tx, matches[k]); err != nil {
			return fmt.Errorf("unable to replay match %s: %w", matches[k].ID, err)
		}
	}

	log.Printf("debug: replayed %d matches from %s", len(matches), after.Time())

	return nil
}
