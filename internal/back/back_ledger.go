package back

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"moneyball/internal/util"

	"github.com/jmoiron/sqlx"
)

// CreateMatch records a played game between two disjoint teams. The side
// the creating user played on is approved right away (you vouch for your
// own result), the other side has to confirm before the outcome counts.
// A zero playedAt means "just now".
func (b *Back) CreateMatch(
	winnerIDs, loserIDs []util.UUIDAsBlob,
	winnerScore, loserScore, importance int,
	createdBy util.UUIDAsBlob,
	playedAt time.Time,
) (match Match, _ error) {
	if len(winnerIDs) == 0 || len(loserIDs) == 0 {
		return Match{}, util.ErrValidation("both teams need at least one player")
	}

	if winnerScore <= loserScore {
		return Match{}, util.ErrValidation("winning score must exceed losing score")
	}

	if !isValidImportance(importance) {
		return Match{}, util.ErrValidation("importance must be one of 8, 16, or 32")
	}

	seen := map[util.UUIDAsBlob]struct{}{}
	for _, id := range append(append([]util.UUIDAsBlob{}, winnerIDs...), loserIDs...) {
		if _, ok := seen[id]; ok {
			return Match{}, util.ErrValidation("same user cannot be both winner and loser")
		}
		seen[id] = struct{}{}
	}

	if playedAt.IsZero() {
		playedAt = time.Now()
	}

	if err := b.transaction(func(tx *sqlx.Tx) error {
		count, err := countUsersByID(tx, append(append([]util.UUIDAsBlob{}, winnerIDs...), loserIDs...))
		if err != nil {
			return err
		}
		if count != len(seen) {
			return util.ErrValidation("match references an unknown user")
		}

		match = NewMatch(winnerScore, loserScore, importance, playedAt)
		match.CreatedByID = util.NewNullUUIDAsBlob(createdBy)

		for _, id := range winnerIDs {
			match.Participants = append(match.Participants, NewMatchParticipant(match.ID, id, true))
			if id == createdBy {
				match.ApprovedByWinners = true
			}
		}
		for _, id := range loserIDs {
			match.Participants = append(match.Participants, NewMatchParticipant(match.ID, id, false))
			if id == createdBy {
				match.ApprovedByLosers = true
			}
		}

		if err := match.insert(tx); err != nil {
			return fmt.Errorf("unable to insert match: %w", err)
		}

		for k := range match.Participants {
			if err := match.Participants[k].insert(tx); err != nil {
				return fmt.Errorf("unable to insert participant: %w", err)
			}
		}

		// No-op while an approval is missing.
		return b.applyMatchRatings(tx, match)
	}); err != nil {
		return Match{}, err
	}

	return match, nil
}

// GetMatch fetches one match with its participants, for the detail page.
func (b *Back) GetMatch(matchID util.UUIDAsBlob) (match Match, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		match, err = getMatchByID(tx, matchID)
		return err
	}); err != nil {
		return Match{}, err
	}

	return match, nil
}

func isValidImportance(importance int) bool {
	for _, v := range ImportanceValues {
		if importance == v {
			return true
		}
	}

	return false
}

type ApprovalResult int

const (
	ApprovalResultApproved ApprovalResult = iota
	ApprovalResultAlreadyApproved
)

// ApproveMatch confirms the outcome of a match for whichever side the
// approver played on. When this turns the match live, ratings from its
// PlayedAt onwards are rebuilt rather than just appended to: the approval
// may arrive long after later matches were already applied.
func (b *Back) ApproveMatch(matchID, approverID util.UUIDAsBlob) (result ApprovalResult, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) error {
		match, err := getMatchByID(tx, matchID)
		if err != nil {
			return err
		}

		isWinner, found := match.sideOf(approverID)
		if !found {
			return util.ErrPermission("you are not a participant in this match")
		}

		approved := &match.ApprovedByLosers
		if isWinner {
			approved = &match.ApprovedByWinners
		}

		if *approved {
			result = ApprovalResultAlreadyApproved
			return nil
		}

		*approved = true
		result = ApprovalResultApproved

		if err := match.update(tx); err != nil {
			return fmt.Errorf("unable to update match: %w", err)
		}

		if match.FullyApproved() {
			log.Printf("debug: match %s went live, rebuilding ratings from %s", match.ID, match.PlayedAt.Time())
			return b.recomputeFrom(tx, match.PlayedAt)
		}

		return nil
	}); err != nil {
		return 0, err
	}

	return result, nil
}

// DeleteMatch removes a match and rebuilds every rating derived under the
// assumption it existed. Deleting a match that is already gone is not an
// error, a recompute replaying a stale plan must be able to call this
// blindly.
func (b *Back) DeleteMatch(matchID util.UUIDAsBlob) error {
	return b.transaction(func(tx *sqlx.Tx) error {
		match, err := getMatchByID(tx, matchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}

			return err
		}

		if _, err := tx.Exec(`DELETE FROM MatchParticipant WHERE MatchID = ?`, matchID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM RatingSnapshot WHERE MatchID = ?`, matchID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM Match WHERE ID = ?`, matchID); err != nil {
			return err
		}

		// A pending match never contributed a snapshot, nothing to rebuild.
		if match.FullyApproved() {
			return b.recomputeFrom(tx, match.PlayedAt)
		}

		return nil
	})
}
