package back

import (
	"sort"

	"moneyball/internal/util"

	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v4"
)

// CurrentRating returns the most recent rating of a kind for a user, or the
// kind default when they have no history.
func (b *Back) CurrentRating(userID util.UUIDAsBlob, kind RatingKind) (value float64, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		value, err = getCurrentRating(tx, userID, kind)
		return err
	}); err != nil {
		return 0, err
	}

	return value, nil
}

// RatingHistory returns the full rating time-series of a user for one kind,
// ascending.
func (b *Back) RatingHistory(userID util.UUIDAsBlob, kind RatingKind) (history []RatingSnapshot, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		history, err = getRatingHistory(tx, userID, kind)
		return err
	}); err != nil {
		return nil, err
	}

	return history, nil
}

// RatingAtMatch returns the value a given match recorded for a user, or an
// invalid null.Float when that match never produced a snapshot for them.
func (b *Back) RatingAtMatch(userID, matchID util.UUIDAsBlob, kind RatingKind) (value null.Float, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		value, err = getRatingAtMatch(tx, userID, matchID, kind)
		return err
	}); err != nil {
		return null.Float{}, err
	}

	return value, nil
}

// A LeaderboardEntry is one row of the front page: a user and their current
// standing on every scale, plus their live match record.
type LeaderboardEntry struct {
	User           User
	Elo            float64
	TrueSkill      float64 // conservative estimate, mu - 3*sigma
	GoalDifference float64
	Wins, Losses   int
}

// Leaderboard returns every registered user sorted by current Elo,
// descending. Only live (fully-approved) matches count in the win/loss
// record.
func (b *Back) Leaderboard() (entries []LeaderboardEntry, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) error {
		users, err := getUsers(tx)
		if err != nil {
			return err
		}

		entries = make([]LeaderboardEntry, 0, len(users))
		for k := range users {
			entry := LeaderboardEntry{User: users[k]}

			if entry.Elo, err = getCurrentRating(tx, users[k].ID, RatingKindElo); err != nil {
				return err
			}

			mu, err := getCurrentRating(tx, users[k].ID, RatingKindTrueSkillMu)
			if err != nil {
				return err
			}
			sigma, err := getCurrentRating(tx, users[k].ID, RatingKindTrueSkillSigma)
			if err != nil {
				return err
			}
			entry.TrueSkill = TrueSkillDisplayRating(mu, sigma)

			if entry.GoalDifference, err = getCurrentRating(tx, users[k].ID, RatingKindGoalDifference); err != nil {
				return err
			}

			if entry.Wins, entry.Losses, err = getUserRecord(tx, users[k].ID); err != nil {
				return err
			}

			entries = append(entries, entry)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Elo > entries[j].Elo
	})

	return entries, nil
}

// getUserRecord counts wins and losses over live matches only.
func getUserRecord(tx *sqlx.Tx, userID util.UUIDAsBlob) (wins int, losses int, _ error) {
	query := `SELECT COUNT(*) FROM MatchParticipant
        INNER JOIN Match ON (MatchParticipant.MatchID = Match.ID)
        WHERE MatchParticipant.UserID = ? AND MatchParticipant.IsWinner = ?
            AND Match.ApprovedByWinners = 1 AND Match.ApprovedByLosers = 1`

	if err := tx.Get(&wins, query, userID, true); err != nil {
		return 0, 0, err
	}

	if err := tx.Get(&losses, query, userID, false); err != nil {
		return 0, 0, err
	}

	return wins, losses, nil
}
