package back

import (
	"database/sql"
	"time"

	"moneyball/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	glicko "github.com/zelenin/go-glicko2"
	"gopkg.in/guregu/null.v4"
)

type RatingKind string

const ( // this is stored in DB, don't change values
	RatingKindElo            RatingKind = "elo"
	RatingKindTrueSkillMu    RatingKind = "trueskill_mu"
	RatingKindTrueSkillSigma RatingKind = "trueskill_sigma"
	RatingKindGoalDifference RatingKind = "goal_difference"

	RatingKindGlickoRating     RatingKind = "glicko_rating"
	RatingKindGlickoDeviation  RatingKind = "glicko_deviation"
	RatingKindGlickoVolatility RatingKind = "glicko_volatility"
)

const (
	DefaultElo            = 1500.0
	DefaultTrueSkillMu    = 25.0
	DefaultTrueSkillSigma = 8.333
	DefaultGoalDifference = 0.0
)

// RatingKinds returns every kind a user gets seeded with at registration.
func RatingKinds() []RatingKind {
	return []RatingKind{
		RatingKindElo,
		RatingKindTrueSkillMu,
		RatingKindTrueSkillSigma,
		RatingKindGoalDifference,
		RatingKindGlickoRating,
		RatingKindGlickoDeviation,
		RatingKindGlickoVolatility,
	}
}

// DefaultValue is the seed rating of a kind, also substituted whenever a
// user has no history at all. Missing history is never an error.
func (k RatingKind) DefaultValue() float64 {
	switch k {
	case RatingKindElo:
		return DefaultElo
	case RatingKindTrueSkillMu:
		return DefaultTrueSkillMu
	case RatingKindTrueSkillSigma:
		return DefaultTrueSkillSigma
	case RatingKindGoalDifference:
		return DefaultGoalDifference
	case RatingKindGlickoRating:
		return glicko.RATING_BASE_R
	case RatingKindGlickoDeviation:
		return glicko.RATING_BASE_RD
	case RatingKindGlickoVolatility:
		return glicko.RATING_BASE_SIGMA
	}

	return 0
}

// A RatingSnapshot is one point of a user's rating history. Snapshots are
// only ever appended (or bulk-deleted and rebuilt by a recompute), never
// updated in place.
type RatingSnapshot struct {
	ID      util.UUIDAsBlob
	UserID  util.UUIDAsBlob
	MatchID util.NullUUIDAsBlob
	Kind    RatingKind

	// RatedAt is the effective time of the rating: the match's PlayedAt, or
	// the registration time for seeds. CreatedAt is the wall-clock write
	// time and only breaks ties.
	RatedAt   util.TimeAsTimestamp
	CreatedAt util.TimeAsTimestamp

	Value float64
}

func NewRatingSnapshot(userID util.UUIDAsBlob, kind RatingKind, value float64, ratedAt util.TimeAsTimestamp) RatingSnapshot {
	return RatingSnapshot{
		ID:        util.NewUUIDAsBlob(),
		UserID:    userID,
		Kind:      kind,
		RatedAt:   ratedAt,
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		Value:     value,
	}
}

func (s *RatingSnapshot) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("RatingSnapshot").SetMap(squirrel.Eq{
		"ID":        s.ID,
		"UserID":    s.UserID,
		"MatchID":   s.MatchID,
		"Kind":      s.Kind,
		"RatedAt":   s.RatedAt,
		"CreatedAt": s.CreatedAt,
		"Value":     s.Value,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

// seedUserRatings writes the default snapshot of every kind for a user, all
// sharing the given effective time.
func seedUserRatings(tx *sqlx.Tx, userID util.UUIDAsBlob, at util.TimeAsTimestamp) error {
	for _, kind := range RatingKinds() {
		snap := NewRatingSnapshot(userID, kind, kind.DefaultValue(), at)
		if err := snap.insert(tx); err != nil {
			return err
		}
	}

	return nil
}

// getCurrentRating returns the latest rating of a kind for a user, or the
// kind default when the user has no history.
func getCurrentRating(tx *sqlx.Tx, userID util.UUIDAsBlob, kind RatingKind) (float64, error) {
	var ret float64
	query := `SELECT Value FROM RatingSnapshot
        WHERE UserID = ? AND Kind = ?
        ORDER BY RatedAt DESC, CreatedAt DESC, ID DESC LIMIT 1`
	if err := tx.Get(&ret, query, userID, kind); err != nil {
		if err == sql.ErrNoRows {
			return kind.DefaultValue(), nil
		}

		return 0, err
	}

	return ret, nil
}

func getRatingHistory(tx *sqlx.Tx, userID util.UUIDAsBlob, kind RatingKind) ([]RatingSnapshot, error) {
	var ret []RatingSnapshot
	query := `SELECT * FROM RatingSnapshot
        WHERE UserID = ? AND Kind = ?
        ORDER BY RatedAt ASC, CreatedAt ASC, ID ASC`
	if err := tx.Select(&ret, query, userID, kind); err != nil {
		return nil, err
	}

	return ret, nil
}

// getRatingAtMatch returns the value recorded for one exact match, invalid
// if the match never produced a snapshot for this user (pending, deleted,
// or a bystander).
func getRatingAtMatch(tx *sqlx.Tx, userID, matchID util.UUIDAsBlob, kind RatingKind) (null.Float, error) {
	var ret float64
	query := `SELECT Value FROM RatingSnapshot
        WHERE UserID = ? AND MatchID = ? AND Kind = ? LIMIT 1`
	if err := tx.Get(&ret, query, userID, matchID, kind); err != nil {
		if err == sql.ErrNoRows {
			return null.Float{}, nil
		}

		return null.Float{}, err
	}

	return null.FloatFrom(ret), nil
}

// deleteRatingSnapshotsFrom prunes every snapshot whose effective time is at
// or after a point in time, across all users and kinds. Only the recompute
// may call this.
func deleteRatingSnapshotsFrom(tx *sqlx.Tx, after util.TimeAsTimestamp) error {
	if _, err := tx.Exec(
		`DELETE FROM RatingSnapshot WHERE RatedAt >= ?`,
		after,
	); err != nil {
		return err
	}

	return nil
}

// getEarliestRatingTimes maps every user that has any history to the
// effective time of their oldest snapshot, which is taken to be their
// registration time.
func getEarliestRatingTimes(tx *sqlx.Tx) (map[util.UUIDAsBlob]util.TimeAsTimestamp, error) {
	rows := []struct {
		UserID  util.UUIDAsBlob
		RatedAt util.TimeAsTimestamp
	}{}

	if err := tx.Select(&rows, `
        SELECT UserID, MIN(RatedAt) AS RatedAt FROM RatingSnapshot
        GROUP BY UserID`,
	); err != nil {
		return nil, err
	}

	ret := make(map[util.UUIDAsBlob]util.TimeAsTimestamp, len(rows))
	for k := range rows {
		ret[rows[k].UserID] = rows[k].RatedAt
	}

	return ret, nil
}
