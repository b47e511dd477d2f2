package back

import (
	"time"

	"moneyball/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// A Match is a single played game between two disjoint teams. Its outcome
// only counts towards ratings once both sides have approved it.
type Match struct {
	ID          util.UUIDAsBlob
	CreatedAt   util.TimeAsTimestamp
	PlayedAt    util.TimeAsTimestamp
	CreatedByID util.NullUUIDAsBlob

	WinnerScore int
	LoserScore  int

	// Importance is the Elo K-factor, one of ImportanceValues.
	Importance int

	ApprovedByWinners bool
	ApprovedByLosers  bool

	Participants []MatchParticipant `db:"-"`
}

// ImportanceValues are the accepted Elo K-factors, from friendly game to
// office-championship final.
var ImportanceValues = []int{8, 16, 32}

func NewMatch(winnerScore, loserScore, importance int, playedAt time.Time) Match {
	return Match{
		ID:          util.NewUUIDAsBlob(),
		CreatedAt:   util.TimeAsTimestamp(time.Now()),
		PlayedAt:    util.TimeAsTimestamp(playedAt),
		WinnerScore: winnerScore,
		LoserScore:  loserScore,
		Importance:  importance,
	}
}

func (m *Match) FullyApproved() bool {
	return m.ApprovedByWinners && m.ApprovedByLosers
}

func (m *Match) Winners() []MatchParticipant {
	return m.side(true)
}

func (m *Match) Losers() []MatchParticipant {
	return m.side(false)
}

func (m *Match) side(isWinner bool) []MatchParticipant {
	ret := make([]MatchParticipant, 0, len(m.Participants))
	for k := range m.Participants {
		if m.Participants[k].IsWinner == isWinner {
			ret = append(ret, m.Participants[k])
		}
	}

	return ret
}

// sideOf returns which side of the match a user played on, or found=false
// for a bystander.
func (m *Match) sideOf(userID util.UUIDAsBlob) (isWinner bool, found bool) {
	for k := range m.Participants {
		if m.Participants[k].UserID == userID {
			return m.Participants[k].IsWinner, true
		}
	}

	return false, false
}

func (m *Match) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("Match").SetMap(squirrel.Eq{
		"ID":                m.ID,
		"CreatedAt":         m.CreatedAt,
		"PlayedAt":          m.PlayedAt,
		"CreatedByID":       m.CreatedByID,
		"WinnerScore":       m.WinnerScore,
		"LoserScore":        m.LoserScore,
		"Importance":        m.Importance,
		"ApprovedByWinners": m.ApprovedByWinners,
		"ApprovedByLosers":  m.ApprovedByLosers,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func (m *Match) update(tx *sqlx.Tx) error {
	query, args, err := squirrel.Update("Match").SetMap(squirrel.Eq{
		"PlayedAt":          m.PlayedAt,
		"WinnerScore":       m.WinnerScore,
		"LoserScore":        m.LoserScore,
		"Importance":        m.Importance,
		"ApprovedByWinners": m.ApprovedByWinners,
		"ApprovedByLosers":  m.ApprovedByLosers,
	}).Where("Match.ID = ?", m.ID).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

// A MatchParticipant ties a user to one side of a match. Winning and losing
// teams are read straight off this relation rather than being inferred from
// scores or object graphs.
type MatchParticipant struct {
	MatchID   util.UUIDAsBlob
	UserID    util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	IsWinner  bool
}

func NewMatchParticipant(matchID, userID util.UUIDAsBlob, isWinner bool) MatchParticipant {
	return MatchParticipant{
		MatchID:   matchID,
		UserID:    userID,
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		IsWinner:  isWinner,
	}
}

func (p *MatchParticipant) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("MatchParticipant").SetMap(squirrel.Eq{
		"MatchID":   p.MatchID,
		"UserID":    p.UserID,
		"CreatedAt": p.CreatedAt,
		"IsWinner":  p.IsWinner,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func getMatchByID(tx *sqlx.Tx, id util.UUIDAsBlob) (Match, error) {
	var ret Match
	query := `SELECT * FROM Match WHERE Match.ID = ? LIMIT 1`
	if err := tx.Get(&ret, query, id); err != nil {
		return Match{}, err
	}

	if err := tx.Select(
		&ret.Participants,
		`SELECT * FROM MatchParticipant WHERE MatchParticipant.MatchID = ?`,
		id,
	); err != nil {
		return Match{}, err
	}

	return ret, nil
}

// getApprovedMatchesFrom returns every fully-approved match played at or
// after a point in time, participants attached, in the strict chronological
// order the rating replay requires.
func getApprovedMatchesFrom(tx *sqlx.Tx, after util.TimeAsTimestamp) ([]Match, error) {
	var matches []Match
	if err := tx.Select(&matches, `
        SELECT * FROM Match
        WHERE Match.ApprovedByWinners = 1 AND Match.ApprovedByLosers = 1
            AND Match.PlayedAt >= ?
        ORDER BY Match.PlayedAt ASC, Match.CreatedAt ASC, Match.ID ASC`,
		after,
	); err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return matches, nil
	}

	ids := make([]util.UUIDAsBlob, 0, len(matches))
	for k := range matches {
		ids = append(ids, matches[k].ID)
	}

	query, args, err := sqlx.In(`SELECT * FROM MatchParticipant WHERE MatchID IN(?)`, ids)
	if err != nil {
		return nil, err
	}
	query = tx.Rebind(query)

	var participants []MatchParticipant
	if err := tx.Select(&participants, query, args...); err != nil {
		return nil, err
	}

	byMatch := make(map[util.UUIDAsBlob][]MatchParticipant, len(matches))
	for k := range participants {
		byMatch[participants[k].MatchID] = append(byMatch[participants[k].MatchID], participants[k])
	}
	for k := range matches {
		matches[k].Participants = byMatch[matches[k].ID]
	}

	return matches, nil
}

func countUsersByID(tx *sqlx.Tx, ids []util.UUIDAsBlob) (int, error) {
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM User WHERE ID IN(?)`, ids)
	if err != nil {
		return 0, err
	}
	query = tx.Rebind(query)

	var count int
	if err := tx.Get(&count, query, args...); err != nil {
		return 0, err
	}

	return count, nil
}
