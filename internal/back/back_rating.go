package back

import (
	"math"

	"moneyball/internal/util"

	"github.com/jmoiron/sqlx"
	glicko "github.com/zelenin/go-glicko2"
)

// applyMatchRatings runs the rating engine for one match: one new snapshot
// per participant per rating kind, all sharing the match's PlayedAt so a
// later replay lands on the exact same history. A match that is missing an
// approval contributes nothing, which is a no-op and not an error.
//
// Current ratings are read before anything is written: the engine only ever
// depends on the immediately preceding snapshots.
func (b *Back) applyMatchRatings(tx *sqlx.Tx, match Match) error {
	if !match.FullyApproved() {
		return nil
	}

	if err := applyEloRatings(tx, match); err != nil {
		return err
	}

	if err := applyTrueSkillRatings(tx, match); err != nil {
		return err
	}

	if err := applyGlickoRatings(tx, match); err != nil {
		return err
	}

	return applyGoalDifferenceRatings(tx, match)
}

func writeMatchSnapshot(
	tx *sqlx.Tx, match Match,
	userID util.UUIDAsBlob, kind RatingKind, value float64,
) error {
	snap := NewRatingSnapshot(userID, kind, value, match.PlayedAt)
	snap.MatchID = util.NewNullUUIDAsBlob(match.ID)

	return snap.insert(tx)
}

// applyEloRatings moves every winner up and every loser down by the same
// team-level delta, computed from team average ratings with the match
// importance as K-factor. The delta is deliberately not weighted per
// player.
func applyEloRatings(tx *sqlx.Tx, match Match) error {
	teamQ := func(team []MatchParticipant) (q float64, elos []float64, _ error) {
		var sum float64
		elos = make([]float64, len(team))
		for k := range team {
			elo, err := getCurrentRating(tx, team[k].UserID, RatingKindElo)
			if err != nil {
				return 0, nil, err
			}

			elos[k] = elo
			sum += elo
		}

		avg := sum / float64(len(team))

		return math.Pow(10, avg/400), elos, nil
	}

	winners, losers := match.Winners(), match.Losers()

	qW, winnerElos, err := teamQ(winners)
	if err != nil {
		return err
	}
	qL, loserElos, err := teamQ(losers)
	if err != nil {
		return err
	}

	expectedWin := qW / (qW + qL)
	delta := float64(match.Importance) * (1 - expectedWin)

	for k := range winners {
		if err := writeMatchSnapshot(
			tx, match, winners[k].UserID, RatingKindElo, winnerElos[k]+delta,
		); err != nil {
			return err
		}
	}

	for k := range losers {
		if err := writeMatchSnapshot(
			tx, match, losers[k].UserID, RatingKindElo, loserElos[k]-delta,
		); err != nil {
			return err
		}
	}

	return nil
}

// applyTrueSkillRatings updates every participant's (mu, sigma) pair from
// the two-team comparison, winners ranked above losers.
func applyTrueSkillRatings(tx *sqlx.Tx, match Match) error {
	teamSkills := func(team []MatchParticipant) ([]skill, error) {
		ret := make([]skill, len(team))
		for k := range team {
			mu, err := getCurrentRating(tx, team[k].UserID, RatingKindTrueSkillMu)
			if err != nil {
				return nil, err
			}

			sigma, err := getCurrentRating(tx, team[k].UserID, RatingKindTrueSkillSigma)
			if err != nil {
				return nil, err
			}

			ret[k] = skill{Mu: mu, Sigma: sigma}
		}

		return ret, nil
	}

	winners, losers := match.Winners(), match.Losers()

	winnerSkills, err := teamSkills(winners)
	if err != nil {
		return err
	}
	loserSkills, err := teamSkills(losers)
	if err != nil {
		return err
	}

	newWinners, newLosers := rateTwoTeams(winnerSkills, loserSkills)

	write := func(team []MatchParticipant, skills []skill) error {
		for k := range team {
			if err := writeMatchSnapshot(
				tx, match, team[k].UserID, RatingKindTrueSkillMu, skills[k].Mu,
			); err != nil {
				return err
			}

			if err := writeMatchSnapshot(
				tx, match, team[k].UserID, RatingKindTrueSkillSigma, skills[k].Sigma,
			); err != nil {
				return err
			}
		}

		return nil
	}

	if err := write(winners, newWinners); err != nil {
		return err
	}

	return write(losers, newLosers)
}

// applyGlickoRatings runs a one-match Glicko-2 rating period. Teams enter
// the period as the cross product of winner/loser pairs, the library only
// knows head-to-head results.
func applyGlickoRatings(tx *sqlx.Tx, match Match) error {
	players := make(map[util.UUIDAsBlob]*glicko.Player, len(match.Participants))
	for k := range match.Participants {
		userID := match.Participants[k].UserID

		r, err := getCurrentRating(tx, userID, RatingKindGlickoRating)
		if err != nil {
			return err
		}
		rd, err := getCurrentRating(tx, userID, RatingKindGlickoDeviation)
		if err != nil {
			return err
		}
		sigma, err := getCurrentRating(tx, userID, RatingKindGlickoVolatility)
		if err != nil {
			return err
		}

		players[userID] = glicko.NewPlayer(glicko.NewRating(r, rd, sigma))
	}

	period := glicko.NewRatingPeriod()
	for k := range players {
		period.AddPlayer(players[k])
	}

	winners, losers := match.Winners(), match.Losers()
	for w := range winners {
		for l := range losers {
			period.AddMatch(players[winners[w].UserID], players[losers[l].UserID], glicko.MATCH_RESULT_WIN)
		}
	}

	period.Calculate()

	for userID, player := range players {
		rating := player.Rating()

		if err := writeMatchSnapshot(tx, match, userID, RatingKindGlickoRating, rating.R()); err != nil {
			return err
		}
		if err := writeMatchSnapshot(tx, match, userID, RatingKindGlickoDeviation, rating.Rd()); err != nil {
			return err
		}
		if err := writeMatchSnapshot(tx, match, userID, RatingKindGlickoVolatility, rating.Sigma()); err != nil {
			return err
		}
	}

	return nil
}

// applyGoalDifferenceRatings accumulates the score margin, positive for
// winners, negative for losers. Unbounded on purpose.
func applyGoalDifferenceRatings(tx *sqlx.Tx, match Match) error {
	diff := float64(match.WinnerScore - match.LoserScore)

	for k := range match.Participants {
		p := match.Participants[k]

		current, err := getCurrentRating(tx, p.UserID, RatingKindGoalDifference)
		if err != nil {
			return err
		}

		value := current + diff
		if !p.IsWinner {
			value = current - diff
		}

		if err := writeMatchSnapshot(tx, match, p.UserID, RatingKindGoalDifference, value); err != nil {
			return err
		}
	}

	return nil
}

// TrueSkillDisplayRating is the conservative scalar estimate used to sort
// and display the two-dimensional trueskill rating: mu - 3*sigma.
func TrueSkillDisplayRating(mu, sigma float64) float64 {
	return mu - 3*sigma
}
