package back

import (
	"math"
	"testing"
	"time"
)

func TestEloDeltaWithImportance16(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	// Both at 1500: expected win probability is 0.5, delta = 16 * 0.5 = 8.
	playApprovedMatch(t, back, preben, anders, 10, 9, 16, time.Now().Add(time.Minute))

	assertCurrentRating(t, back, preben, RatingKindElo, 1508.0)
	assertCurrentRating(t, back, anders, RatingKindElo, 1492.0)
}

func TestEloDeltaWithImportance32(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	playApprovedMatch(t, back, preben, anders, 10, 9, 32, time.Now().Add(time.Minute))

	assertCurrentRating(t, back, preben, RatingKindElo, 1516.0)
	assertCurrentRating(t, back, anders, RatingKindElo, 1484.0)
}

// The Elo delta is computed once from team averages and applied uniformly,
// so every participant moves by the same amount whatever the team sizes.
func TestEloTeamDeltaIsUniform(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")
	mikkel := registerTestUser(t, back, "MKL", "Mikkel")

	base := time.Now()

	// Skew the ratings first so the teams are not all at 1500.
	playApprovedMatch(t, back, preben, anders, 10, 5, 32, base.Add(time.Minute))

	match, err := back.CreateMatch(
		ids(preben, anders), ids(mikkel),
		10, 8, 16, preben.ID, base.Add(2*time.Minute),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := back.ApproveMatch(match.ID, mikkel.ID); err != nil {
		t.Fatal(err)
	}

	deltas := make([]float64, 0, 3)
	for _, user := range []User{preben, anders, mikkel} {
		history, err := back.RatingHistory(user.ID, RatingKindElo)
		if err != nil {
			t.Fatal(err)
		}

		last, prev := history[len(history)-1], history[len(history)-2]
		deltas = append(deltas, last.Value-prev.Value)
	}

	if math.Abs(deltas[0]-deltas[1]) > 1e-9 {
		t.Errorf("winning teammates moved by different deltas: %f vs %f", deltas[0], deltas[1])
	}
	if math.Abs(deltas[0]+deltas[2]) > 1e-9 {
		t.Errorf("loser delta should mirror winner delta: %f vs %f", deltas[0], deltas[2])
	}
}

func TestGoalDifferenceAccumulates(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	base := time.Now()
	playApprovedMatch(t, back, preben, anders, 10, 4, 16, base.Add(time.Minute))
	playApprovedMatch(t, back, anders, preben, 10, 8, 16, base.Add(2*time.Minute))

	assertCurrentRating(t, back, preben, RatingKindGoalDifference, 4.0)  // +6 -2
	assertCurrentRating(t, back, anders, RatingKindGoalDifference, -4.0) // -6 +2
}

func TestTrueSkillSnapshots(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	playApprovedMatch(t, back, preben, anders, 10, 9, 16, time.Now().Add(time.Minute))

	winnerMu, err := back.CurrentRating(preben.ID, RatingKindTrueSkillMu)
	if err != nil {
		t.Fatal(err)
	}
	loserMu, err := back.CurrentRating(anders.ID, RatingKindTrueSkillMu)
	if err != nil {
		t.Fatal(err)
	}

	if winnerMu <= DefaultTrueSkillMu {
		t.Errorf("winner mu should have increased, got %f", winnerMu)
	}
	if loserMu >= DefaultTrueSkillMu {
		t.Errorf("loser mu should have decreased, got %f", loserMu)
	}

	// Equal priors on both sides: the update is symmetric.
	if math.Abs((winnerMu-DefaultTrueSkillMu)-(DefaultTrueSkillMu-loserMu)) > 1e-9 {
		t.Errorf("expected symmetric mu updates, got %f and %f", winnerMu, loserMu)
	}

	for _, user := range []User{preben, anders} {
		sigma, err := back.CurrentRating(user.ID, RatingKindTrueSkillSigma)
		if err != nil {
			t.Fatal(err)
		}
		if sigma >= DefaultTrueSkillSigma {
			t.Errorf("a rated match should shrink sigma, got %f", sigma)
		}
	}
}

func TestGlickoSnapshots(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	playApprovedMatch(t, back, preben, anders, 10, 9, 16, time.Now().Add(time.Minute))

	winner, err := back.CurrentRating(preben.ID, RatingKindGlickoRating)
	if err != nil {
		t.Fatal(err)
	}
	loser, err := back.CurrentRating(anders.ID, RatingKindGlickoRating)
	if err != nil {
		t.Fatal(err)
	}

	if winner <= RatingKindGlickoRating.DefaultValue() {
		t.Errorf("winner Glicko rating should have increased, got %f", winner)
	}
	if loser >= RatingKindGlickoRating.DefaultValue() {
		t.Errorf("loser Glicko rating should have decreased, got %f", loser)
	}

	for _, user := range []User{preben, anders} {
		deviation, err := back.CurrentRating(user.ID, RatingKindGlickoDeviation)
		if err != nil {
			t.Fatal(err)
		}
		if deviation >= RatingKindGlickoDeviation.DefaultValue() {
			t.Errorf("a rated match should shrink the deviation, got %f", deviation)
		}
	}
}

// All snapshots of a live match share the match's PlayedAt, not the time
// the result was entered.
func TestSnapshotsCarryMatchTimestamp(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	playedAt := time.Now().Add(30 * time.Minute)
	playApprovedMatch(t, back, preben, anders, 10, 8, 16, playedAt)

	history, err := back.RatingHistory(preben.ID, RatingKindElo)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected seed + match snapshot, got %d", len(history))
	}

	if got := history[1].RatedAt.Time().Unix(); got != playedAt.Unix() {
		t.Errorf("expected snapshot at %d, got %d", playedAt.Unix(), got)
	}
}

func assertCurrentRating(t *testing.T, back *Back, user User, kind RatingKind, expected float64) {
	t.Helper()

	value, err := back.CurrentRating(user.ID, kind)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(value-expected) > 1e-9 {
		t.Errorf("expected %s %s = %f, got %f", user.ShortName, kind, expected, value)
	}
}
