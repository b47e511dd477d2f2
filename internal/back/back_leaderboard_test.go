package back

import (
	"math"
	"testing"
	"time"
)

func TestLeaderboardSortsByCurrentElo(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")
	mikkel := registerTestUser(t, back, "MKL", "Mikkel")

	base := time.Now()
	playApprovedMatch(t, back, anders, preben, 10, 8, 16, base.Add(1*time.Minute))
	playApprovedMatch(t, back, anders, mikkel, 10, 6, 16, base.Add(2*time.Minute))

	entries, err := back.Leaderboard()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].User.ID != anders.ID {
		t.Errorf("expected Anders on top, got %s", entries[0].User.NickName)
	}
	for k := 1; k < len(entries); k++ {
		if entries[k-1].Elo < entries[k].Elo {
			t.Error("leaderboard is not sorted by Elo descending")
		}
	}

	if entries[0].Wins != 2 || entries[0].Losses != 0 {
		t.Errorf("expected a 2-0 record, got %d-%d", entries[0].Wins, entries[0].Losses)
	}

	mu, err := back.CurrentRating(anders.ID, RatingKindTrueSkillMu)
	if err != nil {
		t.Fatal(err)
	}
	sigma, err := back.CurrentRating(anders.ID, RatingKindTrueSkillSigma)
	if err != nil {
		t.Fatal(err)
	}
	if expected := mu - 3*sigma; math.Abs(entries[0].TrueSkill-expected) > 1e-9 {
		t.Errorf("expected conservative trueskill %f, got %f", expected, entries[0].TrueSkill)
	}
}

// A pending match shows up in nobody's record.
func TestLeaderboardIgnoresPendingMatches(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	if _, err := back.CreateMatch(ids(preben), ids(anders), 10, 8, 16, preben.ID, time.Now()); err != nil {
		t.Fatal(err)
	}

	entries, err := back.Leaderboard()
	if err != nil {
		t.Fatal(err)
	}

	for _, entry := range entries {
		if entry.Wins != 0 || entry.Losses != 0 {
			t.Errorf("%s: expected an empty record, got %d-%d", entry.User.ShortName, entry.Wins, entry.Losses)
		}
		if entry.Elo != DefaultElo {
			t.Errorf("%s: expected seed Elo, got %f", entry.User.ShortName, entry.Elo)
		}
	}
}
