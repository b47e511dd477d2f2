package back

import (
	"math"
	"reflect"
	"testing"
	"time"

	"moneyball/internal/util"

	"github.com/jmoiron/sqlx"
)

func TestRecomputeIsIdempotent(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")
	mikkel := registerTestUser(t, back, "MKL", "Mikkel")

	base := time.Now()
	playApprovedMatch(t, back, preben, anders, 10, 7, 16, base.Add(1*time.Minute))
	playApprovedMatch(t, back, anders, mikkel, 10, 9, 32, base.Add(2*time.Minute))
	playApprovedMatch(t, back, mikkel, preben, 11, 9, 8, base.Add(3*time.Minute))

	if err := back.Recompute(); err != nil {
		t.Fatal(err)
	}
	first := dumpRatingStore(t, back)

	if err := back.Recompute(); err != nil {
		t.Fatal(err)
	}
	second := dumpRatingStore(t, back)

	if !reflect.DeepEqual(first, second) {
		t.Error("two consecutive recomputes disagree")
	}
}

func TestRecomputeMatchesIncrementalRatings(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	base := time.Now()
	playApprovedMatch(t, back, preben, anders, 10, 7, 16, base.Add(1*time.Minute))
	playApprovedMatch(t, back, anders, preben, 10, 9, 16, base.Add(2*time.Minute))

	before := currentRatings(t, back, preben, anders)

	if err := back.Recompute(); err != nil {
		t.Fatal(err)
	}

	assertSameRatings(t, before, currentRatings(t, back, preben, anders))
}

func TestDeleteMatchRestoresPriorRatings(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	base := time.Now()
	playApprovedMatch(t, back, preben, anders, 10, 7, 16, base.Add(1*time.Minute))

	before := currentRatings(t, back, preben, anders)

	match := playApprovedMatch(t, back, anders, preben, 10, 2, 32, base.Add(2*time.Minute))
	if err := back.DeleteMatch(match.ID); err != nil {
		t.Fatal(err)
	}

	assertSameRatings(t, before, currentRatings(t, back, preben, anders))
}

// Only match timestamps determine the replay, not the order results were
// entered into the ledger.
func TestInsertionOrderDoesNotMatter(t *testing.T) {
	chronological := createTestBack(t)
	scrambled := createTestBack(t)

	base := time.Now()

	games := []struct {
		winnerShort, loserShort string
		winnerScore, loserScore int
		importance              int
		offset                  time.Duration
	}{
		{"PGR", "AHO", 10, 7, 16, 1 * time.Minute},
		{"MKL", "PGR", 10, 9, 32, 2 * time.Minute},
		{"AHO", "MKL", 11, 9, 16, 3 * time.Minute},
	}

	play := func(back *Back, order []int) map[string]User {
		users := map[string]User{
			"PGR": registerTestUser(t, back, "PGR", "Preben"),
			"AHO": registerTestUser(t, back, "AHO", "Anders"),
			"MKL": registerTestUser(t, back, "MKL", "Mikkel"),
		}

		for _, k := range order {
			g := games[k]
			playApprovedMatch(
				t, back,
				users[g.winnerShort], users[g.loserShort],
				g.winnerScore, g.loserScore, g.importance,
				base.Add(g.offset),
			)
		}

		return users
	}

	usersA := play(chronological, []int{0, 1, 2})
	usersB := play(scrambled, []int{2, 0, 1})

	for _, short := range []string{"PGR", "AHO", "MKL"} {
		for _, kind := range RatingKinds() {
			a, err := chronological.CurrentRating(usersA[short].ID, kind)
			if err != nil {
				t.Fatal(err)
			}
			b, err := scrambled.CurrentRating(usersB[short].ID, kind)
			if err != nil {
				t.Fatal(err)
			}

			if math.Abs(a-b) > 1e-9 {
				t.Errorf("%s %s: chronological %f != scrambled %f", short, kind, a, b)
			}
		}
	}
}

// Approving a match long after it was played rebuilds everything derived
// after its timestamp, as if it had been approved on the spot.
func TestLateApprovalRewritesHistory(t *testing.T) {
	back := createTestBack(t)
	preben := registerTestUser(t, back, "PGR", "Preben")
	anders := registerTestUser(t, back, "AHO", "Anders")

	base := time.Now()

	// The early match sits pending while a later one goes live.
	early, err := back.CreateMatch(ids(preben), ids(anders), 10, 2, 32, preben.ID, base.Add(1*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	playApprovedMatch(t, back, preben, anders, 10, 9, 16, base.Add(2*time.Minute))

	if _, err := back.ApproveMatch(early.ID, anders.ID); err != nil {
		t.Fatal(err)
	}

	// Replayed in PlayedAt order: first the early match (evenly rated, +16),
	// then the later one against now-uneven ratings.
	qW := math.Pow(10, 1516.0/400)
	qL := math.Pow(10, 1484.0/400)
	delta := 16 * (1 - qW/(qW+qL))
	assertCurrentRating(t, back, preben, RatingKindElo, 1516.0+delta)
	assertCurrentRating(t, back, anders, RatingKindElo, 1484.0-delta)

	history, err := back.RatingHistory(preben.ID, RatingKindElo)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected seed + two match snapshots, got %d", len(history))
	}
	if math.Abs(history[1].Value-1516.0) > 1e-9 {
		t.Errorf("expected the early match to apply first, got %f", history[1].Value)
	}
}

type ratingStoreRow struct {
	UserID  util.UUIDAsBlob
	Kind    RatingKind
	RatedAt util.TimeAsTimestamp
	Value   float64
}

// dumpRatingStore reads the whole store in a stable order, ignoring row
// identity: recomputes mint new snapshot IDs every time.
func dumpRatingStore(t *testing.T, back *Back) []ratingStoreRow {
	t.Helper()

	var rows []ratingStoreRow
	if err := back.transaction(func(tx *sqlx.Tx) error {
		return tx.Select(&rows, `
            SELECT UserID, Kind, RatedAt, Value FROM RatingSnapshot
            ORDER BY RatedAt ASC, Kind ASC, UserID ASC, Value ASC`,
		)
	}); err != nil {
		t.Fatal(err)
	}

	return rows
}

func currentRatings(t *testing.T, back *Back, users ...User) map[string]map[RatingKind]float64 {
	t.Helper()

	ret := map[string]map[RatingKind]float64{}
	for _, user := range users {
		ret[user.ShortName] = map[RatingKind]float64{}
		for _, kind := range RatingKinds() {
			value, err := back.CurrentRating(user.ID, kind)
			if err != nil {
				t.Fatal(err)
			}

			ret[user.ShortName][kind] = value
		}
	}

	return ret
}

func assertSameRatings(t *testing.T, expected, actual map[string]map[RatingKind]float64) {
	t.Helper()

	for short, kinds := range expected {
		for kind, value := range kinds {
			if math.Abs(value-actual[short][kind]) > 1e-9 {
				t.Errorf("%s %s: expected %f, got %f", short, kind, value, actual[short][kind])
			}
		}
	}
}
