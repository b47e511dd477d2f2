package main

import (
	"time"

	"moneyball/internal/back"
	"moneyball/internal/config"
	"moneyball/internal/util"

	"gopkg.in/guregu/null.v4"
)

// loadFixtures seeds a small demo ladder: a handful of users and a few
// approved matches spread over the past week.
func loadFixtures(conf *config.Config) error {
	b, err := back.New(conf.SQLDriver, conf.SQLDSN)
	if err != nil {
		return err
	}

	roster := []struct {
		short, nick, company string
	}{
		{"PGR", "Preben", "Accounting"},
		{"AHO", "Anders", "Accounting"},
		{"MKL", "Mikkel", "Engineering"},
		{"JST", "Jonas", "Engineering"},
		{"LRS", "Lars", ""},
	}

	users := make([]back.User, 0, len(roster))
	for _, v := range roster {
		user, err := b.RegisterUser(v.short, v.nick, "moneyball", null.NewString(v.company, v.company != ""))
		if err != nil {
			return err
		}

		users = append(users, user)
	}

	games := []struct {
		winner, loser           int
		winnerScore, loserScore int
		importance              int
		daysAgo                 int
	}{
		{0, 1, 10, 8, 16, 6},
		{2, 3, 10, 4, 16, 5},
		{0, 2, 11, 9, 32, 3},
		{3, 1, 10, 7, 8, 2},
		{4, 0, 10, 9, 16, 1},
	}

	for _, g := range games {
		match, err := b.CreateMatch(
			[]util.UUIDAsBlob{users[g.winner].ID},
			[]util.UUIDAsBlob{users[g.loser].ID},
			g.winnerScore, g.loserScore, g.importance,
			users[g.winner].ID,
			time.Now().AddDate(0, 0, -g.daysAgo),
		)
		if err != nil {
			return err
		}

		if _, err := b.ApproveMatch(match.ID, users[g.loser].ID); err != nil {
			return err
		}
	}

	return nil
}
