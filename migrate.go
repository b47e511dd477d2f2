package main

import (
	"log"

	"moneyball/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func migrateDatabase(conf *config.Config) error {
	migrator, err := migrate.New(
		"file://resources/migrations",
		"sqlite3://"+conf.SQLDSN,
	)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Print("info: database already up to date")
			return nil
		}

		return err
	}

	log.Print("info: database migrated")

	return nil
}
