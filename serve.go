package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"moneyball/internal/back"
	"moneyball/internal/config"
)

func serve(conf *config.Config) error {
	b, err := back.New(conf.SQLDriver, conf.SQLDSN)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	signaled := make(chan os.Signal, 1)
	signal.Notify(signaled, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	go b.Run(&wg, done)

	sig := <-signaled
	log.Printf("info: received signal %s", sig)
	close(done)
	wg.Wait()

	log.Print("info: shutdown complete")

	return nil
}
