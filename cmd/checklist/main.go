package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/checklist/internal/cli"
)

func main() {
	log.SetPrefix("checklist: ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.New().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("error during command execution: %v", err)
	}
}
