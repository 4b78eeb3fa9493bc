package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/NominalSystems/go-nominal-example"
)

func main() {
	flow, err := nominal.Conf("../../configs/nominal-demo.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := flow.Run(ctx); err != nil && nominal.IsFatal(err) {
		log.Fatalf("simulation failed: %v", err)
	}
}
