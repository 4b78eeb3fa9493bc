package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/NominalSystems/go-nominal-example"
)

func main() {
	flow, err := nominal.Conf("../../configs/nominal-demo.yaml", nominal.DryRun())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sink, series, closeSeries := nominal.NewChannelSink("fanout", 4)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fanoutWorker("archive", series)
	}()

	flow.Options(nominal.WithSink(sink))
	_, err = flow.Run(context.Background())
	closeSeries()
	wg.Wait()
	if err != nil && nominal.IsFatal(err) {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, series <-chan *nominal.Series) {
	for s := range series {
		fmt.Printf("[%s] %s/%s/%s: %d samples\n", name, s.Component, s.Message, s.Field, s.Len())
	}
}
