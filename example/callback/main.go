package main

import (
	"context"
	"fmt"
	"log"

	"github.com/NominalSystems/go-nominal-example/pkg/nominal"
)

func main() {
	flow, err := nominal.Conf("../../configs/nominal-demo.yaml", nominal.DryRun())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	callback := func(s *nominal.Series) error {
		var sum float64
		var n int
		for _, sample := range s.Samples {
			if v, ok := sample.Data[s.Field].(float64); ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			fmt.Printf("%s.%s.%s mean=%g over %d samples\n", s.Component, s.Message, s.Field, sum/float64(n), n)
		}
		return nil
	}

	flow.Options(nominal.WithSink(nominal.NewCallbackSink("stats", callback)))
	if _, err := flow.Run(context.Background()); err != nil && nominal.IsFatal(err) {
		log.Fatalf("runtime error: %v", err)
	}
}
