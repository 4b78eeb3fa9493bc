package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NominalSystems/go-nominal-example"
)

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runCommand(args)
	case "validate":
		err = validateCommand(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("nominal-demo %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to scenario configuration file (defaults to the reference run)")
	dryRun := fs.Bool("dry-run", false, "Use the in-process simulator instead of the hosted API")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var opts []nominal.FlowOption
	if *dryRun {
		opts = append(opts, nominal.DryRun())
	}
	flow, err := nominal.Conf(*cfgPath, opts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = flow.Run(ctx)
	if err != nil && !nominal.IsFatal(err) {
		log.Printf("nominal-demo run: %v", err)
		return nil
	}
	return err
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./configs/nominal-demo.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := nominal.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

const usage = `Nominal demo client

Usage:
  nominal-demo <command> [flags]

Commands:
  run        Configure, step and export the spacecraft simulation (default)
  validate   Load and validate a config file without contacting the API

Environment:
  NOMINAL_API_KEY           API key (required)
  NOMINAL_API_OUTPUT_PATH   Directory for exported telemetry files (optional)

Transcript:
  "Percentage Progress: N" is printed once after each macro-step, N = 10, 20, ..., 100.
  There is no initial "Percentage Progress: 0" line; scrapers expecting eleven progress
  lines starting at 0 must be adjusted.

Examples:
  nominal-demo run
  nominal-demo run -config ./configs/nominal-demo.yaml
  nominal-demo run -dry-run
  nominal-demo validate -config ./configs/nominal-demo.yaml
`

func printUsage() {
	fmt.Print(usage)
}
