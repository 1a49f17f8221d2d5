package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/vocdoni/qf-tally/log"
)

func main() {
	app := cli.NewApp()
	app.Name = "qfnode"
	app.Usage = "quadratic funding tally verification and matching allocation node"
	app.Flags = nodeFlags
	app.Action = runNode
	app.Commands = []cli.Command{
		{
			Name:      "dumpconfig",
			Usage:     "Print the effective configuration as TOML",
			ArgsUsage: "[output file]",
			Action:    dumpConfig,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(ctx *cli.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	log.Init(cfg.Log.Level, cfg.Log.Output, nil)

	sigctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n, err := newNode(sigctx, cfg)
	if err != nil {
		return err
	}
	if err := n.start(sigctx); err != nil {
		return err
	}
	<-sigctx.Done()
	log.Info("shutting down")
	n.stop()
	return nil
}
