// Command qftally audits quadratic funding tally artifacts offline, or
// against the rounds of a running qfnode.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
	"github.com/vocdoni/qf-tally/log"
)

var (
	DepthFlag = cli.UintFlag{
		Name:  "depth",
		Usage: "Vote option tree depth",
		Value: 1,
	}
	IndexFlag = cli.UintFlag{
		Name:  "index",
		Usage: "Recipient index",
	}
	BudgetFlag = cli.StringFlag{
		Name:  "budget",
		Usage: "Round budget: contributions plus matching pool, in base units",
	}
	FactorFlag = cli.StringFlag{
		Name:  "factor",
		Usage: "Voice credit factor",
	}
	URLFlag = cli.StringFlag{
		Name:  "url",
		Usage: "qfnode API URL",
		Value: "http://localhost:9090",
	}
	RoundFlag = cli.StringFlag{
		Name:  "round",
		Usage: "Round ID to audit",
	}
	LogLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn or error",
		Value: log.LogLevelError,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "qftally"
	app.Usage = "audit quadratic funding tally artifacts"
	app.Flags = []cli.Flag{LogLevelFlag}
	app.Before = func(ctx *cli.Context) error {
		log.Init(ctx.GlobalString(LogLevelFlag.Name), "stderr", nil)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "inspect",
			Usage:     "Print the digest, commitments and totals of an artifact",
			ArgsUsage: "<artifact.json>",
			Flags:     []cli.Flag{DepthFlag},
			Action:    inspectCmd,
		},
		{
			Name:      "proof",
			Usage:     "Print the claim request of a recipient",
			ArgsUsage: "<artifact.json>",
			Flags:     []cli.Flag{DepthFlag, IndexFlag},
			Action:    proofCmd,
		},
		{
			Name:      "allocations",
			Usage:     "Compute alpha and the allocation of every recipient",
			ArgsUsage: "<artifact.json>",
			Flags:     []cli.Flag{BudgetFlag, FactorFlag},
			Action:    allocationsCmd,
		},
		{
			Name:   "audit",
			Usage:  "Check a round of a running node against its published artifact",
			Flags:  []cli.Flag{URLFlag, RoundFlag},
			Action: auditCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
