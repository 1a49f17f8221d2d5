package main

import "github.com/urfave/cli"

// Global node flags. When set, they override the configuration file.
var (
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the round database",
	}
	LogLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn or error",
	}
	LogOutputFlag = cli.StringFlag{
		Name:  "log-output",
		Usage: "Log output: stdout, stderr or a file path",
	}
	APIHostFlag = cli.StringFlag{
		Name:  "api-host",
		Usage: "HTTP API listen host",
	}
	APIPortFlag = cli.IntFlag{
		Name:  "api-port",
		Usage: "HTTP API listen port",
	}
	BatchSizeFlag = cli.IntFlag{
		Name:  "batch-size",
		Usage: "Recipients verified per tally batch",
	}
	AutoFinalizeFlag = cli.BoolFlag{
		Name:  "auto-finalize",
		Usage: "Finalize rounds with the published artifact totals once every batch is verified",
	}
	NoRunnerFlag = cli.BoolFlag{
		Name:  "no-runner",
		Usage: "Do not verify tally batches in the background",
	}
	NoPayoutsFlag = cli.BoolFlag{
		Name:  "no-payouts",
		Usage: "Do not settle claimed allocations",
	}
	SettlementFlag = cli.StringFlag{
		Name:  "settlement",
		Usage: "Payout settlement: ledger or token",
	}
	RegistryFlag = cli.StringFlag{
		Name:  "registry",
		Usage: "Recipient registry source: static or contract",
	}
)

// Web3 flags
var (
	Web3RPCFlag = cli.StringFlag{
		Name:  "web3-rpc",
		Usage: "Web3 JSON-RPC endpoint",
	}
	Web3PrivKeyFlag = cli.StringFlag{
		Name:   "web3-privkey",
		Usage:  "Hex private key of the payout account",
		EnvVar: "QFTALLY_WEB3_PRIVKEY",
	}
	Web3TokenFlag = cli.StringFlag{
		Name:  "web3-token",
		Usage: "ERC20 token paid out to recipients",
	}
	Web3RegistryFlag = cli.StringFlag{
		Name:  "web3-registry",
		Usage: "Recipient registry contract address",
	}
)

var nodeFlags = []cli.Flag{
	ConfigFlag,
	DataDirFlag,
	LogLevelFlag,
	LogOutputFlag,
	APIHostFlag,
	APIPortFlag,
	BatchSizeFlag,
	AutoFinalizeFlag,
	NoRunnerFlag,
	NoPayoutsFlag,
	SettlementFlag,
	RegistryFlag,
	Web3RPCFlag,
	Web3PrivKeyFlag,
	Web3TokenFlag,
	Web3RegistryFlag,
}
