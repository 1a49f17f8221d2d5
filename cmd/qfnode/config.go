package main

import (
	"github.com/urfave/cli"
	"github.com/vocdoni/qf-tally/config"
)

// getConfig loads the configuration file, if any, and applies the flags set
// on the command line over it.
func getConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString(ConfigFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	setFlags(ctx, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setFlags(ctx *cli.Context, cfg *config.Config) {
	setString := func(flag cli.StringFlag, dst *string) {
		if ctx.GlobalIsSet(flag.Name) {
			*dst = ctx.GlobalString(flag.Name)
		}
	}
	setString(DataDirFlag, &cfg.DataDir)
	setString(LogLevelFlag, &cfg.Log.Level)
	setString(LogOutputFlag, &cfg.Log.Output)
	setString(APIHostFlag, &cfg.API.Host)
	setString(SettlementFlag, &cfg.Payouts.Settlement)
	setString(RegistryFlag, &cfg.Registry.Source)
	setString(Web3RPCFlag, &cfg.Web3.RPC)
	setString(Web3PrivKeyFlag, &cfg.Web3.PrivateKey)
	setString(Web3TokenFlag, &cfg.Web3.Token)
	setString(Web3RegistryFlag, &cfg.Web3.Registry)

	if ctx.GlobalIsSet(APIPortFlag.Name) {
		cfg.API.Port = ctx.GlobalInt(APIPortFlag.Name)
	}
	if ctx.GlobalIsSet(BatchSizeFlag.Name) {
		cfg.Runner.BatchSize = uint32(ctx.GlobalInt(BatchSizeFlag.Name))
	}
	if ctx.GlobalBool(AutoFinalizeFlag.Name) {
		cfg.Runner.AutoFinalize = true
	}
	if ctx.GlobalBool(NoRunnerFlag.Name) {
		cfg.Runner.Enabled = false
	}
	if ctx.GlobalBool(NoPayoutsFlag.Name) {
		cfg.Payouts.Enabled = false
	}
}

// dumpConfig prints the effective configuration as TOML, or writes it to the
// path given as argument.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	if path := ctx.Args().First(); path != "" {
		return cfg.Write(path)
	}
	return cfg.Print(ctx.App.Writer)
}
