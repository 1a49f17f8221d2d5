package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/config"
	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/registry"
	"github.com/vocdoni/qf-tally/service"
	"github.com/vocdoni/qf-tally/settlement"
	"github.com/vocdoni/qf-tally/storage"
	"github.com/vocdoni/qf-tally/web3"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"golang.org/x/sync/errgroup"
)

type startStopper interface {
	Start(ctx context.Context) error
	Stop()
}

// node wires the storage, the orchestrator and the background services.
type node struct {
	cfg      *config.Config
	stg      *storage.Storage
	web3     *web3.Client
	api      *service.APIService
	services []startStopper
}

func newNode(ctx context.Context, cfg *config.Config) (*node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create datadir: %w", err)
	}
	database, err := metadb.New(db.TypePebble, filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	n := &node{cfg: cfg, stg: storage.New(database)}

	if cfg.UsesWeb3() {
		if n.web3, err = web3.Dial(ctx, cfg.Web3.RPC); err != nil {
			n.close()
			return nil, err
		}
		if cfg.Web3.PrivateKey != "" {
			if err := n.web3.SetAccountPrivateKey(cfg.Web3.PrivateKey); err != nil {
				n.close()
				return nil, err
			}
			log.Infow("web3 account loaded", "address", n.web3.AccountAddress().Hex())
		}
		if cfg.Web3.GasLimit > 0 {
			n.web3.GasLimit = cfg.Web3.GasLimit
		}
	}

	// Recipients are managed over the API only with the static registry.
	var (
		reg    registry.Registry
		static *registry.Static
	)
	switch cfg.Registry.Source {
	case config.RegistryContract:
		reg = web3.NewRecipientRegistry(n.web3.Caller(), common.HexToAddress(cfg.Web3.Registry),
			cfg.Registry.StartTime, cfg.Registry.EndTime)
	default:
		static = registry.NewStatic(n.stg)
		reg = static
	}

	orch, err := funding.New(n.stg, nil, reg)
	if err != nil {
		n.close()
		return nil, err
	}
	n.api = service.NewAPI(orch, static, cfg.API.Host, cfg.API.Port)
	n.services = append(n.services, n.api)

	if cfg.Runner.Enabled {
		n.services = append(n.services, service.NewTallyRunner(orch, cfg.Runner.BatchSize,
			cfg.Runner.Interval.Duration, cfg.Runner.AutoFinalize))
	}
	if cfg.Payouts.Enabled {
		var s settlement.Settlement = settlement.NewLedger(n.stg)
		if cfg.Payouts.Settlement == config.SettlementToken {
			s = web3.NewTokenSettlement(n.web3, common.HexToAddress(cfg.Web3.Token))
		}
		n.services = append(n.services, service.NewPayoutService(n.stg, s, cfg.Payouts.Interval.Duration))
	}
	return n, nil
}

// start starts every service. If any fails, the ones already running are
// stopped.
func (n *node) start(ctx context.Context) error {
	var g errgroup.Group
	for _, s := range n.services {
		g.Go(func() error { return s.Start(ctx) })
	}
	if err := g.Wait(); err != nil {
		n.stop()
		return err
	}
	log.Infow("node started",
		"api", n.api.Addr(),
		"datadir", n.cfg.DataDir,
		"runner", n.cfg.Runner.Enabled,
		"payouts", n.cfg.Payouts.Enabled)
	return nil
}

// stop stops the services in reverse order and closes the storage.
func (n *node) stop() {
	for i := len(n.services) - 1; i >= 0; i-- {
		n.services[i].Stop()
	}
	n.close()
}

func (n *node) close() {
	if n.web3 != nil {
		n.web3.Close()
	}
	n.stg.Close()
}
