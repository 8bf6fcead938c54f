// Package node is the main service which launches a fork choice beacon node and
// manages the lifecycle of its associated services at runtime, gracefully closing
// them if the process ends.
package node

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/forkchoice/beacon/beacon-chain/blockchain"
	"github.com/forkchoice/beacon/beacon-chain/db"
	"github.com/forkchoice/beacon/beacon-chain/replay"
	"github.com/forkchoice/beacon/cmd"
	"github.com/forkchoice/beacon/cmd/beacon-chain/flags"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/monitoring/prometheus"
	"github.com/forkchoice/beacon/monitoring/tracing"
	"github.com/forkchoice/beacon/runtime"
	"github.com/forkchoice/beacon/runtime/version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// BeaconDbDirName is the directory under the data dir holding the database.
const BeaconDbDirName = "beaconchaindata"

// BeaconNode defines a struct that handles the services running a fork choice
// beacon node. It handles the lifecycle of the entire system and registers
// services to a service registry.
type BeaconNode struct {
	cliCtx             *cli.Context
	ctx                context.Context
	cancel             context.CancelFunc
	services           *runtime.ServiceRegistry
	lock               sync.RWMutex
	stop               chan struct{} // Channel to wait for termination notifications.
	db                 db.Database
	exporter           *jaeger.Exporter
	blockchainFlagOpts []blockchain.Option
	promptReader       io.Reader
}

// New creates a new node instance, sets up configuration options, and registers
// every required service to the node.
func New(cliCtx *cli.Context, opts ...Option) (*BeaconNode, error) {
	exporter, err := tracing.Setup(
		cliCtx.String(cmd.TracingProcessNameFlag.Name),
		cliCtx.String(cmd.TracingEndpointFlag.Name),
		cliCtx.Float64(cmd.TraceSampleFractionFlag.Name),
		cliCtx.Bool(cmd.EnableTracingFlag.Name),
	)
	if err != nil {
		return nil, err
	}
	if err := configureChainConfig(cliCtx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(cliCtx.Context)
	beacon := &BeaconNode{
		cliCtx:       cliCtx,
		ctx:          ctx,
		cancel:       cancel,
		services:     runtime.NewServiceRegistry(),
		stop:         make(chan struct{}),
		exporter:     exporter,
		promptReader: os.Stdin,
	}
	for _, opt := range opts {
		if err := opt(beacon); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := beacon.startDB(cliCtx); err != nil {
		cancel()
		return nil, err
	}
	if err := beacon.registerBlockchainService(); err != nil {
		beacon.closeOnError()
		return nil, err
	}
	if err := beacon.registerReplayService(); err != nil {
		beacon.closeOnError()
		return nil, err
	}
	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := beacon.registerPrometheusService(); err != nil {
			beacon.closeOnError()
			return nil, err
		}
	}
	return beacon, nil
}

// Start the BeaconNode and kicks off every registered service.
func (b *BeaconNode) Start() {
	b.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.Version(),
	}).Info("Starting beacon node")

	b.services.StartAll()

	stop := b.stop
	b.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go b.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the beacon node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (b *BeaconNode) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	log.Info("Stopping beacon node")
	b.services.StopAll()
	if err := b.db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}
	if b.exporter != nil {
		b.exporter.Flush()
	}
	b.cancel()
	close(b.stop)
}

// closeOnError releases what New acquired before a service failed to register.
func (b *BeaconNode) closeOnError() {
	if err := b.db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}
	b.cancel()
}

// ChainService returns the registered blockchain service.
func (b *BeaconNode) ChainService() (*blockchain.Service, error) {
	var c *blockchain.Service
	if err := b.services.FetchService(&c); err != nil {
		return nil, err
	}
	return c, nil
}

func configureChainConfig(cliCtx *cli.Context) error {
	if cliCtx.Bool(cmd.MinimalConfigFlag.Name) {
		log.Warn("Using minimal config")
		params.UseMinimalConfig()
	}
	if cliCtx.IsSet(cmd.ChainConfigFileFlag.Name) {
		chainConfigFileName := cliCtx.String(cmd.ChainConfigFileFlag.Name)
		if err := params.LoadChainConfigFile(chainConfigFileName); err != nil {
			return errors.Wrapf(err, "could not load chain config %s", chainConfigFileName)
		}
	}
	return nil
}

func (b *BeaconNode) startDB(cliCtx *cli.Context) error {
	baseDir := cliCtx.String(cmd.DataDirFlag.Name)
	dbPath := filepath.Join(baseDir, BeaconDbDirName)
	clearDB := cliCtx.Bool(cmd.ClearDB.Name)
	forceClearDB := cliCtx.Bool(cmd.ForceClearDB.Name)

	log.WithField("database-path", dbPath).Info("Checking DB")

	d, err := db.NewDB(b.ctx, dbPath)
	if err != nil {
		return err
	}
	clearDBConfirmed := false
	if clearDB && !forceClearDB {
		actionText := "This will delete your fork choice database stored in your data directory. " +
			"Do you want to proceed? (Y/N)"
		deniedText := "Database will not be deleted. No changes have been made."
		clearDBConfirmed, err = confirmAction(b.promptReader, actionText, deniedText)
		if err != nil {
			if closeErr := d.Close(); closeErr != nil {
				log.WithError(closeErr).Error("Failed to close database")
			}
			return err
		}
	}
	if clearDBConfirmed || forceClearDB {
		log.Warning("Removing database")
		if err := d.Close(); err != nil {
			return errors.Wrap(err, "could not close db prior to clearing")
		}
		if err := d.ClearDB(); err != nil {
			return errors.Wrap(err, "could not clear database")
		}
		d, err = db.NewDB(b.ctx, dbPath)
		if err != nil {
			return errors.Wrap(err, "could not create new database")
		}
	}
	b.db = d
	return nil
}

func (b *BeaconNode) registerBlockchainService() error {
	opts := append([]blockchain.Option{}, b.blockchainFlagOpts...)
	opts = append(opts, blockchain.WithDatabase(b.db))
	if b.cliCtx.IsSet(flags.GenesisTimeFlag.Name) {
		genesis := time.Unix(int64(b.cliCtx.Uint64(flags.GenesisTimeFlag.Name)), 0)
		opts = append(opts, blockchain.WithGenesisTime(genesis))
	}
	if b.cliCtx.IsSet(flags.PruneThresholdFlag.Name) {
		opts = append(opts, blockchain.WithPruneThreshold(b.cliCtx.Uint64(flags.PruneThresholdFlag.Name)))
	}
	if b.cliCtx.IsSet(flags.VotesFlushPeriodFlag.Name) {
		opts = append(opts, blockchain.WithVotesFlushPeriod(b.cliCtx.Duration(flags.VotesFlushPeriodFlag.Name)))
	}
	blockchainService, err := blockchain.NewService(b.ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "could not register blockchain service")
	}
	return b.services.RegisterService(blockchainService)
}

func (b *BeaconNode) registerReplayService() error {
	if !b.cliCtx.IsSet(flags.ReplayFileFlag.Name) {
		return nil
	}
	c, err := b.ChainService()
	if err != nil {
		return err
	}
	path := b.cliCtx.String(flags.ReplayFileFlag.Name)
	return b.services.RegisterService(replay.NewService(b.ctx, path, c, c.Ready()))
}

func (b *BeaconNode) registerPrometheusService() error {
	c, err := b.ChainService()
	if err != nil {
		return err
	}
	additionalHandlers := []prometheus.Handler{
		{Path: "/tree", Handler: c.TreeHandler},
		{Path: "/heads", Handler: c.HeadsHandler},
	}
	service := prometheus.NewService(
		fmt.Sprintf("%s:%d", b.cliCtx.String(cmd.MonitoringHostFlag.Name), b.cliCtx.Int(flags.MonitoringPortFlag.Name)),
		b.services,
		additionalHandlers...,
	)
	hook := prometheus.NewLogrusCollector()
	logrus.AddHook(hook)
	return b.services.RegisterService(service)
}
