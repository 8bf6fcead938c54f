// Package main defines a fork choice beacon node. It maintains the block tree
// of a proof-of-stake chain, weighs it with validator votes and serves the
// canonical head.
package main

import (
	"fmt"
	"os"

	"github.com/forkchoice/beacon/beacon-chain/node"
	"github.com/forkchoice/beacon/cmd"
	"github.com/forkchoice/beacon/cmd/beacon-chain/flags"
	"github.com/forkchoice/beacon/runtime/logging"
	"github.com/forkchoice/beacon/runtime/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	_ "go.uber.org/automaxprocs"
)

var log = logrus.WithField("prefix", "main")

var appFlags = []cli.Flag{
	cmd.MinimalConfigFlag,
	cmd.ChainConfigFileFlag,
	cmd.VerbosityFlag,
	cmd.DataDirFlag,
	cmd.EnableTracingFlag,
	cmd.TracingProcessNameFlag,
	cmd.TracingEndpointFlag,
	cmd.TraceSampleFractionFlag,
	cmd.MonitoringHostFlag,
	cmd.DisableMonitoringFlag,
	flags.MonitoringPortFlag,
	cmd.LogFileName,
	cmd.LogFormat,
	cmd.ClearDB,
	cmd.ForceClearDB,
	cmd.ConfigFileFlag,
	flags.GenesisTimeFlag,
	flags.PruneThresholdFlag,
	flags.VotesFlushPeriodFlag,
	flags.ReplayFileFlag,
}

func init() {
	appFlags = cmd.WrapFlags(appFlags)
}

func startNode(ctx *cli.Context) error {
	verbosity := ctx.String(cmd.VerbosityFlag.Name)
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	beacon, err := node.New(ctx)
	if err != nil {
		return err
	}
	beacon.Start()
	return nil
}

func main() {
	var logFile *os.File

	app := cli.App{}
	app.Name = "beacon-chain"
	app.Usage = "runs a proto-array fork choice store and serves the canonical head of the chain"
	app.Version = version.Version()
	app.Action = startNode
	app.Flags = appFlags

	app.Before = func(ctx *cli.Context) error {
		// Load flags from config file, if specified.
		if ctx.IsSet(cmd.ConfigFileFlag.Name) {
			if err := altsrc.InitInputSourceWithContext(
				appFlags,
				altsrc.NewYamlSourceFromFlagFunc(cmd.ConfigFileFlag.Name))(ctx); err != nil {
				return err
			}
		}

		format := ctx.String(cmd.LogFormat.Name)
		logFileName := ctx.String(cmd.LogFileName.Name)
		// If persistent log files are written, colors are disabled because
		// the ANSI codes are seen as gibberish in the log files.
		formatter, err := logging.Formatter(format, logFileName != "")
		if err != nil {
			return err
		}
		logrus.SetFormatter(formatter)

		if logFileName != "" {
			logFile, err = logging.ConfigurePersistentLogging(logrus.StandardLogger(), logFileName, format)
			if err != nil {
				log.WithError(err).Error("Failed to configuring logging to disk.")
			}
		}

		return nil
	}

	app.After = func(_ *cli.Context) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}

	defer func() {
		if x := recover(); x != nil {
			log.Errorf("Runtime panic: %v", x)
			panic(x)
		}
	}()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Error(err.Error())
		os.Exit(1)
	}
}
