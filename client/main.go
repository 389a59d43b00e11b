// Package main implements the light-mining bot.
//
// The bot loads a list of wallets, then once an hour logs each one in to the
// light-mining API with a signed nonce, starts a new mining session when the
// previous one has run its 24 hours, and confirms the session on-chain by
// calling the mining contract from the wallet.
//
// Wallets are processed strictly one after another. Configuration comes from
// taker-config.yaml, TAKER_* environment variables (optionally kept in a .env
// file) and command-line flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"takerminer/api"
	"takerminer/chain"
	"takerminer/config"
	"takerminer/logger"
	"takerminer/runner"
	"takerminer/wallet"
)

type options struct {
	configPath  string
	walletsPath string
	once        bool
	verbose     bool
	logOutput   io.Writer // nil means stderr
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to config file (default: search paths)")
	flag.StringVar(&opts.walletsPath, "wallets", "", "Path to wallets file (overrides wallets.file)")
	flag.BoolVar(&opts.once, "once", false, "Process every wallet once and exit")
	flag.BoolVar(&opts.verbose, "v", false, "Enable debug logging")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, opts, os.Stdout)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Main process error", "error", err)
		os.Exit(1)
	}
}

// run wires the bot together and blocks until ctx is cancelled, or until the
// single cycle finishes with -once. The wallets file is read before any
// network client is built, so a missing or empty list fails without
// touching the network. Fatal errors are returned unlogged; main reports
// them.
func run(ctx context.Context, opts options, out io.Writer) error {
	logger.Banner(out)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Ignoring .env file", "error", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, opts)
	logger.Set(logger.NewFromConfig(cfg, opts.logOutput))

	wallets, err := wallet.Load(cfg.Wallets.File)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	logger.Info("Wallets loaded", "count", len(wallets), "file", cfg.Wallets.File)

	err = config.Watch(ctx, opts.configPath, func(next *config.Config) {
		applyFlags(next, opts)
		logger.Set(logger.NewFromConfig(next, opts.logOutput))
	}, logger.Get())
	if err != nil {
		logger.Warn("Configuration hot reload disabled", "error", err)
	}

	client, err := api.New(&http.Client{Timeout: cfg.API.Timeout}, cfg.API.BaseURL,
		api.WithInvitationCode(cfg.API.InvitationCode))
	if err != nil {
		return err
	}

	eth, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return err
	}
	defer eth.Close()

	activator, err := chain.NewActivator(eth, common.HexToAddress(cfg.Chain.ContractAddress), cfg.Chain.ConfirmTimeout)
	if err != nil {
		return err
	}

	r := runner.New(client, activator, wallet.Sign, wallets)
	if opts.once {
		r.RunCycle(ctx, 1)
		return nil
	}
	return r.Run(ctx)
}

// applyFlags lets command-line flags win over file and environment values.
func applyFlags(cfg *config.Config, opts options) {
	if opts.walletsPath != "" {
		cfg.Wallets.File = opts.walletsPath
	}
	if opts.verbose {
		cfg.Logging.Verbose = true
	}
}
