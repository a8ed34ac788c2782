// Command proxyadmin edits installation records in the proxy's store.
//
//	proxyadmin ban <install_id>
//	proxyadmin unban <install_id>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"corrector-proxy/internal/config"
	"corrector-proxy/internal/registry"
	"corrector-proxy/pkg/logging/logging"
)

const usage = "usage: proxyadmin ban|unban <install_id>"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New(usage)
	}

	var banned bool
	switch args[0] {
	case "ban":
		banned = true
	case "unban":
		banned = false
	default:
		return errors.New(usage)
	}
	installID := args[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StorageDriver == "memory" {
		return errors.New("proxyadmin needs a persistent store; STORAGE_DRIVER is memory")
	}

	logger, err := logging.New(cfg.Env, "warn")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := registry.OpenStore(ctx, registry.StoreConfig{
		Driver:      cfg.StorageDriver,
		Path:        cfg.DBPath,
		DatabaseURL: cfg.DatabaseURL,
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return setBanned(ctx, registry.New(store, logger), installID, banned, out)
}

func setBanned(ctx context.Context, reg *registry.Registry, installID string, banned bool, out io.Writer) error {
	err := reg.SetBanned(ctx, installID, banned)
	if errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("no installation %s", installID)
	}
	if err != nil {
		logging.L(ctx).Error("set banned failed", zap.Error(err))
		return err
	}

	fmt.Fprintf(out, "%s banned=%t\n", installID, banned)
	return nil
}
