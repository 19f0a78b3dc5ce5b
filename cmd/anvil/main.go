// Command anvil is the launcher binary (spec.md §6): it maps a guest arm64
// ELF image, seeds its stack and auxiliary vector, and hands control to
// translated code until the guest exits.
package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anvilforge/anvil/internal/engine/xlate/config"
	"github.com/anvilforge/anvil/internal/engine/xlate/launch"
	"github.com/anvilforge/anvil/internal/hostsys"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "anvil <guest-elf> [guest args...]",
		Short:                 "Run an arm64 guest binary under dynamic binary translation",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(1),
		RunE:                  runGuest,
	}
	return cmd
}

func runGuest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("anvil: build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	guestPath := args[0]
	guestArgv := args // argv[0] is the guest's own path, matching execve's convention

	var randSeed [16]byte
	if _, err := rand.Read(randSeed[:]); err != nil {
		return fmt.Errorf("anvil: read random seed: %w", err)
	}
	var padBuf [1]byte
	if _, err := rand.Read(padBuf[:]); err != nil {
		return fmt.Errorf("anvil: read stack padding entropy: %w", err)
	}

	img, err := hostsys.Load(guestPath, guestArgv, os.Environ(), randSeed, uint64(padBuf[0]))
	if err != nil {
		return fmt.Errorf("anvil: load guest image %s: %w", guestPath, err)
	}

	if cfg.PrintSegments {
		for _, seg := range img.Memory.Segments() {
			log.Info("mapped segment", zap.Uint64("base", seg.Base), zap.Uint64("size", seg.Size), zap.Bool("exec", seg.Exec))
		}
	}

	l := launch.New(img, log, cfg.PrintIR)
	code, err := l.Run()
	if err != nil {
		return err
	}
	os.Exit(code)
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.PrintIR {
		zc.Level.SetLevel(zap.DebugLevel)
	}
	return zc.Build()
}
