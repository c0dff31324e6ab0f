package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"markestedt/snapkeys/combo"
	"markestedt/snapkeys/config"
	"markestedt/snapkeys/logging"
	"markestedt/snapkeys/systray"
)

// cli carries the state shared by the root command and its subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "snapkeys",
		Short: "Bind clipboard images to letter keys",
		Long: `SnapKeys records the clipboard image with LCtrl+LShift+J followed by a letter
and puts it back on the clipboard with LCtrl+J followed by the same letter.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAgent(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to config.toml (default: user config dir)")

	root.AddCommand(c.newListCmd(), c.newExportCmd(), c.newHistoryCmd())
	return root
}

func (c *cli) load() error {
	if c.configPath == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		c.configPath = p
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.cfg = cfg

	logging.Init(cfg.Log.Level, cfg.Log.Format)
	logger.Debug("Configuration loaded", "path", c.configPath)
	return nil
}

func (c *cli) runAgent(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent, err := NewAgent(c.configPath, c.cfg)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	defer func() {
		agent.Shutdown()
		logger.Info("SnapKeys stopped")
	}()

	if !c.cfg.Tray.Enabled {
		return agent.Run(ctx)
	}

	// The tray owns the main thread; the agent runs beside it.
	tray := systray.NewSystrayManager(agent.DashboardURL())
	agent.Observe(func(at combo.Attempt) {
		tray.SetStatus(fmt.Sprintf("Last: %s %s", at.Mode, at.Status))
	})

	errc := make(chan error, 1)
	go func() {
		errc <- agent.Run(ctx)
		tray.Stop()
	}()
	go func() {
		select {
		case <-tray.WaitForQuit():
			cancel()
		case <-ctx.Done():
		}
	}()

	tray.Run()
	cancel()
	return <-errc
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
