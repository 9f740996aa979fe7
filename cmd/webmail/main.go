// Command webmail is a terminal mail client backed by a remote mail API.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/webmail/internal/app"
	"github.com/nhle/webmail/internal/gateway"
	"github.com/nhle/webmail/internal/mailbox"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/session"
	appsync "github.com/nhle/webmail/internal/sync"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "webmail",
	Short: "Terminal mail client",
	Long:  "A terminal client for a remote webmail API: read, compose, organize, and sync your mailbox.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := session.NewKeyringStore()
		if err := sess.Clear(); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", model.DefaultConfigPath(), "path to the configuration file")
	rootCmd.AddCommand(logoutCmd)
}

func run() error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	sess := session.NewKeyringStore()

	gw := gateway.NewClient(
		cfg.Gateway.BaseURL,
		sess,
		cfg.Gateway.Timeout(),
		gateway.Capabilities{MarkUnread: cfg.Gateway.MarkUnreadSupported},
	)

	store := mailbox.NewStore(gw, cfg.Display.PageSize, cfg.DownloadDir)

	interval := time.Duration(cfg.Sync.PollIntervalSec) * time.Second
	if !cfg.Sync.Enabled {
		// A poller must exist for the app's wiring; an extreme interval
		// effectively disables the background refresh.
		interval = 24 * time.Hour
	}
	poller := appsync.New(store, interval)

	p := tea.NewProgram(
		app.New(gw, store, sess, poller),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
