package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zennify/zennify/internal/daemon"
	"github.com/zennify/zennify/internal/domain"
)

// ─── Credentials ────────────────────────────────────────────────────────────

var (
	flagEmail    string
	flagPassword string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEmail, "email", "", "Account email (or ZENNIFY_EMAIL)")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "Account password (or ZENNIFY_PASSWORD)")
}

func credentials() (email, password string, err error) {
	email, password = flagEmail, flagPassword
	if email == "" {
		email = os.Getenv("ZENNIFY_EMAIL")
	}
	if password == "" {
		password = os.Getenv("ZENNIFY_PASSWORD")
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("--email and --password (or ZENNIFY_EMAIL/ZENNIFY_PASSWORD) are required")
	}
	return email, password, nil
}

// openDaemon wires the daemon in-process from the on-disk config.
func openDaemon(ctx context.Context) (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logging.Level = "error"
	return daemon.NewWithConfig(ctx, cfg)
}

// withSession opens the daemon, signs in and hands fn the identity.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, d *daemon.Daemon, id domain.Identity) error) error {
	email, password, err := credentials()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	sess, err := d.Identity.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return fn(ctx, d, sess.Identity)
}

// dateOrToday resolves the --date flag against the daemon's clock.
func dateOrToday(d *daemon.Daemon, date string) string {
	if date == "" || date == "today" {
		return d.Quests.TodayKey()
	}
	return date
}
