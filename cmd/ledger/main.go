package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lgndcraft2/ledger/internal/apiclient"
	"github.com/lgndcraft2/ledger/internal/config"
	"github.com/lgndcraft2/ledger/internal/insight"
	"github.com/lgndcraft2/ledger/internal/logging"
	"github.com/lgndcraft2/ledger/internal/session"
)

func main() {
	config.LoadDotenv()
	cfg := config.LoadClient()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Console: true, Service: "ledger"})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli is one invocation: the persisted session plus the API client bound to
// it. The state file is opened only for commands that run.
type cli struct {
	cfg   *config.Client
	log   zerolog.Logger
	store *session.SQLiteStore
	sess  *session.Session
	api   *apiclient.Client
	in    io.Reader
	out   io.Writer
}

func run(ctx context.Context, cfg *config.Client, log zerolog.Logger, args []string, in io.Reader, out io.Writer) error {
	c := &cli{cfg: cfg, log: log, in: in, out: out}
	defer c.close()

	if args == nil {
		args = []string{} // cobra falls back to os.Args on nil
	}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Record sales and purchases and keep track of who owes what",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		c.loginCmd(),
		c.verifyCmd(),
		c.logoutCmd(),
		c.dashboardCmd(),
		c.addCmd(),
		c.payCmd(),
		c.insightCmd(),
		c.debtsCmd(),
		c.statementCmd(),
	)
	return root
}

func (c *cli) open(ctx context.Context) error {
	store, err := session.OpenSQLite(c.cfg.StatePath)
	if err != nil {
		return err
	}
	sess, err := session.Restore(ctx, store)
	if err != nil {
		store.Close()
		return err
	}
	c.store = store
	c.sess = sess
	c.api = apiclient.New(c.cfg.APIBaseURL, sess, c.cfg.HTTPTimeout)
	return nil
}

func (c *cli) close() {
	if c.store != nil {
		c.store.Close()
	}
}

func (c *cli) summarizer() insight.Summarizer {
	if c.cfg.InsightMode == "template" {
		return insight.Template{Delay: c.cfg.InsightDelay}
	}
	return insight.Remote{API: c.api}
}
