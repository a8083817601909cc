package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaille/ods/internal/api"
	"github.com/pbaille/ods/internal/client"
	"github.com/pbaille/ods/internal/config"
	"github.com/pbaille/ods/internal/logger"
	"github.com/pbaille/ods/internal/present"
	"github.com/pbaille/ods/internal/session"
	"github.com/pbaille/ods/internal/store"
)

// errShown marks a failure already printed as a view
var errShown = errors.New("operation failed")

var (
	configPath  string
	apiURL      string
	timeout     time.Duration
	historyPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ods",
		Short:         "Classify texts by Sustainable Development Goal and retrain the model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "classification service base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request timeout (e.g. 30s)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "journal database path (disabled when empty)")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(retrainCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errShown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app holds everything a command needs to talk to the service
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	client  *client.Client
	journal *store.Store
	session *session.Session
	opts    []session.Option
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if timeout > 0 {
		cfg.API.Timeout = timeout
	}
	if historyPath != "" {
		cfg.History.Path = historyPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{
		cfg: cfg,
		log: log,
		client: client.New(cfg.API.BaseURL,
			client.WithTimeout(cfg.API.Timeout),
			client.WithLogger(log),
		),
	}

	opts := []session.Option{
		session.WithLogger(log),
		session.WithMinRecords(cfg.Training.MinRecords),
	}
	if cfg.History.Path != "" {
		j, err := openJournal(cfg.History.Path)
		if err != nil {
			_ = log.Sync()
			return nil, err
		}
		a.journal = j
		opts = append(opts, session.WithJournal(j))
	}
	a.opts = opts
	a.session = session.New(a.client, opts...)

	log.Debug("Configured",
		zap.String("api_url", cfg.API.BaseURL),
		zap.Duration("timeout", cfg.API.Timeout),
		zap.Bool("history", a.journal != nil),
	)
	return a, nil
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("Could not close journal", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func openJournal(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return store.New(path)
}

// printView writes both display lines and reports a failed view as errShown
func printView(w io.Writer, view present.View) error {
	fmt.Fprintln(w, view.Prediction)
	if view.Probability != "" {
		fmt.Fprintln(w, view.Probability)
	}
	if !view.OK {
		return errShown
	}
	return nil
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text]",
		Short: "Predict the SDG of a text (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			return printView(cmd.OutOrStdout(), a.session.Classify(cmd.Context(), text))
		},
	}
}

func retrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrain [file.xlsx|file.json]",
		Short: "Retrain the model with labelled records from a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprintln(cmd.ErrOrStderr(), "Reentrenando modelo...")
			view := a.session.RetrainFile(cmd.Context(), afero.NewOsFs(), path)
			return printView(cmd.OutOrStdout(), view)
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the classification service",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			status, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", status.Status)
			if status.ActiveModel != "" {
				fmt.Fprintf(out, "Model:  %s\n", status.ActiveModel)
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the classification web page",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			// one display per visitor, one retrain at a time
			guard := &session.RetrainGuard{}
			opts := append(append([]session.Option(nil), a.opts...), session.WithRetrainGuard(guard))
			newSession := func() *session.Session {
				return session.New(a.client, opts...)
			}

			srv := api.New(newSession, a.client, a.log, a.cfg.Server)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		limit int
		kind  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classifications and retrains",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if a.journal == nil {
				return errors.New("history is disabled; set --history or history.path")
			}

			entries, err := a.journal.List(kind, limit, 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No operations recorded yet.")
				return nil
			}

			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-8s %-20s %s\n",
					e.ID[:8], e.Kind, e.Outcome, humanize.Time(e.CreatedAt))
				fmt.Fprintf(out, "          %s\n", truncate(e.Input, 70))
				if e.Detail != "" {
					fmt.Fprintf(out, "          %s\n", truncate(e.Detail, 70))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().StringVar(&kind, "kind", "", "only show classify or retrain")
	return cmd
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
