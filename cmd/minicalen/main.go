package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"minicalen/internal/bootstrap"
	"minicalen/internal/platform/config"
	"minicalen/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "minicalen",
		Short:         "Collaborative calendar annotation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newTUICmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newSessionCmd(&configPath))
	return root
}

func loadApp(configPath string) (*bootstrap.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

func newTUICmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the calendar terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			// Pick up the previous session when one was recorded;
			// a missing record just starts a fresh board.
			_, _ = app.SyncUC.Resume(context.Background())
			return bootstrap.RunTUI(app)
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			relayApp, err := bootstrap.NewRelay(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = relayApp.Close() }()
			if err := relayApp.Retention.Start(); err != nil {
				return err
			}

			log := logging.New("serve")
			server := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           relayApp.Handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe() }()
			log.Info().Str("addr", cfg.ListenAddr).Msg("relay listening")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}
}

func newSessionCmd(configPath *string) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Inspect persisted sessions"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			rows, err := app.SyncCLI.List(context.Background())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, row := range rows {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", row.ID, row.Timestamp.Local().Format(time.RFC3339))
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Summarize one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			out, err := app.SyncCLI.Show(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", out.SessionID)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  saved       %s\n", out.Timestamp.Local().Format(time.RFC3339))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  categories  %d\n", out.CategoryCount)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  tags        %d\n", out.TagCount)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  annotations %d\n", out.AnnotationCount)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a persisted session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.SyncCLI.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	session.AddCommand(listCmd, showCmd, deleteCmd)
	return session
}
