// Command relay runs the table QR print relay and its operator tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-qr-relay/internal/config"
	"go-qr-relay/internal/models"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "relay",
		Short:        "Print table QR codes on a network receipt printer",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to the JSON config file")

	// withApp loads config and wires components for a subcommand.
	var withApp appRunner = func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd, a)
		}
	}

	root.AddCommand(
		newServeCommand(withApp),
		newPrintCommand(withApp),
		newLinkCommand(withApp),
		newTablesCommand(withApp),
		newConfigCommand(&configPath),
	)
	return root
}

type appRunner func(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error

func newServeCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP print relay",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			return serve(cmd.Context(), a)
		}),
	}
}

func serve(ctx context.Context, a *app) error {
	server := &http.Server{
		Addr:              a.cfg.ListenAddress(),
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.LogSystemEvent("Starting print relay", map[string]interface{}{
			"address": server.Addr,
			"printer": a.transport.Address(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			a.log.Error("HTTP server failed", err)
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	case <-quit.Done():
	}

	a.log.LogSystemEvent("Shutting down print relay")

	// In-flight print jobs finish within the printer timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.log.LogSystemEvent("Shutdown complete")
	return nil
}

func newPrintCommand(withApp appRunner) *cobra.Command {
	var tableName, data string

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print one table ticket straight to the printer",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if data == "" {
				data = a.links.ForTable(tableName).String()
			}
			if err := a.prints.Print(cmd.Context(), models.PrintJob{Data: data, TableName: tableName}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Printed table %s: %s\n", tableName, data)
			return nil
		}),
	}
	cmd.Flags().StringVar(&tableName, "table", "", "table name printed on the ticket")
	cmd.Flags().StringVar(&data, "data", "", "QR payload (default: a fresh start link for the table)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newLinkCommand(withApp appRunner) *cobra.Command {
	var tableName string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print a fresh start link for a table to stdout",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.links.ForTable(tableName).String())
			return nil
		}),
	}
	cmd.Flags().StringVar(&tableName, "table", "", "table name")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newTablesCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables from the POS",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			tables, err := a.tables.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", t.ID, t.Name)
			}
			return nil
		}),
	}
}

func newConfigCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the relay config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", path, err)
			}
			if err := config.Default().Save(path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
