package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"contractvm/config"
	"contractvm/core"
	"contractvm/gateway"
)

func serveCmd() *cobra.Command {
	var configPath string
	var env string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway over a contract store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, env)
			if err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "directory containing default.yaml")
	cmd.Flags().StringVar(&env, "env", "", "environment overlay name (merges <env>.yaml)")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	store, err := core.NewContractStore(cfg.Store.Dir, cfg.Store.Capacity, logger)
	if err != nil {
		return err
	}

	srv := gateway.NewServer(store, cfg.Store.Dir+"/bundles", logger)
	httpSrv := &http.Server{
		Addr:         cfg.Gateway.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpSrv.Addr).Info("contractd gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
