package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contractvm/config"
	"contractvm/core"
)

func storeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and populate the content-addressed contract store",
	}

	put := &cobra.Command{
		Use:   "put <bytecode-path>",
		Short: "Store a compiled contract and print its ContractKey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, "")
			if err != nil {
				return err
			}
			store, err := core.NewContractStore(cfg.Store.Dir, cfg.Store.Capacity, logger)
			if err != nil {
				return err
			}
			bytecode, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			key, err := store.Store(bytecode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.String())
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored contract's bytecode as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, "")
			if err != nil {
				return err
			}
			store, err := core.NewContractStore(cfg.Store.Dir, cfg.Store.Capacity, logger)
			if err != nil {
				return err
			}
			key, err := core.DecodeContractKey(args[0])
			if err != nil {
				return err
			}
			bytecode, ok := store.Fetch(key)
			if !ok {
				return fmt.Errorf("contract %s not found", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(bytecode))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate <key> <parameters-path> <state-path>",
		Short: "Invoke validate_state against a stored contract",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, "")
			if err != nil {
				return err
			}
			store, err := core.NewContractStore(cfg.Store.Dir, cfg.Store.Capacity, logger)
			if err != nil {
				return err
			}
			runtime, err := core.NewRuntime(store, cfg.VM.HostMemory, logger)
			if err != nil {
				return err
			}
			key, err := core.DecodeContractKey(args[0])
			if err != nil {
				return err
			}
			params, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			state, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}
			valid, err := runtime.ValidateState(key, core.Parameters(params), core.State(state))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), valid)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing default.yaml")
	cmd.AddCommand(put, get, validate)
	return cmd
}
