package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arnegaenz/SIS-sub001/infrastructure/storage"
	"github.com/arnegaenz/SIS-sub001/usecase"
)

func reconcileRegistryCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-registry",
		Short: "Add registry entries for FI instances seen in the daily files",
		Long: `Scans every daily snapshot for fi_lookup_key/instance pairs and adds the
ones missing from fi_registry.json. Existing entries are never changed; the
previous registry is kept as fi_registry.json.bak.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reconciler := usecase.NewRegistryReconciler(
				env.snapshotStore(),
				storage.NewRegistryStore(env.cfg.Data.RegistryFile, env.zap()),
				env.zap(), nil)

			result, err := reconciler.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range result.Added {
				fmt.Fprintf(out, "  + %s\n", key)
			}
			fmt.Fprintf(out, "Added %d missing entries. Total now %d\n", len(result.Added), result.Total)
			return nil
		},
	}
}
