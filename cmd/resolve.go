package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cardbook/internal/config"
	"cardbook/internal/geo"

	"github.com/spf13/cobra"
)

func resolveCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resolve [ip]",
		Short: "Resolve one IP through the provider chain and print the location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(contextOrBackground(cmd.Context()), timeout)
			defer cancel()

			resolver := geo.NewResolverFromConfig(cfg.Geo, nil)
			loc := resolver.Resolve(ctx, args[0])
			if loc == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no location for %s (providers: %v)\n", args[0], resolver.Providers())
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(loc)
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 20*time.Second, "Overall resolution timeout")
	return cmd
}
