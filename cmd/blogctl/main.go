package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solm0/solmee-xyz-keystone/infrastructure/config"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/di"
)

// loader builds the container a command runs against
type loader func(ctx context.Context) (*di.Container, func(), error)

func main() {
	if err := newRootCmd(loadContainer).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadContainer(ctx context.Context) (*di.Container, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return di.InitializeContainer(ctx, cfg)
}

func newRootCmd(load loader) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "blogctl",
		Short:         "Inspect and drive the blog content pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")

	root.AddCommand(newExtractCmd(load))
	root.AddCommand(newProcessCmd(load))
	root.AddCommand(newGraphCmd(load))
	root.AddCommand(newKeywordsCmd(load))
	return root
}
