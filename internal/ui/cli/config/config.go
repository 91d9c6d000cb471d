package config

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/appState"
	"github.com/isaacphi/promptwheel/internal/config"
)

var (
	includeSources bool

	ConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "View configuration",
		Long:  "Print the merged configuration from defaults, config files, and environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appState.Get().Config
			cfg.PrintConfig(includeSources)
			return nil
		},
	}

	keysCmd = &cobra.Command{
		Use:   "keys [key...]",
		Short: "List known configuration keys, or check the given ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			known := config.GetKnownKeys()

			if len(args) == 0 {
				keys := make([]string, 0, len(known))
				for key := range known {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					fmt.Println(key)
				}
				return nil
			}

			var unknown int
			for _, key := range args {
				if config.IsKnownKey(known, key) {
					fmt.Printf("%s: ok\n", key)
				} else {
					fmt.Printf("%s: unknown\n", key)
					unknown++
				}
			}
			if unknown > 0 {
				return fmt.Errorf("%d unknown key(s)", unknown)
			}
			return nil
		},
	}
)

func init() {
	ConfigCmd.Flags().BoolVarP(&includeSources, "include-sources", "s", false, "Show source file for each configuration value")
	ConfigCmd.AddCommand(keysCmd)
}
