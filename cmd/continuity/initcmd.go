package continuity

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storyweave/continuity/pkg/config"
)

var (
	initDir       string
	initEffective bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default continuity.yaml config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if initEffective {
			// snapshot the effective configuration, env overrides included
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.Write(initDir, cfg); err != nil {
				return err
			}
		} else if err := config.WriteDefault(initDir); err != nil {
			return err
		}
		fmt.Printf("Wrote %s/%s\n", initDir, config.DefaultConfigFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write the config file into")
	initCmd.Flags().BoolVar(&initEffective, "effective", false, "Write the effective configuration instead of the commented default")
}
