package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auralab/rig"
)

// ValidateCmd validates task configs and protocol files without running
// anything.
var ValidateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate task configs and protocol files",
	Long: `Validate one or more files without running a session.

Files ending in .json are validated as protocol documents against the
protocol schema; everything else is parsed as a gap-laser task config.
The command exits non-zero on the first invalid file.`,
	Example: `  rig validate task.yaml
  rig validate protocol.json task.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			if strings.EqualFold(filepath.Ext(path), ".json") {
				protocol, err := rig.ParseProtocol(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d steps)\n", path, len(protocol.Steps))
				continue
			}

			cfg, err := rig.ParseGapLaserConfig(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			combinations := len(cfg.LaserDurationsMs) * len(cfg.LaserFreqsHz) * len(cfg.LaserDutyCycles)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d laser conditions)\n", path, combinations)
		}
		return nil
	},
}
