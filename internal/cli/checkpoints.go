package cli

import (
	"github.com/spf13/cobra"

	"sdbridge/internal/registry"
	"sdbridge/pkg/types"
)

func newCheckpointsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints",
		Short: "List checkpoint files available for switching",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), o, func(rt *runtime) error {
				cps, err := registry.LoadDir(rt.checkpointsDir())
				if err != nil {
					return err
				}
				return printJSON(cmd, types.CheckpointsResponse{Checkpoints: cps})
			})
		},
	}
}
