package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"sdbridge/internal/imagegen"
	"sdbridge/internal/params"
	"sdbridge/pkg/types"
)

func newGenerateCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate <prompt>",
		Short:   "Generate images and print their paths or URLs",
		Example: "  sdbridge generate \"a lighthouse at dusk\" --size 768x768 --preset high --overrides '{\"seed\":42}'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := params.DecodeOverrides([]byte(o.v.GetString("overrides")))
			if err != nil {
				return err
			}
			req := imagegen.Request{
				Prompt:    strings.Join(args, " "),
				Size:      o.v.GetString("size"),
				N:         o.v.GetInt("n"),
				Model:     o.v.GetString("model"),
				Preset:    o.v.GetString("preset"),
				Overrides: ov,
			}
			if cmd.Flags().Changed("negative") {
				neg := o.v.GetString("negative")
				req.NegativePrompt = &neg
			}
			return withRuntime(cmd.Context(), o, func(rt *runtime) error {
				images, err := rt.gen.Generate(cmd.Context(), req, imagegen.LibraryDefaults)
				if err != nil {
					return err
				}
				return printJSON(cmd, types.GenerateResponse{Images: images})
			})
		},
	}
	f := cmd.Flags()
	f.String("model", "local", "Backend selector: local|stable-diffusion|dalle and aliases")
	f.String("size", "", "WIDTHxHEIGHT, multiples of 64 (default 1024x1024)")
	f.Int("n", 0, "Number of images, 1..8 (default 1)")
	f.String("preset", "", "fast|balanced|high|ultra (default balanced)")
	f.String("negative", "", "Negative prompt (default \"bad quality\")")
	f.String("overrides", "", "JSON object of per-call sampler overrides")
	return cmd
}
