package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sonigo/vocoder"
)

var planConfig string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the channel layout of a vocoder configuration",
	Long: `Build the block plan for a vocoder configuration and print every
block with its level, resolution and channel counts. No weights are
allocated; this is a fast sanity check for a configuration file.

Without --config, the default configuration is used.

Example configuration file (vocoder.yaml):
  model_channels: 64
  num_res_blocks: 2
  channel_mult: [1, 1, 2, 2, 4, 8, 16, 32, 64]
  code_resolutions: [4, 8, 16, 32]
  attention_resolutions: [64, 128, 256]

Examples:
  sonigo plan
  sonigo plan --config vocoder.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := vocoder.DefaultOptions()
		if planConfig != "" {
			if err := loadYAML(planConfig, &opts); err != nil {
				return err
			}
		}

		p, err := vocoder.BuildPlan(opts)
		if err != nil {
			return err
		}

		printPath("input", p.Input)
		printPath("middle", p.Middle)
		printPath("output", p.Output)

		pushed, popped := p.SkipBalance()
		fmt.Printf("\nskips pushed=%d popped=%d\n", pushed, popped)
		fmt.Printf("head channels=%d\n", p.OutHeadChannels)
		fmt.Printf("total stride=%d\n", p.TotalStride)

		return nil
	},
}

func init() {
	planCmd.Flags().StringVarP(&planConfig, "config", "f", "", "vocoder configuration YAML file")
}

func printPath(name string, blocks []vocoder.BlockPlan) {
	fmt.Printf("%s:\n", name)
	for i, b := range blocks {
		var notes []string
		if b.Attention {
			notes = append(notes, "attn")
		}
		if b.Upsample {
			notes = append(notes, "upsample")
		}
		if b.Skip > 0 {
			notes = append(notes, fmt.Sprintf("skip %d", b.Skip))
		}
		suffix := ""
		if len(notes) > 0 {
			suffix = "  (" + strings.Join(notes, ", ") + ")"
		}
		fmt.Printf("  %2d  %-8s lvl=%d ds=%-4d %d -> %d%s\n",
			i, b.Kind, b.Level, b.Resolution, b.In, b.Out, suffix)
	}
}
