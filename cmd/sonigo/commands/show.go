package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hupe1980/sonigo/dedupe"
)

var showCmd = &cobra.Command{
	Use:   "show <artifact>",
	Short: "Print a similarity artifact",
	Long: `Decode a similarities.bin artifact and print each clip with its
neighbor list, highest score first.

Examples:
  sonigo show /data/clips/drums/similarities.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		m, err := dedupe.DecodeSimilarityMap(f)
		if err != nil {
			return err
		}

		fmt.Printf("dir: %s\n", m.Dir)
		fmt.Printf("created: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("clips: %d\n\n", len(m.Neighbors))

		clips := make([]string, 0, len(m.Neighbors))
		for clip := range m.Neighbors {
			clips = append(clips, clip)
		}
		sort.Strings(clips)

		for _, clip := range clips {
			fmt.Println(clip)
			for _, n := range m.Neighbors[clip] {
				fmt.Printf("  %.4f  %s\n", n.Score, n.Path)
			}
		}

		return nil
	},
}
