package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
	"github.com/SmitUplenchwar2687/editplay/internal/playback"
)

func newPlanCmd(g *globalOptions) *cobra.Command {
	var (
		file         string
		sendInterval time.Duration
		outputJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how a recording would be batched, without sending it",
		Long: `Runs the playback batching over a recording and prints one line per
send window. Nothing is sent and no server is needed.

Empty windows are timer ticks with nothing to send. A submission always
gets a window of its own.`,
		Example: `  editplay plan --file session.json
  editplay plan --file session.json --send-interval 500ms --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("send-interval") {
				sendInterval = cfg.Playback.SendInterval
			}
			if sendInterval < time.Millisecond {
				return fmt.Errorf("--send-interval must be at least 1ms, got %s", sendInterval)
			}

			seq, err := editseq.LoadFile(file)
			if err != nil {
				return err
			}
			plan := playback.Plan(seq, sendInterval.Milliseconds())

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"exercise": seq.ExerciseName(),
					"windows":  plan,
				})
			}

			fmt.Fprintf(out, "%s: %d changes over %s, %d windows of %s\n\n",
				seq.ExerciseName(), seq.Len(), time.Duration(seq.Span())*time.Millisecond, len(plan), sendInterval)
			if len(plan) == 0 {
				return nil
			}
			first := plan[0].WindowStart
			for i, b := range plan {
				offset := time.Duration(b.WindowStart-first) * time.Millisecond
				switch {
				case b.IsSubmission():
					fmt.Fprintf(out, "  #%-4d +%-10s submission (%d chars)\n", i+1, offset, len(b.Changes[0].Text))
				case len(b.Changes) == 0:
					fmt.Fprintf(out, "  #%-4d +%-10s -\n", i+1, offset)
				default:
					fmt.Fprintf(out, "  #%-4d +%-10s %d changes\n", i+1, offset, len(b.Changes))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the recorded edit sequence (required)")
	cmd.Flags().DurationVar(&sendInterval, "send-interval", playback.DefaultSendBatchInterval, "period of the editor's batch send timer")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output the plan as JSON")

	return cmd
}
