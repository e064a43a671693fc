package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/editplay/internal/config"
	"github.com/SmitUplenchwar2687/editplay/internal/editseq"
	"github.com/SmitUplenchwar2687/editplay/internal/playback"
	"github.com/SmitUplenchwar2687/editplay/internal/remote"
)

type playOptions struct {
	file         string
	url          string
	username     string
	password     string
	sendInterval time.Duration
	pollInterval time.Duration
	noSubmit     bool
	outputJSON   bool
}

// applyConfigIfUnset fills every option whose flag was not given from cfg.
func (o *playOptions) applyConfigIfUnset(cmd *cobra.Command, cfg config.Config) {
	if !cmd.Flags().Changed("url") {
		o.url = cfg.Client.URL
	}
	if !cmd.Flags().Changed("username") {
		o.username = cfg.Client.Username
	}
	if !cmd.Flags().Changed("password") {
		o.password = cfg.Client.Password
	}
	if !cmd.Flags().Changed("send-interval") {
		o.sendInterval = cfg.Playback.SendInterval
	}
	if !cmd.Flags().Changed("poll-interval") {
		o.pollInterval = cfg.Playback.PollInterval
	}
	if !cmd.Flags().Changed("no-submit") {
		o.noSubmit = !cfg.Playback.SubmitOnFullText
	}
}

func newPlayCmd(g *globalOptions) *cobra.Command {
	o := &playOptions{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a recorded editing session against the webapp",
		Long: `Logs in to the webapp, selects the problem named by the recording and
replays every change with its original pacing.

Changes are sent in batches on a fixed timer, the way the editor sends
them. A recorded submission is sent on its own, and playback waits for
its result before going on. Identity fields in the recording are
rewritten to the logged-in user and the selected problem.`,
		Example: `  editplay play --file session.json --username user2 --password muffin
  editplay play --file session.json.zst --url http://webapp:8000 --send-interval 500ms
  editplay play --file session.json --no-submit --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.file == "" {
				return fmt.Errorf("--file is required")
			}

			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			o.applyConfigIfUnset(cmd, cfg)
			if o.username == "" {
				return fmt.Errorf("--username is required")
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}

			seq, err := editseq.LoadFile(o.file)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := remote.NewHTTPClient(o.url, remote.WithLogger(logger))
			if err != nil {
				return err
			}
			if _, err := client.Login(ctx, o.username, o.password); err != nil {
				return fmt.Errorf("logging in as %s: %w", o.username, err)
			}

			out := cmd.OutOrStdout()
			var opts []playback.Option
			opts = append(opts,
				playback.WithSendBatchInterval(o.sendInterval),
				playback.WithPollInterval(o.pollInterval),
				playback.WithSubmitOnFullText(!o.noSubmit),
				playback.WithLogger(logger),
			)
			if !o.outputJSON {
				opts = append(opts,
					playback.WithOnSend(func(batch []editseq.Change) {
						if !o.noSubmit && len(batch) == 1 && batch[0].IsFullText() {
							fmt.Fprintln(out, "Sending full text for submission")
							return
						}
						fmt.Fprintf(out, "Sending %d changes\n", len(batch))
					}),
					playback.WithOnSubmissionResult(func(res *remote.SubmissionResult) {
						if !res.Compiled() {
							fmt.Fprintln(out, "Code did not compile")
							return
						}
						fmt.Fprintf(out, "Passed %d/%d tests\n", res.TestsPassed, res.TestsAttempted)
					}),
				)
			}

			sched := playback.New(client, seq, opts...)
			if err := sched.Setup(ctx); err != nil {
				return err
			}
			if !o.outputJSON {
				fmt.Fprintf(out, "Playing %s (%d changes) as %s on problem %d...\n",
					seq.ExerciseName(), seq.Len(), o.username, sched.Problem().ID)
			}

			summary, err := sched.Play(ctx)
			if err != nil {
				return err
			}

			if o.outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&o.file, "file", "", "path to the recorded edit sequence (required)")
	cmd.Flags().StringVar(&o.url, "url", "", "webapp base URL (default from config)")
	cmd.Flags().StringVar(&o.username, "username", "", "webapp username")
	cmd.Flags().StringVar(&o.password, "password", "", "webapp password")
	cmd.Flags().DurationVar(&o.sendInterval, "send-interval", playback.DefaultSendBatchInterval, "period of the editor's batch send timer")
	cmd.Flags().DurationVar(&o.pollInterval, "poll-interval", playback.DefaultPollInterval, "delay between submission status polls")
	cmd.Flags().BoolVar(&o.noSubmit, "no-submit", false, "send recorded submissions as plain changes")
	cmd.Flags().BoolVar(&o.outputJSON, "json", false, "print the playback summary as JSON")

	return cmd
}

func printSummary(cmd *cobra.Command, s *playback.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "--- Playback Summary ---")
	fmt.Fprintf(out, "  Windows:        %d\n", s.Windows)
	fmt.Fprintf(out, "  Batches sent:   %d\n", s.Batches)
	fmt.Fprintf(out, "  Changes sent:   %d\n", s.ChangesSent)
	fmt.Fprintf(out, "  Submissions:    %d\n", s.Submissions)
	fmt.Fprintf(out, "  Recorded span:  %s\n", s.Span)
	fmt.Fprintf(out, "  Playback time:  %s\n", s.WallDuration.Round(time.Millisecond))
	fmt.Fprintln(out, "Done!")
}
