package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/editplay/internal/config"
	"github.com/SmitUplenchwar2687/editplay/internal/generate"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample recordings, catalogs and config",
		Long: `Generates sample data for testing and experimentation.

Use "generate sequence" to create a synthetic edit recording.
Use "generate catalog" to create a catalog for editplay serve.
Use "generate config" to create an example config file.`,
	}

	cmd.AddCommand(newGenerateSequenceCmd(), newGenerateCatalogCmd(), newGenerateConfigCmd())
	return cmd
}

func newGenerateSequenceCmd() *cobra.Command {
	var (
		output     string
		sourceFile string
		opts       = generate.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Generate a synthetic edit recording",
		Long: `Types a source file out as insert changes spread over a duration and
adds full-text submissions at evenly spaced points.

Patterns:
  steady    Evenly spaced edits
  burst     Bursts of typing with quiet periods
  ramp      Typing that speeds up over time

Outputs ending in .zst are compressed.`,
		Example: `  editplay generate sequence --output session.json
  editplay generate sequence --output session.json.zst --edits 200 --pattern burst --duration 10m
  editplay generate sequence --source-file main.c --exercise helloWorld --submissions 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceFile != "" {
				data, err := os.ReadFile(sourceFile)
				if err != nil {
					return fmt.Errorf("reading source: %w", err)
				}
				opts.Source = string(data)
			}

			seq, err := generate.Sequence(opts)
			if err != nil {
				return err
			}
			if err := seq.WriteFile(output); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d changes for %s to %s\n", seq.Len(), seq.ExerciseName(), output)
			fmt.Fprintf(out, "  Submissions: %d\n", seq.FullTextCount())
			fmt.Fprintf(out, "  Duration:    %s\n", opts.Duration)
			fmt.Fprintf(out, "  Pattern:     %s\n", opts.Pattern)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "session.json", "output file path")
	cmd.Flags().StringVar(&sourceFile, "source-file", "", "file whose contents are typed out (default: a small C program)")
	cmd.Flags().StringVar(&opts.Exercise, "exercise", opts.Exercise, "exercise name stored in the recording")
	cmd.Flags().IntVar(&opts.Edits, "edits", opts.Edits, "number of insert changes")
	cmd.Flags().IntVar(&opts.Submissions, "submissions", opts.Submissions, "number of full-text submissions")
	cmd.Flags().DurationVar(&opts.Duration, "duration", opts.Duration, "time span of the recording")
	cmd.Flags().StringVar(&opts.Pattern, "pattern", opts.Pattern, "typing pattern (steady, burst, ramp)")
	cmd.Flags().Int64Var(&opts.Start, "start", 0, "epoch milliseconds of the first edit (default: now)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (default: time based)")

	return cmd
}

func newGenerateCatalogCmd() *cobra.Command {
	var (
		output string
		opts   = generate.DefaultCatalogOptions()
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Generate a catalog for editplay serve",
		Long: `Creates users user1..userN sharing one password, all registered in one
course with one problem per exercise.`,
		Example: `  editplay generate catalog --output catalog.yaml
  editplay generate catalog --users 10 --exercises helloWorld,sumOfThree,fizzBuzz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := generate.CatalogYAML(opts)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing catalog: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated catalog with %d users and %d problems at %s\n",
				opts.Users, len(opts.Exercises), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "catalog.yaml", "output file path")
	cmd.Flags().IntVar(&opts.Users, "users", opts.Users, "number of users")
	cmd.Flags().StringVar(&opts.Password, "password", opts.Password, "password shared by every user")
	cmd.Flags().StringVar(&opts.Course, "course", opts.Course, "course name")
	cmd.Flags().StringSliceVar(&opts.Exercises, "exercises", opts.Exercises, "problem names (comma-separated)")

	return cmd
}

func newGenerateConfigCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate an example config file",
		Long:  `Writes an example config. Outputs ending in .yaml or .yml are YAML, anything else JSON.`,
		Example: `  editplay generate config --output editplay.json
  editplay generate config --output editplay.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteExample(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated example config at %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "editplay.json", "output file path")
	return cmd
}
