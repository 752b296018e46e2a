package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/form-agent/formagent/survey/adapters"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript <run-id>",
	Short: "Print the stored transcript of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Harness.TranscriptDSN == "" {
			return fmt.Errorf("harness.transcript_dsn is not configured")
		}

		store, err := adapters.OpenLibSQLTranscriptStore(cmd.Context(), cfg.Harness.TranscriptDSN)
		if err != nil {
			return err
		}
		defer store.Close()

		turns, err := store.LoadTranscript(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(turns) == 0 {
			return fmt.Errorf("no transcript for run %s", args[0])
		}

		out := cmd.OutOrStdout()
		for _, t := range turns {
			content := t.Content
			for _, call := range t.ToolCalls {
				content += fmt.Sprintf(" [%s %s]", call.Name, string(call.Args))
			}
			fmt.Fprintf(out, "%3d %-9s %s\n", t.Seq, t.Role, content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
}
