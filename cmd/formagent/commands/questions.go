package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/form-agent/formagent/survey"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Print the resolved question list",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		form, err := survey.FormFromConfig(cfg.Agent)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "user: %s\nmodel: %s\ntone: %s\n", form.UserID, form.ModelID, form.Tone)
		for i, q := range form.Questions {
			fmt.Fprintf(out, "%d. %s\n", i+1, q)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
}
