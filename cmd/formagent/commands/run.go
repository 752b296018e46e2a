package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/form-agent/formagent/survey"
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

var (
	runID      string
	jsonOutput bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Conduct the survey interactively",
	Long: `Asks each configured question on stdout and reads replies from stdin, one
line per reply. The collected answers are printed when the survey is done.
Closing stdin suspends the survey.`,
	RunE: runSurvey,
}

func init() {
	runCmd.Flags().StringVar(&runID, "run-id", "", "run id used in logs and transcripts (default: random)")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print answers as JSON")
	rootCmd.AddCommand(runCmd)
}

func runSurvey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := survey.NewFactory(cfg, logger)
	defer factory.Close()

	form, err := factory.Form()
	if err != nil {
		return err
	}
	orch, err := factory.CreateOrchestrator(ctx, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res, err := orch.Run(ctx, &survey.RunRequest{
		ID:         runID,
		Form:       form,
		Respondent: newLineRespondent(cmd.InOrStdin(), out),
		OnMessage: func(m ports.PromptMessage) {
			if text := strings.TrimSpace(m.Content); text != "" {
				fmt.Fprintf(out, "> %s\n", text)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", res.ID, err)
	}

	switch res.Status {
	case survey.StatusAwaitingInput:
		fmt.Fprintf(out, "Survey paused at question %d of %d (run %s).\n",
			res.State.CurrentQuestionIndex+1, len(form.Questions), res.ID)
		return nil
	case survey.StatusDone:
		return printAnswers(out, form, res.State.Answers())
	default:
		return fmt.Errorf("run %s ended with status %s", res.ID, res.Status)
	}
}

func printAnswers(w io.Writer, form survey.Form, answers map[string]string) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answers)
	}
	fmt.Fprintln(w, "Answers:")
	for _, q := range form.Questions {
		fmt.Fprintf(w, "  %s %s\n", q, answers[q])
	}
	return nil
}

// lineRespondent reads one reply per line.
type lineRespondent struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineRespondent(in io.Reader, out io.Writer) *lineRespondent {
	return &lineRespondent{scanner: bufio.NewScanner(in), out: out}
}

func (r *lineRespondent) Reply(ctx context.Context, prompt ports.PromptMessage) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(r.out, "< ")
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return "", err
			}
			fmt.Fprintln(r.out)
			return "", survey.ErrNoReply
		}
		if line := strings.TrimSpace(r.scanner.Text()); line != "" {
			return line, nil
		}
	}
}
