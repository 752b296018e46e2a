package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/form-agent/formagent/survey"
	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fill the form for many recorded conversations at once",
	Long: `Reads a JSON array of conversations, each with an optional id and the user
replies in order, and runs them concurrently. One JSON result per conversation
is printed, in input order. Use "-" to read from stdin.

Example input:
  [{"id": "ada", "replies": ["Ada", "36", "chess"]}]`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "runs in flight (default: harness.batch_concurrency)")
	rootCmd.AddCommand(batchCmd)
}

// batchEntry is one recorded conversation.
type batchEntry struct {
	ID      string   `json:"id"`
	Replies []string `json:"replies"`
}

// batchOutcome is printed for every conversation.
type batchOutcome struct {
	RunID   string            `json:"run_id"`
	Status  string            `json:"status"`
	Answers map[string]string `json:"answers"`
	Error   string            `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()
		in = f
	}
	entries, err := decodeBatch(in)
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

	reqs := make([]*survey.RunRequest, len(entries))
	for i, e := range entries {
		reqs[i] = &survey.RunRequest{
			ID:         e.ID,
			Form:       form,
			Respondent: newScriptedRespondent(e.Replies),
		}
	}

	concurrency := batchConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Harness.BatchConcurrency
	}
	results := orch.RunBatch(ctx, reqs, concurrency)

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, res := range results {
		if err := enc.Encode(outcomeOf(res)); err != nil {
			return err
		}
	}
	return nil
}

func decodeBatch(r io.Reader) ([]batchEntry, error) {
	var entries []batchEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	return entries, nil
}

func outcomeOf(res *survey.RunResult) batchOutcome {
	out := batchOutcome{RunID: res.ID, Status: res.Status.String(), Answers: map[string]string{}}
	if res.State != nil && len(res.State.AnsweredQuestions) > 0 {
		out.Answers = res.State.Answers()
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// scriptedRespondent replays recorded replies and suspends the run when they
// run out.
type scriptedRespondent struct {
	replies []string
}

func newScriptedRespondent(replies []string) *scriptedRespondent {
	return &scriptedRespondent{replies: replies}
}

func (r *scriptedRespondent) Reply(ctx context.Context, prompt ports.PromptMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(r.replies) == 0 {
		return "", survey.ErrNoReply
	}
	next := r.replies[0]
	r.replies = r.replies[1:]
	return next, nil
}
