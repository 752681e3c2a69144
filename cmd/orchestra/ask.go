package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/civicchat/orchestra"
	"github.com/civicchat/orchestra/internal/presentation/tui"
	"github.com/civicchat/orchestra/internal/sanitize"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question from the terminal",
	Long: `Runs one request and streams the progress of every agent to stderr.
The question is read from the arguments, or from stdin when none are given.
When stdout is a terminal the answer is rendered as markdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		agentName, _ := cmd.Flags().GetString("agent")
		lang, _ := cmd.Flags().GetString("lang")
		asJSON, _ := cmd.Flags().GetBool("json")

		target, err := orchestra.ParseTarget(agentName)
		if err != nil {
			return err
		}
		question, err := readQuestion(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
		interactive := isTerminal(stdout)
		if interactive && !asJSON {
			tui.PrintBanner(stderr)
		}

		state := a.engine.NewState(domain.RequestContext{
			Question: question,
			Language: strings.ToLower(lang),
		}, domain.UserMessage(question))

		var final domain.WorkflowState
		var failure string
		onDone := func(s domain.WorkflowState) { final = s }
		for chunk := range a.engine.Stream(cmd.Context(), target, state, domain.RunConfig{CallerID: "cli"}, onDone) {
			if chunk.IsError() {
				if data, ok := chunk.Data.(domain.ErrorData); ok {
					failure = data.Error
				}
				fmt.Fprintf(stderr, "✗ %s %s\n", tui.StepLabel(chunk.Step, true), failure)
				continue
			}
			fmt.Fprintf(stderr, "✓ %s\n", tui.StepLabel(chunk.Step, false))
		}

		if asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(final); err != nil {
				return err
			}
		} else if answer := final.Response(); answer != "" && failure == "" {
			if interactive {
				width, _, _ := term.GetSize(int(os.Stdout.Fd()))
				if rendered, err := tui.NewRenderer(min(width, 100))(answer); err == nil {
					answer = rendered
				}
			}
			fmt.Fprintln(stdout, answer)
		}

		if failure != "" {
			return errors.New(failure)
		}
		return nil
	},
}

// readQuestion joins args, or reads stdin when there are none.
func readQuestion(args []string, stdin io.Reader) (string, error) {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		raw, err := io.ReadAll(io.LimitReader(stdin, sanitize.DefaultMaxSize+1))
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(raw)
	}
	clean, err := sanitize.Text(text)
	if err != nil {
		return "", err
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", errors.New("a question is required")
	}
	return clean, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringP("agent", "a", orchestra.WorkflowAlias, "Agent to run, or 'workflow' to let the supervisor route")
	askCmd.Flags().StringP("lang", "l", "", "Answer language (ISO 639-1); detected when empty")
	askCmd.Flags().Bool("json", false, "Print the final workflow state as JSON")
}
