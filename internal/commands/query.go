// internal/commands/query.go
package mmrag

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/mmrag/internal/rag"
)

// queryCmd answers one question from a saved index.
var queryCmd = &cobra.Command{
	Use:   "query <question...>",
	Short: "Answer a question from a saved index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(GetConfig(), 0)
		if err != nil {
			return err
		}
		defer sess.Close()

		return runQuery(cmd.Context(), sess, strings.Join(args, " "), cmd.OutOrStdout())
	},
}

// runQuery loads the index, answers question and prints "<model>: <answer>".
func runQuery(ctx context.Context, sess *session, question string, out io.Writer) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question is empty")
	}
	ix, err := sess.loadIndex(ctx)
	if err != nil {
		return err
	}
	answer, err := rag.NewChain(ix, sess.provider, sess.cfg).Invoke(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", color.New(color.FgCyan, color.Bold).Sprint(sess.cfg.MMLLM), answer)
	return nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
