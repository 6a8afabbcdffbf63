package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/ai"
	"github.com/nhle/taskboard/internal/credential"
)

func suggestCmd(e *env) *cobra.Command {
	var (
		count int
		add   bool
	)

	cmd := &cobra.Command{
		Use:   "suggest <goal>",
		Short: "Ask the AI for tasks toward a goal",
		Long: `Send a goal to the configured chat completions API and print the
suggested tasks. With --add they are appended to the To Do column.

The API key comes from OPENAI_API_KEY (a .env file is read too) or the
system keyring entry set with "taskboard key set".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.Join(args, " ")

			s := e.suggester()
			if !s.Enabled() {
				return fmt.Errorf("%w: set %s or run \"taskboard key set\"",
					ai.ErrNoAPIKey, credential.OpenAIKeyEnv)
			}

			res, err := s.Suggest(cmd.Context(), goal, count)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res.Fallback {
				fmt.Fprintln(w, "The reply was not a task list; keeping it as one task.")
			}
			for i, sg := range res.Suggestions {
				fmt.Fprintf(w, "%d. %s\n", i+1, sg.Title)
				if sg.Description != "" {
					fmt.Fprintf(w, "   %s\n", sg.Description)
				}
			}

			if !add {
				return nil
			}

			b, closeFn, err := e.openBoard(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			tasks, err := b.AddMany(cmd.Context(), res.Drafts())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Added %d task(s) to To Do\n", len(tasks))
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of tasks (default from config, max 10)")
	cmd.Flags().BoolVar(&add, "add", false, "add the suggestions to the board")
	return cmd
}
