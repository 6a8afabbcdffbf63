package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/credential"
)

func keyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the OpenAI API key in the system keyring",
	}

	setCmd := &cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "OpenAI API key: ")
				sc := bufio.NewScanner(cmd.InOrStdin())
				if sc.Scan() {
					value = sc.Text()
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("reading key: %w", err)
				}
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("empty key")
			}

			if err := e.creds.Set(credential.OpenAIKey, value); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key stored in the system keyring")
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.creds.Delete(credential.OpenAIKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show where the API key is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if strings.TrimSpace(e.getenv(credential.OpenAIKeyEnv)) != "" {
				fmt.Fprintf(w, "Using %s from the environment\n", credential.OpenAIKeyEnv)
				return nil
			}
			_, err := e.creds.Get(credential.OpenAIKey)
			switch {
			case errors.Is(err, credential.ErrNotFound):
				fmt.Fprintf(w, "No API key configured; set %s or run \"taskboard key set\"\n", credential.OpenAIKeyEnv)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintln(w, "Using the key stored in the system keyring")
			return nil
		},
	}

	cmd.AddCommand(setCmd, deleteCmd, statusCmd)
	return cmd
}
