package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/board"
)

// pickFormat prefers an explicit --format, then the file extension.
func pickFormat(flag, path string) (board.Format, error) {
	if flag != "" {
		return board.ParseFormat(flag)
	}
	if path == "" || path == "-" {
		return board.FormatJSON, nil
	}
	return board.FormatFromPath(path), nil
}

func exportCmd(e *env) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board as JSON or CSV",
		Long: `Write every task, in board order, to stdout or a file.

Examples:
  taskboard export > tasks.json
  taskboard export -o tasks.csv
  taskboard export --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := pickFormat(format, output)
			if err != nil {
				return err
			}

			b, closeFn, err := e.openBoard(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if output == "" || output == "-" {
				return b.Export(cmd.OutOrStdout(), f)
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := b.Export(file, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d task(s) to %s\n", b.Len(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or csv (default from -o extension, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func importCmd(e *env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the board from a JSON or CSV file",
		Long: `Replace the whole board with the tasks in a JSON or CSV export.
The file is validated first; if any record is invalid nothing changes.
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := pickFormat(format, path)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening %s: %w", path, err)
				}
				defer file.Close()
				r = file
			}

			b, closeFn, err := e.openBoard(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := b.Import(cmd.Context(), r, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or csv (default from extension)")
	return cmd
}
