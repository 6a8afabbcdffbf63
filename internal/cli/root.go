// Package cli is the taskboard command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/ai"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// debugEnv turns on file logging for the TUI.
const debugEnv = "TASKBOARD_DEBUG"

// env is the state shared by every command.
type env struct {
	configPath string
	verbose    bool
	getenv     func(string) string
	creds      *credential.Store
	cfg        *model.AppConfig
}

func newEnv() *env {
	return &env{
		configPath: model.DefaultConfigPath(),
		getenv:     os.Getenv,
		creds:      credential.New(),
	}
}

// Execute runs the root command.
func Execute(version string) error {
	root := newRootCmd(newEnv())
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskboard",
		Short: "A personal three-column task board",
		Long: `taskboard keeps your tasks on a To Do / In Progress / Done board.

Run it without a subcommand to open the interactive board, or use the
subcommands to script it.`,
		RunE:          func(cmd *cobra.Command, args []string) error { return runTUI(cmd, e) },
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&e.configPath, "config", e.configPath, "config file")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		tuiCmd(e),
		listCmd(e),
		addCmd(e),
		moveCmd(e),
		rmCmd(e),
		exportCmd(e),
		importCmd(e),
		suggestCmd(e),
		keyCmd(e),
		configCmd(e),
	)
	return root
}

// setup loads the config and routes the standard logger. The TUI replaces
// the logger again once it owns the terminal.
func (e *env) setup(cmd *cobra.Command) error {
	if e.verbose {
		log.SetOutput(cmd.ErrOrStderr())
	} else {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.LstdFlags)

	cfg, err := model.LoadConfig(e.configPath)
	if err != nil {
		return err
	}
	e.cfg = cfg
	log.Printf("config %s: backend=%s path=%s key=%s",
		e.configPath, cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.Key)
	return nil
}

func (e *env) debug() bool {
	return e.verbose || strings.TrimSpace(e.getenv(debugEnv)) != ""
}

// openBoard opens the configured store and loads the board. The returned
// func closes the store.
func (e *env) openBoard(ctx context.Context) (*board.Board, func(), error) {
	s, err := store.Open(e.cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	closeFn := func() {
		if err := s.Close(); err != nil {
			log.Printf("closing storage: %v", err)
		}
	}

	b := board.New(s, board.WithKey(e.cfg.Storage.Key))
	if err := b.Load(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return b, closeFn, nil
}

// suggester builds the AI client. A missing key is not an error: the
// returned Suggester reports Enabled() == false.
func (e *env) suggester() *ai.Suggester {
	key, err := e.creds.APIKey(e.getenv)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		log.Printf("reading API key: %v", err)
	}
	return ai.New(key, e.cfg.AI)
}

// resolveID accepts a full task ID or a unique prefix of one.
func resolveID(b *board.Board, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty id", board.ErrNotFound)
	}
	if _, ok := b.Get(raw); ok {
		return raw, nil
	}

	var match string
	for _, t := range b.Tasks() {
		if strings.HasPrefix(t.ID, raw) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", raw)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %q", board.ErrNotFound, raw)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
