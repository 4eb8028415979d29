package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gastos/internal/app"
	"gastos/internal/buildinfo"
	"gastos/internal/cli"
	"gastos/internal/log"
)

// session is the state shared by every subcommand for one invocation.
type session struct {
	dbPath   string
	envFiles []string
	stderr   io.Writer

	app    *app.App
	logger *log.Logger
}

// root creates the root CLI command with all subcommands registered.
func (s *session) root() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "gastos",
		Short:   "Personal expense tracker",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:      true,
		PersistentPreRunE: s.open,
	}

	rootCmd.PersistentFlags().StringVar(&s.dbPath, "db", "", "database file (overrides GASTOS_DB_PATH)")
	rootCmd.PersistentFlags().StringSliceVar(&s.envFiles, "env-file", nil, "env files to load (default .env)")

	rootCmd.AddCommand(
		newCategoryCommand(s),
		newExpenseCommand(s),
		newSummaryCommand(s),
		newMonthsCommand(s),
		newExportCommand(s),
		newImportCommand(s),
	)

	return rootCmd
}

func (s *session) open(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile(s.envFiles...)
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if s.dbPath != "" {
		cfg.DBPath = s.dbPath
	}

	stderr := s.stderr
	if stderr == nil {
		stderr = cmd.ErrOrStderr()
	}
	s.logger = cli.SetupLogger(cfg.LogLevel, stderr)

	ctx := log.WithLogger(cmd.Context(), s.logger)
	cmd.SetContext(ctx)

	a, err := app.New(ctx, cfg, s.logger)
	if err != nil {
		return err
	}
	s.app = a
	return a.Start(ctx)
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

// Execute runs the command tree with args and releases the session
// afterwards, whether the command succeeded or not.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	s := &session{stderr: stderr}
	rootCmd := s.root()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if cerr := s.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
