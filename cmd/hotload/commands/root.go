// Package commands implements the CLI commands for hotload.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/hotload/internal/app"
	"go.trai.ch/hotload/internal/build"
	"go.trai.ch/hotload/internal/core/domain"
)

// Application represents the application logic behind the commands.
type Application interface {
	Config() *domain.Config
	CacheEntries(ctx context.Context) ([]domain.EntryInfo, error)
	CacheStats(ctx context.Context) (domain.CacheStats, error)
	CacheClear(ctx context.Context, hashes []string) error
	CacheVerify(ctx context.Context) (app.VerifyReport, error)
	Translate(ctx context.Context, path string, opts app.TranslateOptions) (string, error)
	Hash(path string) (string, error)
}

// CLI represents the command line interface for hotload.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "hotload",
		Short:         "Native image cache and translator for hot-loaded programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newTranslateCmd())
	rootCmd.AddCommand(c.newHashCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
