package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/ui/style"
	"golang.org/x/term"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the native image cache",
	}

	cmd.AddCommand(c.newCacheLsCmd())
	cmd.AddCommand(c.newCacheStatCmd())
	cmd.AddCommand(c.newCacheClearCmd())
	cmd.AddCommand(c.newCacheVerifyCmd())

	return cmd
}

func (c *CLI) newCacheLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")

			entries, err := c.app.CacheEntries(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(w, "cache is empty")
				return nil
			}
			if resolveFormat(format, w) == formatTable {
				_, _ = fmt.Fprintln(w, renderEntries(entries))
				return nil
			}
			writePlain(w, entries)
			return nil
		},
	}

	cmd.Flags().String("format", formatAuto, "Output format: auto, table or plain")

	return cmd
}

const (
	formatAuto  = "auto"
	formatTable = "table"
	formatPlain = "plain"
)

// resolveFormat picks the table on a terminal and tab separated lines otherwise.
func resolveFormat(flag string, w io.Writer) string {
	switch flag {
	case formatTable, formatPlain:
		return flag
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return formatTable
	}
	return formatPlain
}

func writePlain(w io.Writer, entries []domain.EntryInfo) {
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%t\n", e.Hash, e.Classes, e.Bytes, e.Complete)
	}
}

func renderEntries(entries []domain.EntryInfo) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Slate)).
		Headers("", "HASH", "CLASSES", "SIZE", "CREATED").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return style.Header
			}
			return style.Cell
		})

	for _, e := range entries {
		created := "-"
		if !e.CreatedAt.IsZero() {
			created = e.CreatedAt.Local().Format(time.DateTime)
		}
		t.Row(
			style.Status(e.Complete),
			shortHash(e.Hash),
			strconv.Itoa(e.Classes),
			humanBytes(e.Bytes),
			created,
		)
	}
	return t.String()
}

func (c *CLI) newCacheStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Summarize the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.app.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printField(w, "root", c.app.Config().CacheRoot)
			printField(w, "entries", strconv.Itoa(stats.Entries))
			printField(w, "classes", strconv.Itoa(stats.Classes))
			printField(w, "size", humanBytes(stats.Bytes))
			return nil
		},
	}
}

func (c *CLI) newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [hash...]",
		Short: "Remove cache entries, or the whole cache when no hash is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.CacheClear(cmd.Context(), args)
		},
	}
}

func (c *CLI) newCacheVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every entry and remove the ones that are damaged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.CacheVerify(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, hash := range report.Removed {
				_, _ = fmt.Fprintf(w, "%s removed %s\n", style.Cross, shortHash(hash))
			}
			_, _ = fmt.Fprintf(w, "%s %d checked, %d healthy, %d removed\n",
				style.Check, report.Checked, len(report.Healthy), len(report.Removed))
			return nil
		},
	}
}

func printField(w io.Writer, key, value string) {
	_, _ = fmt.Fprintf(w, "%-8s %s\n", key+":", value)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
