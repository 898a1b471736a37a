package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/hotload/internal/app"
)

func (c *CLI) newTranslateCmd() *cobra.Command {
	var opts app.TranslateOptions

	cmd := &cobra.Command{
		Use:   "translate <file.class>",
		Short: "Translate one class file with the configured native compiler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.app.Translate(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Path of the translated image")
	cmd.Flags().StringVar(&opts.ClassName, "class", "", "Binary class name (defaults to the file name)")

	return cmd
}

func (c *CLI) newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the source hash of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := c.app.Hash(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
