// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/pkg/cliui"
	"github.com/papercomputeco/relay/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		Long:  "Display the version, commit and build time of this relay binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) error {
	for _, row := range [][2]string{
		{"Version", utils.Version},
		{"Sha", utils.Sha},
		{"Built at", utils.Buildtime},
	} {
		if _, err := fmt.Fprintf(w, "%s %s\n", cliui.KeyStyle.Render(row[0]+":"), row[1]); err != nil {
			return err
		}
	}
	return nil
}
