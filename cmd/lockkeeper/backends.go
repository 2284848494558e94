// cmd/lockkeeper/backends.go
package main

import (
	"fmt"

	"github.com/avivl/lockkeeper/internal/config"
	"github.com/avivl/lockkeeper/internal/lockservice"
	"github.com/spf13/cobra"
)

// newBackendsCmd lists the registered stores and marks the one the configuration
// selects. Only backend.type is read, so an incomplete store section does not hide it.
func newBackendsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered store backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := config.DetectBackendType(opts.configPath)
			if err != nil {
				selected = ""
			}

			for _, name := range lockservice.Constructors() {
				switch {
				case selected == "":
					fmt.Fprintln(cmd.OutOrStdout(), name)
				case name == selected:
					fmt.Fprintf(cmd.OutOrStdout(), "* %s\n", name)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
				}
			}
			return nil
		},
	}
}
