package cmd

import (
	"github.com/spf13/cobra"

	"dfxvm/internal/proxy"
)

// dfxCmd forwards everything to the selected dfx. Flags belong to dfx, so
// cobra does no parsing here.
var dfxCmd = &cobra.Command{
	Use:                "dfx",
	Short:              "Run the selected version of dfx",
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		loc, err := resolveLocations()
		if err != nil {
			return err
		}
		p := &proxy.Proxy{Locations: loc}
		return p.Run(args)
	},
}
