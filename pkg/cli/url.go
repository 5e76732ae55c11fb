package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biglinux/bigbashview/internal/ports"
	"github.com/biglinux/bigbashview/pkg/cli/internal/output"
	"github.com/biglinux/bigbashview/pkg/script"
	"github.com/biglinux/bigbashview/pkg/server"
)

var urlFlagVals configFlagVals

var urlCmd = &cobra.Command{
	Use:   "url [url]",
	Short: "Print the start URL serve would open",
	Long: `Resolve configuration, the work directory and the start page exactly like
serve does, probe for the port serve would bind and print the resulting URL.
Nothing is served; the port may be taken by the time serve runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runURL,
}

func init() {
	addConfigFlags(urlCmd, &urlFlagVals)
	rootCmd.AddCommand(urlCmd)
}

func runURL(cmd *cobra.Command, args []string) error {
	st, err := prepare(cmd, args, &urlFlagVals)
	if err != nil {
		return err
	}

	port, err := ports.FindFree(st.cfg.BindAddress, st.cfg.PortStart, st.cfg.PortEnd)
	if err != nil {
		return err
	}
	addr := script.Address{IP: st.cfg.BindAddress, Port: port}
	out := StartOutput{
		URL:     server.URLFor(addr, st.startURL),
		Address: addr.IP,
		Port:    addr.Port,
	}

	if jsonOutput {
		return output.JSON(cmd.OutOrStdout(), out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.URL)
	return nil
}
