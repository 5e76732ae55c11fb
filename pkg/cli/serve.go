package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/biglinux/bigbashview/pkg/cli/internal/output"
	"github.com/biglinux/bigbashview/pkg/logging"
	"github.com/biglinux/bigbashview/pkg/server"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 10 * time.Second

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals configFlagVals

// StartOutput is the JSON form of the serve and url results.
type StartOutput struct {
	URL     string `json:"url"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	PID     int    `json:"pid,omitempty"`
}

var serveCmd = &cobra.Command{
	Use:   "serve [url]",
	Short: "Start the page server and print the start URL",
	Long: `Start the loopback page server on the first free port of the configured range,
print the URL of the start page and block until SIGINT or SIGTERM.

The start URL defaults to "/", the welcome page. With --directory the process
moves into that directory first and, when no URL is given, opens the first of
index.sh, index.run, index.htm, index.html, index.sh.htm, index.sh.html and
their main.* counterparts that exists there.`,
	Example: `  # Welcome page
  bigbashview serve

  # Application directory with an index.sh
  bigbashview serve -d /usr/share/bigbashview/apps/demo

  # Run a command as the start page
  bigbashview serve '/execute$ls -l'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	addConfigFlags(serveCmd, &serveFlagVals)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := prepare(cmd, args, &serveFlagVals)
	if err != nil {
		return err
	}

	log := logging.New(loggingConfig(st.cfg, cmd.ErrOrStderr()))

	// Register before serving so a page's close request lands here.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(serverConfig(st.cfg), server.WithLogger(log))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	addr := srv.Address()
	out := StartOutput{
		URL:     srv.URL(st.startURL),
		Address: addr.IP,
		Port:    addr.Port,
		PID:     os.Getpid(),
	}
	if jsonOutput {
		if err := output.JSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), out.URL)
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
