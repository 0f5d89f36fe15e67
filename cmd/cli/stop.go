package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kondukto-io/portguard/pkg/reporter"
)

func initStopCommand() *cobra.Command {
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop portguard daemon",
		Run: func(cmd *cobra.Command, args []string) {
			var cfg = loadConfig()

			pid, err := readPID(cfg.Daemon.PIDFile)
			if err != nil {
				qwe(127, err, "failed to read pidfile")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				qwe(127, err, "failed to find process id -- is portguard running?")
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				if err := process.Kill(); err != nil {
					qwe(127, err, "failed to kill the process id")
				}
			}

			if err := os.Remove(cfg.Daemon.PIDFile); err != nil {
				qwe(127, err, "failed to remove pidfile")
			}

			fmt.Printf("Process id [%d] stopped", pid)
			if err := reporter.LoadAndPrint(cfg.Daemon.ReportFile); err != nil {
				qwe(exitCodeError, err, "failed to print report")
			}
		},
	}

	return stopCmd
}
