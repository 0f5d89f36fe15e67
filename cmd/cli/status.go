package cli

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func initStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print portguard daemon status",
		Run: func(cmd *cobra.Command, args []string) {
			var pidfile = loadConfig().Daemon.PIDFile

			if _, err := os.Stat(pidfile); err != nil {
				qwm(exitCodeSuccess, "portguard is not running!")
			}

			pid, err := readPID(pidfile)
			if err != nil {
				qwe(127, err, "failed to read pidfile")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				qwe(127, err, "failed to find process id -- is portguard running?")
			}

			if err := process.Signal(syscall.Signal(0)); err != nil {
				if err := os.Remove(pidfile); err != nil {
					qwe(127, err, "failed to remove pidfile")
				}

				qwm(127, "portguard is not running!")
			}

			qwm(exitCodeSuccess, "Running with PID: "+strconv.Itoa(pid))
		},
	}

	return statusCmd
}

func readPID(pidfile string) (int, error) {
	data, err := os.ReadFile(pidfile)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(string(data)))
}
