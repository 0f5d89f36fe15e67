package cli

import (
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kondukto-io/portguard/internal/handlers/monitor"
	"github.com/kondukto-io/portguard/pkg/logger"
)

func initStartCommand() *cobra.Command {
	startCMD := &cobra.Command{
		Use:   "start",
		Short: "Start portguard",
		Run: func(cmd *cobra.Command, args []string) {
			var cfg = loadConfig()
			if err := logger.SetFormat(cfg.Daemon.LogFormat); err != nil {
				qwe(exitCodeError, err)
			}

			daemonMode, _ := cmd.Flags().GetBool("daemonize")
			if daemonMode {
				if err := daemonize(cfg.Daemon.PIDFile, os.Args[1:]); err != nil {
					qwe(exitCodeError, err, "failed to daemonize")
				}
				return
			}

			if err := monitor.Run(cfg); err != nil {
				qwe(exitCodeError, err, "failed to run portguard")
			}
		},
	}

	startCMD.Flags().Bool("daemonize", false, "daemonize process")
	startCMD.Flags().String("listen", "", "operator api listen address (empty string disables it)")
	startCMD.Flags().String("backend", "", "firewall backend: iptables || netsh || memory")
	startCMD.Flags().String("db", "", "database path")
	startCMD.Flags().StringP("output-file-name", "o", "", "event report file name")

	bindFlag(startCMD, "daemon.listen_address", "listen")
	bindFlag(startCMD, "daemon.firewall_backend", "backend")
	bindFlag(startCMD, "daemon.database_path", "db")
	bindFlag(startCMD, "daemon.report_file", "output-file-name")

	return startCMD
}

// bindFlag lets a flag override the config key when it is set on the command line
func bindFlag(cmd *cobra.Command, key, name string) {
	_ = viper.BindPFlag(key, cmd.Flags().Lookup(name))
}

func daemonize(pidfile string, args []string) error {
	if _, err := os.Stat(pidfile); err == nil {
		qwm(1, "Already running or pidfile exist.")
		return err
	}

	filteredArgs := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--daemonize" {
			continue
		}
		filteredArgs = append(filteredArgs, args[i])
	}

	cmd := exec.Command(os.Args[0], filteredArgs...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	savePID(pidfile, cmd.Process.Pid)
	qwm(exitCodeSuccess, "Process started with PID: "+strconv.Itoa(cmd.Process.Pid))

	return nil
}

func savePID(pidfile string, pid int) {
	file, err := os.Create(pidfile)
	if err != nil {
		qwe(exitCodeError, err, "Unable to write pid file")
	}
	defer file.Close()

	_, err = file.WriteString(strconv.Itoa(pid))
	if err != nil {
		qwe(exitCodeError, err, "Unable to write pid file")
	}

	file.Sync()
}
