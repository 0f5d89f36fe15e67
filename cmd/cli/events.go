package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/pkg/reporter"
)

func initEventsCommand() *cobra.Command {
	eventsCMD := &cobra.Command{
		Use:   "events",
		Short: "Inspect recorded port events",
	}

	listCMD := &cobra.Command{
		Use:   "list",
		Short: "List recorded port events, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			db := openStore(loadConfig())
			defer db.Close()

			offset, _ := cmd.Flags().GetInt("offset")
			limit, _ := cmd.Flags().GetInt("limit")
			process, _ := cmd.Flags().GetString("process")

			var (
				events []domain.PortEvent
				err    error
			)

			if process != "" {
				events, err = db.ListPortEventsByProcess(context.Background(), process)
			} else {
				events, err = db.ListPortEvents(context.Background(), offset, limit)
			}

			if err != nil {
				qwe(exitCodeError, err, "failed to list events")
			}

			reporter.PrintEvents(events)
		},
	}

	listCMD.Flags().Int("offset", 0, "number of events to skip")
	listCMD.Flags().Int("limit", 50, "maximum number of events (0 lists all)")
	listCMD.Flags().String("process", "", "only list events of this process name")

	eventsCMD.AddCommand(listCMD)
	return eventsCMD
}
