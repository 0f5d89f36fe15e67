package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kondukto-io/portguard/internal/repository/store"
)

func initDBCommand() *cobra.Command {
	dbCMD := &cobra.Command{
		Use:   "db",
		Short: "Maintain the portguard database",
	}

	dbCMD.AddCommand(
		dbCommand("backup <path>", "Write a copy of the database", cobra.ExactArgs(1), func(ctx context.Context, db *store.SQLiteAdapter, args []string) (string, error) {
			return "database backed up to " + args[0], db.Backup(ctx, args[0])
		}),
		dbCommand("restore <path>", "Replace the database content with a backup", cobra.ExactArgs(1), func(ctx context.Context, db *store.SQLiteAdapter, args []string) (string, error) {
			return "database restored from " + args[0], db.Restore(ctx, args[0])
		}),
		dbCommand("optimize", "Compact and analyze the database", cobra.NoArgs, func(ctx context.Context, db *store.SQLiteAdapter, _ []string) (string, error) {
			return "database optimized", db.Optimize(ctx)
		}),
		dbCommand("size", "Print the database size", cobra.NoArgs, func(ctx context.Context, db *store.SQLiteAdapter, _ []string) (string, error) {
			size, err := db.Size(ctx)
			return fmt.Sprintf("database size: %d bytes", size), err
		}),
	)

	return dbCMD
}

func dbCommand(use, short string, args cobra.PositionalArgs, fn func(ctx context.Context, db *store.SQLiteAdapter, args []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		Run: func(cmd *cobra.Command, args []string) {
			db := openStore(loadConfig())
			defer db.Close()

			message, err := fn(context.Background(), db, args)
			if err != nil {
				qwe(exitCodeError, err, "failed to "+cmd.Name()+" database")
			}

			fmt.Println(message)
		},
	}
}
