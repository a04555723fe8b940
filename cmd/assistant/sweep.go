package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:       "sweep <reminders|overdue|digest>",
	Short:     "Run one scheduler sweep now and exit",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"reminders", "overdue", "digest"},
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cfg, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		switch args[0] {
		case "reminders":
			n, err := rt.sweeper.DueReminders(ctx)
			fmt.Fprintf(out, "%d recordatorios enviados\n", n)
			return err
		case "overdue":
			n, err := rt.sweeper.Overdue(ctx)
			fmt.Fprintf(out, "%d tareas vencidas\n", n)
			return err
		default:
			n, err := rt.sweeper.Digest(ctx)
			fmt.Fprintf(out, "%d resúmenes enviados\n", n)
			return err
		}
	},
}
