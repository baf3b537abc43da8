package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleancurrents/annotation-worker/pkg/journal"
)

var journalDataDir string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the local run journal",
	Long: `Journal reads the run journal a worker leaves on its boot disk.
Attach the disk (or a snapshot of it) to another machine to reconstruct
what a dead worker did.`,
}

func init() {
	journalCmd.PersistentFlags().StringVar(&journalDataDir, "data-dir",
		"/var/lib/annotation-worker", "Directory holding the run journal")
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := journal.NewBoltStore(journalDataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tINSTANCE\tSTATE\tEXIT\tSTARTED")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				run.ID, run.Identity.Instance, run.State, run.ExitCode,
				run.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one run's transitions and stage outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := journal.NewBoltStore(journalDataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Run:      %s\n", run.ID)
		fmt.Printf("Instance: %s\n", run.Identity)
		fmt.Printf("State:    %s (exit %d)\n", run.State, run.ExitCode)
		if run.Error != "" {
			fmt.Printf("Error:    %s\n", run.Error)
		}
		fmt.Println()

		trs, err := store.ListTransitions(run.ID)
		if err != nil {
			return err
		}
		fmt.Println("Transitions:")
		for _, tr := range trs {
			fmt.Printf("  %s  %s -> %s\n", tr.At.Format("15:04:05"), tr.From, tr.To)
		}

		stages, err := store.ListStages(run.ID)
		if err != nil {
			return err
		}
		if len(stages) > 0 {
			fmt.Println()
			fmt.Println("Stages:")
			for _, sr := range stages {
				status := "ok"
				if !sr.Succeeded {
					status = "failed: " + sr.Error
				}
				fmt.Printf("  %d. %s (%s) %s\n", sr.Index, sr.Name, sr.Duration, status)
			}
		}
		return nil
	},
}
