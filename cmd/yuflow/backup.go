package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tgienger/yuflow/internal/backup"
)

type backupFunc func(ctx context.Context, w io.Writer, e *env, m *backup.Manager, args []string) error

// withBackups loads the config and hands fn the backup manager
func withBackups(configPath *string, fn backupFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(*configPath)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		defer e.close(ctx)
		return fn(ctx, cmd.OutOrStdout(), e, backup.NewManager(e.cfg.Backup.Dir, e.logger.Named("backup")), args)
	}
}

func newBackupCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, restore and delete backups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Snapshot every task, category, tag and setting",
		Args:  cobra.NoArgs,
		RunE:  withBackups(configPath, createBackup),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE:  withBackups(configPath, listBackups),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore <file>",
		Short: "Replace all data with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE:  withBackups(configPath, restoreBackup),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <file>",
		Short: "Delete a backup file",
		Args:  cobra.ExactArgs(1),
		RunE:  withBackups(configPath, deleteBackup),
	})

	return cmd
}

func createBackup(ctx context.Context, w io.Writer, e *env, m *backup.Manager, _ []string) error {
	store, err := e.service.Adapter(ctx)
	if err != nil {
		return err
	}
	meta, err := m.Create(ctx, store)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Created %s (%d tasks, %d categories)\n", meta.Filename, meta.TaskCount, meta.CategoryCount)
	return nil
}

func listBackups(_ context.Context, w io.Writer, _ *env, m *backup.Manager, _ []string) error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		_, err := fmt.Fprintln(w, "No backups")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCREATED\tSIZE\tTASKS\tCATEGORIES")
	for _, b := range backups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			b.Filename,
			humanize.Time(b.CreatedAt),
			humanize.Bytes(uint64(b.SizeBytes)),
			b.TaskCount,
			b.CategoryCount,
		)
	}
	return tw.Flush()
}

func restoreBackup(ctx context.Context, w io.Writer, e *env, m *backup.Manager, args []string) error {
	store, err := e.service.Adapter(ctx)
	if err != nil {
		return err
	}
	if err := m.Restore(ctx, store, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(w, "Restored %s\n", args[0])
	return nil
}

func deleteBackup(_ context.Context, w io.Writer, _ *env, m *backup.Manager, args []string) error {
	if err := m.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted %s\n", args[0])
	return nil
}
