package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/woodgear/fmove/internal/backup"
	"github.com/woodgear/fmove/internal/config"
	"github.com/woodgear/fmove/internal/fs"
	"github.com/woodgear/fmove/internal/preview"
	"github.com/woodgear/fmove/internal/prompt"
)

var (
	flagYes  bool
	flagDays int
)

// backupCmd groups the backup subcommands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, restore and purge backups",
	Long: `Backups are full copies of a source directory stored below
FMOVE_BACKUP_ROOT (default ~/.fmove/backups), one directory per backup.`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [source]",
	Short: "Back up a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id> [destination]",
	Short: "Restore a backup",
	Long: `Copy the files of a backup back into a directory.

The destination defaults to the directory the backup was taken from.
Files with the same relative path are overwritten.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runBackupRestore,
}

var backupPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete backups older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runBackupPurge,
}

func init() {
	backupRestoreCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Restore without asking")
	backupPurgeCmd.Flags().IntVar(&flagDays, "days", -1, "Retention in days (default FMOVE_RETENTION_DAYS)")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupPurgeCmd)
}

func newBackupService(cmd *cobra.Command) (*backup.Service, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return backup.NewService(cfg.BackupRoot, newLogger(cmd, cfg)), cfg, nil
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	svc, cfg, err := newBackupService(cmd)
	if err != nil {
		return err
	}

	source := cfg.SourceDir
	if len(args) > 0 {
		source = args[0]
	}
	if source == "" {
		if source, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	if source, err = fs.ExpandPath(source); err != nil {
		return err
	}

	id, err := svc.CreateBackup(source)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[SUCCESS] Backup created: %s\n", id)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	svc, _, err := newBackupService(cmd)
	if err != nil {
		return err
	}

	manifests, err := svc.ListBackups()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(manifests) == 0 {
		fmt.Fprintf(out, "[INFO] No backups in %s\n", svc.Root())
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tFILES\tSIZE\tSOURCE")
	for _, m := range manifests {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", m.ID, m.CreatedAt, m.FileCount, preview.FormatSize(uint64(m.TotalSizeBytes)), m.SourcePath)
	}
	return tw.Flush()
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	svc, _, err := newBackupService(cmd)
	if err != nil {
		return err
	}

	m, err := svc.Manifest(args[0])
	if err != nil {
		return err
	}

	dest := m.SourcePath
	if len(args) > 1 {
		if dest, err = fs.ExpandPath(args[1]); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if !flagYes {
		p := prompt.New(cmd.InOrStdin(), out)
		ok, err := prompt.Confirm(p, fmt.Sprintf("Restore %d file(s) into %s, overwriting existing ones?", m.FileCount, dest), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "[INFO] Restore cancelled")
			return nil
		}
	}

	count, err := svc.RestoreBackup(m.ID, dest)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "[SUCCESS] Restored %d of %d file(s) into %s\n", count, m.FileCount, dest)
	return nil
}

func runBackupPurge(cmd *cobra.Command, args []string) error {
	svc, cfg, err := newBackupService(cmd)
	if err != nil {
		return err
	}

	days := flagDays
	if days < 0 {
		days = cfg.RetentionDays
	}

	removed, err := svc.PurgeOlderThan(days)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[SUCCESS] Removed %d backup(s) older than %d day(s)\n", removed, days)
	return nil
}
