// Package cli provides the command-line interface for fmove
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/woodgear/fmove/internal/apply"
	"github.com/woodgear/fmove/internal/backup"
	"github.com/woodgear/fmove/internal/check"
	"github.com/woodgear/fmove/internal/config"
	"github.com/woodgear/fmove/internal/fs"
	"github.com/woodgear/fmove/internal/listing"
	"github.com/woodgear/fmove/internal/logging"
	"github.com/woodgear/fmove/internal/plan"
	"github.com/woodgear/fmove/internal/preview"
	"github.com/woodgear/fmove/internal/prompt"
	"github.com/woodgear/fmove/internal/selector"
	"github.com/woodgear/fmove/internal/session"
	"github.com/woodgear/fmove/pkg/types"
)

const defaultPlanFile = "./fmove-plan.json"

var (
	// Version is set at build time
	Version = "1.0.0"

	// ErrCheckFailed is returned when a plan no longer matches the filesystem
	ErrCheckFailed = errors.New("plan check found problems")

	// Global flags
	flagVerbose bool
	flagDryRun  bool
	flagBackup  bool

	// Run/plan flags
	flagCopy      bool
	flagMode      string
	flagUmlauts   bool
	flagNoSpaces  bool
	flagNoSpecial bool
	flagSelect    string
	flagExclude   []string
	flagNoPreview bool
	flagOutput    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fmove",
	Short: "fmove - select, rename and move files",
	Long: `fmove moves or copies a selection of files from a source directory
into a destination directory. File names can be normalized on the way
(umlauts, spaces, special characters) and every run can be previewed
and backed up before anything is touched.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runCmd represents the interactive run command
var runCmd = &cobra.Command{
	Use:   "run [source] [destination]",
	Short: "Select, preview and apply in one session",
	Long: `List the files of the source directory, ask which ones to take,
preview the result and move or copy them into the destination.

Selection syntax:
  1,3,4    individual files
  2-5      an inclusive range
  *.pdf    a wildcard pattern (case-insensitive)
  all      every file ("alle" works too)
  q        quit without changes

Directories not given as arguments are taken from FMOVE_SOURCE_DIR and
FMOVE_DEST_DIR or asked for.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runRun,
}

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan [source] [destination]",
	Short: "Generate execution plan",
	Long: `Generate an execution plan without touching any file.

The selection defaults to all files; use --select to narrow it.
The plan is written to ./fmove-plan.json unless --output is given.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runPlan,
}

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply [plan-file]",
	Short: "Apply execution plan",
	Long: `Apply an execution plan written by 'plan'.

If no plan file is specified, uses ./fmove-plan.json by default.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [plan-file]",
	Short: "Check a plan against the filesystem",
	Long: `Check whether a plan can still be applied as written.

Reports for every entry:
  - OK              the file will be stored under its planned name
  - SOURCE_MISSING  the source file is gone
  - COLLISION       the name is taken and a suffix will be added
  - SAME_PATH       the file is already in place

If no plan file is specified, uses ./fmove-plan.json by default.

Exit codes:
  0 - All entries OK
  1 - Some entries need attention`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDryRun, "dry-run", "d", false, "Show what would be done without executing")
	rootCmd.PersistentFlags().BoolVarP(&flagBackup, "backup", "b", false, "Back up the source directory before changing it")

	// Selection and naming flags
	for _, cmd := range []*cobra.Command{runCmd, planCmd} {
		cmd.Flags().BoolVar(&flagCopy, "copy", false, "Copy instead of move")
		cmd.Flags().StringVar(&flagMode, "mode", "", "Transfer mode: move or copy (overrides FMOVE_MODE)")
		cmd.Flags().BoolVar(&flagUmlauts, "umlauts", false, "Replace umlauts (ä -> ae, ß -> ss)")
		cmd.Flags().BoolVar(&flagNoSpaces, "no-spaces", false, "Replace spaces with underscores")
		cmd.Flags().BoolVar(&flagNoSpecial, "no-special", false, "Remove characters other than letters, digits, '.', '_' and '-'")
		cmd.Flags().StringVarP(&flagSelect, "select", "s", "", "Selection expression, skips the interactive questions")
		cmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "Glob patterns of files to leave out of the listing")
	}

	// Run-specific flags
	runCmd.Flags().BoolVar(&flagNoPreview, "no-preview", false, "Apply without showing the preview")

	// Plan-specific flags
	planCmd.Flags().StringVarP(&flagOutput, "output", "o", defaultPlanFile, "Output plan file")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fmove v%s\n", Version)
		},
	})
}

// Execute runs the CLI
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

// IsCancel reports whether err ends a run without being a failure
func IsCancel(err error) bool {
	return errors.Is(err, session.ErrCancelled) || errors.Is(err, session.ErrAborted)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()
	in := prompt.New(cmd.InOrStdin(), out)
	interactive := flagSelect == ""

	opts, err := buildRunOptions(args, cfg, in, interactive)
	if err != nil {
		return err
	}

	deps := session.Deps{
		Prompt: in,
		Out:    out,
		Log:    log,
		Apply:  types.ApplyOptions{DryRun: flagDryRun},
	}

	var svc *backup.Service
	if opts.Backup {
		svc = backup.NewService(cfg.BackupRoot, log)
		deps.Backup = svc
	}
	if opts.Preview {
		deps.Preview = preview.NewPreviewer(in, out, cfg.PreviewTop)
	}

	bar := newProgress(cmd)
	deps.Apply.OnProgress = bar.update

	res, err := session.New(deps).Run(opts)
	bar.finish()
	if err != nil {
		if IsCancel(err) {
			fmt.Fprintf(out, "[INFO] %v, nothing was changed\n", err)
		}
		return err
	}

	printSummary(out, res.Summary, flagDryRun)
	if res.BackupID != "" {
		fmt.Fprintf(out, "[INFO] Backup: %s (restore with 'fmove backup restore %s')\n", res.BackupID, res.BackupID)
		purgeExpired(svc, cfg.RetentionDays, log)
	}

	return nil
}

// buildRunOptions merges arguments, flags, the source profile and the
// environment. Flags win over the profile, which wins over the environment.
func buildRunOptions(args []string, cfg *config.Config, p prompt.Prompter, interactive bool) (types.RunOptions, error) {
	source, dest, err := resolveDirs(args, cfg, p, interactive)
	if err != nil {
		return types.RunOptions{}, err
	}

	profile, err := config.NewLoader().Load(source)
	if err != nil {
		return types.RunOptions{}, err
	}

	mode, err := resolveMode(profile, cfg)
	if err != nil {
		return types.RunOptions{}, err
	}

	rules, err := resolveRules(profile, p, interactive)
	if err != nil {
		return types.RunOptions{}, err
	}

	return types.RunOptions{
		SourceDir:      source,
		DestinationDir: dest,
		Rules:          rules,
		Mode:           mode,
		Preview:        !flagNoPreview && interactive,
		Backup:         flagBackup,
		Selection:      flagSelect,
		Exclude:        append(append([]string(nil), profile.Exclude...), flagExclude...),
	}, nil
}

func resolveDirs(args []string, cfg *config.Config, p prompt.Prompter, interactive bool) (string, string, error) {
	source := cfg.SourceDir
	if len(args) > 0 {
		source = args[0]
	}
	if source == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("failed to get working directory: %w", err)
		}
		source = cwd
		if interactive {
			if source, err = prompt.AskDefault(p, "Source directory: ", cwd); err != nil {
				return "", "", err
			}
		}
	}

	source, err := fs.ExpandPath(source)
	if err != nil {
		return "", "", err
	}
	if !fs.DirExists(source) {
		return "", "", fmt.Errorf("%w: %s", apply.ErrSourceMissing, source)
	}

	dest := cfg.DestinationDir
	if len(args) > 1 {
		dest = args[1]
	}
	if dest == "" && !interactive {
		return "", "", errors.New("no destination directory given (argument or FMOVE_DEST_DIR)")
	}

	for {
		if dest == "" {
			if dest, err = p.Ask("Destination directory: "); err != nil {
				return "", "", err
			}
			if dest == "" {
				continue
			}
		}

		expanded, err := fs.ExpandPath(dest)
		if err != nil {
			return "", "", err
		}
		if !interactive || fs.DirExists(expanded) {
			return source, expanded, nil
		}

		ok, err := prompt.Confirm(p, fmt.Sprintf("%s does not exist, create it?", expanded), true)
		if err != nil {
			return "", "", err
		}
		if ok {
			return source, expanded, nil
		}
		dest = ""
	}
}

func resolveMode(profile *types.Profile, cfg *config.Config) (types.Mode, error) {
	switch {
	case flagCopy:
		return types.ModeCopy, nil
	case flagMode != "":
		mode := types.Mode(strings.ToLower(flagMode))
		if !mode.Valid() {
			return "", fmt.Errorf("--mode must be %q or %q, got %q", types.ModeMove, types.ModeCopy, flagMode)
		}
		return mode, nil
	case profile.Mode != "":
		return profile.Mode, nil
	default:
		return cfg.Mode, nil
	}
}

// resolveRules picks the cleaning rules. Without flags or a profile an
// interactive run asks; a scripted one leaves names alone.
func resolveRules(profile *types.Profile, p prompt.Prompter, interactive bool) (types.CleaningRules, error) {
	if flagUmlauts || flagNoSpaces || flagNoSpecial {
		return types.CleaningRules{
			Enabled:            true,
			ReplaceUmlauts:     flagUmlauts,
			RemoveSpaces:       flagNoSpaces,
			RemoveSpecialChars: flagNoSpecial,
		}, nil
	}
	if profile.Cleaning != nil {
		return *profile.Cleaning, nil
	}
	if !interactive {
		return types.CleaningRules{}, nil
	}

	var rules types.CleaningRules
	var err error
	if rules.Enabled, err = prompt.Confirm(p, "Clean file names?", false); err != nil || !rules.Enabled {
		return rules, err
	}
	if rules.ReplaceUmlauts, err = prompt.Confirm(p, "Replace umlauts?", true); err != nil {
		return rules, err
	}
	if rules.RemoveSpaces, err = prompt.Confirm(p, "Replace spaces with underscores?", true); err != nil {
		return rules, err
	}
	if rules.RemoveSpecialChars, err = prompt.Confirm(p, "Remove special characters?", true); err != nil {
		return rules, err
	}
	return rules, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	source, dest, err := resolveDirs(args, cfg, nil, false)
	if err != nil {
		return err
	}

	profile, err := config.NewLoader().Load(source)
	if err != nil {
		return err
	}
	mode, err := resolveMode(profile, cfg)
	if err != nil {
		return err
	}
	rules, err := resolveRules(profile, nil, false)
	if err != nil {
		return err
	}

	files, err := listing.NewScanner(append(append([]string(nil), profile.Exclude...), flagExclude...)).Scan(source)
	if err != nil {
		return err
	}

	expr := flagSelect
	if expr == "" {
		expr = "all"
	}
	sel, err := selector.Select(files, expr)
	if err != nil {
		return err
	}
	if sel.Cancelled {
		return session.ErrCancelled
	}
	if sel.Empty() {
		return fmt.Errorf("%w: %q", session.ErrNoMatch, expr)
	}

	p := plan.NewBuilder(rules).Build(source, dest, mode, sel.Files)
	if err := plan.WritePlan(flagOutput, p); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	log.Log(fmt.Sprintf("plan with %d entries written to %s", len(p.Entries), flagOutput), logging.Info)

	fmt.Fprintf(out, "[SUCCESS] Plan generated: %s\n", flagOutput)
	fmt.Fprintf(out, "  Total files: %d\n", len(p.Entries))
	fmt.Fprintf(out, "  Renamed: %d\n", p.ChangedCount())
	fmt.Fprintf(out, "  Warnings: %d\n", p.WarningCount())

	if flagVerbose {
		fmt.Fprintln(out, "\n[INFO] Plan preview:")
		fmt.Fprintln(out, preview.Render(p, check.NewChecker().CheckPlan(p)))
	}

	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	planFile := defaultPlanFile
	if len(args) > 0 {
		planFile = args[0]
	}

	// Check if plan file exists
	if !fs.Exists(planFile) {
		return fmt.Errorf("plan file not found: %s", planFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	p, err := plan.ReadPlan(planFile)
	if err != nil {
		return err
	}

	if flagBackup && !flagDryRun {
		svc := backup.NewService(cfg.BackupRoot, log)
		id, err := svc.CreateBackup(p.SourceDir)
		if err != nil {
			return fmt.Errorf("backup failed, nothing was changed: %w", err)
		}
		fmt.Fprintf(out, "[INFO] Backup: %s\n", id)
		defer purgeExpired(svc, cfg.RetentionDays, log)
	}

	bar := newProgress(cmd)
	applier := apply.NewApplier(log, types.ApplyOptions{DryRun: flagDryRun, OnProgress: bar.update})
	summary, err := applier.Apply(p)
	bar.finish()
	if err != nil {
		return err
	}

	printSummary(out, summary, flagDryRun)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	planFile := defaultPlanFile
	if len(args) > 0 {
		planFile = args[0]
	}

	// Check if plan file exists
	if !fs.Exists(planFile) {
		return fmt.Errorf("plan file not found: %s", planFile)
	}

	p, err := plan.ReadPlan(planFile)
	if err != nil {
		return fmt.Errorf("failed to check plan: %w", err)
	}

	report := check.NewChecker().CheckPlan(p)
	check.PrintReport(cmd.OutOrStdout(), report)

	if flagVerbose {
		fmt.Fprintf(cmd.OutOrStdout(), "[INFO] %d entries, %d ok\n", report.Total, report.ByStatus[types.EntryOK])
	}

	// Exit code based on result
	if !report.AllOK {
		return ErrCheckFailed
	}

	return nil
}
