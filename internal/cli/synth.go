package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kristopherlb/shinobi/internal/binder"
	"github.com/Kristopherlb/shinobi/internal/manifest"
	"github.com/Kristopherlb/shinobi/internal/platform"
	"github.com/Kristopherlb/shinobi/internal/resolver"
	"github.com/Kristopherlb/shinobi/internal/store"
)

// Error codes for failures outside the synthesis pipeline.
const (
	ErrCodeManifest = "MANIFEST_INVALID"
	ErrCodeConfig   = "PLATFORM_CONFIG_INVALID"
	ErrCodeStore    = "HISTORY_UNAVAILABLE"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	PlatformConfig string
	PatchesDir     string
	Database       string

	// RunIDs overrides the run ID generator (for testing).
	RunIDs resolver.RunIDGenerator
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth <manifest>",
		Short: "Synthesize a manifest",
		Long: `Synthesize a service manifest into a resource graph.

Platform defaults and environment overrides are read from --platform-config
(default: shinobi.platform.yaml in the working directory, if present) and
SHINOBI_* environment variables. Patches are read from patches.cue in
--patches-dir. With --db the run is recorded in the history database.

Example:
  shinobi synth service.yml
  shinobi synth service.yml --format yaml --db ./shinobi.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PlatformConfig, "platform-config", "", "path to platform config file")
	cmd.Flags().StringVar(&opts.PatchesDir, "patches-dir", ".", "directory containing patches.cue")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")

	return cmd
}

func runSynth(ctx context.Context, opts *SynthOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := loadManifest(path)
	if err != nil {
		_ = formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid manifest", err)
	}
	formatter.VerboseLog("Loaded %s: %d component(s)", path, len(m.Components))

	cfg, err := platform.LoadConfig(opts.PlatformConfig)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid platform config", err)
	}

	engineOpts := []resolver.Option{
		resolver.WithLogger(formatter.Logger()),
		resolver.WithPlatformConfig(cfg),
		resolver.WithPatchDir(opts.PatchesDir),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, resolver.WithRunIDGenerator(opts.RunIDs))
	}

	res, err := resolver.New(engineOpts...).Synthesize(ctx, m)
	if err != nil {
		_ = formatter.Error(string(resolver.CodeOf(err)), err.Error(), synthDetails(err))
		return WrapExitError(ExitFailure, "synthesis failed", err)
	}

	if opts.Database != "" {
		if err := record(ctx, opts.Database, path, res); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", res.RunID, opts.Database)
	}

	return outputSynthResult(formatter, res)
}

// loadManifest checks the schema first so authors see every violation,
// then parses.
func loadManifest(path string) (*manifest.Manifest, error) {
	vr, err := manifest.ValidateFile(path)
	if err != nil {
		return nil, err
	}
	if !vr.Valid {
		first := vr.Issues[0]
		return nil, fmt.Errorf("%s: %s (%d schema issue(s))", first.Path, first.Message, len(vr.Issues))
	}
	return manifest.Load(path)
}

func record(ctx context.Context, dbPath, source string, res *resolver.SynthesisResult) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.RecordRun(ctx, source, res)
}

// synthDetails exposes the diagnostic fields of a run error.
func synthDetails(err error) map[string]any {
	var re *resolver.Error
	if !errors.As(err, &re) {
		return nil
	}
	d := map[string]any{"phase": string(re.Phase)}
	if re.Component != "" {
		d["component"] = re.Component
		d["componentType"] = re.ComponentType
	}
	if re.Directive != "" {
		d["directive"] = re.Directive
	}
	var be *binder.Error
	if errors.As(err, &be) {
		if be.Selector != "" {
			d["selector"] = be.Selector
		}
		if len(be.Matches) > 0 {
			d["matches"] = be.Matches
		}
	}
	return d
}

func outputSynthResult(formatter *OutputFormatter, res *resolver.SynthesisResult) error {
	if formatter.Structured() {
		return formatter.Success(res.Report())
	}
	return resolver.Summarize(formatter.Writer, res)
}
