package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kristopherlb/shinobi/internal/manifest"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                       `json:"valid" yaml:"valid"`
	Components int                        `json:"components,omitempty" yaml:"components,omitempty"`
	Issues     []manifest.ValidationIssue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a manifest without synthesizing",
		Long: `Validate a service manifest against the manifest schema and check
its structure: unique component names and well-formed bind directives.

Bind targets are not resolved; that happens during synthesis.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	vr, err := manifest.ValidateFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeManifest, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot validate manifest", err)
	}
	if !vr.Valid {
		return outputValidationIssues(formatter, vr.Issues)
	}

	m, err := manifest.Load(path)
	if err != nil {
		return outputValidationIssues(formatter, []manifest.ValidationIssue{{Path: "/", Message: err.Error(), Keyword: "structure"}})
	}
	formatter.VerboseLog("Validated %s", path)

	if formatter.Structured() {
		return formatter.Success(ValidationResult{Valid: true, Components: len(m.Components)})
	}
	fmt.Fprintf(formatter.Writer, "✓ Manifest valid (%d components)\n", len(m.Components))
	return nil
}

func outputValidationIssues(formatter *OutputFormatter, issues []manifest.ValidationIssue) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))

	if formatter.Structured() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Issues: issues},
			Error:  &CLIError{Code: ErrCodeManifest, Message: issues[0].Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Path, issue.Message)
	}
	return failure
}
