package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Kristopherlb/shinobi/internal/binder"
)

// StrategyInfo describes one registered binding strategy.
type StrategyInfo struct {
	SourcePattern string `json:"sourcePattern" yaml:"sourcePattern"`
	Capability    string `json:"capability" yaml:"capability"`
	Strategy      string `json:"strategy" yaml:"strategy"`
}

// NewStrategiesCommand creates the strategies command.
func NewStrategiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List binding strategies",
		Long: `List the registered binding strategies, grouped by capability and
ordered from most to least specific source pattern. The first row that
matches a (source type, capability) pair is the strategy used.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return outputStrategies(formatter, binder.DefaultRegistry())
		},
	}
}

func outputStrategies(formatter *OutputFormatter, r *binder.Registry) error {
	var infos []StrategyInfo
	for _, rec := range r.Records() {
		infos = append(infos, StrategyInfo{
			SourcePattern: rec.SourcePattern,
			Capability:    rec.Capability,
			Strategy:      rec.Strategy.Name(),
		})
	}
	if formatter.Structured() {
		return formatter.Success(infos)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CAPABILITY\tSOURCE\tSTRATEGY")
	for _, s := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Capability, s.SourcePattern, s.Strategy)
	}
	return tw.Flush()
}
