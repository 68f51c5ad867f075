package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/rank"
	"github.com/matzehuels/stratum/pkg/spline"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for stratum. Besides commands and
flags, the scripts complete option values such as --rankdir and --splines.

Bash:
  $ source <(stratum completion bash)

Zsh:
  $ stratum completion zsh > "${fpath[1]}/_stratum"

Fish:
  $ stratum completion fish > ~/.config/fish/completions/stratum.fish

PowerShell:
  PS> stratum completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(c.stdout, true)
			case "zsh":
				return root.GenZshCompletion(c.stdout)
			case "fish":
				return root.GenFishCompletion(c.stdout, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(c.stdout)
			}
			return nil
		},
	}
}

// registerLayoutCompletions completes the enumerated layout flags.
func registerLayoutCompletions(cmd *cobra.Command) {
	values := map[string][]string{
		"engine":       layout.Engines(),
		"rankdir":      {string(position.RankDirTB), string(position.RankDirLR), string(position.RankDirBT), string(position.RankDirRL)},
		"ranking":      {string(rank.ModeSimplex), string(rank.ModeLongestPath)},
		"positioning":  {string(position.StrategySimplex), string(position.StrategyPriority)},
		"splines":      {string(spline.ModeSpline), string(spline.ModePolyline), string(spline.ModeLine), string(spline.ModeNone)},
		"format":       {"json", "dot", "svg"},
		"input-format": {"json", "dot"},
	}
	for name, vals := range values {
		_ = cmd.RegisterFlagCompletionFunc(name, fixedCompletion(vals...))
	}
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
