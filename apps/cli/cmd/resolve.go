package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/core/config"
	"github.com/abdul-hamid-achik/hitscript/packages/core/engine"
	"github.com/abdul-hamid-achik/hitscript/packages/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Interpolate {{variable}} placeholders in a file or stdin",
	Long: `Resolve {{variable}} placeholders against an environment and the
dynamic variables (timestamp, uuid, random, ...).

Examples:
  hitscript resolve request.txt --env dev
  echo '{{uuid}}' | hitscript resolve
  hitscript resolve request.txt --keep-unresolved`,
	Args: cobra.MaximumNArgs(1),
	RunE: resolveCommand,
}

var (
	resolveEnvFlag  string
	resolveKeepFlag bool
)

func init() {
	resolveCmd.Flags().StringVar(&resolveEnvFlag, "env", "", "environment name from environments.yaml")
	resolveCmd.Flags().BoolVar(&resolveKeepFlag, "keep-unresolved", false, "leave unresolved placeholders verbatim")
}

func resolveCommand(cmd *cobra.Command, args []string) error {
	var (
		input []byte
		dir   = "."
		err   error
	)
	if len(args) == 1 {
		input, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		dir = filepath.Dir(args[0])
	} else {
		input, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	eng := engine.New(cfg)

	env, err := loadEnvironment(dir, resolveEnvFlag)
	if err != nil {
		return err
	}
	if env != nil {
		eng.SwitchEnvironment(env)
	}

	result := eng.ResolveVariables(string(input), &resolve.Options{
		KeepUnresolved: resolveKeepFlag || cfg.GetKeepUnresolved(),
		MaxDepth:       cfg.MaxResolveDepth,
	})

	fmt.Fprint(cmd.OutOrStdout(), result.Resolved)

	if len(result.Unresolved) > 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, name := range result.Unresolved {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s unresolved variable: %s\n", yellow("warning:"), name)
		}
	}
	return nil
}
