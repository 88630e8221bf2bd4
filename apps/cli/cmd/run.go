package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitscript/packages/core/config"
	"github.com/abdul-hamid-achik/hitscript/packages/core/engine"
	"github.com/abdul-hamid-achik/hitscript/packages/report"
	"github.com/abdul-hamid-achik/hitscript/packages/script"
)

var runCmd = &cobra.Command{
	Use:   "run <script.js>",
	Short: "Run a test script against a captured response",
	Long: `Run a Postman-compatible test script in the sandbox.

Examples:
  hitscript run tests.js --response response.json
  hitscript run tests.js --response response.json --env staging
  hitscript run pre.js --pre-request
  hitscript run tests.js --response response.json --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

// watchDebounceDelay is the debounce delay for file watch events.
const watchDebounceDelay = 300 * time.Millisecond

var (
	runEnvFlag      string
	runResponseFlag string
	runPreFlag      bool
	runWatchFlag    bool
	runNoColorFlag  bool
)

func init() {
	runCmd.Flags().StringVar(&runEnvFlag, "env", "", "environment name from environments.yaml")
	runCmd.Flags().StringVar(&runResponseFlag, "response", "", "captured response JSON file")
	runCmd.Flags().BoolVar(&runPreFlag, "pre-request", false, "run as a pre-request script (no response bound)")
	runCmd.Flags().BoolVarP(&runWatchFlag, "watch", "w", false, "re-run when the script file changes")
	runCmd.Flags().BoolVar(&runNoColorFlag, "no-color", false, "disable colored output")
}

func runCommand(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]
	dir := filepath.Dir(scriptPath)

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if runNoColorFlag || cfg.GetNoColor() {
		color.NoColor = true
	}

	eng := engine.New(cfg)
	env, err := loadEnvironment(dir, runEnvFlag)
	if err != nil {
		return err
	}
	if env != nil {
		eng.SwitchEnvironment(env)
	}

	var store *report.Store
	if cfg.HistoryDB != "" {
		store, err = report.OpenStore(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	execute := func() error {
		result, err := runOnce(eng, scriptPath)
		if err != nil {
			return err
		}
		printResult(cmd, result)
		if store != nil && !runPreFlag {
			rec := report.NewExecutionRecord(result.Tests, 0)
			if err := store.Save(rec); err != nil {
				return fmt.Errorf("saving history: %w", err)
			}
		}
		if !result.Success {
			return fmt.Errorf("script execution failed")
		}
		for _, tr := range result.Tests {
			if !tr.Passed {
				return fmt.Errorf("tests failed")
			}
		}
		return nil
	}

	if !runWatchFlag {
		return execute()
	}
	return watchAndRun(cmd, scriptPath, execute)
}

func runOnce(eng *engine.Engine, scriptPath string) (*script.ExecutionResult, error) {
	scriptText, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}

	if runPreFlag {
		return eng.ExecutePreRequestScript(string(scriptText)), nil
	}

	if runResponseFlag == "" {
		return nil, fmt.Errorf("--response is required for test scripts (or pass --pre-request)")
	}
	resp, err := loadResponse(runResponseFlag)
	if err != nil {
		return nil, err
	}
	return eng.ExecuteTestScript(string(scriptText), resp), nil
}

func printResult(cmd *cobra.Command, result *script.ExecutionResult) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, entry := range result.Logs {
		fmt.Fprintf(out, "%s [%s] %s\n", yellow("»"), entry.Level, entry.Message)
	}

	passed, failed := 0, 0
	for _, tr := range result.Tests {
		if tr.Passed {
			passed++
			fmt.Fprintf(out, "  %s %s\n", green("✓"), tr.Name)
		} else {
			failed++
			fmt.Fprintf(out, "  %s %s: %s\n", red("✗"), tr.Name, tr.Error)
		}
	}

	for _, se := range result.Errors {
		if se.Timeout {
			fmt.Fprintf(out, "%s %s\n", red(bold("timeout:")), se.Message)
		} else {
			fmt.Fprintf(out, "%s %s\n", red(bold("error:")), se.Message)
		}
	}

	fmt.Fprintf(out, "\n%s %d passed, %d failed (%s)\n",
		bold("tests:"), passed, failed, result.Duration.Round(time.Millisecond))
}

func watchAndRun(cmd *cobra.Command, scriptPath string, execute func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(scriptPath)); err != nil {
		return fmt.Errorf("watching %s: %w", scriptPath, err)
	}

	if err := execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || filepath.Clean(event.Name) != filepath.Clean(scriptPath) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\n--- %s changed, re-running ---\n", filepath.Base(scriptPath))
				if err := execute(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
		}
	}
}
