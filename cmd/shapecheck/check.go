package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/malphas-lang/shapecheck/internal/checker"
	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/suite"
)

const checkLongDescription = `Run one or more YAML check suites.

Each suite declares named types and a list of checks. A check states what
it exercises (assignable, normalize, utility, exhaustive, narrow, typeof
or function) and the result it expects. The command prints a table per
suite and exits non-zero when any check fails.`

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <suite.yaml>...",
		Short: "Run check suites",
		Long:  checkLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	configureCheckFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func configureCheckFlags(cmd *cobra.Command) {
	cmd.Flags().IntP(parallelFlagName, "p", defaultParallel, "number of checks to run in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().Int(maxDepthFlagName, checker.DefaultMaxDepth, "recursion bound before TYPE_TOO_COMPLEX")
	bindFlagToConfig(cmd.Flags().Lookup(maxDepthFlagName), maxDepthConfigKey)

	cmd.Flags().Bool(strictNullChecksFlagName, defaultStrictNullChecks, "keep null and undefined out of types that do not name them")
	bindFlagToConfig(cmd.Flags().Lookup(strictNullChecksFlagName), strictNullChecksConfigKey)

	cmd.Flags().Int64(timeoutFlagName, int64(defaultTimeout.Seconds()), "seconds allowed per suite, 0 for no limit")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), timeoutConfigKey)
}

func runSuites(ctx context.Context, out io.Writer, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := globalLogger
	if logger == nil {
		logger = slog.Default()
	}

	runner := &suite.Runner{
		Options:  checkerOptions(),
		Parallel: viper.GetInt(parallelConfigKey),
		Logger:   logger,
	}

	var total suite.Summary
	for _, path := range paths {
		s, err := suite.LoadFile(path)
		if err != nil {
			return err
		}

		results, err := runSuite(ctx, runner, s)
		if err != nil {
			logger.Warn("suite interrupted", "suite", path, "error", err)
		}

		fmt.Fprintln(out, path)
		renderResults(out, results)
		logFailures(logger, path, results)

		sum := suite.Summarize(results)
		total.Passed += sum.Passed
		total.Failed += sum.Failed
		total.Skipped += sum.Skipped
	}

	fmt.Fprintln(out, summaryLine(total))
	if !total.OK() {
		return fmt.Errorf("%d failed, %d skipped", total.Failed, total.Skipped)
	}
	return nil
}

func runSuite(ctx context.Context, runner *suite.Runner, s *suite.Suite) ([]suite.Result, error) {
	if timeout := checkTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return runner.Run(ctx, s)
}

func renderResults(out io.Writer, results []suite.Result) {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Check", "Kind", "Status", "Got", "Want"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})

	for _, res := range results {
		table.Append([]string{res.Name, string(res.Kind), status(res), res.Got, res.Want})
	}

	sum := suite.Summarize(results)
	table.SetFooter([]string{
		"", "", strconv.Itoa(sum.Passed) + "/" + strconv.Itoa(len(results)), "", "",
	})
	table.Render()

	fmt.Fprint(out, tableBuffer.String())
	formatter := diag.NewFormatter(out).Indent("    ")
	for _, res := range results {
		if res.Passed || res.Skipped {
			continue
		}
		for _, f := range res.Failures {
			fmt.Fprintf(out, "  %s (line %d): %s\n", res.Name, res.Line, f)
		}
		formatter.FormatAll(res.Diagnostics)
	}
}

func status(res suite.Result) string {
	switch {
	case res.Skipped:
		return "SKIP"
	case res.Passed:
		return "PASS"
	default:
		return "FAIL"
	}
}

func summaryLine(sum suite.Summary) string {
	parts := []string{passStyle.Render(fmt.Sprintf("%d passed", sum.Passed))}
	if sum.Failed > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d failed", sum.Failed)))
	}
	if sum.Skipped > 0 {
		parts = append(parts, skipStyle.Render(fmt.Sprintf("%d skipped", sum.Skipped)))
	}
	return strings.Join(parts, ", ")
}

// logFailures dumps the diagnostics of failed checks at debug level.
func logFailures(logger *slog.Logger, path string, results []suite.Result) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, res := range results {
		if res.Passed || res.Skipped {
			continue
		}
		logger.Debug("check failed",
			"suite", path,
			"check", res.Name,
			"failures", res.Failures,
			"diagnostics", spew.Sdump(res.Diagnostics))
	}
}
