package suite

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-set/v3"
	"golang.org/x/sync/errgroup"

	"github.com/malphas-lang/shapecheck/internal/checker"
	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/narrow"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// Result is the outcome of one check.
type Result struct {
	Name        string
	Kind        Kind
	Line        int
	Passed      bool
	Skipped     bool
	Got         string
	Want        string
	Failures    []string
	Diagnostics []diag.Diagnostic
	Duration    time.Duration
}

// Runner executes suites. Each check gets its own Checker, so checks run in
// parallel up to Parallel.
type Runner struct {
	Options  checker.Options
	Parallel int
	Logger   *slog.Logger
}

// Run executes every check in s. Checks not started before ctx is done are
// marked skipped and ctx's error is returned alongside the results.
func (r *Runner) Run(ctx context.Context, s *Suite) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threads := r.Parallel
	if threads <= 0 {
		threads = 1
	}
	opts := r.Options
	if s.StrictNullChecks != nil {
		opts.StrictNullChecks = *s.StrictNullChecks
	}
	opts.Logger = logger

	results := make([]Result, len(s.Checks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	for i, chk := range s.Checks {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				results[i] = Result{Name: chk.Name, Kind: chk.Kind, Line: chk.Line, Skipped: true}
				return nil
			}
			results[i] = runCheck(chk, opts)
			logger.Debug("check finished",
				"suite", s.Path, "check", chk.Name, "kind", chk.Kind,
				"passed", results[i].Passed, "duration", results[i].Duration)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Summary counts results by outcome.
type Summary struct {
	Passed, Failed, Skipped int
}

// Summarize counts the outcomes in results.
func Summarize(results []Result) Summary {
	var sum Summary
	for _, res := range results {
		switch {
		case res.Skipped:
			sum.Skipped++
		case res.Passed:
			sum.Passed++
		default:
			sum.Failed++
		}
	}
	return sum
}

// OK reports whether nothing failed or was skipped.
func (s Summary) OK() bool { return s.Failed == 0 && s.Skipped == 0 }

type outcome struct {
	res *Result
}

func (o outcome) expect(what, got, want string) {
	if got != want {
		o.res.Failures = append(o.res.Failures, fmt.Sprintf("%s: got %s, want %s", what, got, want))
	}
}

func runCheck(chk *Check, opts checker.Options) Result {
	start := time.Now()
	c := checker.New(opts)
	res := Result{Name: chk.Name, Kind: chk.Kind, Line: chk.Line}
	o := outcome{res: &res}

	switch chk.Kind {
	case KindAssignable:
		got := c.IsAssignable(chk.Source, chk.Target)
		res.Got, res.Want = strconv.FormatBool(got), strconv.FormatBool(*chk.ExpectBool)
		o.expect("assignable", res.Got, res.Want)

	case KindNormalize:
		once := c.Normalize(chk.Type)
		twice := c.Normalize(once)
		res.Got, res.Want = once.String(), chk.ExpectType
		if !types.Identical(once, twice) {
			o.res.Failures = append(o.res.Failures, fmt.Sprintf("not idempotent: %s normalizes to %s", once, twice))
		}
		if chk.ExpectType != "" {
			o.expect("normalized", res.Got, res.Want)
		}

	case KindUtility:
		out, err := c.ApplyUtility(chk.Utility, chk.Base, chk.Args...)
		switch {
		case chk.ExpectError != "":
			res.Want = chk.ExpectError
			if err == nil {
				res.Got = out.String()
				o.res.Failures = append(o.res.Failures, fmt.Sprintf("expected %s, got %s", chk.ExpectError, out))
			} else {
				res.Got = err.Error()
				if !c.Reporter.HasCode(diag.Code(chk.ExpectError)) {
					o.res.Failures = append(o.res.Failures, fmt.Sprintf("expected %s, got %v", chk.ExpectError, err))
				}
			}
		case err != nil:
			res.Got, res.Want = err.Error(), chk.ExpectType
			o.res.Failures = append(o.res.Failures, err.Error())
		default:
			res.Got, res.Want = out.String(), chk.ExpectType
			o.expect(chk.Utility, res.Got, res.Want)
		}

	case KindExhaustive:
		ex := c.CheckExhaustive(chk.Type, chk.Handled)
		res.Got = fmt.Sprintf("exhaustive=%t residual=%s", ex.Exhaustive, ex.Residual)
		var want []string
		if chk.ExpectBool != nil {
			want = append(want, "exhaustive="+strconv.FormatBool(*chk.ExpectBool))
			o.expect("exhaustive", strconv.FormatBool(ex.Exhaustive), strconv.FormatBool(*chk.ExpectBool))
		}
		if chk.Residual != nil {
			want = append(want, "residual="+*chk.Residual)
			o.expect("residual", ex.Residual.String(), *chk.Residual)
		}
		res.Want = strings.Join(want, " ")

	case KindNarrow:
		e := narrow.NewEngine(c)
		res.Got, res.Want = e.Narrow(chk.Binding, chk.Guard, chk.Branch).String(), chk.ExpectType
		o.expect(fmt.Sprintf("%s on %t branch of %s", chk.Binding.Name, chk.Branch, chk.Guard), res.Got, res.Want)

	case KindTypeof:
		e := narrow.NewEngine(c)
		scope := narrow.NewScope(nil)
		for _, b := range chk.Scope {
			scope.Insert(b)
		}
		res.Got, res.Want = e.TypeOf(scope, chk.Expr).String(), chk.ExpectType
		o.expect(chk.Expr.String(), res.Got, res.Want)

	case KindFunction:
		e := narrow.NewEngine(c)
		rep := e.CheckFunction(chk.Function)
		labels := make([]string, 0, len(chk.ExpectObserved))
		for label := range chk.ExpectObserved {
			labels = append(labels, label)
		}
		slices.Sort(labels)
		var got, want []string
		for _, label := range labels {
			t, ok := rep.Observed(label)
			g := "<not reached>"
			if ok {
				g = t.String()
			}
			got = append(got, label+"="+g)
			want = append(want, label+"="+chk.ExpectObserved[label])
			o.expect("inspect "+label, g, chk.ExpectObserved[label])
		}
		res.Got, res.Want = strings.Join(got, " "), strings.Join(want, " ")
	}

	res.Diagnostics = c.Diagnostics()
	if chk.Codes != nil {
		o.expect("codes", codeList(res.Diagnostics), strings.Join(sortedUnique(chk.Codes), ","))
	}
	res.Passed = len(res.Failures) == 0
	res.Duration = time.Since(start)
	return res
}

func codeList(ds []diag.Diagnostic) string {
	codes := set.New[string](len(ds))
	for _, d := range ds {
		codes.Insert(string(d.Code))
	}
	return strings.Join(sortedUnique(codes.Slice()), ",")
}

func sortedUnique(ss []string) []string {
	out := slices.Clone(ss)
	slices.Sort(out)
	return slices.Compact(out)
}
