package suite_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malphas-lang/shapecheck/internal/checker"
	"github.com/malphas-lang/shapecheck/internal/suite"
)

func runner() *suite.Runner {
	return &suite.Runner{
		Options:  checker.DefaultOptions(),
		Parallel: 4,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestLoadAndRunBasic(t *testing.T) {
	s, err := suite.LoadFile("testdata/basic.yaml")
	require.NoError(t, err)
	assert.Equal(t, "testdata/basic.yaml", s.Path)
	require.NotNil(t, s.StrictNullChecks)
	assert.True(t, *s.StrictNullChecks)
	assert.Equal(t, 3, s.Arena.Len())

	results, err := runner().Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, results, len(s.Checks))

	for _, res := range results {
		assert.True(t, res.Passed, "%s (line %d): %v", res.Name, res.Line, res.Failures)
		assert.Positive(t, res.Line)
	}
	sum := suite.Summarize(results)
	assert.Equal(t, len(results), sum.Passed)
	assert.True(t, sum.OK())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := suite.LoadFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, suite.ErrInvalidSuite)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "checks: [\n"},
		{"unknown kind", "checks:\n  - kind: frobnicate\n"},
		{"undefined type", "checks:\n  - kind: normalize\n    type: Missing\n"},
		{"assignable without expectation", "checks:\n  - kind: assignable\n    source: string\n    target: string\n"},
		{"unknown operator", "checks:\n  - kind: typeof\n    expr: { \"<<\": [x, y] }\n"},
		{"bad type key", "checks:\n  - kind: normalize\n    type: { mystery: string }\n"},
		{"self alias", "types:\n  A: A\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := suite.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, suite.ErrInvalidSuite), "got %v", err)
		})
	}
}

func TestParseDefaults(t *testing.T) {
	s, err := suite.Parse([]byte(`
checks:
  - kind: normalize
    type: { union: [string, string] }
    expect: string
  - kind: narrow
    binding: { name: x, type: '"a"', policy: const }
    guard: x
    expect: '"a"'
`))
	require.NoError(t, err)
	require.Len(t, s.Checks, 2)

	assert.Nil(t, s.StrictNullChecks)
	assert.Equal(t, "normalize#1", s.Checks[0].Name)
	assert.Equal(t, suite.KindNarrow, s.Checks[1].Kind)
	assert.True(t, s.Checks[1].Branch, "branch defaults to true")
	assert.Equal(t, `"a"`, s.Checks[1].Binding.Declared.String())
}

func TestRunReportsFailures(t *testing.T) {
	s, err := suite.Parse([]byte(`
options:
  strict_null_checks: false
checks:
  - name: null into string
    kind: assignable
    source: "null"
    target: string
    expect: true
  - name: wrong expectation
    kind: normalize
    type: { union: [string, number] }
    expect: string
  - name: wrong codes
    kind: utility
    utility: Partial
    base: { object: { a: string } }
    expect: '{ a?: string }'
    codes: [TYPE_MISMATCH]
`))
	require.NoError(t, err)

	results, err := runner().Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Passed, "strict null checks disabled by the suite: %v", results[0].Failures)

	assert.False(t, results[1].Passed)
	assert.Equal(t, "string | number", results[1].Got)
	assert.Equal(t, []string{"normalized: got string | number, want string"}, results[1].Failures)

	assert.False(t, results[2].Passed)
	assert.Equal(t, []string{"codes: got , want TYPE_MISMATCH"}, results[2].Failures)

	sum := suite.Summarize(results)
	assert.Equal(t, suite.Summary{Passed: 1, Failed: 2}, sum)
	assert.False(t, sum.OK())
}

func TestRunCancelled(t *testing.T) {
	s, err := suite.LoadFile("testdata/basic.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := runner().Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.True(t, res.Skipped, res.Name)
	}
	assert.Equal(t, len(results), suite.Summarize(results).Skipped)
}
