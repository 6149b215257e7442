package patch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyToMemoryRunsStepsInOrder(t *testing.T) {
	t.Parallel()

	// The second step's anchor only exists after the first step ran.
	steps := []Step{
		{Name: "normalize", Kind: MatchPattern, Match: `//\s+TODO\s+anchor`, Replace: "// ANCHOR"},
		{Name: "insert", Kind: MatchLiteral, Match: "// ANCHOR", Replace: "inserted()\n// ANCHOR", Cardinality: CardinalityFirst},
	}

	out, outcomes, err := ApplyToMemory(context.Background(), steps, "start\n//   TODO   anchor\n", Options{})
	require.NoError(t, err)
	assert.Equal(t, "start\ninserted()\n// ANCHOR\n", out)
	require.Len(t, outcomes, 2)
	assert.Equal(t, Outcome{Number: 1, Step: "normalize", Status: StatusApplied, Matches: 1}, outcomes[0])
	assert.Equal(t, Outcome{Number: 2, Step: "insert", Status: StatusApplied, Matches: 1}, outcomes[1])
}

func TestApplyToMemorySkipsMissingMatchers(t *testing.T) {
	t.Parallel()

	steps := []Step{
		{Name: "missing", Kind: MatchLiteral, Match: "absent", Replace: "x"},
		{Name: "present", Kind: MatchLiteral, Match: "hello", Replace: "bye"},
	}
	out, outcomes, err := ApplyToMemory(context.Background(), steps, "hello", Options{})
	require.NoError(t, err)
	assert.Equal(t, "bye", out)
	assert.Equal(t, StatusNoMatch, outcomes[0].Status)
	assert.Equal(t, StatusApplied, outcomes[1].Status)
}

func TestApplyToMemoryDuplicatesInsertionWithoutGuard(t *testing.T) {
	t.Parallel()

	steps := []Step{{Name: "insert", Kind: MatchLiteral, Match: "ANCHOR", Replace: "x\nANCHOR", Cardinality: CardinalityFirst, Guard: true}}
	once, _, err := ApplyToMemory(context.Background(), steps, "ANCHOR", Options{})
	require.NoError(t, err)
	twice, _, err := ApplyToMemory(context.Background(), steps, once, Options{})
	require.NoError(t, err)

	assert.Equal(t, "x\nANCHOR", once)
	assert.Equal(t, "x\nx\nANCHOR", twice)
}

func TestApplyToMemoryGuardPreventsDuplication(t *testing.T) {
	t.Parallel()

	steps := []Step{{Name: "insert", Kind: MatchLiteral, Match: "ANCHOR", Replace: "x\nANCHOR", Cardinality: CardinalityFirst, Guard: true}}
	once, _, err := ApplyToMemory(context.Background(), steps, "ANCHOR", Options{Guard: true})
	require.NoError(t, err)
	twice, outcomes, err := ApplyToMemory(context.Background(), steps, once, Options{Guard: true})
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, StatusAlreadyApplied, outcomes[0].Status)
}

func TestApplyToMemoryHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ApplyToMemory(ctx, []Step{{Name: "s", Kind: MatchLiteral, Match: "a"}}, "a", Options{})
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CodeCancelled, pe.Code)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyMemoryManifest(t *testing.T) {
	t.Parallel()

	manifest := []byte(`{"steps":[{"name":"greet","kind":"literal","match":"hi","replace":"hello"}]}`)
	out, outcomes, err := ApplyMemoryManifest(context.Background(), manifest, nil, "hi there", Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Len(t, outcomes, 1)
}
