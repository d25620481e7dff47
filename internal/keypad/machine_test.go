package keypad_test

import (
	"context"
	"testing"

	"go-chi-calculator/internal/evaluator"
	"go-chi-calculator/internal/keypad"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// recorder wraps the real evaluator and remembers every token string.
type recorder struct {
	calls []string
}

func (r *recorder) Evaluate(ctx context.Context, tokens string) (float64, error) {
	r.calls = append(r.calls, tokens)
	return evaluator.New().Evaluate(ctx, tokens)
}

func newMachine(t *testing.T, opts ...keypad.Option) (*keypad.Machine, *recorder) {
	t.Helper()
	rec := &recorder{}
	return keypad.New(rec, opts...), rec
}

// press feeds key labels to m and returns the final display.
func press(t *testing.T, m *keypad.Machine, labels ...string) keypad.DisplayState {
	t.Helper()
	var d keypad.DisplayState
	for _, label := range labels {
		tok, err := keypad.ParseKey(label)
		require.NoError(t, err)
		d, _ = m.Handle(context.Background(), tok)
	}
	return d
}

func TestMachineStartsFresh(t *testing.T) {
	t.Parallel()

	m, _ := newMachine(t)
	assert.Equal(t, keypad.Fresh, m.State())
	assert.Equal(t, keypad.DisplayState{OperandText: "0", OperatorText: "", Mode: keypad.ModeNormal}, m.Display())
	assert.Empty(t, m.History())
}

func TestMachineAddsAndShowsResult(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "1", "2", "+", "3", "=")

	assert.Equal(t, []string{"12+3"}, rec.calls)
	assert.Equal(t, "15", d.OperandText)
	assert.Empty(t, d.OperatorText)
	assert.Equal(t, keypad.ModeNormal, d.Mode)
	assert.Empty(t, m.History())
	assert.Equal(t, keypad.ResultShown, m.State())
}

func TestMachineDivisionByZeroFreezesUntilClear(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "5", "÷", "0", "=")

	assert.Equal(t, []string{"5÷0"}, rec.calls)
	assert.Equal(t, keypad.ModeError, d.Mode)
	assert.Equal(t, keypad.ErrorText, d.OperandText)
	assert.Equal(t, keypad.Error, m.State())
	assert.ErrorIs(t, m.Err(), evaluator.ErrDivisionByZero)

	for _, label := range []string{"1", ".", "+", "±", "CE", "="} {
		d = press(t, m, label)
		assert.Equal(t, keypad.ErrorText, d.OperandText, "after %q", label)
		assert.Equal(t, keypad.ModeError, d.Mode, "after %q", label)
	}
	assert.Len(t, rec.calls, 1)

	d = press(t, m, "AC")
	assert.Equal(t, keypad.DisplayState{OperandText: "0", Mode: keypad.ModeNormal}, d)
	assert.Equal(t, keypad.Fresh, m.State())
	assert.NoError(t, m.Err())
}

func TestMachineOperatorWithoutFirstOperandIsIgnored(t *testing.T) {
	t.Parallel()

	m, _ := newMachine(t)
	d := press(t, m, "+")

	assert.Empty(t, d.OperatorText)
	assert.Equal(t, "0", d.OperandText)
	assert.Equal(t, keypad.Fresh, m.State())

	d = press(t, m, "0", "×")
	assert.Empty(t, d.OperatorText, "an explicit zero is still no first operand")
	assert.Empty(t, m.History())
}

func TestMachineSignToggle(t *testing.T) {
	t.Parallel()

	m, _ := newMachine(t)

	d := press(t, m, "7", "±")
	assert.Equal(t, "-7", d.OperandText)

	d = press(t, m, "±")
	assert.Equal(t, "7", d.OperandText)

	m2, _ := newMachine(t)
	d = press(t, m2, "±")
	assert.Equal(t, "0", d.OperandText)
}

func TestMachineChainsOffShownResult(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	press(t, m, "1", "2", "+", "3", "=")

	d := press(t, m, "-", "2", "=")

	assert.Equal(t, []string{"12+3", "15-2"}, rec.calls)
	assert.Equal(t, "13", d.OperandText)
}

func TestMachineConsecutiveOperatorsReplace(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "5", "+", "-", "×")

	assert.Equal(t, "×", d.OperatorText)
	require.Len(t, m.History(), 1)
	assert.Equal(t, "5", m.TokenString())

	d = press(t, m, "2", "=")
	assert.Equal(t, []string{"5×2"}, rec.calls)
	assert.Equal(t, "10", d.OperandText)
}

func TestMachineZeroOperandAfterOperatorIsCommitted(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "5", "-", "0", "-")

	assert.Equal(t, "-", d.OperatorText)
	assert.Equal(t, "5-0", m.TokenString())

	d = press(t, m, "1", "=")
	assert.Equal(t, []string{"5-0-1"}, rec.calls)
	assert.Equal(t, "4", d.OperandText)
}

func TestMachineDigitAfterResultStartsOver(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	press(t, m, "1", "2", "+", "3", "=")

	d := press(t, m, "4")
	assert.Equal(t, "4", d.OperandText)
	assert.Equal(t, keypad.EnteringFirstOperand, m.State())
	assert.Empty(t, m.History())

	d = press(t, m, "+", "1", "=")
	assert.Equal(t, []string{"12+3", "4+1"}, rec.calls)
	assert.Equal(t, "5", d.OperandText)
}

func TestMachineDecimalPointAfterResultStartsAtZero(t *testing.T) {
	t.Parallel()

	m, _ := newMachine(t)
	press(t, m, "1", "+", "1", "=")

	d := press(t, m, ".", "5")
	assert.Equal(t, "0.5", d.OperandText)
}

func TestMachineClearEntryKeepsPendingOperator(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "5", "+", "3", "CE")

	assert.Equal(t, "0", d.OperandText)
	assert.Equal(t, "+", d.OperatorText)
	assert.Equal(t, keypad.OperatorPending, m.State())

	d = press(t, m, "4", "=")
	assert.Equal(t, []string{"5+4"}, rec.calls)
	assert.Equal(t, "9", d.OperandText)
}

func TestMachineClearResetsEverything(t *testing.T) {
	t.Parallel()

	m, _ := newMachine(t)
	d := press(t, m, "5", "+", "3", "AC")

	assert.Equal(t, keypad.DisplayState{OperandText: "0", Mode: keypad.ModeNormal}, d)
	assert.Empty(t, m.History())
	assert.Empty(t, m.TokenString())
	assert.Equal(t, keypad.Fresh, m.State())
}

func TestMachineEqualsWithoutOperatorIsIgnored(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "5", "=")

	assert.Equal(t, "5", d.OperandText)
	assert.Empty(t, rec.calls)
	assert.Equal(t, keypad.EnteringFirstOperand, m.State())
}

func TestMachineTokenStringHasNoGrouping(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "1", "2", "3", "4", "×", "1", "0", "0", "0", "=")

	assert.Equal(t, []string{"1234×1000"}, rec.calls)
	assert.Equal(t, "1,234,000", d.OperandText)
}

func TestMachineNegativeOperand(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "7", "±", "+", "2", "=")

	assert.Equal(t, []string{"-7+2"}, rec.calls)
	assert.Equal(t, "-5", d.OperandText)
}

func TestMachineZeroResultCanBeChained(t *testing.T) {
	t.Parallel()

	m, rec := newMachine(t)
	d := press(t, m, "5", "-", "5", "=")
	require.Equal(t, "0", d.OperandText)

	d = press(t, m, "+", "3", "=")
	assert.Equal(t, []string{"5-5", "0+3"}, rec.calls)
	assert.Equal(t, "3", d.OperandText)
}

func TestMachineOverflowingResultFreezes(t *testing.T) {
	t.Parallel()

	m, _ := newMachine(t)
	d := press(t, m, "9", "9", "9", "9", "9", "9", "9", "9", "9", "9", "9", "×",
		"9", "9", "9", "9", "9", "9", "9", "9", "9", "9", "9", "=")

	assert.Equal(t, keypad.ModeError, d.Mode)
	assert.ErrorIs(t, m.Err(), keypad.ErrUnrepresentable)
}

func TestMachineReportsCommittedEntries(t *testing.T) {
	t.Parallel()

	var observed []keypad.Entry
	m, _ := newMachine(t, keypad.WithCommitObserver(func(e keypad.Entry) {
		observed = append(observed, e)
	}))
	ctx := context.Background()

	_, committed := m.Handle(ctx, keypad.DigitKey('8'))
	assert.Empty(t, committed)

	_, committed = m.Handle(ctx, keypad.OperatorKey(keypad.Divide))
	require.Len(t, committed, 1)
	assert.Equal(t, keypad.NoOperator, committed[0].Operator)
	assert.Equal(t, "8", committed[0].Operand.Text)

	_, committed = m.Handle(ctx, keypad.OperatorKey(keypad.Multiply))
	assert.Empty(t, committed, "replacing the operator commits nothing")

	m.Handle(ctx, keypad.DigitKey('2'))
	d, committed := m.Handle(ctx, keypad.EqualsKey)
	require.Len(t, committed, 1)
	assert.Equal(t, keypad.Multiply, committed[0].Operator)
	assert.Equal(t, 2.0, committed[0].Operand.Value)
	assert.Equal(t, "16", d.OperandText)

	assert.Len(t, observed, 2)
}

func TestMachineLogsIgnoredInput(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	m, _ := newMachine(t, keypad.WithLogger(zap.New(core)))

	press(t, m, "+")

	entries := logs.FilterMessage("input ignored").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "+", entries[0].ContextMap()["key"])
	assert.Equal(t, "fresh", entries[0].ContextMap()["state"])
}

func TestMachineUsesEvaluatorFunc(t *testing.T) {
	t.Parallel()

	m := keypad.New(keypad.EvaluatorFunc(func(ctx context.Context, tokens string) (float64, error) {
		return 0.25, nil
	}))

	d := press(t, m, "1", "÷", "4", "=")
	assert.Equal(t, "0.25", d.OperandText)
}
