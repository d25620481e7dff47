// Package keypad is the input state machine of a pocket calculator: it turns
// key presses into a display and a flat token string such as "12+3", and
// hands that string to an Evaluator on equals.
package keypad

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Evaluator computes the value of a finished token string such as "5+3-2".
type Evaluator interface {
	Evaluate(ctx context.Context, tokens string) (float64, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, tokens string) (float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, tokens string) (float64, error) {
	return f(ctx, tokens)
}

// DisplayMode separates the normal display from the frozen error display.
type DisplayMode int

const (
	ModeNormal DisplayMode = iota
	ModeError
)

func (m DisplayMode) String() string {
	if m == ModeError {
		return "error"
	}
	return "normal"
}

// MarshalText renders the mode name.
func (m DisplayMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// DisplayState is what the presentation layer renders.
type DisplayState struct {
	OperandText  string      `json:"operand"`
	OperatorText string      `json:"operator"`
	Mode         DisplayMode `json:"mode"`
}

// State is the machine's position in the input cycle.
type State int

const (
	Fresh State = iota
	EnteringFirstOperand
	OperatorPending
	EnteringNextOperand
	ResultShown
	Error
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case EnteringFirstOperand:
		return "entering_first_operand"
	case OperatorPending:
		return "operator_pending"
	case EnteringNextOperand:
		return "entering_next_operand"
	case ResultShown:
		return "result_shown"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CommitObserver is notified of every entry committed to the history.
type CommitObserver func(Entry)

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for ignored input and evaluation failures.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithCommitObserver registers fn for history commits.
func WithCommitObserver(fn CommitObserver) Option {
	return func(m *Machine) {
		m.observers = append(m.observers, fn)
	}
}

// Machine turns key presses into display updates and a token string.
// A Machine is not safe for concurrent use.
type Machine struct {
	eval      Evaluator
	buffer    *OperandBuffer
	history   *History
	pending   Operator
	state     State
	lastErr   error
	logger    *zap.Logger
	observers []CommitObserver
}

// New returns a machine in the Fresh state.
func New(eval Evaluator, opts ...Option) *Machine {
	m := &Machine{
		eval:    eval,
		buffer:  NewOperandBuffer(),
		history: NewHistory(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle applies one token and returns the new display together with the
// entries it committed, if any. Disallowed tokens leave the state untouched.
func (m *Machine) Handle(ctx context.Context, tok Token) (DisplayState, []Entry) {
	if tok.Kind == KindClear {
		m.reset()
		return m.Display(), nil
	}
	if m.state == Error {
		m.ignore(tok, "frozen on evaluation error")
		return m.Display(), nil
	}

	var committed []Entry
	switch tok.Kind {
	case KindDigit, KindDecimalPoint:
		m.enterDigit(tok)
	case KindOperator:
		committed = m.enterOperator(tok)
	case KindSignToggle:
		if !m.buffer.ToggleSign() {
			m.ignore(tok, "operand has no sign")
		}
	case KindClearEntry:
		m.clearEntry()
	case KindEquals:
		committed = m.equals(ctx)
	default:
		m.ignore(tok, "unknown token kind")
	}
	return m.Display(), committed
}

// Display returns the current display projection.
func (m *Machine) Display() DisplayState {
	mode := ModeNormal
	if m.state == Error {
		mode = ModeError
	}
	return DisplayState{
		OperandText:  m.buffer.Text(),
		OperatorText: m.pending.String(),
		Mode:         mode,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// History returns the entries committed so far in the current expression.
func (m *Machine) History() []Entry {
	return m.history.Entries()
}

// TokenString returns the token string of the current expression.
func (m *Machine) TokenString() string {
	return m.history.TokenString()
}

// Err returns the evaluation error that froze the machine, or nil.
func (m *Machine) Err() error {
	return m.lastErr
}

func (m *Machine) enterDigit(tok Token) {
	if m.state == ResultShown {
		// Typing after a result starts a new expression.
		m.history.Clear()
		m.buffer.Reset("0")
		m.state = Fresh
	}

	var ok bool
	if tok.Kind == KindDigit {
		ok = m.buffer.AppendDigit(tok.Digit)
	} else {
		ok = m.buffer.AppendDecimalPoint()
	}
	if !ok {
		m.ignore(tok, "operand rejected input")
		return
	}

	switch m.state {
	case Fresh:
		m.state = EnteringFirstOperand
	case OperatorPending:
		m.state = EnteringNextOperand
	}
}

func (m *Machine) enterOperator(tok Token) []Entry {
	if tok.Operator == NoOperator || m.buffer.IsError() {
		m.ignore(tok, "no operator")
		return nil
	}

	var committed []Entry
	switch m.state {
	case Fresh:
		m.ignore(tok, "no first operand")
		return nil
	case EnteringFirstOperand:
		if m.buffer.Text() == "0" && m.history.IsEmpty() {
			m.ignore(tok, "no first operand")
			return nil
		}
		committed = m.commit(NoOperator)
	case ResultShown:
		// The shown result is the first operand of a chained expression.
		m.history.Clear()
		committed = m.commit(NoOperator)
	case OperatorPending:
		m.pending = tok.Operator
		return nil
	case EnteringNextOperand:
		committed = m.commit(m.pending)
	}

	m.buffer.Reset("0")
	m.pending = tok.Operator
	m.state = OperatorPending
	return committed
}

func (m *Machine) clearEntry() {
	m.buffer.Reset("0")
	switch m.state {
	case EnteringFirstOperand, ResultShown:
		m.state = Fresh
	case EnteringNextOperand:
		m.state = OperatorPending
	}
}

func (m *Machine) equals(ctx context.Context) []Entry {
	if m.pending == NoOperator {
		m.ignore(EqualsKey, "nothing to compute")
		return nil
	}

	committed := m.commit(m.pending)
	tokens := m.history.TokenString()

	result, err := m.eval.Evaluate(ctx, tokens)
	var text string
	if err == nil {
		text, err = Format(result)
	}

	m.history.Clear()
	m.pending = NoOperator

	if err != nil {
		m.logger.Info("display frozen",
			zap.String("tokens", tokens),
			zap.Error(err),
		)
		m.buffer.Reset(ErrorText)
		m.lastErr = err
		m.state = Error
		return committed
	}

	m.buffer.Reset(text)
	m.state = ResultShown
	return committed
}

func (m *Machine) commit(op Operator) []Entry {
	e := m.history.Commit(op, m.buffer.Operand())
	for _, fn := range m.observers {
		fn(e)
	}
	return []Entry{e}
}

func (m *Machine) reset() {
	m.buffer.Reset("0")
	m.history.Clear()
	m.pending = NoOperator
	m.state = Fresh
	m.lastErr = nil
}

func (m *Machine) ignore(tok Token, reason string) {
	m.logger.Debug("input ignored",
		zap.String("key", tok.String()),
		zap.String("state", m.state.String()),
		zap.String("reason", reason),
	)
}
