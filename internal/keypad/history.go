package keypad

// Entry is a committed (operator, operand) pair. The first entry of an
// expression has no operator.
type Entry struct {
	Operator Operator
	Operand  Operand
}

// Token returns the entry's contribution to the token string.
func (e Entry) Token() string {
	return StripGrouping(e.Operator.String()) + StripGrouping(e.Operand.Text)
}

// History is the append-only record of one expression.
type History struct {
	entries []Entry
	tokens  string
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Commit appends the pair and extends the token string.
func (h *History) Commit(op Operator, operand Operand) Entry {
	e := Entry{Operator: op, Operand: operand}
	h.entries = append(h.entries, e)
	h.tokens += e.Token()
	return e
}

// TokenString returns the expression as handed to the evaluator.
func (h *History) TokenString() string {
	return h.tokens
}

// IsEmpty reports whether nothing has been committed.
func (h *History) IsEmpty() bool {
	return len(h.entries) == 0
}

// Len returns the number of committed entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the committed entries in commit order.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear wipes the entries and the token string.
func (h *History) Clear() {
	h.entries = nil
	h.tokens = ""
}
