package calculator

import (
	"go-chi-calculator/internal/keypad"

	"golang.org/x/text/language"
)

// KeysRequest is the JSON body for POST /calculator/sessions/{id}/keys.
type KeysRequest struct {
	Keys []string `json:"keys"` // key labels, e.g. "7", ".", "×", "±", "CE", "AC", "="
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression"` // token string, e.g. "12+3"
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
	Display    string  `json:"display"`
}

// Display mirrors keypad.DisplayState with localized glyphs.
type Display struct {
	Operand  string `json:"operand"`
	Operator string `json:"operator"`
	Mode     string `json:"mode"`
}

// EntryResponse is one committed scrollback row.
type EntryResponse struct {
	Operator string `json:"operator"`
	Operand  string `json:"operand"`
}

// SessionResponse is the JSON response for the session endpoints.
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	Display   Display         `json:"display"`
	Committed []EntryResponse `json:"committed,omitempty"` // entries committed by this request
	History   []EntryResponse `json:"history"`
	Tokens    string          `json:"tokens"`
}

func newDisplay(d keypad.DisplayState, tag language.Tag) Display {
	return Display{
		Operand:  keypad.Localize(d.OperandText, tag),
		Operator: d.OperatorText,
		Mode:     d.Mode.String(),
	}
}

func newEntries(entries []keypad.Entry, tag language.Tag) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			Operator: e.Operator.String(),
			Operand:  keypad.Localize(e.Operand.Text, tag),
		})
	}
	return out
}
