package controller

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// lenientPrice reads a price given as a JSON number or string. Anything that
// is not a decimal counts as no price at all.
func lenientPrice(raw json.RawMessage) *decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil
	}
	return &d
}

type offerFrame struct {
	Message       string          `json:"message"`
	ProposedPrice json.RawMessage `json:"proposed_price"`
}

// decodeFrame turns one websocket payload into a message and price.
// A payload that is not a JSON object is taken as plain message text.
func decodeFrame(payload []byte) (string, *decimal.Decimal) {
	var f offerFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		return string(bytes.TrimSpace(payload)), nil
	}
	return f.Message, lenientPrice(f.ProposedPrice)
}
