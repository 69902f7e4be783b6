package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// Number unmarshals from a JSON number or a numeric string. Null, empty and
// unparseable values leave it unset.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if f, ok := toFloat(v); ok {
		*n = Number{Value: f, Set: true}
	}
	return nil
}

// StringList decodes the Gamma habit of shipping arrays as JSON-encoded
// strings, e.g. "[\"Lakers\", \"Celtics\"]". A plain JSON array is accepted
// too, and numeric elements are kept in their textual form. A malformed
// value decodes to an empty list so one bad market does not fail the page.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil
		}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make(StringList, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case nil:
			out = append(out, "")
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	*l = out
	return nil
}

// Floats parses every element, reporting ok=false for elements that are not
// numbers.
func (l StringList) Floats() (vals []float64, ok []bool) {
	vals = make([]float64, len(l))
	ok = make([]bool, len(l))
	for i, s := range l {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			vals[i], ok[i] = f, true
		}
	}
	return vals, ok
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent represents an event as returned by the Polymarket Gamma API.
// An event groups one or more related markets; for a game the moneyline is
// one of them.
type APIEvent struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	EndDate string      `json:"endDate"`
	Active  flexBool    `json:"active"`
	Closed  flexBool    `json:"closed"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Slug          string     `json:"slug"`
	Outcomes      StringList `json:"outcomes"`
	OutcomePrices StringList `json:"outcomePrices"`
	ClobTokenIDs  StringList `json:"clobTokenIds"`
	Volume        Number     `json:"volume"`
	Active        flexBool   `json:"active"`
	Closed        flexBool   `json:"closed"`
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// PriceResponse is the body of GET /price.
type PriceResponse struct {
	Price Number `json:"price"`
}
