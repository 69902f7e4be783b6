package kalshi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// EventsPage is one page of GET /events.
type EventsPage struct {
	Events []Event `json:"events"`
	Cursor string  `json:"cursor"`
}

// Event is a Kalshi event, e.g. one game, with its markets nested when
// requested.
type Event struct {
	EventTicker  string   `json:"event_ticker"`
	SeriesTicker string   `json:"series_ticker"`
	Title        string   `json:"title"`
	SubTitle     string   `json:"sub_title"`
	Category     string   `json:"category"`
	Markets      []Market `json:"markets"`
}

// Market is one binary contract inside an event. In a game event there is
// one market per team, each paying out if that team wins.
type Market struct {
	Ticker        string `json:"ticker"`
	EventTicker   string `json:"event_ticker"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	YesAskDollars Number `json:"yes_ask_dollars"`
	// YesAsk is the ask in cents; older payloads only carry this field.
	YesAsk Number `json:"yes_ask"`
	Volume Number `json:"volume"`
}

// ErrorResponse represents a Kalshi API error response.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Number unmarshals from a JSON number or a numeric string. Null, empty and
// unparseable values leave it unset.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Number{Value: v, Set: true}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
