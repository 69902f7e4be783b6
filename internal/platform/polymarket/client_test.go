package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const gammaEvent = `[{
  "id": "1",
  "title": "Lakers vs. Celtics",
  "slug": "nba-lal-bos-2026-02-01",
  "endDate": "2026-02-02T03:00:00Z",
  "active": "true",
  "closed": false,
  "markets": [{
    "question": "Lakers vs. Celtics",
    "outcomes": "[\"Lakers\", \"Celtics\"]",
    "outcomePrices": "[\"0.44\", \"0.56\"]",
    "clobTokenIds": "[\"111\", \"222\"]",
    "volume": "12345.5"
  }]
}]`

func TestGetEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "nba", q.Get("tag_slug"))
		assert.Empty(t, q.Get("series_id"))
		assert.Equal(t, "true", q.Get("active"))
		assert.Equal(t, "false", q.Get("closed"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "200", q.Get("offset"))
		_, _ = w.Write([]byte(gammaEvent))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL, time.Second)
	events, err := g.GetEvents(context.Background(), EventsQuery{
		TagSlug: "nba", ActiveOnly: true, Limit: 100, Offset: 200,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.True(t, bool(ev.Active))
	assert.Equal(t, "2026-02-02T03:00:00Z", ev.EndDate)
	require.Len(t, ev.Markets, 1)
	m := ev.Markets[0]
	assert.Equal(t, StringList{"Lakers", "Celtics"}, m.Outcomes)
	assert.Equal(t, StringList{"111", "222"}, m.ClobTokenIDs)
	assert.Equal(t, Number{Value: 12345.5, Set: true}, m.Volume)

	vals, ok := m.OutcomePrices.Floats()
	assert.Equal(t, []float64{0.44, 0.56}, vals)
	assert.Equal(t, []bool{true, true}, ok)
}

func TestGetEvents_SeriesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10345", r.URL.Query().Get("series_id"))
		assert.Empty(t, r.URL.Query().Get("active"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	events, err := NewGammaClient(srv.URL, 0).GetEvents(context.Background(), EventsQuery{SeriesID: "10345", Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetEvents_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL, time.Second).GetEvents(context.Background(), EventsQuery{TagSlug: "nhl"})
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestAskPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, "sell", r.URL.Query().Get("side"))
		switch r.URL.Query().Get("token_id") {
		case "111":
			_, _ = w.Write([]byte(`{"price": "0.47"}`))
		case "222":
			_, _ = w.Write([]byte(`{"price": 0.55}`))
		case "empty":
			_, _ = w.Write([]byte(`{}`))
		case "limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, time.Second)
	ctx := context.Background()

	p, err := c.AskPrice(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, 0.47, p)

	p, err = c.AskPrice(ctx, "222")
	require.NoError(t, err)
	assert.Equal(t, 0.55, p)

	_, err = c.AskPrice(ctx, "empty")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.AskPrice(ctx, "limited")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = c.AskPrice(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStringList(t *testing.T) {
	tests := []struct {
		in      string
		want    StringList
		wantErr bool
	}{
		{`"[\"Yes\", \"No\"]"`, StringList{"Yes", "No"}, false},
		{`["a", "b"]`, StringList{"a", "b"}, false},
		{`"[0.5, 0.25]"`, StringList{"0.5", "0.25"}, false},
		{`""`, nil, false},
		{`null`, nil, false},
		{`"not json"`, nil, false},
		{`{"a": 1}`, nil, false},
		{`42`, nil, false},
		{`[1, 2`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var l StringList
			err := json.Unmarshal([]byte(tt.in), &l)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l)
		})
	}
}

func TestFlexBool(t *testing.T) {
	for in, want := range map[string]bool{`true`: true, `"true"`: true, `"1"`: true, `false`: false, `"no"`: false} {
		var b flexBool
		require.NoError(t, json.Unmarshal([]byte(in), &b), in)
		assert.Equal(t, want, bool(b), in)
	}
}
