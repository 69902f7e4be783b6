package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

const eventsPayload = `{
  "cursor": "next-page",
  "events": [{
    "event_ticker": "KXNBAGAME-26FEB01LALBOS",
    "series_ticker": "KXNBAGAME",
    "title": "Los Angeles L at Boston",
    "markets": [
      {"ticker": "KXNBAGAME-26FEB01LALBOS-LAL", "yes_ask_dollars": "0.4500", "volume": 1200},
      {"ticker": "KXNBAGAME-26FEB01LALBOS-BOS", "yes_ask": 58, "volume": "300"}
    ]
  }]
}`

func TestGetEvents_SignsPathWithoutQuery(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trade-api/v2/events", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}

		ts := r.Header.Get("KALSHI-ACCESS-TIMESTAMP")
		sig, err := base64.StdEncoding.DecodeString(r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		assert.NoError(t, err)
		hash := sha256.Sum256([]byte(ts + http.MethodGet + "/trade-api/v2/events"))
		assert.NoError(t, rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		}))
		assert.Equal(t, "key-id", r.Header.Get("KALSHI-ACCESS-KEY"))

		_, _ = w.Write([]byte(eventsPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/trade-api/v2", "key-id", time.Second)
	require.NoError(t, c.SetRSAPrivateKey(pemBytes))
	require.True(t, c.Signed())

	page, err := c.GetEvents(context.Background(), EventsQuery{
		SeriesTicker:      "KXNBAGAME",
		Status:            "open",
		Limit:             200,
		Cursor:            "abc",
		WithNestedMarkets: true,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"series_ticker":       "KXNBAGAME",
		"status":              "open",
		"limit":               "200",
		"cursor":              "abc",
		"with_nested_markets": "true",
	}, gotQuery)

	assert.Equal(t, "next-page", page.Cursor)
	require.Len(t, page.Events, 1)
	ev := page.Events[0]
	require.Len(t, ev.Markets, 2)
	assert.Equal(t, Number{Value: 0.45, Set: true}, ev.Markets[0].YesAskDollars)
	assert.False(t, ev.Markets[0].YesAsk.Set)
	assert.Equal(t, 58.0, ev.Markets[1].YesAsk.Value)
	assert.Equal(t, 300.0, ev.Markets[1].Volume.Value)
}

func TestGetEvents_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		_, _ = w.Write([]byte(`{"events": [], "cursor": ""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	page, err := c.GetEvents(context.Background(), EventsQuery{SeriesTicker: "KXNHLGAME"})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	assert.Empty(t, page.Cursor)
}

func TestGetEvents_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusBadGateway, domain.ErrTransient},
		{http.StatusServiceUnavailable, domain.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"code": "x", "message": "nope"},
				})
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).GetEvents(context.Background(), EventsQuery{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSetRSAPrivateKey_Invalid(t *testing.T) {
	c := NewClient("http://example.invalid", "", 0)
	assert.Error(t, c.SetRSAPrivateKey([]byte("not a pem")))
	assert.False(t, c.Signed())
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want Number
	}{
		{`0.45`, Number{0.45, true}},
		{`"0.45"`, Number{0.45, true}},
		{`" 12 "`, Number{12, true}},
		{`null`, Number{}},
		{`""`, Number{}},
		{`"n/a"`, Number{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}
