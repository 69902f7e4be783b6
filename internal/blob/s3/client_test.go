package s3blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		ssl    bool
		expect string
	}{
		{"https://s3.example.com", false, "https://s3.example.com"},
		{"minio:9000", false, "http://minio:9000"},
		{"e2.idrivee2.com", true, "https://e2.idrivee2.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expect, normaliseEndpoint(tt.in, tt.ssl))
		})
	}
}

func TestKeyPrefix(t *testing.T) {
	c := &Client{prefix: normalisePrefix("/crossarb/")}
	assert.Equal(t, "crossarb/reports/2026/02/01/x.json", c.key("reports/2026/02/01/x.json"))
	assert.Equal(t, "crossarb/aliases.json", c.key("/aliases.json"))
	assert.Equal(t, "reports/x.json", c.path("crossarb/reports/x.json"))

	bare := &Client{prefix: normalisePrefix("")}
	assert.Equal(t, "aliases.json", bare.key("aliases.json"))
}
