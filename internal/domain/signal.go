package domain

// Pub/sub channels.
const (
	// ChannelArb carries a JSON Report after every completed scan.
	ChannelArb = "ch:arb"
	// ChannelStatus carries scanner lifecycle updates.
	ChannelStatus = "ch:status"
)

// ScanStatus is published on ChannelStatus.
type ScanStatus struct {
	ScanID string `json:"scan_id"`
	State  string `json:"state"` // "started", "completed", "failed", "skipped"
	Error  string `json:"error,omitempty"`
}
