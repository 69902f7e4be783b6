package notify

import (
	"context"
	"fmt"
	"net/http"
)

// Embed colours.
const (
	colorArb    = 0x2ECC71
	colorFailed = 0xE74C3C
)

// DiscordSender posts alerts to a webhook as a single embed.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color"`
}

type discordMessage struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Send implements Sender.
func (d *DiscordSender) Send(ctx context.Context, a Alert) error {
	color := colorArb
	if a.Event == EventScanFailed {
		color = colorFailed
	}
	msg := discordMessage{
		Username: "crossarb",
		Embeds:   []discordEmbed{{Title: a.Title, Description: a.Body, Color: color}},
	}
	if err := postJSON(ctx, d.client, d.webhookURL, msg); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name implements Sender.
func (d *DiscordSender) Name() string { return "discord" }
