package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/go-RoomWatcher/internal/common/httputil"
	"github.com/central-university-dev/go-RoomWatcher/internal/config"
	customerrors "github.com/central-university-dev/go-RoomWatcher/internal/domain/errors"
	"github.com/central-university-dev/go-RoomWatcher/internal/domain/models"
)

const embedColorGreen = 0x2ECC71

type DiscordClient struct {
	client *resty.Client
	logger *slog.Logger
}

type DiscordSender interface {
	SendRoomAvailable(ctx context.Context, webhookURL, mention string, match *models.Match) error
}

func NewDiscordClient(cfg *config.Config, logger *slog.Logger) DiscordSender {
	return &DiscordClient{
		client: httputil.CreateResilientHTTPClient(cfg, logger, "discord"),
		logger: logger,
	}
}

type discordEmbed struct {
	Title  string              `json:"title"`
	Color  int                 `json:"color"`
	Fields []discordEmbedField `json:"fields"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

func (c *DiscordClient) SendRoomAvailable(ctx context.Context, webhookURL, mention string, match *models.Match) error {
	snapshot := match.Snapshot

	embed := discordEmbed{
		Title: "Hotel Room Available!",
		Color: embedColorGreen,
		Fields: []discordEmbedField{
			{Name: "Hotel", Value: hotelName(match), Inline: true},
			{Name: "Room", Value: snapshot.RoomType, Inline: true},
			{Name: "Price", Value: fmt.Sprintf("$%.2f/night ($%.2f total)", snapshot.NightlyRate, snapshot.TotalPrice), Inline: true},
			{Name: "Dates", Value: fmt.Sprintf("%s - %s", snapshot.CheckIn.Format(dateLayout), snapshot.CheckOut.Format(dateLayout)), Inline: true},
			{Name: "Distance", Value: distanceLine(match.Hotel), Inline: true},
		},
	}

	if snapshot.PartialAvailability {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   "Partial availability",
			Value:  fmt.Sprintf("%d of %d nights", snapshot.NightsAvailable, snapshot.TotalNights),
			Inline: true,
		})
	}

	payload := discordWebhookPayload{Embeds: []discordEmbed{embed}}
	if mention != "" {
		payload.Content = mention
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(webhookURL)
	if err != nil {
		return &customerrors.ErrDeliveryFailed{Channel: string(models.ChannelDiscord), Cause: err}
	}

	if !resp.IsSuccess() {
		return &customerrors.ErrDeliveryFailed{
			Channel: string(models.ChannelDiscord),
			Cause:   fmt.Errorf("вебхук вернул статус: %d", resp.StatusCode()),
		}
	}

	return nil
}
