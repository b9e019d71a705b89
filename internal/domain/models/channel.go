package models

// Channel — размеченное объединение каналов доставки.
// Каждый вариант несёт только свои поля и валидируется при создании,
// а не ad hoc в момент диспетчеризации.
type Channel interface {
	Kind() ChannelKind
}

type ChannelKind string

const (
	ChannelDiscord    ChannelKind = "discord"
	ChannelSMS        ChannelKind = "sms"
	ChannelCall       ChannelKind = "call"
	ChannelPush       ChannelKind = "push"
	ChannelVisual     ChannelKind = "visual"
	ChannelSound      ChannelKind = "sound"
	ChannelFullScreen ChannelKind = "fullscreen"
)

type DiscordChannel struct {
	WebhookURL string
	Mention    string
}

func (DiscordChannel) Kind() ChannelKind { return ChannelDiscord }

type SMSChannel struct {
	UserID      string
	PhoneNumber string
	CustomBody  string
}

func (SMSChannel) Kind() ChannelKind { return ChannelSMS }

type CallChannel struct {
	UserID      string
	PhoneNumber string
}

func (CallChannel) Kind() ChannelKind { return ChannelCall }

type PushChannel struct {
	Subscription string
}

func (PushChannel) Kind() ChannelKind { return ChannelPush }

type VisualChannel struct {
	FullScreen bool
}

func (VisualChannel) Kind() ChannelKind { return ChannelVisual }

type SoundChannel struct{}

func (SoundChannel) Kind() ChannelKind { return ChannelSound }
