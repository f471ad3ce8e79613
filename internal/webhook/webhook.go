package webhook

import (
	"context"
	"time"
)

type AnswerWebhookPayload struct {
	SessionID        string    `json:"session_id"`
	GuildID          string    `json:"guild_id"`
	ChannelID        string    `json:"channel_id"`
	UserID           string    `json:"user_id"`
	TranscriptSHA256 string    `json:"transcript_sha256"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	Cached           bool      `json:"cached"`
	AnsweredAt       time.Time `json:"answered_at"`
}

type Sender interface {
	SendAnswer(ctx context.Context, payload AnswerWebhookPayload) error
}
