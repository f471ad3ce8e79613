package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/meetingscribe/internal/assistant"
	"github.com/foxseedlab/meetingscribe/internal/config"
	"github.com/foxseedlab/meetingscribe/internal/discord"
	"github.com/foxseedlab/meetingscribe/internal/webhook"
)

const (
	commandUpload = "scribe-upload"
	commandAsk    = "scribe-ask"
	commandReset  = "scribe-reset"

	optionFile     = "file"
	optionQuestion = "question"

	transcriptFilename = "transcript.txt"
	answerFilename     = "answer.txt"

	downloadTimeout = 5 * time.Minute
	webhookTimeout  = 15 * time.Second
)

var supportedUploadExtensions = map[string]struct{}{
	".mp3": {},
	".wav": {},
	".mp4": {},
	".m4a": {},
}

// SessionFactory builds a fresh assistant session for a channel.
type SessionFactory func() *assistant.Session

// Manager keeps one assistant session per Discord channel and maps slash
// commands onto it.
type Manager struct {
	cfg        *config.Config
	discord    discord.Client
	webhook    webhook.Sender
	newSession SessionFactory

	mu       sync.Mutex
	sessions map[string]*channelSession
}

type channelSession struct {
	assistant  *assistant.Session
	processing bool
}

func NewManager(cfg *config.Config, dc discord.Client, wh webhook.Sender, newSession SessionFactory) *Manager {
	return &Manager{
		cfg:        cfg,
		discord:    dc,
		webhook:    wh,
		newSession: newSession,
		sessions:   make(map[string]*channelSession),
	}
}

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{
			Name:        commandUpload,
			Description: slashCommandUploadDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionFile, Description: optionFileDescription, Type: discord.SlashCommandOptionAttachment, Required: true},
			},
		},
		{
			Name:        commandAsk,
			Description: slashCommandAskDescription,
			Options: []discord.SlashCommandOption{
				{Name: optionQuestion, Description: optionQuestionDescription, Type: discord.SlashCommandOptionString, Required: true},
			},
		},
		{Name: commandReset, Description: slashCommandResetDescription},
	}
}

func (m *Manager) HandleSlashCommand(event discord.SlashCommandEvent) {
	if event.GuildID != m.cfg.DiscordGuildID {
		respondEphemeral(event, messageEphemeralWrongGuild)
		return
	}
	switch event.CommandName {
	case commandUpload:
		m.handleUpload(event)
	case commandAsk:
		m.handleAsk(event)
	case commandReset:
		m.handleReset(event)
	default:
		respondEphemeral(event, messageEphemeralUnknownCommand)
	}
}

func (m *Manager) sessionKey(guildID, channelID string) string {
	return guildID + ":" + channelID
}

func (m *Manager) channelSession(guildID, channelID string) *channelSession {
	key := m.sessionKey(guildID, channelID)
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.sessions[key]
	if !ok {
		cs = &channelSession{assistant: m.newSession()}
		m.sessions[key] = cs
		slog.Info("created channel session", "session_key", key, "session_id", cs.assistant.ID())
	}
	return cs
}

// beginProcessing marks the channel busy; it reports false when another request is running.
func (m *Manager) beginProcessing(cs *channelSession) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs.processing {
		return false
	}
	cs.processing = true
	return true
}

func (m *Manager) endProcessing(cs *channelSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs.processing = false
}

func (m *Manager) handleUpload(event discord.SlashCommandEvent) {
	att, ok := event.Attachments[optionFile]
	if !ok || att.URL == "" {
		respondEphemeral(event, messageEphemeralMissingFile)
		return
	}
	ext := strings.ToLower(filepath.Ext(att.Filename))
	if _, ok := supportedUploadExtensions[ext]; !ok {
		respondEphemeral(event, unsupportedFileMessage(att.Filename))
		return
	}
	if int64(att.Size) > m.cfg.MaxUploadBytes() {
		respondEphemeral(event, fileTooLargeMessage(m.cfg.UploadLimitMB()))
		return
	}

	cs := m.channelSession(event.GuildID, event.ChannelID)
	if !m.beginProcessing(cs) {
		respondEphemeral(event, messageEphemeralBusy)
		return
	}
	defer m.endProcessing(cs)

	if err := event.DeferReply(); err != nil {
		slog.Error("failed to defer upload reply", "error", err, "channel_id", event.ChannelID)
		return
	}

	sessionID := cs.assistant.ID()
	slog.Info("processing upload", "session_id", sessionID, "channel_id", event.ChannelID, "filename", att.Filename, "bytes", att.Size)
	transcript, err := m.transcribeAttachment(cs.assistant, att, ext)
	if errors.Is(err, assistant.ErrEmptyTranscript) {
		slog.Info("no speech recognised", "session_id", sessionID, "filename", att.Filename)
		m.reply(event, emptyTranscriptMessage(att.Filename))
		return
	}
	if err != nil {
		slog.Error("failed to process upload", "error", err, "session_id", sessionID, "filename", att.Filename)
		m.reply(event, failureMessage(err))
		return
	}
	slog.Info("upload processed", "session_id", sessionID, "audio_sha256", transcript.AudioHash, "cached", transcript.Cached, "chars", len(transcript.Text))

	m.reply(event, transcribedMessage(att.Filename, transcript))
	if err := m.discord.SendChannelMessageWithFile(discord.FileMessage{
		ChannelID: event.ChannelID,
		Content:   messageTranscriptAttachment,
		Filename:  transcriptFilename,
		FileBody:  []byte(transcript.Text),
	}); err != nil {
		slog.Error("failed to post transcript", "error", err, "session_id", sessionID)
	}
}

func (m *Manager) transcribeAttachment(s *assistant.Session, att discord.Attachment, ext string) (assistant.Transcript, error) {
	downloadCtx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	data, err := m.discord.DownloadAttachment(downloadCtx, att, m.cfg.MaxUploadBytes())
	cancel()
	if err != nil {
		return assistant.Transcript{}, err
	}

	f, err := os.CreateTemp(m.cfg.UploadTempDir, "scribe-upload-*"+ext)
	if err != nil {
		return assistant.Transcript{}, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove temp upload", "error", err, "path", path)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return assistant.Transcript{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return assistant.Transcript{}, fmt.Errorf("close temp file: %w", err)
	}

	return s.Transcribe(context.Background(), path)
}

func (m *Manager) handleAsk(event discord.SlashCommandEvent) {
	question := event.StringOptions[optionQuestion]
	if strings.TrimSpace(question) == "" {
		respondEphemeral(event, messageEphemeralMissingQuestion)
		return
	}

	cs := m.channelSession(event.GuildID, event.ChannelID)
	if !m.beginProcessing(cs) {
		respondEphemeral(event, messageEphemeralBusy)
		return
	}
	defer m.endProcessing(cs)

	if err := event.DeferReply(); err != nil {
		slog.Error("failed to defer ask reply", "error", err, "channel_id", event.ChannelID)
		return
	}

	sessionID := cs.assistant.ID()
	answer, err := cs.assistant.Ask(context.Background(), question)
	if err != nil {
		slog.Error("failed to answer question", "error", err, "session_id", sessionID)
		m.reply(event, failureMessage(err))
		return
	}
	slog.Info("question answered", "session_id", sessionID, "transcript_sha256", answer.TranscriptHash, "cached", answer.Cached)

	m.deliverAnswer(event, answer)
	m.notifyWebhook(event, sessionID, answer)
}

func (m *Manager) deliverAnswer(event discord.SlashCommandEvent, answer assistant.Answer) {
	content := answerMessage(answer.Question, answer.Text)
	if fitsInMessage(content) {
		m.reply(event, content)
		return
	}
	m.reply(event, messageAnswerAttachment)
	if err := m.discord.SendChannelMessageWithFile(discord.FileMessage{
		ChannelID: event.ChannelID,
		Content:   messageAnswerAttachment,
		Filename:  answerFilename,
		FileBody:  answerAttachment(answer.Question, answer.Text),
	}); err != nil {
		slog.Error("failed to post answer attachment", "error", err, "channel_id", event.ChannelID)
	}
}

func (m *Manager) notifyWebhook(event discord.SlashCommandEvent, sessionID string, answer assistant.Answer) {
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()
	if err := m.webhook.SendAnswer(ctx, webhook.AnswerWebhookPayload{
		SessionID:        sessionID,
		GuildID:          event.GuildID,
		ChannelID:        event.ChannelID,
		UserID:           event.UserID,
		TranscriptSHA256: answer.TranscriptHash,
		Question:         answer.Question,
		Answer:           answer.Text,
		Cached:           answer.Cached,
		AnsweredAt:       time.Now(),
	}); err != nil {
		slog.Error("failed to send answer webhook", "error", err, "session_id", sessionID)
	}
}

func (m *Manager) handleReset(event discord.SlashCommandEvent) {
	cs := m.channelSession(event.GuildID, event.ChannelID)
	// A reset while an upload or question is running would leave that reply describing discarded state.
	if !m.beginProcessing(cs) {
		respondEphemeral(event, messageEphemeralBusy)
		return
	}
	defer m.endProcessing(cs)
	previous := cs.assistant.ID()
	cs.assistant.Reset()
	slog.Info("session reset", "previous_session_id", previous, "session_id", cs.assistant.ID(), "channel_id", event.ChannelID)
	respondEphemeral(event, messageResetDone)
}

// reply edits the deferred response, falling back to a channel message once the
// interaction token has expired.
func (m *Manager) reply(event discord.SlashCommandEvent, content string) {
	err := event.EditReply(content)
	if err == nil {
		return
	}
	slog.Warn("failed to edit interaction reply; posting to channel", "error", err, "channel_id", event.ChannelID)
	if err := m.discord.SendChannelMessage(event.ChannelID, content); err != nil {
		slog.Error("failed to post channel message", "error", err, "channel_id", event.ChannelID)
	}
}

func respondEphemeral(event discord.SlashCommandEvent, content string) {
	if err := event.RespondEphemeral(content); err != nil {
		slog.Error("failed to respond to slash command", "error", err, "command", event.CommandName)
	}
}
