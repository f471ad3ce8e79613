package discord

import "context"

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

type SlashCommandOptionType int

const (
	SlashCommandOptionString SlashCommandOptionType = iota + 1
	SlashCommandOptionAttachment
)

type SlashCommandOption struct {
	Name        string
	Description string
	Type        SlashCommandOptionType
	Required    bool
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	Options     []SlashCommandOption
}

type Attachment struct {
	ID          string
	Filename    string
	URL         string
	ContentType string
	Size        int
}

type SlashCommandEvent struct {
	GuildID       string
	ChannelID     string
	CommandName   string
	UserID        string
	StringOptions map[string]string
	// Attachments is keyed by option name.
	Attachments      map[string]Attachment
	RespondEphemeral func(content string) error
	DeferReply       func() error
	EditReply        func(content string) error
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	SendChannelMessage(channelID, content string) error
	SendChannelMessageWithFile(msg FileMessage) error
	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	UpsertGuildSlashCommands(guildID string, defs []SlashCommandDefinition) error
	DownloadAttachment(ctx context.Context, attachment Attachment, maxBytes int64) ([]byte, error)
	GetBotUserID() (string, error)
	Run() error
}
