package chat

// Kind distinguishes event payloads.
type Kind int

const (
	// KindMessage is a chat line addressed to a channel or the bot.
	KindMessage Kind = iota
	// KindTopic is a topic (or channel title) change.
	KindTopic
)

// Topic event sources, used as metric labels.
const (
	SourceIRC   = "irc"
	SourceHelix = "helix"
)

// Event is one transport occurrence.
type Event struct {
	Kind Kind
	// Channel is the channel name without a leading '#'.
	Channel string
	// Sender is the nick that wrote the message or set the topic.
	Sender string
	// Destination is where a message was sent: a channel, or the bot's
	// own nick for whispers.
	Destination string
	Text        string
	Source      string
	Raw         string
}
