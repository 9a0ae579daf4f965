// Package chat connects the bot to Twitch chat and turns what it sees into
// events for a single consumer goroutine.
//
// Two producers feed the event channel:
//   - Client: a go-twitch-irc connection. PRIVMSG and whispers become message
//     events; raw IRC TOPIC lines (servers other than Twitch) become topic
//     events. Client also implements the reply side (SendMessage/SendNotice).
//   - TitlePoller: polls the Helix channel title of each tracked channel and
//     emits a topic event whenever the title changes.
//
// Service.Run drains both into a Handler one event at a time, so topic
// transitions and commands never interleave.
package chat
