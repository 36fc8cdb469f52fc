package irc

import (
	"regexp"
	"strings"
	"time"
)

// Message is one accepted chat post.
type Message struct {
	Sender     string
	Text       string
	ReceivedAt time.Time
}

// Format: ":<user>!<user>@<user>.tmi.twitch.tv PRIVMSG #<channel> :<text>"
var privmsgPattern = regexp.MustCompile(`^:([^!]+)![^ ]+ PRIVMSG #[^ ]+ :(.+)$`)

// ParsePrivateMessage extracts the sender and text from a raw PRIVMSG line.
// Lines without the PRIVMSG marker or not matching the grammar yield ok=false,
// never an error.
func ParsePrivateMessage(raw string) (Message, bool) {
	if !strings.Contains(raw, "PRIVMSG") {
		return Message{}, false
	}
	m := privmsgPattern.FindStringSubmatch(strings.TrimRight(raw, "\r\n"))
	if m == nil {
		return Message{}, false
	}
	return Message{Sender: m[1], Text: m[2], ReceivedAt: time.Now().UTC()}, true
}
