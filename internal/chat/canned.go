package chat

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultReplies is the built-in copy used in anonymous mode when no replies
// file is configured. Product copy lives in data, not in the send path.
var defaultReplies = []string{
	"Hi, I'm Sakhi! I'm here to listen and support you. Sign in to save our conversations and get personalized responses.",
	"Hello! It's lovely to meet you. I can chat with you right now, and if you create an account I'll remember our conversations.",
	"Welcome! I'm Sakhi, your companion for advice, support, and a friendly ear. Sign in to unlock the full experience.",
	"Thanks for reaching out! While you're browsing as a guest I can only offer a quick hello. Log in and we can really talk.",
	"I'm so glad you're here. Create an account or sign in, and I'll be able to give you thoughtful, personal answers.",
}

// repliesFile is the YAML shape of an external replies file.
type repliesFile struct {
	Replies []string `yaml:"replies"`
}

// ReplyDeck picks canned assistant replies for anonymous sessions.
type ReplyDeck struct {
	replies []string
	rand    *rand.Rand
}

// DefaultDeck returns a deck with the built-in replies.
func DefaultDeck() *ReplyDeck {
	return &ReplyDeck{replies: defaultReplies}
}

// LoadDeck reads replies from a YAML file. An empty path yields the built-in
// deck.
func LoadDeck(path string) (*ReplyDeck, error) {
	if path == "" {
		return DefaultDeck(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replies file: %w", err)
	}

	var file repliesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse replies file: %w", err)
	}
	if len(file.Replies) == 0 {
		return nil, fmt.Errorf("replies file %s contains no replies", path)
	}

	return &ReplyDeck{replies: file.Replies}, nil
}

// Pick returns a random reply from the deck.
func (d *ReplyDeck) Pick() string {
	if d.rand != nil {
		return d.replies[d.rand.Intn(len(d.replies))]
	}
	return d.replies[rand.Intn(len(d.replies))]
}

// Replies returns the deck's contents.
func (d *ReplyDeck) Replies() []string {
	return d.replies
}
