package intent

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rainit/rainit/backend/internal/model/persona"
)

// Tag names the route a message takes through the coordinator.
type Tag string

const (
	Greeting       Tag = "greeting"
	Hobby          Tag = "hobby"
	RecentActivity Tag = "recent_activity"
	Unhandled      Tag = "unhandled"
)

// Canned reports whether the tag is answered locally.
func (t Tag) Canned() bool {
	return t != Unhandled && t != ""
}

// Result carries the classification and, for canned tags, the reply.
type Result struct {
	Tag   Tag
	Reply string
}

// Picker chooses an index in [0, n). *rand.Rand satisfies it but is not safe
// for concurrent use; the default picker is.
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// Classifier routes raw user text to a canned reply or to the model.
type Classifier struct {
	persona persona.Persona
	rules   []rule
	picker  Picker
}

type rule struct {
	tag      Tag
	keywords []string
}

// Option customises a Classifier.
type Option func(*Classifier)

// WithPicker replaces the random source used to pick canned replies.
func WithPicker(p Picker) Option {
	return func(c *Classifier) {
		if p != nil {
			c.picker = p
		}
	}
}

// New builds a classifier over the persona's keyword sets and reply pools.
func New(p persona.Persona, opts ...Option) *Classifier {
	c := &Classifier{
		persona: p,
		rules: []rule{
			{tag: Greeting, keywords: lowerAll(p.Keywords.Greeting)},
			{tag: Hobby, keywords: lowerAll(p.Keywords.Hobby)},
			{tag: RecentActivity, keywords: lowerAll(p.Keywords.Recent)},
		},
		picker: globalPicker{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never fails: text matching no rule is Unhandled. Rules are checked
// in greeting, hobby, recent order and the first hit wins.
func (c *Classifier) Classify(text string) Result {
	normalized := strings.ToLower(text)

	for _, r := range c.rules {
		if !containsAny(normalized, r.keywords) {
			continue
		}
		if reply, ok := c.reply(r.tag); ok {
			return Result{Tag: r.tag, Reply: reply}
		}
	}
	return Result{Tag: Unhandled}
}

func (c *Classifier) reply(tag Tag) (string, bool) {
	switch tag {
	case Greeting:
		return c.pick(c.persona.Greetings)
	case Hobby:
		hobby, ok := c.pick(c.persona.Hobbies)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(c.persona.HobbyTemplate, hobby), true
	case RecentActivity:
		activity, ok := c.pick(c.persona.RecentActivities)
		if !ok {
			return "", false
		}
		return fmt.Sprintf(c.persona.RecentTemplate, activity), true
	default:
		return "", false
	}
}

// pick returns false for an empty pool so the message falls through to the
// next rule instead of panicking.
func (c *Classifier) pick(pool []string) (string, bool) {
	if len(pool) == 0 {
		return "", false
	}
	return pool[c.picker.IntN(len(pool))], true
}

func containsAny(text string, keywords []string) bool {
	for _, word := range keywords {
		if word == "" {
			continue
		}
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(w))
	}
	return out
}
