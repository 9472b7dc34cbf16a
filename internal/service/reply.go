package service

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
)

const replySystemPrompt = `You are Murmur, a friendly voice assistant.
Answer in a few short sentences of plain text that read well aloud.
Do not use markdown, lists or code blocks.`

type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadObject
)

// ReplyPayload is what a generative backend hands back: either a plain
// string or a structured object that may carry a "content" field.
type ReplyPayload struct {
	Kind   PayloadKind
	Text   string
	Object json.RawMessage
}

func TextPayload(s string) ReplyPayload {
	return ReplyPayload{Kind: PayloadText, Text: s}
}

func ObjectPayload(raw []byte) ReplyPayload {
	return ReplyPayload{Kind: PayloadObject, Object: json.RawMessage(raw)}
}

// Normalize flattens the payload into the text the user sees. Objects
// contribute their "content" field unless it is empty, zero or false;
// anything else is shown as raw JSON.
func (p ReplyPayload) Normalize() string {
	if p.Kind == PayloadText {
		return p.Text
	}

	content := gjson.GetBytes(p.Object, "content")
	switch {
	case content.Type == gjson.String && content.Str != "":
		return content.Str
	case content.IsObject() || content.IsArray():
		return compact(content.Raw)
	case content.Type == gjson.Number && content.Num != 0, content.Type == gjson.True:
		return content.Raw
	}

	return compact(string(p.Object))
}

func compact(raw string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return raw
	}
	return buf.String()
}

// Generator is a generative text backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (ReplyPayload, error)
}

// Replier turns a user utterance into reply text.
type Replier struct {
	gen Generator
}

func NewReplier(gen Generator) *Replier {
	return &Replier{gen: gen}
}

func (r *Replier) Reply(ctx context.Context, text string) (string, error) {
	p, err := r.gen.Generate(ctx, text)
	if err != nil {
		return "", err
	}
	return p.Normalize(), nil
}
