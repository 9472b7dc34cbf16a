package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   ReplyPayload
		want string
	}{
		{"plain text", TextPayload("hello there"), "hello there"},
		{"empty text", TextPayload(""), ""},
		{"object with content", ObjectPayload([]byte(`{"content":"from object","role":"model"}`)), "from object"},
		{"nested content", ObjectPayload([]byte(`{"content": {"parts": [1, 2]}}`)), `{"parts":[1,2]}`},
		{"no content", ObjectPayload([]byte(`{ "candidates": [] }`)), `{"candidates":[]}`},
		{"empty content", ObjectPayload([]byte(`{"content":""}`)), `{"content":""}`},
		{"numeric content", ObjectPayload([]byte(`{"content": 42}`)), `42`},
		{"zero content", ObjectPayload([]byte(`{"content": 0}`)), `{"content":0}`},
		{"false content", ObjectPayload([]byte(`{"content": false, "id": "x"}`)), `{"content":false,"id":"x"}`},
		{"true content", ObjectPayload([]byte(`{"content": true}`)), `true`},
		{"not json", ObjectPayload([]byte(`oops`)), `oops`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.in.Normalize())
		})
	}
}

type stubGenerator struct {
	payload ReplyPayload
	err     error
	prompt  string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (ReplyPayload, error) {
	s.prompt = prompt
	return s.payload, s.err
}

func TestReplier(t *testing.T) {
	gen := &stubGenerator{payload: ObjectPayload([]byte(`{"content":"hi!"}`))}
	r := NewReplier(gen)

	out, err := r.Reply(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
	assert.Equal(t, "Hello", gen.prompt)

	gen.err = errors.New("quota")
	_, err = r.Reply(context.Background(), "Hello")
	assert.EqualError(t, err, "quota")
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gkey", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content any    `json:"content"`
			} `json:"messages"`
		}
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Namaste!"}}]
		}`)
	}))
	defer srv.Close()

	gen := NewOpenAI("gkey", srv.URL, "test-model", srv.Client())
	p, err := gen.Generate(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, PayloadText, p.Kind)
	assert.Equal(t, "Namaste!", p.Normalize())
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	gen := NewOpenAI("gkey", srv.URL, "m", srv.Client())
	p, err := gen.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, PayloadObject, p.Kind)
	assert.Contains(t, p.Normalize(), `"chatcmpl-2"`)
}

func TestAnthropicGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "akey", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`)
	}))
	defer srv.Close()

	gen := NewAnthropic("akey", srv.URL, "claude-test", srv.Client())
	p, err := gen.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", p.Normalize())
}
