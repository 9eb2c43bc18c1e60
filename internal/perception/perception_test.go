package perception

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spacer/internal/auth"
	"spacer/internal/backend"
	"spacer/internal/config"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		h.Append(RoleUser, c)
	}

	var got []string
	for _, m := range h.Messages() {
		got = append(got, m.Content)
	}
	if diff := cmp.Diff([]string{"c", "d", "e"}, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, h.Len())
}

func TestHistoryDefaultLimit(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, DefaultHistoryLimit, h.Limit())
}

func TestHistoryKeepsLastExchange(t *testing.T) {
	h := NewHistory(1)
	assert.Equal(t, MinHistoryLimit, h.Limit())

	h.Append(RoleUser, "q1")
	h.Append(RoleAssistant, "a1")
	h.Append(RoleUser, "q2")
	h.Append(RoleAssistant, "a2")
	want := []Message{{Role: RoleUser, Content: "q2"}, {Role: RoleAssistant, Content: "a2"}}
	if diff := cmp.Diff(want, h.Messages()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryMessagesIsCopy(t *testing.T) {
	h := NewHistory(5)
	h.Append(RoleUser, "original")
	msgs := h.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "original", h.Messages()[0].Content)
}

func TestSerializeConversation(t *testing.T) {
	out := SerializeConversation([]Message{
		{Role: RoleUser, Content: "What is instability?"},
		{Role: RoleAssistant, Content: "A gap the reader cares about.\n"},
	})

	assert.True(t, strings.HasPrefix(out, "<conversation>\n"))
	assert.Contains(t, out, "### User\nWhat is instability?\n")
	assert.Contains(t, out, "### Assistant\nA gap the reader cares about.\n")
	assert.Contains(t, out, "</conversation>")
	assert.Less(t, strings.Index(out, "### User"), strings.Index(out, "### Assistant"))
}

func TestCombinePrompt(t *testing.T) {
	assert.Equal(t, "conv", CombinePrompt("  ", "conv"))

	combined := CombinePrompt("be brief", "conv")
	assert.Equal(t, "<system_instructions>\nbe brief\n</system_instructions>\n\nconv", combined)
}

func TestNormalizeForAPI(t *testing.T) {
	tests := []struct {
		name    string
		history []Message
		want    []Role
	}{
		{"empty", nil, []Role{RoleUser}},
		{"starts with user", []Message{{Role: RoleUser}}, []Role{RoleUser}},
		{"starts with assistant", []Message{{Role: RoleAssistant}, {Role: RoleUser}}, []Role{RoleUser, RoleAssistant, RoleUser}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Role
			for _, m := range normalizeForAPI(tt.history) {
				got = append(got, m.Role)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("roles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "response", OutcomeResponse.String())
	assert.Equal(t, "tool-missing", OutcomeToolMissing.String())
	assert.Equal(t, "unknown", OutcomeKind(99).String())
}

func TestAnthropicBrainThink(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello, "},{"type":"text","text":"researcher."}]}`))
	}))
	defer srv.Close()

	brain := NewAnthropicBrain(AnthropicConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model"})
	reply, err := brain.Think(context.Background(), "system text", []Message{
		{Role: RoleAssistant, Content: "earlier reply"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, researcher.", reply)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "system text", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "hi", got.Messages[2].Content)
}

func TestAnthropicBrainErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	brain := NewAnthropicBrain(AnthropicConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := brain.Think(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBrainUnavailable))

	var unavailable *BrainUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, http.StatusUnauthorized, unavailable.StatusCode)
	assert.Contains(t, err.Error(), "invalid x-api-key")
}

func TestAnthropicBrainMissingKey(t *testing.T) {
	brain := NewAnthropicBrain(AnthropicConfig{})
	_, err := brain.Think(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrBrainUnavailable)
}

func TestAnthropicBrainEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	brain := NewAnthropicBrain(AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	reply, err := brain.Think(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, ResponseNone, reply)
}

type stubBrain struct {
	reply string
	err   error
}

func (s stubBrain) Think(context.Context, string, []Message) (string, error) {
	return s.reply, s.err
}

func TestTracingBrainCountsTurns(t *testing.T) {
	tb := NewTracingBrain(stubBrain{reply: "ok"}, "session-1")
	for i := 0; i < 3; i++ {
		reply, err := tb.Think(context.Background(), "", nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", reply)
	}
	assert.Equal(t, int64(3), tb.Turns())
	assert.Equal(t, "brain", tb.String())

	failing := NewTracingBrain(stubBrain{err: ErrBrainUnavailable}, "session-1")
	_, err := failing.Think(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrBrainUnavailable)
}

func TestNewSelectionCLIEngine(t *testing.T) {
	codex, _ := backend.Lookup("codex")
	claude, _ := backend.Lookup("claude")

	sel, err := NewSelection(context.Background(), &config.UserConfig{Backend: "codex"}, []backend.Spec{claude, codex})
	require.NoError(t, err)
	assert.Equal(t, config.EngineCLI, sel.Engine)
	assert.Equal(t, backend.Codex, sel.Backend.Choice)
	require.NotNil(t, sel.Hands)
	assert.Equal(t, "codex-cli", sel.Hands.String())

	cli, ok := sel.Brain.(*CLIBrain)
	require.True(t, ok)
	assert.Equal(t, "codex-cli", cli.String())
	assert.Contains(t, sel.Label, "Codex CLI")
}

func TestNewSelectionNoAgent(t *testing.T) {
	_, err := NewSelection(context.Background(), &config.UserConfig{}, nil)
	assert.ErrorIs(t, err, backend.ErrNoBackendAvailable)
}

func TestNewSelectionAPIEngine(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())

	t.Run("missing credential", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		_, err := NewSelection(context.Background(), &config.UserConfig{Engine: config.EngineAPI}, nil)
		assert.ErrorIs(t, err, auth.ErrCredentialMissing)
	})

	t.Run("anthropic from env", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-env")
		sel, err := NewSelection(context.Background(), &config.UserConfig{Engine: config.EngineAPI, Model: "m1"}, nil)
		require.NoError(t, err)
		assert.Nil(t, sel.Hands)
		brain, ok := sel.Brain.(*AnthropicBrain)
		require.True(t, ok)
		assert.Equal(t, "m1", brain.model)
		assert.Equal(t, "Anthropic API (m1)", sel.Label)
	})
}
