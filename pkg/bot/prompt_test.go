package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chorus/pkg/api"
	"chorus/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// promptHarness drives a prompt from a test: Await runs on its own
// goroutine while the test feeds candidate resonances through the bot's
// regular fan-out.
type promptHarness struct {
	b      *Bot
	client *fakeClient
	p      *Prompt

	mu     sync.Mutex
	errors []*PromptError

	value any
	err   error
	done  chan struct{}
}

func startPrompt(t *testing.T, b *Bot, client *fakeClient, info PromptInfo) *promptHarness {
	t.Helper()
	h := &promptHarness{b: b, client: client, done: make(chan struct{})}

	userErr := info.OnError
	info.OnError = func(ctx context.Context, perr *PromptError) {
		h.mu.Lock()
		h.errors = append(h.errors, perr)
		h.mu.Unlock()
		if userErr != nil {
			userErr(ctx, perr)
		}
	}

	origin, err := b.NewResonance(context.Background(), client, fakeMessage("u1", "c1", "!quiz"))
	require.NoError(t, err)

	p := b.newPrompt(origin, info)
	h.p = p
	go func() {
		h.value, h.err = p.Await(context.Background())
		close(h.done)
	}()

	// The prompt joins the active set synchronously in newPrompt, so
	// responses fed after this point are guaranteed to be offered to it.
	return h
}

func (h *promptHarness) feed(t *testing.T, userID, channelID, content string) {
	t.Helper()
	res, err := h.b.NewResonance(context.Background(), h.client, fakeMessage(userID, channelID, content))
	require.NoError(t, err)
	h.b.Listen(context.Background(), res)
}

func (h *promptHarness) wait(t *testing.T) (any, error) {
	t.Helper()
	select {
	case <-h.done:
		return h.value, h.err
	case <-time.After(5 * time.Second):
		t.Fatal("prompt never resolved")
		return nil, nil
	}
}

func (h *promptHarness) awaitErrors(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.firedErrors()) >= n
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *promptHarness) firedErrors() []*PromptError {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*PromptError, len(h.errors))
	copy(out, h.errors)
	return out
}

func TestPromptResolvesOnMatchingResponse(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	h := startPrompt(t, b, client, PromptInfo{Message: "pick a number"})

	h.feed(t, "u1", "c1", "seven")

	value, err := h.wait(t)
	require.NoError(t, err)
	assert.Equal(t, "seven", value)

	sent := client.sentMessages()
	require.NotEmpty(t, sent)
	assert.Equal(t, "pick a number", sent[0].content)
	assert.Equal(t, "c1", sent[0].destination)
}

func TestPromptIgnoresNonMatchingResonances(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	h := startPrompt(t, b, client, PromptInfo{})

	// wrong author, then wrong channel; neither may resolve the prompt
	h.feed(t, "u2", "c1", "not me")
	h.feed(t, "u1", "c9", "wrong room")
	h.feed(t, "u1", "c1", "this one")

	value, err := h.wait(t)
	require.NoError(t, err)
	assert.Equal(t, "this one", value)
}

func TestPromptSingleResolution(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})

	var calls int
	var mu sync.Mutex
	h := startPrompt(t, b, client, PromptInfo{
		OnResponse: func(ctx context.Context, res *Resonance) (any, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return res.Content, nil
		},
	})

	h.feed(t, "u1", "c1", "first")
	_, err := h.wait(t)
	require.NoError(t, err)

	// A second matching message after resolution is ordinary chatter.
	h.feed(t, "u1", "c1", "second")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Empty(t, b.ActivePrompts())
}

func TestPromptsDoNotCrossResolve(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})

	// Two structurally similar prompts in the same channel, for different
	// targets. Only the matching author's prompt may resolve.
	forA := startPrompt(t, b, client, PromptInfo{
		User: api.User{ID: "userA"}, Channel: "c1", Timeout: 200 * time.Millisecond,
	})
	forB := startPrompt(t, b, client, PromptInfo{
		User: api.User{ID: "userB"}, Channel: "c1",
	})

	forB.feed(t, "userB", "c1", "from B")

	value, err := forB.wait(t)
	require.NoError(t, err)
	assert.Equal(t, "from B", value)

	// A's prompt stays pending until its own timeout fires.
	_, err = forA.wait(t)
	var perr *PromptError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PromptNoResponse, perr.Code)
}

func TestPromptDisableCancelsAwait(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	h := startPrompt(t, b, client, PromptInfo{Timeout: 100 * time.Millisecond})

	h.p.Disable()

	_, err := h.wait(t)
	assert.ErrorIs(t, err, ErrPromptDisabled)
	assert.Empty(t, b.ActivePrompts())

	// the armed timeout must not fire the error callback afterwards
	assert.Never(t, func() bool { return len(h.firedErrors()) > 0 },
		300*time.Millisecond, 20*time.Millisecond)
}

func TestShutdownDisablesActivePrompts(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	require.NoError(t, b.Deploy(context.Background()))
	h := startPrompt(t, b, client, PromptInfo{Timeout: time.Minute})

	b.Shutdown()

	_, err := h.wait(t)
	assert.ErrorIs(t, err, ErrPromptDisabled)
	assert.Empty(t, h.firedErrors())
}

func TestPromptTimeout(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	h := startPrompt(t, b, client, PromptInfo{Timeout: 50 * time.Millisecond})

	_, err := h.wait(t)
	var perr *PromptError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PromptNoResponse, perr.Code)

	fired := h.firedErrors()
	require.Len(t, fired, 1)
	assert.Equal(t, PromptNoResponse, fired[0].Code)
	assert.Empty(t, b.ActivePrompts())
}

func TestPromptBoundedResets(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})

	reject := func(ctx context.Context, res *Resonance) (any, error) {
		return nil, fmt.Errorf("%w: numbers only", ErrRetryPrompt)
	}

	t.Run("invalid responses re-arm up to the bound then fail once", func(t *testing.T) {
		h := startPrompt(t, b, client, PromptInfo{MaxResets: 2, OnResponse: reject})

		// Each rejection must be consumed before the next response is fed,
		// otherwise the pending-response slot would coalesce them.
		h.feed(t, "u1", "c1", "bad 1")
		h.awaitErrors(t, 1)
		h.feed(t, "u1", "c1", "bad 2")
		h.awaitErrors(t, 2)
		h.feed(t, "u1", "c1", "bad 3")

		_, err := h.wait(t)
		var perr *PromptError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, PromptMaxResetExceeded, perr.Code)

		fired := h.firedErrors()
		require.Len(t, fired, 3)
		assert.Equal(t, PromptInvalidResponse, fired[0].Code)
		assert.Equal(t, "numbers only", fired[0].Reason)
		assert.Equal(t, PromptInvalidResponse, fired[1].Code)
		assert.Equal(t, PromptMaxResetExceeded, fired[2].Code)
	})

	t.Run("valid response within the reset budget still resolves", func(t *testing.T) {
		h := startPrompt(t, b, client, PromptInfo{
			MaxResets: 2,
			OnResponse: func(ctx context.Context, res *Resonance) (any, error) {
				if res.Content != "42" {
					return nil, ErrRetryPrompt
				}
				return 42, nil
			},
		})

		h.feed(t, "u1", "c1", "nope")
		h.awaitErrors(t, 1)
		h.feed(t, "u1", "c1", "42")

		value, err := h.wait(t)
		require.NoError(t, err)
		assert.Equal(t, 42, value)
	})
}

func TestPromptTerminalCallbackError(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	boom := errors.New("downstream failed")
	h := startPrompt(t, b, client, PromptInfo{
		OnResponse: func(ctx context.Context, res *Resonance) (any, error) {
			return nil, boom
		},
	})

	h.feed(t, "u1", "c1", "anything")
	_, err := h.wait(t)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, b.ActivePrompts())
}

func TestPromptDisableIdempotent(t *testing.T) {
	b, client := newTestBot(t, config.BotConfig{})
	res, err := b.NewResonance(context.Background(), client, fakeMessage("u1", "c1", "!quiz"))
	require.NoError(t, err)

	p := b.newPrompt(res, PromptInfo{})
	assert.Len(t, b.ActivePrompts(), 1)

	p.Disable()
	p.Disable()
	assert.False(t, p.Active())
	assert.Empty(t, b.ActivePrompts())
}

func TestParseYesNo(t *testing.T) {
	for _, input := range []string{"yes", "Y", " yeah ", "OK"} {
		yes, ok := ParseYesNo(input)
		assert.True(t, ok, input)
		assert.True(t, yes, input)
	}
	for _, input := range []string{"no", "N", "nope"} {
		yes, ok := ParseYesNo(input)
		assert.True(t, ok, input)
		assert.False(t, yes, input)
	}
	_, ok := ParseYesNo("maybe")
	assert.False(t, ok)

	yes, ok := ParseYesNoWith("oui", []string{"oui"}, []string{"non"})
	assert.True(t, ok)
	assert.True(t, yes)
}
