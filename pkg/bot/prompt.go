package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chorus/pkg/api"
)

// PromptErrorCode is the closed set of prompt failure reasons, always
// delivered through the prompt's OnError callback.
type PromptErrorCode string

const (
	PromptNoResponse       PromptErrorCode = "NO_RESPONSE"
	PromptMaxResetExceeded PromptErrorCode = "MAX_RESET_EXCEEDED"
	PromptInvalidResponse  PromptErrorCode = "INVALID_RESPONSE"
)

// PromptError is a terminal or feedback error raised by a prompt.
type PromptError struct {
	Code   PromptErrorCode
	Reason string
}

func (e *PromptError) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// ErrRetryPrompt is the control sentinel a response callback returns to
// reject a response and re-arm the prompt for another round. Wrap it to
// carry user-facing feedback: fmt.Errorf("%w: try a number", ErrRetryPrompt).
var ErrRetryPrompt = errors.New("retry prompt")

// ErrPromptDisabled is returned from Await when the prompt was terminated
// externally, for example by the bot shutting down, before it resolved.
var ErrPromptDisabled = errors.New("prompt disabled")

// Condition decides whether a candidate resonance answers this prompt.
// Predicates must be precise enough to avoid cross-resolving similar
// prompts racing on the same stream: scope by channel AND author.
type Condition func(res *Resonance) bool

// ResponseFunc consumes the matched resonance and produces the prompt's
// resolution value. Returning ErrRetryPrompt (possibly wrapped) re-arms the
// prompt instead.
type ResponseFunc func(ctx context.Context, res *Resonance) (any, error)

// ErrorFunc receives prompt failures, for user-facing feedback.
type ErrorFunc func(ctx context.Context, perr *PromptError)

// PromptInfo configures one prompt. Zero fields fall back to bot defaults:
// timeout from system config, condition matching the target user in the
// target channel, response resolving to the raw response text.
type PromptInfo struct {
	// User is the identity expected to respond.
	User api.User
	// Channel is the line the response is expected on.
	Channel string
	// Message, when set, is sent to the channel before the wait starts.
	Message string
	// Timeout bounds each round of waiting. Zero uses the system default.
	Timeout time.Duration
	// MaxResets bounds re-arms; negative means zero. Zero uses the system
	// default.
	MaxResets  int
	Condition  Condition
	OnResponse ResponseFunc
	OnError    ErrorFunc
}

type promptState int

const (
	promptAwaiting promptState = iota
	promptDisabled
)

// Prompt is one outstanding conversational expectation owned by a bot. It
// is a member of the bot's active set from creation until disabled; exactly
// one resolution path ever executes.
type Prompt struct {
	bot        *Bot
	clientType api.ClientType
	resonance  *Resonance
	info       PromptInfo

	responses chan *Resonance
	// done is closed on the first transition to promptDisabled; Await
	// selects on it so an external Disable wakes the waiter.
	done chan struct{}

	mu     sync.Mutex
	state  promptState
	resets int
}

// newPrompt creates a prompt derived from res, fills in defaults, and adds
// it to the bot's active set.
func (b *Bot) newPrompt(res *Resonance, info PromptInfo) *Prompt {
	if info.User.ID == "" {
		info.User = res.Author
	}
	if info.Channel == "" {
		info.Channel = res.Origin.ChannelID
	}
	if info.Timeout <= 0 {
		info.Timeout = time.Duration(b.system.PromptTimeoutSec) * time.Second
	}
	if info.MaxResets == 0 {
		info.MaxResets = b.system.PromptMaxResets
	}
	if info.MaxResets < 0 {
		info.MaxResets = 0
	}
	if info.Condition == nil {
		user, channel := info.User.ID, info.Channel
		info.Condition = func(r *Resonance) bool {
			return r.Origin.ChannelID == channel && r.Author.ID == user
		}
	}
	if info.OnResponse == nil {
		info.OnResponse = func(_ context.Context, r *Resonance) (any, error) {
			return r.Content, nil
		}
	}

	p := &Prompt{
		bot:        b,
		clientType: res.Client.Type(),
		resonance:  res,
		info:       info,
		responses:  make(chan *Resonance, 1),
		done:       make(chan struct{}),
	}
	b.addPrompt(p)
	return p
}

// Listen offers a candidate resonance to this prompt. Called concurrently
// with every other active prompt for every message the bot hears; only a
// matching, still-active prompt accepts.
func (p *Prompt) Listen(res *Resonance) {
	if res.Client.Type() != p.clientType {
		return
	}
	if !p.info.Condition(res) {
		return
	}

	p.mu.Lock()
	active := p.state == promptAwaiting
	p.mu.Unlock()
	if !active {
		// Lost the race against timeout or another response; no-op.
		return
	}

	select {
	case p.responses <- res:
	default:
	}
}

// Await sends the opening message if configured, then blocks until the
// prompt resolves: a matching response, a timeout, or context cancellation,
// whichever fires first. Invalid responses re-arm the wait up to MaxResets
// times before failing terminally.
func (p *Prompt) Await(ctx context.Context) (any, error) {
	if p.info.Message != "" {
		if err := p.resonance.Send(ctx, p.info.Channel, p.info.Message); err != nil {
			slog.Warn("Failed to send prompt opening", "bot", p.bot.id, "error", err)
		}
	}

	timer := time.NewTimer(p.info.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Disable()
			return nil, ctx.Err()

		case <-p.done:
			// Terminated externally, e.g. by bot shutdown. Not a failure
			// of the responder, so no error callback fires.
			return nil, ErrPromptDisabled

		case <-timer.C:
			if !p.disable() {
				// Lost the race against an external Disable.
				return nil, ErrPromptDisabled
			}
			perr := &PromptError{Code: PromptNoResponse, Reason: "no response within time limit"}
			p.fireError(ctx, perr)
			return nil, perr

		case res := <-p.responses:
			value, err := p.info.OnResponse(ctx, res)
			if errors.Is(err, ErrRetryPrompt) {
				if exceeded := p.reset(ctx, err); exceeded {
					if !p.disable() {
						return nil, ErrPromptDisabled
					}
					perr := &PromptError{Code: PromptMaxResetExceeded, Reason: "too many invalid responses"}
					p.fireError(ctx, perr)
					return nil, perr
				}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(p.info.Timeout)
				continue
			}

			if !p.disable() {
				return nil, ErrPromptDisabled
			}
			if err != nil {
				return nil, err
			}
			return value, nil
		}
	}
}

// reset counts one re-arm and emits the invalid-response feedback. Returns
// true once the bounded reset budget is exhausted.
func (p *Prompt) reset(ctx context.Context, cause error) (exceeded bool) {
	p.mu.Lock()
	p.resets++
	exceeded = p.resets > p.info.MaxResets
	p.mu.Unlock()

	if exceeded {
		return true
	}

	reason := strings.TrimSpace(strings.TrimPrefix(cause.Error(), ErrRetryPrompt.Error()))
	reason = strings.TrimPrefix(reason, ":")
	p.fireError(ctx, &PromptError{Code: PromptInvalidResponse, Reason: strings.TrimSpace(reason)})
	return false
}

// Disable terminates the prompt and removes it from the bot's active set,
// waking a blocked Await. Idempotent and safe to call from any path.
func (p *Prompt) Disable() {
	p.disable()
}

// disable performs the terminal transition, reporting whether this call won
// it. Exactly one caller ever observes true; later callers no-op.
func (p *Prompt) disable() bool {
	p.mu.Lock()
	already := p.state == promptDisabled
	p.state = promptDisabled
	p.mu.Unlock()

	if already {
		return false
	}
	close(p.done)
	p.bot.removePrompt(p)
	return true
}

// Active reports whether the prompt is still awaiting a response.
func (p *Prompt) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == promptAwaiting
}

func (p *Prompt) fireError(ctx context.Context, perr *PromptError) {
	if p.info.OnError == nil {
		return
	}
	p.info.OnError(ctx, perr)
}

// Yes/no keyword matching for conversational prompts. Deliberately a plain
// keyword list rather than anything clever; callers needing other locales
// pass their own sets to ParseYesNoWith.
var (
	yesWords = []string{"yes", "y", "yeah", "yep", "sure", "ok", "okay"}
	noWords  = []string{"no", "n", "nope", "nah"}
)

// ParseYesNo interprets a prompt response as an affirmative or negative.
// ok is false when the text matches neither set.
func ParseYesNo(s string) (yes bool, ok bool) {
	return ParseYesNoWith(s, yesWords, noWords)
}

// ParseYesNoWith is ParseYesNo with caller-supplied keyword sets.
func ParseYesNoWith(s string, yes, no []string) (bool, bool) {
	token := strings.ToLower(strings.TrimSpace(s))
	for _, w := range yes {
		if token == w {
			return true, true
		}
	}
	for _, w := range no {
		if token == w {
			return false, true
		}
	}
	return false, false
}
