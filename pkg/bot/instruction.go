package bot

import (
	"context"
	"fmt"
	"io"
	"time"

	"chorus/pkg/cooldown"

	"github.com/spf13/pflag"
)

// Arguments holds a parsed command invocation's inputs. Positional tokens
// are collected in order; declared options land in Flags (valued) or
// Switches (boolean), keyed by their long name.
type Arguments struct {
	Positional []string
	Flags      map[string]string
	Switches   map[string]bool
}

// Instruction (a.k.a. Order) is one parsed command invocation, owned by the
// resonance it was interpreted from. It is consumed immediately by the
// authorizer and the command's execution; never persisted.
type Instruction struct {
	Command   *Command
	Resonance *Resonance
	// Prefix is the command prefix that was in effect for this context.
	Prefix    string
	Arguments Arguments
	// Config is the effective command configuration: persisted bot-wide
	// config merged under persisted client-specific config, over the
	// in-code defaults.
	Config CommandConfig
	// Content is the raw trailing text: the message minus prefix and
	// command token.
	Content string
}

// parseArguments runs the declared options of cmd over the invocation
// tokens. Undeclared or malformed options are a configuration failure
// surfaced to the operator, not ordinary denial.
func parseArguments(cmd *Command, tokens []string) (Arguments, error) {
	fs := pflag.NewFlagSet(cmd.ID, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	strVals := make(map[string]*string)
	boolVals := make(map[string]*bool)
	for _, opt := range cmd.Options {
		if opt.Flag {
			boolVals[opt.Key] = fs.BoolP(opt.Key, opt.Shorthand, false, opt.Description)
		} else {
			strVals[opt.Key] = fs.StringP(opt.Key, opt.Shorthand, "", opt.Description)
		}
	}

	if err := fs.Parse(tokens); err != nil {
		return Arguments{}, fmt.Errorf("malformed arguments for command %q: %w", cmd.ID, err)
	}

	args := Arguments{
		Positional: fs.Args(),
		Flags:      make(map[string]string),
		Switches:   make(map[string]bool),
	}
	for k, v := range strVals {
		if fs.Changed(k) {
			args.Flags[k] = *v
		}
	}
	for k, v := range boolVals {
		if fs.Changed(k) {
			args.Switches[k] = *v
		}
	}
	return args, nil
}

// HasInput reports whether the invocation carried positional input. Options
// alone do not count; a command requiring input wants an actual subject.
func (a Arguments) HasInput() bool {
	return len(a.Positional) > 0
}

// Execute runs the command's behavior for this invocation: the
// platform-independent ExecuteFunc when present, otherwise the handler
// bound to the originating client type.
func (o *Instruction) Execute(ctx context.Context) error {
	if o.Command.Execute != nil {
		return o.Command.Execute(ctx, o)
	}
	return o.Command.FireClientHandlers(ctx, o, nil)
}

// SetCooldowns records the configured cooldowns after a successful
// execution. The authorizer deliberately never does this itself; the
// dispatching listener calls it once the command has actually run.
func (o *Instruction) SetCooldowns() {
	b := o.Resonance.Bot
	cd := o.Config.Cooldown
	b.Cooldowns().Set(b.ID(), "command", o.Command.ID, cooldown.GlobalScope,
		time.Duration(cd.GlobalSec)*time.Second)
	b.Cooldowns().Set(b.ID(), "command", o.Command.ID, o.Resonance.Author.ID,
		time.Duration(cd.UserSec)*time.Second)
}
