package bot

import (
	"context"
	"fmt"

	"chorus/pkg/api"
)

// Authorizer is the per-invocation gate in front of command execution.
// One instance per instruction, never reused: Build loads the persisted
// authorization state, Warrant renders the decision. Ordinary denial is
// (false, nil); errors are reserved for malformed configuration.
type Authorizer interface {
	Build(ctx context.Context) error
	Warrant(ctx context.Context) (bool, error)
}

// AuthorizerFactory constructs a fresh authorizer for one instruction.
type AuthorizerFactory func(order *Instruction) Authorizer

// authorizerRegistry maps client types to their authorizer factories,
// populated from each client package's init().
var authorizerRegistry = make(map[api.ClientType]AuthorizerFactory)

// RegisterAuthorizer binds an authorizer factory to a client type.
func RegisterAuthorizer(t api.ClientType, f AuthorizerFactory) {
	authorizerRegistry[t] = f
}

func authorizerFor(order *Instruction) (Authorizer, error) {
	t := order.Resonance.Client.Type()
	f, ok := authorizerRegistry[t]
	if !ok {
		// A connected client type with no authorization gate is framework
		// misconfiguration, not a deniable request.
		return nil, fmt.Errorf("no authorizer registered for client type %q", t)
	}
	return f(order), nil
}
