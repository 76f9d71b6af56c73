package workflow

import "context"

type quorumKey struct{}

// WithQuorum records on ctx whether the approve being fired reaches quorum
func WithQuorum(ctx context.Context, reached bool) context.Context {
	return context.WithValue(ctx, quorumKey{}, reached)
}

func quorumReached(ctx context.Context) bool {
	reached, _ := ctx.Value(quorumKey{}).(bool)
	return reached
}

func quorumPending(ctx context.Context) bool {
	return !quorumReached(ctx)
}

var requestBuilder = newRequestBuilder()

// newRequestBuilder configures the fixed approval request lifecycle:
//
//	draft   --submit--> pending
//	draft   --cancel--> cancelled
//	draft   --edit----> draft
//	pending --cancel--> cancelled
//	pending --reject--> rejected
//	pending --approve-> approved (quorum reached) | pending (quorum not reached)
func newRequestBuilder() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerSubmit, StatePending).
		Permit(TriggerCancel, StateCancelled).
		Permit(TriggerEdit, StateDraft)

	b.Configure(StatePending).
		Permit(TriggerCancel, StateCancelled).
		Permit(TriggerReject, StateRejected).
		PermitIf(TriggerApprove, StateApproved, quorumReached).
		PermitIf(TriggerApprove, StatePending, quorumPending)

	return b
}

// NewRequestMachine returns a request lifecycle machine positioned at status.
// An unknown status yields a machine that permits nothing.
func NewRequestMachine(status string) StateMachine {
	state := State(status)
	if !state.IsValid() {
		return &stateMachine{currentState: state}
	}
	return requestBuilder.Build(state)
}

// Next returns the state reached by firing trigger from status
func Next(ctx context.Context, status string, trigger Trigger) (State, error) {
	m := NewRequestMachine(status)
	if err := m.Fire(ctx, trigger); err != nil {
		return State(status), err
	}
	return m.State(), nil
}
