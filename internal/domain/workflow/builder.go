package workflow

import "fmt"

// Tally summarizes the ledger that gates a transition.
// Required is the number of distinct approvals needed; Approvals counts
// those already recorded, including the one being added.
type Tally struct {
	Approvals int
	Required  int
}

// Complete reports whether the tally satisfies its requirement.
// A non-positive requirement is complete by definition.
func (t Tally) Complete() bool {
	return t.Required <= 0 || t.Approvals >= t.Required
}

// GuardFunc evaluates whether a transition should be taken for a tally
type GuardFunc func(t Tally) bool

// LifecycleBuilder builds an immutable transition table
type LifecycleBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build freezes the configured transitions
	Build() Lifecycle
}

// StateConfiguration configures transitions leaving a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes.
	// Transitions for the same trigger are tried in registration order.
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

// Lifecycle answers transition questions without holding any expense state,
// so a single value is safe to share between goroutines.
type Lifecycle interface {
	// CanFire returns true if the trigger has at least one transition from the state
	CanFire(from State, trigger Trigger) bool

	// Fire resolves the target state for a trigger, evaluating guards against the tally
	Fire(from State, trigger Trigger, tally Tally) (State, error)

	// PermittedTriggers returns all triggers configured for the state
	PermittedTriggers(from State) []Trigger
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
	order       []Trigger
}

type lifecycleBuilder struct {
	configurations map[State]*stateConfig
}

type lifecycle struct {
	configurations map[State]*stateConfig
}

// NewBuilder creates a new lifecycle builder
func NewBuilder() LifecycleBuilder {
	return &lifecycleBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *lifecycleBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build copies the configuration so later Configure calls do not leak in
func (b *lifecycleBuilder) Build() Lifecycle {
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
			order:       append([]Trigger{}, config.order...),
		}
	}

	return &lifecycle{configurations: configsCopy}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	if _, seen := c.transitions[trigger]; !seen {
		c.order = append(c.order, trigger)
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// CanFire returns true if the trigger is configured for the state
func (l *lifecycle) CanFire(from State, trigger Trigger) bool {
	config, exists := l.configurations[from]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire resolves the next state for the trigger
func (l *lifecycle) Fire(from State, trigger Trigger, tally Tally) (State, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, from)
	}

	config, exists := l.configurations[from]
	if !exists {
		return from, fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, from)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return from, fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, from)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(tally) {
			return t.toState, nil
		}
	}

	return from, fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, from)
}

// PermittedTriggers returns triggers configured for the state in registration order
func (l *lifecycle) PermittedTriggers(from State) []Trigger {
	config, exists := l.configurations[from]
	if !exists {
		return []Trigger{}
	}
	return append([]Trigger{}, config.order...)
}
