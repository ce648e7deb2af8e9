package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the state machine for a single output channel.
// The actions parameter provides the implementation for state entry
// effects. Parameter changes that keep a channel in the same state are
// handled by the controller re-running the entry action directly;
// transitions here only cover actual state changes.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateOff,
			librefsm.WithOnEnter(actions.EnterOff),
		).
		State(StateSteadyOn,
			librefsm.WithOnEnter(actions.EnterSteadyOn),
		).
		State(StateBlinking,
			librefsm.WithOnEnter(actions.EnterBlinking),
		).
		State(StateFadingSlope,
			librefsm.WithOnEnter(actions.EnterFadingSlope),
		).

		// From Off
		Transition(StateOff, EvSetSteady, StateSteadyOn).
		Transition(StateOff, EvSetBlink, StateBlinking).
		Transition(StateOff, EvSetFade, StateFadingSlope).

		// From SteadyOn
		Transition(StateSteadyOn, EvTurnOff, StateOff).
		Transition(StateSteadyOn, EvSetBlink, StateBlinking).
		Transition(StateSteadyOn, EvSetFade, StateFadingSlope).

		// From Blinking
		Transition(StateBlinking, EvTurnOff, StateOff).
		Transition(StateBlinking, EvSetSteady, StateSteadyOn).
		Transition(StateBlinking, EvSetFade, StateFadingSlope).

		// From FadingSlope
		Transition(StateFadingSlope, EvTurnOff, StateOff).
		Transition(StateFadingSlope, EvSetSteady, StateSteadyOn).
		Transition(StateFadingSlope, EvSetBlink, StateBlinking).

		// Every channel comes up dark
		Initial(StateOff)
}
