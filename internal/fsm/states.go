package fsm

import "github.com/librescoot/librefsm"

// Channel output states
const (
	StateOff         librefsm.StateID = "off"
	StateSteadyOn    librefsm.StateID = "steady-on"
	StateBlinking    librefsm.StateID = "blinking"
	StateFadingSlope librefsm.StateID = "fading-slope"
)

// Channel events
const (
	EvTurnOff   librefsm.EventID = "turn-off"
	EvSetSteady librefsm.EventID = "set-steady"
	EvSetBlink  librefsm.EventID = "set-blink"
	EvSetFade   librefsm.EventID = "set-fade"
)
