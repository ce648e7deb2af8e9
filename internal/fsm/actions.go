package fsm

import "github.com/librescoot/librefsm"

// Actions defines the register effects applied on output-state entry.
// The channel controller implements this interface; each entry action
// merges the pending request's field values into the shadow register set.
type Actions interface {
	// EnterOff clears the enable bit, slope-mode bit, delay nibble and
	// current byte of the channel.
	EnterOff(c *librefsm.Context) error

	// EnterSteadyOn writes the current byte, sets the enable bit and
	// clears the slope-mode bit. No timing fields are touched.
	EnterSteadyOn(c *librefsm.Context) error

	// EnterBlinking programs the slope block with a hard on/off duty
	// profile and raises the enable and slope-mode bits.
	EnterBlinking(c *librefsm.Context) error

	// EnterFadingSlope programs the slope block with a ramped duty
	// profile and the tuned step detention times.
	EnterFadingSlope(c *librefsm.Context) error
}
