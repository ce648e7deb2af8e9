package controller

import (
	"context"
	"fmt"

	"github.com/librescoot/librefsm"

	"led-service/internal/fsm"
	"led-service/internal/hardware"
	"led-service/internal/logger"
	"led-service/internal/types"
)

// stagedRequest carries the encoded values from an operation to the
// state entry action that packs them into the shadow set.
type stagedRequest struct {
	brightness uint8
	params     SlopeParams
	slopeMode  bool
}

// ChannelController owns one output channel's slice of the shadow
// register set. All operations run under the Driver's lock; the
// controller itself carries no locking.
type ChannelController struct {
	ch     types.Channel
	offset uint8
	shadow *hardware.ShadowRegisters
	tuning func() GlobalTuning
	logger *logger.Logger

	machine *librefsm.Machine
	state   types.ChannelState
	staged  stagedRequest

	onStateChange func(types.Channel, types.ChannelState)
}

func NewChannelController(ch types.Channel, offset uint8, shadow *hardware.ShadowRegisters,
	tuning func() GlobalTuning, log *logger.Logger) (*ChannelController, error) {
	c := &ChannelController{
		ch:     ch,
		offset: offset,
		shadow: shadow,
		tuning: tuning,
		logger: log.WithTag(ch.String()),
		state:  types.StateOff,
	}

	machine, err := fsm.NewDefinition(c).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build channel %s state machine: %w", ch, err)
	}
	c.machine = machine

	machine.OnStateChange(func(from, to librefsm.StateID) {
		c.state = types.ChannelState(to)
		c.logger.Debugf("state transition: %s -> %s", from, to)
		if c.onStateChange != nil {
			c.onStateChange(c.ch, c.state)
		}
	})

	return c, nil
}

// Start runs the state machine. The channel begins in Off.
func (c *ChannelController) Start(ctx context.Context) error {
	return c.machine.Start(ctx)
}

// OnStateChange registers the publish hook, called after every state
// transition with the new state.
func (c *ChannelController) OnStateChange(fn func(types.Channel, types.ChannelState)) {
	c.onStateChange = fn
}

// State returns the channel's current lifecycle state.
func (c *ChannelController) State() types.ChannelState {
	return c.state
}

// TurnOff disables the channel and zeroes its enable-adjacent bytes.
func (c *ChannelController) TurnOff() error {
	c.staged = stagedRequest{}
	return c.dispatch(types.StateOff, fsm.EvTurnOff)
}

// SetSteady lights the channel at a constant level. A zero level turns
// it off instead.
func (c *ChannelController) SetSteady(level int) error {
	brightness := ScaleLevel(level, c.tuning())
	if brightness == 0 {
		return c.TurnOff()
	}
	c.staged = stagedRequest{brightness: brightness}
	return c.dispatch(types.StateSteadyOn, fsm.EvSetSteady)
}

// SetSteadyScaled lights the channel at a brightness that has already
// been through regime scaling, used by pattern templates whose basis is
// computed once for the whole pattern.
func (c *ChannelController) SetSteadyScaled(brightness uint8) error {
	if brightness == 0 {
		return c.TurnOff()
	}
	c.staged = stagedRequest{brightness: brightness}
	return c.dispatch(types.StateSteadyOn, fsm.EvSetSteady)
}

// SetBlink programs the slope engine for a blink or fade cycle. A zero
// level turns the channel off; a zero off time or continuous speed
// degrades to steady light.
func (c *ChannelController) SetBlink(level int, delayOnMs, delayOffMs uint32) error {
	if level <= 0 {
		return c.TurnOff()
	}

	t := c.tuning()
	brightness, params, steady := EncodeBlink(level, delayOnMs, delayOffMs, t)
	if brightness == 0 {
		return c.TurnOff()
	}
	if steady {
		c.staged = stagedRequest{brightness: brightness}
		return c.dispatch(types.StateSteadyOn, fsm.EvSetSteady)
	}

	c.staged = stagedRequest{brightness: brightness, params: params, slopeMode: true}
	if t.FadeEnabled {
		return c.dispatch(types.StateFadingSlope, fsm.EvSetFade)
	}
	return c.dispatch(types.StateBlinking, fsm.EvSetBlink)
}

// ApplyTemplate programs the channel from a pattern step with explicit
// slope numbers. Continuous speed suppresses the slope engine, matching
// the blink path.
func (c *ChannelController) ApplyTemplate(brightness uint8, fade bool, params SlopeParams) error {
	if brightness == 0 {
		return c.TurnOff()
	}
	if c.tuning().Speed == SpeedContinuous {
		c.staged = stagedRequest{brightness: brightness}
		return c.dispatch(types.StateSteadyOn, fsm.EvSetSteady)
	}

	c.staged = stagedRequest{brightness: brightness, params: params, slopeMode: true}
	if fade {
		return c.dispatch(types.StateFadingSlope, fsm.EvSetFade)
	}
	return c.dispatch(types.StateBlinking, fsm.EvSetBlink)
}

// dispatch routes a request through the state machine. When the channel
// is already in the target state the machine has no transition to take,
// so the entry action is re-run directly to apply the new parameters.
func (c *ChannelController) dispatch(target types.ChannelState, ev librefsm.EventID) error {
	if c.machine.CurrentState() == librefsm.StateID(target) {
		c.logger.Debugf("already %s, re-applying parameters", target)
		return c.runEntry(target)
	}
	return c.machine.SendSync(librefsm.Event{ID: ev})
}

func (c *ChannelController) runEntry(state types.ChannelState) error {
	switch state {
	case types.StateOff:
		return c.EnterOff(nil)
	case types.StateSteadyOn:
		return c.EnterSteadyOn(nil)
	case types.StateBlinking:
		return c.EnterBlinking(nil)
	case types.StateFadingSlope:
		return c.EnterFadingSlope(nil)
	default:
		return fmt.Errorf("unknown channel state %q", state)
	}
}

// ===== State Entry Actions =====

// EnterOff clears the enable and slope-mode bits and zeroes the current
// byte and delay nibble, so a disabled channel never retains stale
// timing state.
func (c *ChannelController) EnterOff(_ *librefsm.Context) error {
	c.shadow.MergeField(hardware.RegLedOn, hardware.LedOnBit<<c.ch, 0)
	c.shadow.MergeField(hardware.RegLedOn, hardware.SlopeModeBit<<c.ch, 0)
	c.shadow.MergeField(hardware.RegCnt(c.ch, 1), hardware.MaskDelay, 0)
	c.shadow.MergeField(hardware.RegCC(c.ch), 0xFF, 0)
	return nil
}

// EnterSteadyOn sets the enable bit and current byte with slope mode
// off. Stale counter bytes are harmless while slope mode is clear.
func (c *ChannelController) EnterSteadyOn(_ *librefsm.Context) error {
	c.shadow.MergeField(hardware.RegLedOn, hardware.LedOnBit<<c.ch, hardware.LedOnBit<<c.ch)
	c.shadow.MergeField(hardware.RegLedOn, hardware.SlopeModeBit<<c.ch, 0)
	c.shadow.MergeField(hardware.RegCC(c.ch), 0xFF, c.withOffset(c.staged.brightness))
	return nil
}

// EnterBlinking enables the slope engine with the staged hard-blink
// parameters.
func (c *ChannelController) EnterBlinking(_ *librefsm.Context) error {
	return c.enterSlope()
}

// EnterFadingSlope enables the slope engine with the staged soft-ramp
// parameters.
func (c *ChannelController) EnterFadingSlope(_ *librefsm.Context) error {
	return c.enterSlope()
}

func (c *ChannelController) enterSlope() error {
	c.shadow.MergeField(hardware.RegLedOn, hardware.LedOnBit<<c.ch, hardware.LedOnBit<<c.ch)
	c.shadow.MergeField(hardware.RegLedOn, hardware.SlopeModeBit<<c.ch, hardware.SlopeModeBit<<c.ch)
	c.shadow.MergeField(hardware.RegCC(c.ch), 0xFF, c.withOffset(c.staged.brightness))
	c.staged.params.PackInto(c.shadow, c.ch)
	return nil
}

// withOffset adds the channel's calibration offset to a nonzero
// brightness. Zero stays zero so off is representable.
func (c *ChannelController) withOffset(brightness uint8) uint8 {
	if brightness == 0 {
		return 0
	}
	sum := int(brightness) + int(c.offset)
	if sum > hardware.MaxBrightness {
		sum = hardware.MaxBrightness
	}
	return uint8(sum)
}
