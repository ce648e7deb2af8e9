package controller

import (
	"context"
	"fmt"
	"sync"

	"led-service/internal/hardware"
	"led-service/internal/logger"
	"led-service/internal/types"
)

// brightnessSlot is the hand-off between the non-blocking trigger path
// and the blocking commit path. Each write overwrites the previous
// request; the worker only ever commits the latest level.
type brightnessSlot struct {
	mu    sync.Mutex
	level int
	kick  chan struct{}
}

func newBrightnessSlot() *brightnessSlot {
	return &brightnessSlot{kick: make(chan struct{}, 1)}
}

func (s *brightnessSlot) put(level int) {
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *brightnessSlot) take() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Driver owns the shadow register set, the global tuning, and the three
// channel controllers. One mutex spans every encode-merge-commit
// sequence so concurrent requests serialize and each commit carries a
// consistent register image.
type Driver struct {
	logger    *logger.Logger
	committer *hardware.Committer

	mu       sync.Mutex
	shadow   hardware.ShadowRegisters
	tuning   GlobalTuning
	channels [types.NumChannels]*ChannelController

	slots [types.NumChannels]*brightnessSlot
	wg    sync.WaitGroup
}

func NewDriver(committer *hardware.Committer, tuning GlobalTuning, log *logger.Logger) (*Driver, error) {
	d := &Driver{
		logger:    log.WithTag("driver"),
		committer: committer,
		tuning:    tuning,
	}

	for i := 0; i < types.NumChannels; i++ {
		ch := types.Channel(i)
		cc, err := NewChannelController(ch, tuning.Offsets[i], &d.shadow, d.tuningSnapshot, log)
		if err != nil {
			return nil, err
		}
		d.channels[i] = cc
		d.slots[i] = newBrightnessSlot()
	}

	return d, nil
}

// tuningSnapshot hands encoders a copy of the live tuning. Callers hold
// d.mu already; the channel controllers only run under it.
func (d *Driver) tuningSnapshot() GlobalTuning {
	return d.tuning
}

// OnChannelStateChange registers a hook called with every channel state
// transition, used to publish lifecycle changes.
func (d *Driver) OnChannelStateChange(fn func(types.Channel, types.ChannelState)) {
	for _, cc := range d.channels {
		cc.OnStateChange(fn)
	}
}

// Start resets the chip, reads back its register file as the shadow
// baseline, programs the current limit, and launches the per-channel
// state machines and brightness workers.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.committer.Reset(); err != nil {
		return fmt.Errorf("chip bring-up failed: %w", err)
	}
	if err := d.committer.ReadAll(&d.shadow); err != nil {
		return fmt.Errorf("chip bring-up failed: %w", err)
	}

	d.shadow.MergeField(hardware.RegSel, hardware.MaskImax, 0)
	if err := d.committer.WriteSelector(d.shadow); err != nil {
		return fmt.Errorf("chip bring-up failed: %w", err)
	}

	for _, cc := range d.channels {
		if err := cc.Start(ctx); err != nil {
			return err
		}
	}

	for i := 0; i < types.NumChannels; i++ {
		d.wg.Add(1)
		go d.brightnessWorker(ctx, types.Channel(i))
	}

	d.logger.Infof("driver started, chip reset and current limit programmed")
	return nil
}

// Shutdown turns every channel off and pushes the final image so the
// outputs are dark when the process exits.
func (d *Driver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.allOffLocked(); err != nil {
		return err
	}
	return d.commitLocked()
}

// Wait blocks until the brightness workers have drained after context
// cancellation.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// SetBrightness requests a steady level for one channel. It never
// blocks on the bus: the request lands in the channel's slot and the
// worker commits the most recent value.
func (d *Driver) SetBrightness(ch types.Channel, level int) error {
	if !ch.Valid() {
		return fmt.Errorf("invalid channel %d", ch)
	}
	d.slots[ch].put(level)
	return nil
}

func (d *Driver) brightnessWorker(ctx context.Context, ch types.Channel) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.slots[ch].kick:
			level := d.slots[ch].take()
			if err := d.applySteady(ch, level); err != nil {
				d.logger.Errorf("brightness update for %s failed: %v", ch, err)
			}
		}
	}
}

func (d *Driver) applySteady(ch types.Channel, level int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.channels[ch].SetSteady(level); err != nil {
		return err
	}
	return d.commitLocked()
}

// SetBlink programs a blink cycle for one channel and commits.
func (d *Driver) SetBlink(ch types.Channel, level int, delayOnMs, delayOffMs uint32) error {
	if !ch.Valid() {
		return fmt.Errorf("invalid channel %d", ch)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.channels[ch].SetBlink(level, delayOnMs, delayOffMs); err != nil {
		return err
	}
	return d.commitLocked()
}

// SetColorBlink programs all three channels from a packed 0xRRGGBB
// color. Channels are cleared and that clear committed first, then the
// new cycle lands as a second commit, so remnants of the previous
// effect never mix into the new one.
func (d *Driver) SetColorBlink(color uint32, delayOnMs, delayOffMs uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.allOffLocked(); err != nil {
		return err
	}
	if err := d.commitLocked(); err != nil {
		return err
	}

	levels := [types.NumChannels]int{
		int(color >> 16 & 0xFF),
		int(color >> 8 & 0xFF),
		int(color & 0xFF),
	}
	for i, cc := range d.channels {
		if err := cc.SetBlink(levels[i], delayOnMs, delayOffMs); err != nil {
			return err
		}
	}
	return d.commitLocked()
}

// ApplyPattern clears all channels, commits the clear, then programs
// and commits the named pattern. The kill-switch suppresses the whole
// operation including the clear.
func (d *Driver) ApplyPattern(p types.Pattern) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.tuning.PatternsEnabled {
		d.logger.Debugf("patterns disabled, ignoring %s", p)
		return nil
	}

	if err := d.allOffLocked(); err != nil {
		return err
	}
	if err := d.commitLocked(); err != nil {
		return err
	}
	if p == types.PatternOff {
		return nil
	}

	d.logger.Infof("pattern %s on", p)
	for _, step := range stepsFor(p, d.tuning) {
		cc := d.channels[step.ch]
		var err error
		if step.slope {
			err = cc.ApplyTemplate(step.brightness, step.fade, step.params)
		} else {
			err = cc.SetSteadyScaled(step.brightness)
		}
		if err != nil {
			return err
		}
	}
	return d.commitLocked()
}

// ===== Tuning =====

// SetFade switches between hard blink and soft fade visuals for
// subsequent requests.
func (d *Driver) SetFade(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tuning.FadeEnabled = enabled
	d.logger.Infof("fade set to %t", enabled)
}

// SetIntensity selects the brightness scaling regime.
func (d *Driver) SetIntensity(intensity int) error {
	if intensity < 0 || intensity > hardware.MaxBrightness {
		return fmt.Errorf("intensity %d out of range 0..%d", intensity, hardware.MaxBrightness)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tuning.Intensity = uint8(intensity)
	d.logger.Infof("intensity set to %d", intensity)
	return nil
}

// SetSpeed sets the blink rate divisor. Zero selects continuous light.
func (d *Driver) SetSpeed(speed int) error {
	if err := validateSpeed(speed); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tuning.Speed = uint8(speed)
	d.logger.Infof("speed set to %d", speed)
	return nil
}

// SetSlopeSteps sets the four per-step detention times in 4 ms units.
// Values outside 0..5 clamp to the field range.
func (d *Driver) SetSlopeSteps(up1, up2, down1, down2 int) error {
	steps := [4]uint8{
		clampSlopeStep(up1),
		clampSlopeStep(up2),
		clampSlopeStep(down1),
		clampSlopeStep(down2),
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tuning.SlopeSteps = steps
	d.logger.Infof("slope steps set to %d %d %d %d", steps[0], steps[1], steps[2], steps[3])
	return nil
}

// SetLowPower switches the calibration current table.
func (d *Driver) SetLowPower(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tuning.LowPower = enabled
	d.logger.Infof("low-power mode set to %t", enabled)
}

// SetPatternsEnabled controls the pattern kill-switch.
func (d *Driver) SetPatternsEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tuning.PatternsEnabled = enabled
	d.logger.Infof("patterns enabled set to %t", enabled)
}

// SetMaxCurrent programs the chip's current limit field. It takes
// effect immediately through a selector-only write, outside the normal
// commit flow.
func (d *Driver) SetMaxCurrent(imax int) error {
	if imax < 0 || imax > 3 {
		return fmt.Errorf("current limit %d out of range 0..3", imax)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shadow.MergeField(hardware.RegSel, hardware.MaskImax, byte(imax)<<hardware.ImaxShift)
	if err := d.committer.WriteSelector(d.shadow); err != nil {
		return err
	}
	d.logger.Infof("current limit set to %d", imax)
	return nil
}

// ChannelStates reports the lifecycle state of every channel.
func (d *Driver) ChannelStates() [types.NumChannels]types.ChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	var states [types.NumChannels]types.ChannelState
	for i, cc := range d.channels {
		states[i] = cc.State()
	}
	return states
}

func (d *Driver) allOffLocked() error {
	for _, cc := range d.channels {
		if err := cc.TurnOff(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) commitLocked() error {
	return d.committer.CommitAll(d.shadow.Snapshot())
}
