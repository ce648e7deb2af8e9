package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"led-service/internal/hardware"
	"led-service/internal/types"
)

// ===== Mock Bus =====

type recordedWrite struct {
	reg  byte
	data []byte
}

type recordingBus struct {
	writes []recordedWrite
}

func (b *recordingBus) WriteByte(reg, value byte) error {
	b.writes = append(b.writes, recordedWrite{reg: reg, data: []byte{value}})
	return nil
}

func (b *recordingBus) WriteBlock(reg byte, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	b.writes = append(b.writes, recordedWrite{reg: reg, data: cp})
	return nil
}

func (b *recordingBus) ReadBlock(reg byte, buf []byte) error {
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func (b *recordingBus) Close() error { return nil }

// commits returns the enable bytes of every full commit, in order.
func (b *recordingBus) commits() []byte {
	var enables []byte
	for i := 0; i+1 < len(b.writes); i++ {
		if b.writes[i].reg == hardware.RegSel|hardware.CtnRWFlag &&
			b.writes[i+1].reg == hardware.RegLedOn {
			enables = append(enables, b.writes[i+1].data[0])
		}
	}
	return enables
}

func newTestDriver(t *testing.T, mod func(*GlobalTuning)) (*Driver, *recordingBus, context.CancelFunc) {
	t.Helper()
	tun := DefaultTuning()
	tun.Intensity = IntensityBright
	if mod != nil {
		mod(&tun)
	}

	bus := &recordingBus{}
	d, err := NewDriver(hardware.NewCommitter(bus), tun, testLogger())
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("failed to start driver: %v", err)
	}
	bus.writes = nil
	return d, bus, cancel
}

// ===== Bring-Up =====

func TestStartResetsAndProgramsCurrentLimit(t *testing.T) {
	bus := &recordingBus{}
	d, err := NewDriver(hardware.NewCommitter(bus), DefaultTuning(), testLogger())
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(bus.writes) < 2 {
		t.Fatalf("expected reset and selector writes, got %v", bus.writes)
	}
	if bus.writes[0].reg != hardware.RegSReset || bus.writes[0].data[0] != hardware.SResetBit {
		t.Errorf("first write must be the chip reset, got %+v", bus.writes[0])
	}
	last := bus.writes[len(bus.writes)-1]
	if last.reg != hardware.RegSel || last.data[0]&hardware.MaskImax != 0 {
		t.Errorf("expected zero current limit in selector write, got %+v", last)
	}
}

// ===== Blink and Pattern Flows =====

func TestSetColorBlinkClearsBeforeProgramming(t *testing.T) {
	d, bus, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetColorBlink(0xFF8000, 1000, 500); err != nil {
		t.Fatalf("SetColorBlink failed: %v", err)
	}

	enables := bus.commits()
	if len(enables) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(enables))
	}
	if enables[0] != 0 {
		t.Errorf("first commit must clear all channels, enable byte 0x%02X", enables[0])
	}

	// red and green on with slope mode, blue off (zero component)
	wantOn := byte(hardware.LedOnBit<<types.ChannelRed | hardware.LedOnBit<<types.ChannelGreen)
	wantSlope := byte(hardware.SlopeModeBit<<types.ChannelRed | hardware.SlopeModeBit<<types.ChannelGreen)
	if enables[1] != wantOn|wantSlope {
		t.Errorf("second commit enable byte: expected 0x%02X, got 0x%02X", wantOn|wantSlope, enables[1])
	}
}

func TestApplyPatternTwoCommitFlow(t *testing.T) {
	d, bus, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.ApplyPattern(types.PatternCharging); err != nil {
		t.Fatalf("ApplyPattern failed: %v", err)
	}

	enables := bus.commits()
	if len(enables) != 2 {
		t.Fatalf("expected clear commit then pattern commit, got %d", len(enables))
	}
	if enables[0] != 0 {
		t.Errorf("clear commit enable byte: expected 0, got 0x%02X", enables[0])
	}
	if enables[1] != hardware.LedOnBit<<types.ChannelRed {
		t.Errorf("pattern commit enable byte: expected steady red, got 0x%02X", enables[1])
	}
}

func TestApplyPatternOffOnlyClears(t *testing.T) {
	d, bus, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.ApplyPattern(types.PatternOff); err != nil {
		t.Fatalf("ApplyPattern failed: %v", err)
	}

	enables := bus.commits()
	if len(enables) != 1 || enables[0] != 0 {
		t.Errorf("expected a single clearing commit, got %v", enables)
	}
}

func TestApplyPatternKillSwitch(t *testing.T) {
	d, bus, cancel := newTestDriver(t, func(g *GlobalTuning) { g.PatternsEnabled = false })
	defer cancel()

	if err := d.ApplyPattern(types.PatternCharging); err != nil {
		t.Fatalf("ApplyPattern failed: %v", err)
	}
	if len(bus.writes) != 0 {
		t.Errorf("kill-switch must suppress all writes, got %v", bus.writes)
	}
}

func TestConcurrentChannelsShareEnableByte(t *testing.T) {
	d, bus, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetBlink(types.ChannelRed, 0xFF, 1000, 500); err != nil {
		t.Fatalf("SetBlink red failed: %v", err)
	}
	if err := d.SetBlink(types.ChannelBlue, 0x80, 500, 500); err != nil {
		t.Fatalf("SetBlink blue failed: %v", err)
	}

	enables := bus.commits()
	if len(enables) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(enables))
	}
	want := byte(hardware.LedOnBit<<types.ChannelRed | hardware.SlopeModeBit<<types.ChannelRed |
		hardware.LedOnBit<<types.ChannelBlue | hardware.SlopeModeBit<<types.ChannelBlue)
	if enables[1] != want {
		t.Errorf("expected union of both channels 0x%02X, got 0x%02X", want, enables[1])
	}
}

func TestConcurrentRequestsOnDifferentChannels(t *testing.T) {
	d, _, cancel := newTestDriver(t, nil)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := d.SetBlink(types.ChannelRed, 0xFF, 1000, 500); err != nil {
			t.Errorf("SetBlink red failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := d.SetBrightness(types.ChannelBlue, 0x55); err != nil {
			t.Errorf("SetBrightness blue failed: %v", err)
		}
	}()
	wg.Wait()

	deadline := time.After(2 * time.Second)
	for {
		states := d.ChannelStates()
		if states[types.ChannelRed] == types.StateBlinking &&
			states[types.ChannelBlue] == types.StateSteadyOn {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("channels never reached their target states: %v", states)
		case <-time.After(5 * time.Millisecond):
		}
	}

	d.mu.Lock()
	ledOn := d.shadow[hardware.RegLedOn]
	redCC := d.shadow[hardware.RegCC(types.ChannelRed)]
	blueCC := d.shadow[hardware.RegCC(types.ChannelBlue)]
	d.mu.Unlock()

	want := byte(hardware.LedOnBit<<types.ChannelRed | hardware.SlopeModeBit<<types.ChannelRed |
		hardware.LedOnBit<<types.ChannelBlue)
	if ledOn != want {
		t.Errorf("enable byte: expected union 0x%02X, got 0x%02X", want, ledOn)
	}
	if redCC != 0xFF {
		t.Errorf("red current byte: expected 0xFF, got 0x%02X", redCC)
	}
	if blueCC != 0x55 {
		t.Errorf("blue current byte: expected 0x55, got 0x%02X", blueCC)
	}
}

// ===== Brightness Workers =====

func TestSetBrightnessCommitsLatestLevel(t *testing.T) {
	d, bus, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetBrightness(types.ChannelGreen, 0x55); err != nil {
		t.Fatalf("SetBrightness failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		states := d.ChannelStates()
		if states[types.ChannelGreen] == types.StateSteadyOn {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never committed the brightness update")
		case <-time.After(5 * time.Millisecond):
		}
	}

	d.mu.Lock()
	cc := d.shadow[hardware.RegCC(types.ChannelGreen)]
	d.mu.Unlock()
	if cc != 0x55 {
		t.Errorf("current byte: expected 0x55, got 0x%02X", cc)
	}

	if len(bus.commits()) == 0 {
		t.Error("expected at least one commit from the worker")
	}
}

func TestSetBrightnessInvalidChannel(t *testing.T) {
	d, _, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetBrightness(types.Channel(7), 10); err == nil {
		t.Error("expected error for invalid channel")
	}
}

// ===== Tuning Setters =====

func TestSetSpeedValidation(t *testing.T) {
	d, _, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetSpeed(61); err == nil {
		t.Error("expected error for speed above maximum")
	}
	if err := d.SetSpeed(-1); err == nil {
		t.Error("expected error for negative speed")
	}
	if err := d.SetSpeed(0); err != nil {
		t.Errorf("continuous speed must be accepted: %v", err)
	}
}

func TestSetSlopeStepsClamp(t *testing.T) {
	d, _, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetSlopeSteps(-1, 2, 3, 9); err != nil {
		t.Fatalf("SetSlopeSteps failed: %v", err)
	}

	d.mu.Lock()
	steps := d.tuning.SlopeSteps
	d.mu.Unlock()
	if steps != [4]uint8{0, 2, 3, 5} {
		t.Errorf("expected clamped steps 0 2 3 5, got %v", steps)
	}
}

func TestSetMaxCurrentWritesSelectorImmediately(t *testing.T) {
	d, bus, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetMaxCurrent(2); err != nil {
		t.Fatalf("SetMaxCurrent failed: %v", err)
	}

	if len(bus.writes) != 1 {
		t.Fatalf("expected a single selector write, got %v", bus.writes)
	}
	w := bus.writes[0]
	if w.reg != hardware.RegSel || w.data[0]&hardware.MaskImax != 2<<hardware.ImaxShift {
		t.Errorf("unexpected selector write %+v", w)
	}

	if err := d.SetMaxCurrent(4); err == nil {
		t.Error("expected error for current limit above field range")
	}
}

// ===== Shutdown =====

func TestShutdownTurnsEverythingOff(t *testing.T) {
	d, bus, cancel := newTestDriver(t, nil)
	defer cancel()

	if err := d.SetBlink(types.ChannelRed, 0xFF, 1000, 500); err != nil {
		t.Fatalf("SetBlink failed: %v", err)
	}
	bus.writes = nil

	if err := d.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	enables := bus.commits()
	if len(enables) != 1 || enables[0] != 0 {
		t.Errorf("expected one all-off commit, got %v", enables)
	}
}
