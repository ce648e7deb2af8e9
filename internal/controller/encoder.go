package controller

import (
	"led-service/internal/hardware"
	"led-service/internal/types"
)

// SlopeParams is the derived timing set for one channel's slope engine.
// Values are already clamped to their register field widths; PackInto
// assumes they fit.
type SlopeParams struct {
	DelayStart uint8 // start delay, 500 ms units
	DutyMax    uint8
	DutyMid    uint8
	DutyMin    uint8
	Slptt1     uint8 // total time of slope phases 1+2, 500 ms units
	Slptt2     uint8 // total time of slope phases 3+4, 500 ms units
	Dt1        uint8 // per-step detention times, 4 ms units
	Dt2        uint8
	Dt3        uint8
	Dt4        uint8
}

// PackInto merges the parameter set into the channel's counter and
// sleep registers.
func (p SlopeParams) PackInto(s *hardware.ShadowRegisters, ch types.Channel) {
	s.MergeField(hardware.RegCnt(ch, 0), 0xFF, p.DutyMax<<4|p.DutyMid)
	s.MergeField(hardware.RegCnt(ch, 1), 0xFF, p.DelayStart<<4|p.DutyMin)
	s.MergeField(hardware.RegCnt(ch, 2), 0xFF, p.Dt2<<4|p.Dt1)
	s.MergeField(hardware.RegCnt(ch, 3), 0xFF, p.Dt4<<4|p.Dt3)
	s.MergeField(hardware.RegSlp(ch), 0xFF, p.Slptt2<<4|p.Slptt1)
}

// ScaleLevel applies the intensity regime to a requested level and
// clamps the result to one byte. Channel offsets are applied later, at
// staging, so that a scaled zero stays zero.
func ScaleLevel(level int, t GlobalTuning) uint8 {
	if level < 0 {
		level = 0
	}
	if level > hardware.MaxBrightness {
		level = hardware.MaxBrightness
	}

	switch t.Intensity {
	case IntensityBright:
		// pass through unscaled
	case IntensityStock:
		// Direct sets always scale by the default calibration current;
		// the low-power table applies to pattern brightness only.
		level = level * int(t.DefaultCurrent) / hardware.MaxBrightness
	default:
		level = level * int(t.Intensity) / hardware.MaxBrightness
	}

	if level > hardware.MaxBrightness {
		level = hardware.MaxBrightness
	}
	return uint8(level)
}

// EncodeBlink derives the brightness byte and slope parameters for a
// blink request. steady reports that the request cannot blink: a zero
// off time has no dark phase, and continuous speed disables the slope
// engine entirely (it would otherwise divide the timing math by zero).
func EncodeBlink(level int, delayOnMs, delayOffMs uint32, t GlobalTuning) (brightness uint8, params SlopeParams, steady bool) {
	brightness = ScaleLevel(level, t)

	if delayOffMs == 0 || t.Speed == SpeedContinuous {
		return brightness, SlopeParams{}, true
	}

	speed := uint32(t.Speed)

	params = SlopeParams{
		DelayStart: 0,
		DutyMax:    clampDuty(15 / int(t.Speed)),
		DutyMid:    clampDuty(15 / int(t.Speed)),
		DutyMin:    0,
		Slptt1:     quantizePhase(delayOnMs, speed),
		Slptt2:     quantizePhase(delayOffMs, speed),
	}

	if t.FadeEnabled {
		params.DutyMid = clampDuty(7 / int(t.Speed))
		params.Dt1 = t.SlopeSteps[0]
		params.Dt2 = t.SlopeSteps[1]
		params.Dt3 = t.SlopeSteps[2]
		params.Dt4 = t.SlopeSteps[3]
	}

	return brightness, params, false
}

// quantizePhase converts a phase duration in milliseconds into 500 ms
// units, rounding up so short requests stay visible. Durations clamp at
// the representable maximum rather than wrapping.
func quantizePhase(ms, speed uint32) uint8 {
	if ms > hardware.SlpttMaxMs {
		ms = hardware.SlpttMaxMs
	}
	units := (ms/speed + hardware.TimeUnitMs - 1) / hardware.TimeUnitMs
	if units > hardware.MaxTimeUnits {
		units = hardware.MaxTimeUnits
	}
	return uint8(units)
}

func clampDuty(d int) uint8 {
	if d < 0 {
		return 0
	}
	if d > hardware.DutyFieldMax {
		return hardware.DutyFieldMax
	}
	return uint8(d)
}
