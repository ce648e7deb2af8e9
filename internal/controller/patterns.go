package controller

import (
	"led-service/internal/types"
)

// patternStep programs one channel as part of a named pattern.
type patternStep struct {
	ch         types.Channel
	brightness uint8
	slope      bool
	fade       bool
	params     SlopeParams
}

// patternBasis is the brightness used by pattern templates: the
// calibration current in the pass-through regime, the intensity value
// itself otherwise.
func patternBasis(t GlobalTuning) uint8 {
	if t.Intensity == IntensityBright {
		return t.DefaultCurrent
	}
	return t.Intensity
}

// tunedSlope builds the slope numbers the live-tuned patterns share:
// speed-derived duty, tuning-controlled fade steps, explicit delay and
// phase times.
func tunedSlope(t GlobalTuning, delay, slptt1, slptt2 uint8) SlopeParams {
	p := SlopeParams{
		DelayStart: delay,
		DutyMax:    clampDuty(15 / int(t.Speed)),
		DutyMid:    clampDuty(15 / int(t.Speed)),
		Slptt1:     slptt1,
		Slptt2:     slptt2,
	}
	if t.FadeEnabled {
		p.DutyMid = clampDuty(7 / int(t.Speed))
		p.Dt1 = t.SlopeSteps[0]
		p.Dt2 = t.SlopeSteps[1]
		p.Dt3 = t.SlopeSteps[2]
		p.Dt4 = t.SlopeSteps[3]
	}
	return p
}

// phaseUnits divides a phase time by the speed divisor, keeping at
// least one unit so the phase never vanishes entirely.
func phaseUnits(units int, t GlobalTuning) uint8 {
	u := units / int(t.Speed)
	if u < 1 {
		u = 1
	}
	if u > 15 {
		u = 15
	}
	return uint8(u)
}

// stepsFor expands a pattern into its channel programs. Continuous
// speed yields steady steps instead of slope steps; the division-based
// timing math has no meaning without a running slope clock.
func stepsFor(p types.Pattern, t GlobalTuning) []patternStep {
	basis := patternBasis(t)
	continuous := t.Speed == SpeedContinuous

	switch p {
	case types.PatternCharging:
		return []patternStep{{ch: types.ChannelRed, brightness: basis}}

	case types.PatternChargingError:
		if continuous {
			return []patternStep{{ch: types.ChannelRed, brightness: basis}}
		}
		return []patternStep{{
			ch:         types.ChannelRed,
			brightness: basis,
			slope:      true,
			fade:       t.FadeEnabled,
			params:     tunedSlope(t, 1, 1, 1),
		}}

	case types.PatternMissedNotification:
		if continuous {
			return []patternStep{{ch: types.ChannelBlue, brightness: basis}}
		}
		return []patternStep{{
			ch:         types.ChannelBlue,
			brightness: basis,
			slope:      true,
			fade:       t.FadeEnabled,
			params:     tunedSlope(t, 10, 1, phaseUnits(10, t)),
		}}

	case types.PatternLowBattery:
		if continuous {
			return []patternStep{{ch: types.ChannelRed, brightness: basis}}
		}
		return []patternStep{{
			ch:         types.ChannelRed,
			brightness: basis,
			slope:      true,
			fade:       t.FadeEnabled,
			params:     tunedSlope(t, 10, 1, phaseUnits(10, t)),
		}}

	case types.PatternFullyCharged:
		return []patternStep{{ch: types.ChannelGreen, brightness: basis}}

	case types.PatternPowering:
		// Fixed ramp independent of speed and fade tuning, but the
		// brightness tracks the active power mode.
		return []patternStep{{
			ch:         types.ChannelBlue,
			brightness: t.DynamicCurrent(),
			slope:      true,
			fade:       true,
			params: SlopeParams{
				DutyMax: 15, DutyMid: 12, DutyMin: 8,
				Slptt1: 2, Slptt2: 2,
				Dt1: 3, Dt2: 3, Dt3: 3, Dt4: 3,
			},
		}}

	default:
		return nil
	}
}
