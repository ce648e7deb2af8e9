package controller

import (
	"fmt"

	"led-service/internal/hardware"
	"led-service/internal/types"
)

// Intensity regime boundaries. 0 passes requested levels through
// unscaled, 40 scales against the calibration current, anything else is
// a linear override (darker below 40, brighter above).
const (
	IntensityBright = 0
	IntensityStock  = 40
)

const (
	SpeedContinuous = 0
	SpeedMax        = 60
)

// GlobalTuning holds the module-wide knobs read by every encode
// operation. One value is owned by the Driver and handed to encoders by
// copy; nothing mutates it outside the Driver's validated setters.
type GlobalTuning struct {
	FadeEnabled bool
	Intensity   uint8
	Speed       uint8

	// Slope step detention times, in 4 ms units: up phase 1, up phase 2,
	// down phase 1, down phase 2.
	SlopeSteps [4]uint8

	LowPower        bool
	DefaultCurrent  uint8
	LowPowerCurrent uint8
	Offsets         [types.NumChannels]uint8

	PatternsEnabled bool
}

// DefaultTuning returns the power-on configuration.
func DefaultTuning() GlobalTuning {
	return GlobalTuning{
		FadeEnabled:     false,
		Intensity:       IntensityStock,
		Speed:           1,
		SlopeSteps:      [4]uint8{1, 1, 1, 1},
		LowPower:        false,
		DefaultCurrent:  0x28,
		LowPowerCurrent: 0x05,
		PatternsEnabled: true,
	}
}

// DynamicCurrent is the calibration current for the active power mode.
func (t GlobalTuning) DynamicCurrent() uint8 {
	if t.LowPower {
		return t.LowPowerCurrent
	}
	return t.DefaultCurrent
}

func validateSpeed(speed int) error {
	if speed < SpeedContinuous || speed > SpeedMax {
		return fmt.Errorf("speed %d out of range 0..%d", speed, SpeedMax)
	}
	return nil
}

// clampSlopeStep pins a detention time into the hardware's 0..5 range.
// Out-of-range steps clamp rather than reject.
func clampSlopeStep(step int) uint8 {
	if step < 0 {
		return 0
	}
	if step > hardware.SlopeStepMax {
		return hardware.SlopeStepMax
	}
	return uint8(step)
}
