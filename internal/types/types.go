package types

import "fmt"

// Channel identifies one of the controller's three output lines.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
)

// NumChannels is the number of output lines on the controller.
const NumChannels = 3

func (c Channel) String() string {
	switch c {
	case ChannelRed:
		return "red"
	case ChannelGreen:
		return "green"
	case ChannelBlue:
		return "blue"
	default:
		return fmt.Sprintf("channel-%d", int(c))
	}
}

// Valid reports whether c is a real output line.
func (c Channel) Valid() bool {
	return c >= ChannelRed && c < NumChannels
}

type ChannelState string

const (
	StateOff         ChannelState = "off"
	StateSteadyOn    ChannelState = "steady-on"
	StateBlinking    ChannelState = "blinking"
	StateFadingSlope ChannelState = "fading-slope"
)

// Pattern is a named composite lighting effect.
type Pattern int

const (
	PatternOff Pattern = iota
	PatternCharging
	PatternChargingError
	PatternMissedNotification
	PatternLowBattery
	PatternFullyCharged
	PatternPowering
)

func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "off"
	case PatternCharging:
		return "charging"
	case PatternChargingError:
		return "charging-error"
	case PatternMissedNotification:
		return "missed-notification"
	case PatternLowBattery:
		return "low-battery"
	case PatternFullyCharged:
		return "fully-charged"
	case PatternPowering:
		return "powering"
	default:
		return fmt.Sprintf("pattern-%d", int(p))
	}
}

// ParsePattern validates a numeric pattern id from the control surface.
func ParsePattern(mode int) (Pattern, error) {
	if mode < int(PatternOff) || mode > int(PatternPowering) {
		return PatternOff, fmt.Errorf("invalid pattern id: %d", mode)
	}
	return Pattern(mode), nil
}
