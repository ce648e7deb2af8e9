package core

import (
	"context"

	"led-service/internal/messaging"
	"led-service/internal/types"
)

// MessagingClient defines the interface for Redis messaging operations needed by LedSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	// State mirroring
	PublishChannelState(channel types.Channel, state types.ChannelState) error
	PublishPattern(pattern types.Pattern) error

	// Tuning persistence
	PublishTuningField(field, value string) error
	GetTuningField(field string) (string, error)
}

// LedDriver defines the interface for the register encoding and commit
// engine needed by LedSystem
type LedDriver interface {
	Start(ctx context.Context) error
	Shutdown() error
	OnChannelStateChange(fn func(types.Channel, types.ChannelState))

	// Lighting requests
	SetBrightness(channel types.Channel, level int) error
	SetColorBlink(color, delayOnMs, delayOffMs uint32) error
	ApplyPattern(pattern types.Pattern) error

	// Tuning
	SetFade(enabled bool)
	SetIntensity(intensity int) error
	SetSpeed(speed int) error
	SetSlopeSteps(up1, up2, down1, down2 int) error
	SetLowPower(enabled bool)
	SetPatternsEnabled(enabled bool)
	SetMaxCurrent(imax int) error
}
