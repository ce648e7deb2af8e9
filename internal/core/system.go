package core

import (
	"context"
	"fmt"
	"strconv"

	"led-service/internal/logger"
	"led-service/internal/messaging"
	"led-service/internal/types"
)

// LedSystem connects the Redis control surface to the LED driver. It
// owns startup and shutdown ordering and translates parsed commands
// into driver operations.
type LedSystem struct {
	driver LedDriver
	redis  MessagingClient
	logger *logger.Logger
}

func NewLedSystem(driver LedDriver, redis MessagingClient, l *logger.Logger) *LedSystem {
	s := &LedSystem{
		driver: driver,
		redis:  redis,
		logger: l,
	}

	s.redis.SetCallbacks(messaging.Callbacks{
		BrightnessCallback:  s.handleBrightness,
		BlinkCallback:       s.handleBlink,
		PatternCallback:     s.handlePattern,
		FadeCallback:        s.handleFade,
		IntensityCallback:   s.handleIntensity,
		SpeedCallback:       s.handleSpeed,
		SlopeCallback:       s.handleSlope,
		LowPowerCallback:    s.handleLowPower,
		MaxCurrentCallback:  s.handleMaxCurrent,
		PatternLockCallback: s.handlePatternLock,
	})

	s.driver.OnChannelStateChange(func(ch types.Channel, state types.ChannelState) {
		if err := s.redis.PublishChannelState(ch, state); err != nil {
			s.logger.Warnf("Failed to publish %s state: %v", ch, err)
		}
	})

	return s
}

// Start brings the chip up and only then opens the command surface, so
// no command can race the hardware bring-up.
func (s *LedSystem) Start(ctx context.Context) error {
	if err := s.redis.Connect(); err != nil {
		return err
	}

	s.restoreTuning()

	if err := s.driver.Start(ctx); err != nil {
		return fmt.Errorf("failed to start LED driver: %w", err)
	}

	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.logger.Infof("LED system started")
	return nil
}

// Shutdown darkens the outputs and closes the Redis connection.
func (s *LedSystem) Shutdown() error {
	s.logger.Infof("Shutting down LED system")

	if err := s.driver.Shutdown(); err != nil {
		s.logger.Errorf("Failed to turn LEDs off during shutdown: %v", err)
	}
	return s.redis.Close()
}

// restoreTuning replays persisted tuning knobs from the led hash.
// Missing fields keep their defaults; a corrupt field is logged and
// skipped rather than aborting startup.
func (s *LedSystem) restoreTuning() {
	restoreInt := func(field string, apply func(int) error) {
		value, err := s.redis.GetTuningField(field)
		if err != nil || value == "" {
			return
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			s.logger.Warnf("Ignoring corrupt persisted %s: %q", field, value)
			return
		}
		if err := apply(n); err != nil {
			s.logger.Warnf("Ignoring persisted %s: %v", field, err)
		}
	}

	restoreBool := func(field string, apply func(bool)) {
		value, err := s.redis.GetTuningField(field)
		if err != nil || value == "" {
			return
		}
		apply(value == "1")
	}

	restoreBool("fade", s.driver.SetFade)
	restoreBool("lowpower", s.driver.SetLowPower)
	restoreBool("patterns", s.driver.SetPatternsEnabled)
	restoreInt("intensity", s.driver.SetIntensity)
	restoreInt("speed", s.driver.SetSpeed)

	if value, err := s.redis.GetTuningField("slope"); err == nil && value != "" {
		var up1, up2, down1, down2 int
		if _, err := fmt.Sscanf(value, "%d %d %d %d", &up1, &up2, &down1, &down2); err != nil {
			s.logger.Warnf("Ignoring corrupt persisted slope: %q", value)
		} else if err := s.driver.SetSlopeSteps(up1, up2, down1, down2); err != nil {
			s.logger.Warnf("Ignoring persisted slope: %v", err)
		}
	}
}

// ===== Command Handlers =====

func (s *LedSystem) handleBrightness(channel, level int) error {
	ch := types.Channel(channel)
	if !ch.Valid() {
		return fmt.Errorf("invalid channel %d", channel)
	}
	return s.driver.SetBrightness(ch, level)
}

func (s *LedSystem) handleBlink(color, onMs, offMs uint32) error {
	if color > 0xFFFFFF {
		return fmt.Errorf("color 0x%X out of 24-bit range", color)
	}
	return s.driver.SetColorBlink(color, onMs, offMs)
}

func (s *LedSystem) handlePattern(mode int) error {
	pattern, err := types.ParsePattern(mode)
	if err != nil {
		return err
	}
	if err := s.driver.ApplyPattern(pattern); err != nil {
		return err
	}
	if err := s.redis.PublishPattern(pattern); err != nil {
		s.logger.Warnf("Failed to publish pattern: %v", err)
	}
	return nil
}

func (s *LedSystem) handleFade(enabled bool) error {
	s.driver.SetFade(enabled)
	return s.persistBool("fade", enabled)
}

func (s *LedSystem) handleIntensity(intensity int) error {
	if err := s.driver.SetIntensity(intensity); err != nil {
		return err
	}
	return s.persistInt("intensity", intensity)
}

func (s *LedSystem) handleSpeed(speed int) error {
	if err := s.driver.SetSpeed(speed); err != nil {
		return err
	}
	return s.persistInt("speed", speed)
}

func (s *LedSystem) handleSlope(up1, up2, down1, down2 int) error {
	if err := s.driver.SetSlopeSteps(up1, up2, down1, down2); err != nil {
		return err
	}
	return s.persistString("slope", fmt.Sprintf("%d %d %d %d", up1, up2, down1, down2))
}

func (s *LedSystem) handleLowPower(enabled bool) error {
	s.driver.SetLowPower(enabled)
	return s.persistBool("lowpower", enabled)
}

func (s *LedSystem) handleMaxCurrent(imax int) error {
	return s.driver.SetMaxCurrent(imax)
}

func (s *LedSystem) handlePatternLock(enabled bool) error {
	s.driver.SetPatternsEnabled(enabled)
	return s.persistBool("patterns", enabled)
}

func (s *LedSystem) persistBool(field string, value bool) error {
	str := "0"
	if value {
		str = "1"
	}
	return s.persistString(field, str)
}

func (s *LedSystem) persistInt(field string, value int) error {
	return s.persistString(field, strconv.Itoa(value))
}

func (s *LedSystem) persistString(field, value string) error {
	if err := s.redis.PublishTuningField(field, value); err != nil {
		s.logger.Warnf("Failed to persist %s: %v", field, err)
	}
	return nil
}
