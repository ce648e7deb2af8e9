package messaging

import (
	"io"
	"log"
	"testing"

	"led-service/internal/logger"
)

func newTestClient() *RedisClient {
	l := logger.NewLogger(log.New(io.Discard, "", 0), logger.LogLevelNone)
	return NewRedisClient("localhost", 6379, l)
}

func TestHandleBrightnessCommand(t *testing.T) {
	r := newTestClient()

	var gotChannel, gotLevel int
	r.SetCallbacks(Callbacks{
		BrightnessCallback: func(channel, level int) error {
			gotChannel, gotLevel = channel, level
			return nil
		},
	})

	if err := r.handleBrightnessCommand("2:128"); err != nil {
		t.Fatalf("handleBrightnessCommand failed: %v", err)
	}
	if gotChannel != 2 || gotLevel != 128 {
		t.Errorf("expected 2:128, got %d:%d", gotChannel, gotLevel)
	}

	if err := r.handleBrightnessCommand("not-a-command"); err == nil {
		t.Error("expected error for malformed value")
	}
}

func TestHandleBlinkCommand(t *testing.T) {
	r := newTestClient()

	var gotColor, gotOn, gotOff uint32
	r.SetCallbacks(Callbacks{
		BlinkCallback: func(color, onMs, offMs uint32) error {
			gotColor, gotOn, gotOff = color, onMs, offMs
			return nil
		},
	})

	if err := r.handleBlinkCommand("0xFF8000 1000 500"); err != nil {
		t.Fatalf("handleBlinkCommand failed: %v", err)
	}
	if gotColor != 0xFF8000 || gotOn != 1000 || gotOff != 500 {
		t.Errorf("got color=0x%06X on=%d off=%d", gotColor, gotOn, gotOff)
	}

	if err := r.handleBlinkCommand("FF8000 1000 500"); err == nil {
		t.Error("expected error for missing 0x prefix")
	}
	if err := r.handleBlinkCommand("0xFF8000"); err == nil {
		t.Error("expected error for missing delays")
	}
}

func TestHandlePatternCommand(t *testing.T) {
	r := newTestClient()

	var gotMode int
	r.SetCallbacks(Callbacks{
		PatternCallback: func(mode int) error {
			gotMode = mode
			return nil
		},
	})

	if err := r.handlePatternCommand("3"); err != nil {
		t.Fatalf("handlePatternCommand failed: %v", err)
	}
	if gotMode != 3 {
		t.Errorf("expected mode 3, got %d", gotMode)
	}

	if err := r.handlePatternCommand("6 1"); err != nil {
		t.Fatalf("pattern with legacy type field rejected: %v", err)
	}
	if gotMode != 6 {
		t.Errorf("expected mode 6, got %d", gotMode)
	}

	if err := r.handlePatternCommand("charging"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestHandleFadeCommand(t *testing.T) {
	r := newTestClient()

	var gotFade bool
	r.SetCallbacks(Callbacks{
		FadeCallback: func(enabled bool) error {
			gotFade = enabled
			return nil
		},
	})

	if err := r.handleFadeCommand("1"); err != nil {
		t.Fatalf("handleFadeCommand failed: %v", err)
	}
	if !gotFade {
		t.Error("expected fade enabled")
	}

	if err := r.handleFadeCommand("yes"); err == nil {
		t.Error("expected error for invalid value")
	}
}

func TestHandleSlopeCommand(t *testing.T) {
	r := newTestClient()

	var got [4]int
	r.SetCallbacks(Callbacks{
		SlopeCallback: func(up1, up2, down1, down2 int) error {
			got = [4]int{up1, up2, down1, down2}
			return nil
		},
	})

	if err := r.handleSlopeCommand("1 2 3 4"); err != nil {
		t.Fatalf("handleSlopeCommand failed: %v", err)
	}
	if got != [4]int{1, 2, 3, 4} {
		t.Errorf("expected 1 2 3 4, got %v", got)
	}

	if err := r.handleSlopeCommand("1 2 3"); err == nil {
		t.Error("expected error for too few values")
	}
}

func TestHandleMaxCurrentCommand(t *testing.T) {
	r := newTestClient()

	var gotImax int
	r.SetCallbacks(Callbacks{
		MaxCurrentCallback: func(imax int) error {
			gotImax = imax
			return nil
		},
	})

	if err := r.handleMaxCurrentCommand("0x2"); err != nil {
		t.Fatalf("handleMaxCurrentCommand failed: %v", err)
	}
	if gotImax != 2 {
		t.Errorf("expected 2, got %d", gotImax)
	}

	if err := r.handleMaxCurrentCommand("1"); err != nil {
		t.Fatalf("decimal value rejected: %v", err)
	}
	if err := r.handleMaxCurrentCommand("high"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestHandlePatternLockCommand(t *testing.T) {
	r := newTestClient()

	var gotEnabled bool
	r.SetCallbacks(Callbacks{
		PatternLockCallback: func(enabled bool) error {
			gotEnabled = enabled
			return nil
		},
	})

	if err := r.handlePatternLockCommand("disable"); err != nil {
		t.Fatalf("handlePatternLockCommand failed: %v", err)
	}
	if gotEnabled {
		t.Error("expected disabled")
	}

	if err := r.handlePatternLockCommand("maybe"); err == nil {
		t.Error("expected error for invalid value")
	}
}

func TestHandlersIgnoreMissingCallbacks(t *testing.T) {
	r := newTestClient()

	if err := r.handleBrightnessCommand("0:10"); err != nil {
		t.Errorf("brightness without callback: %v", err)
	}
	if err := r.handlePatternCommand("1"); err != nil {
		t.Errorf("pattern without callback: %v", err)
	}
	if err := r.handleSpeedCommand("5"); err != nil {
		t.Errorf("speed without callback: %v", err)
	}
}
