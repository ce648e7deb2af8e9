package messaging

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"led-service/internal/logger"
	"led-service/internal/types"

	"github.com/redis/go-redis/v9"
)

type Callbacks struct {
	BrightnessCallback  func(channel, level int) error          // from "channel:level"
	BlinkCallback       func(color, onMs, offMs uint32) error   // from "0xRRGGBB on_ms off_ms"
	PatternCallback     func(mode int) error                    // pattern id
	FadeCallback        func(bool) error                        // "0" blink, "1" fade
	IntensityCallback   func(int) error                         // 0..255
	SpeedCallback       func(int) error                         // 0..60
	SlopeCallback       func(up1, up2, down1, down2 int) error  // four steps, 0..5
	LowPowerCallback    func(bool) error                        // "0" normal, "1" low power
	MaxCurrentCallback  func(int) error                         // IMAX field, 0..3
	PatternLockCallback func(enabled bool) error                // "enable", "disable"
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts the command listeners after system
// initialization is complete.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	r.wg.Add(10)
	go r.listCommandListener("led:brightness", r.handleBrightnessCommand)
	go r.listCommandListener("led:blink", r.handleBlinkCommand)
	go r.listCommandListener("led:pattern", r.handlePatternCommand)
	go r.listCommandListener("led:fade", r.handleFadeCommand)
	go r.listCommandListener("led:intensity", r.handleIntensityCommand)
	go r.listCommandListener("led:speed", r.handleSpeedCommand)
	go r.listCommandListener("led:slope", r.handleSlopeCommand)
	go r.listCommandListener("led:lowpower", r.handleLowPowerCommand)
	go r.listCommandListener("led:imax", r.handleMaxCurrentCommand)
	go r.listCommandListener("led:patterns", r.handlePatternLockCommand)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Use BRPOP with a short timeout to allow periodic context cancellation checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					// Timeout elapsed, loop back to check context
					continue
				}
				if err == context.Canceled {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleBrightnessCommand(value string) error {
	if r.callbacks.BrightnessCallback == nil {
		return nil
	}
	var channel, level int
	if _, err := fmt.Sscanf(value, "%d:%d", &channel, &level); err != nil {
		r.logger.Infof("Invalid brightness command value: %s, expected 'channel:level': %v", value, err)
		return fmt.Errorf("invalid brightness command: %s", value)
	}
	return r.callbacks.BrightnessCallback(channel, level)
}

func (r *RedisClient) handleBlinkCommand(value string) error {
	if r.callbacks.BlinkCallback == nil {
		return nil
	}
	var color, onMs, offMs uint32
	if _, err := fmt.Sscanf(value, "0x%x %d %d", &color, &onMs, &offMs); err != nil {
		r.logger.Infof("Invalid blink command value: %s, expected '0xRRGGBB on_ms off_ms': %v", value, err)
		return fmt.Errorf("invalid blink command: %s", value)
	}
	return r.callbacks.BlinkCallback(color, onMs, offMs)
}

func (r *RedisClient) handlePatternCommand(value string) error {
	if r.callbacks.PatternCallback == nil {
		return nil
	}
	// Second field is a legacy pattern type selector, accepted and ignored.
	var mode int
	if _, err := fmt.Sscanf(value, "%d", &mode); err != nil {
		r.logger.Infof("Invalid pattern command value: %s, expected integer: %v", value, err)
		return fmt.Errorf("invalid pattern command: %s", value)
	}
	return r.callbacks.PatternCallback(mode)
}

func (r *RedisClient) handleFadeCommand(value string) error {
	if r.callbacks.FadeCallback == nil {
		return nil
	}
	switch value {
	case "0", "1":
		return r.callbacks.FadeCallback(value == "1")
	default:
		r.logger.Infof("Invalid fade command value: %s", value)
		return fmt.Errorf("invalid fade command: %s", value)
	}
}

func (r *RedisClient) handleIntensityCommand(value string) error {
	if r.callbacks.IntensityCallback == nil {
		return nil
	}
	intensity, err := strconv.Atoi(value)
	if err != nil {
		r.logger.Infof("Invalid intensity command value: %s, expected integer: %v", value, err)
		return fmt.Errorf("invalid intensity command: %s", value)
	}
	return r.callbacks.IntensityCallback(intensity)
}

func (r *RedisClient) handleSpeedCommand(value string) error {
	if r.callbacks.SpeedCallback == nil {
		return nil
	}
	speed, err := strconv.Atoi(value)
	if err != nil {
		r.logger.Infof("Invalid speed command value: %s, expected integer: %v", value, err)
		return fmt.Errorf("invalid speed command: %s", value)
	}
	return r.callbacks.SpeedCallback(speed)
}

func (r *RedisClient) handleSlopeCommand(value string) error {
	if r.callbacks.SlopeCallback == nil {
		return nil
	}
	var up1, up2, down1, down2 int
	if _, err := fmt.Sscanf(value, "%d %d %d %d", &up1, &up2, &down1, &down2); err != nil {
		r.logger.Infof("Invalid slope command value: %s, expected four integers: %v", value, err)
		return fmt.Errorf("invalid slope command: %s", value)
	}
	return r.callbacks.SlopeCallback(up1, up2, down1, down2)
}

func (r *RedisClient) handleLowPowerCommand(value string) error {
	if r.callbacks.LowPowerCallback == nil {
		return nil
	}
	switch value {
	case "0", "1":
		return r.callbacks.LowPowerCallback(value == "1")
	default:
		r.logger.Infof("Invalid lowpower command value: %s", value)
		return fmt.Errorf("invalid lowpower command: %s", value)
	}
}

func (r *RedisClient) handleMaxCurrentCommand(value string) error {
	if r.callbacks.MaxCurrentCallback == nil {
		return nil
	}
	imax, err := strconv.ParseUint(value, 0, 8)
	if err != nil {
		r.logger.Infof("Invalid imax command value: %s, expected integer: %v", value, err)
		return fmt.Errorf("invalid imax command: %s", value)
	}
	return r.callbacks.MaxCurrentCallback(int(imax))
}

func (r *RedisClient) handlePatternLockCommand(value string) error {
	if r.callbacks.PatternLockCallback == nil {
		return nil
	}
	switch value {
	case "enable", "disable":
		return r.callbacks.PatternLockCallback(value == "enable")
	default:
		r.logger.Infof("Invalid patterns command value: %s", value)
		return fmt.Errorf("invalid patterns command: %s", value)
	}
}

func (r *RedisClient) publishHashSet(hash, field string, value interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, field, value)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishChannelState mirrors a channel's lifecycle state into the led
// hash and notifies subscribers.
func (r *RedisClient) PublishChannelState(channel types.Channel, state types.ChannelState) error {
	field := fmt.Sprintf("%s:state", channel)
	r.logger.Debugf("Publishing channel state: %s=%s", field, state)

	if err := r.publishHashSet("led", field, string(state), "led", field); err != nil {
		r.logger.Warnf("Failed to publish channel state: %v", err)
		return err
	}
	return nil
}

// PublishPattern records the active pattern.
func (r *RedisClient) PublishPattern(pattern types.Pattern) error {
	r.logger.Infof("Publishing active pattern: %s", pattern)

	timestamp := time.Now().Format(time.RFC3339)
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, "led", "pattern", pattern.String())
	pipe.HSet(r.ctx, "led", "pattern:timestamp", timestamp)
	pipe.Publish(r.ctx, "led", "pattern")
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to publish pattern: %v", err)
		return err
	}
	return nil
}

// PublishTuningField mirrors one tuning knob into the led hash.
func (r *RedisClient) PublishTuningField(field, value string) error {
	r.logger.Debugf("Publishing tuning field: %s=%s", field, value)

	if err := r.publishHashSet("led", "tuning:"+field, value, "led", "tuning:"+field); err != nil {
		r.logger.Warnf("Failed to publish tuning field %s: %v", field, err)
		return err
	}
	return nil
}

// GetTuningField reads back a persisted tuning knob. Returns an empty
// string when the field was never written.
func (r *RedisClient) GetTuningField(field string) (string, error) {
	value, err := r.client.HGet(r.ctx, "led", "tuning:"+field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get tuning field %s: %w", field, err)
	}
	return value, nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis connection")
	r.cancel()
	r.wg.Wait()
	return r.client.Close()
}
