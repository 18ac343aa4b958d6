package lede

import (
	"time"

	"go.uber.org/zap"

	"github.com/mlsorensen/golede/pkg/bulbs/lede/comms"
)

// DefaultSettleDelay is how long the bulb needs after a frame before it accepts the next one.
const DefaultSettleDelay = 200 * time.Millisecond

// Recorder observes command traffic. internal/metrics provides a prometheus implementation.
type Recorder interface {
	FrameWritten(opcode byte, size int)
	WriteFailed(opcode byte)
	CommandIgnored(command string)
}

type nopRecorder struct{}

func (nopRecorder) FrameWritten(byte, int) {}
func (nopRecorder) WriteFailed(byte)       {}
func (nopRecorder) CommandIgnored(string)  {}

type options struct {
	name        string
	settleDelay time.Duration
	sleep       func(time.Duration)
	random      comms.RandomSource
	logger      *zap.Logger
	recorder    Recorder
}

func defaultOptions() options {
	return options{
		settleDelay: DefaultSettleDelay,
		sleep:       time.Sleep,
		random:      comms.DefaultRandom,
		logger:      zap.NewNop(),
		recorder:    nopRecorder{},
	}
}

// Option configures a Session.
type Option func(*options)

// WithSettleDelay sets the pause after every write.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) { o.settleDelay = d }
}

// WithSleep replaces time.Sleep for the settle pause, so tests need not wait.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithRandom sets the source of frame nonces.
func WithRandom(src comms.RandomSource) Option {
	return func(o *options) {
		if src != nil {
			o.random = src
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets a traffic observer.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithName sets the device name reported by DeviceName.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}
