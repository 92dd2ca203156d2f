// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package actuator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"go.uber.org/zap"
)

// FrameObserver is called with every frame sent or received
type FrameObserver func(canbus.Frame)

// Config holds the engine configuration
type Config struct {
	// CommandAddress is the identifier commands are sent to
	CommandAddress uint32

	// ReportAddress is the identifier the actuator reports from
	ReportAddress uint32

	// Ignore lists identifiers whose frames are dropped on receive
	Ignore map[uint32]struct{}

	// OnSend is called before every transmission (optional)
	OnSend FrameObserver

	// OnReceive is called for every received frame (optional)
	OnReceive FrameObserver

	// Logger receives debug traces of every request cycle
	Logger *zap.Logger

	// Metrics is updated on every send, receive and operation (optional)
	Metrics *Metrics
}

func defaultConfig() Config {
	return Config{
		CommandAddress: DefaultCommandAddress,
		ReportAddress:  DefaultReportAddress,
		Ignore:         make(map[uint32]struct{}),
		Logger:         zap.NewNop(),
	}
}

// Option is a functional option for configuring the Actuator
type Option func(*Config)

// WithCommandAddress overrides the command identifier (default 0xFF0000)
func WithCommandAddress(id uint32) Option {
	return func(c *Config) {
		c.CommandAddress = id
	}
}

// WithReportAddress overrides the report identifier (default 0xFF0001)
func WithReportAddress(id uint32) Option {
	return func(c *Config) {
		c.ReportAddress = id
	}
}

// WithIgnore drops received frames carrying any of the given identifiers.
// Useful on loopback interfaces where our own commands are received back.
func WithIgnore(ids ...uint32) Option {
	return func(c *Config) {
		for _, id := range ids {
			c.Ignore[id] = struct{}{}
		}
	}
}

// WithSendObserver sets a callback invoked before every frame is sent
func WithSendObserver(fn FrameObserver) Option {
	return func(c *Config) {
		c.OnSend = fn
	}
}

// WithReceiveObserver sets a callback invoked for every received frame
func WithReceiveObserver(fn FrameObserver) Option {
	return func(c *Config) {
		c.OnReceive = fn
	}
}

// WithLogger sets the zap logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// Actuator talks to a single actuator over a CAN interface.
//
// The engine is synchronous: each operation blocks until its responses are
// read. Only one request cycle and one receive loop may be active at a time;
// callers sharing an Actuator between goroutines must serialize operations.
// RunReceiver may run on its own goroutine while commands are sent.
type Actuator struct {
	iface  canbus.Interface
	config Config
	log    *zap.Logger

	mu      sync.Mutex // guards the bus handles
	sendBus canbus.Bus
	recvBus canbus.Bus

	working atomic.Bool
}

// New creates an Actuator on iface. Buses are opened by StartSendingBus and
// StartReceivingBus.
func New(iface canbus.Interface, opts ...Option) *Actuator {
	if iface == nil {
		panic("interface cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Actuator{
		iface:  iface,
		config: cfg,
		log:    cfg.Logger.With(zap.Stringer("interface", iface)),
	}
}

// CommandAddress returns the identifier commands are sent to
func (a *Actuator) CommandAddress() uint32 {
	return a.config.CommandAddress
}

// ReportAddress returns the identifier the actuator reports from
func (a *Actuator) ReportAddress() uint32 {
	return a.config.ReportAddress
}

// StartSendingBus opens the send-side bus. No-op if already open.
func (a *Actuator) StartSendingBus(timeout time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sendBus != nil {
		return nil
	}
	bus, err := a.iface.Open(timeout)
	if err != nil {
		return fmt.Errorf("open send bus: %w", err)
	}
	a.sendBus = bus
	a.log.Debug("send bus opened", zap.Duration("timeout", timeout))
	return nil
}

// StopSendingBus closes the send-side bus. No-op if not open.
func (a *Actuator) StopSendingBus() error {
	a.mu.Lock()
	bus := a.sendBus
	a.sendBus = nil
	a.mu.Unlock()
	if bus == nil {
		return nil
	}
	a.log.Debug("send bus closed")
	return bus.Close()
}

// IsSendBusOpen reports whether the send-side bus is open
func (a *Actuator) IsSendBusOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sendBus != nil
}

// StartReceivingBus opens the receive-side bus. No-op if already open.
func (a *Actuator) StartReceivingBus(timeout time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.recvBus != nil {
		return nil
	}
	bus, err := a.iface.Open(timeout)
	if err != nil {
		return fmt.Errorf("open receive bus: %w", err)
	}
	a.recvBus = bus
	a.log.Debug("receive bus opened", zap.Duration("timeout", timeout))
	return nil
}

// StopReceivingBus closes the receive-side bus. No-op if not open.
func (a *Actuator) StopReceivingBus() error {
	a.mu.Lock()
	bus := a.recvBus
	a.recvBus = nil
	a.mu.Unlock()
	if bus == nil {
		return nil
	}
	a.log.Debug("receive bus closed")
	return bus.Close()
}

// IsReceiveBusOpen reports whether the receive-side bus is open
func (a *Actuator) IsReceiveBusOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recvBus != nil
}

// receiveBus returns the open receive bus or nil
func (a *Actuator) receiveBus() canbus.Bus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recvBus
}

// Close stops both buses
func (a *Actuator) Close() error {
	sendErr := a.StopSendingBus()
	recvErr := a.StopReceivingBus()
	if sendErr != nil {
		return sendErr
	}
	return recvErr
}

// sendCommand transmits cmd to the command address
func (a *Actuator) sendCommand(cmd Command, log *zap.Logger) error {
	a.mu.Lock()
	bus := a.sendBus
	a.mu.Unlock()
	if bus == nil {
		return ErrSendBusClosed
	}

	frame, err := canbus.NewExtendedFrame(a.config.CommandAddress, cmd[:])
	if err != nil {
		return fmt.Errorf("build frame: %w", err)
	}

	if a.config.OnSend != nil {
		a.config.OnSend(frame)
	}
	log.Debug("sending command", zap.Stringer("frame", frame))

	if err := bus.Send(frame); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	a.config.Metrics.frameSent()
	return nil
}

// receive reads the next frame from bus, notifying the receive observer and
// dropping ignored identifiers. Transport errors are returned unchanged.
func (a *Actuator) receive(bus canbus.Bus) (*canbus.Frame, error) {
	for {
		frame, err := bus.Receive()
		if err != nil || frame == nil {
			return frame, err
		}

		if a.config.OnReceive != nil {
			a.config.OnReceive(*frame)
		}
		a.config.Metrics.frameReceived()

		if _, ignored := a.config.Ignore[frame.ID]; ignored {
			a.log.Debug("ignoring frame", zap.Stringer("frame", frame))
			continue
		}
		return frame, nil
	}
}
