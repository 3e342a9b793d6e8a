// Package notification is the host "notification" record: a service thread
// applying LED, vibration and sound requests from a message queue.
package notification

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"furigo/furi"
	"furigo/furi/thread"
	"furigo/kernel"
)

// Kind selects what a message controls.
type Kind uint8

const (
	KindLedRed Kind = iota + 1
	KindLedGreen
	KindLedBlue
	KindVibro
	KindSound
	KindBacklight
	kindStop
)

func (k Kind) String() string {
	switch k {
	case KindLedRed:
		return "led_red"
	case KindLedGreen:
		return "led_green"
	case KindLedBlue:
		return "led_blue"
	case KindVibro:
		return "vibro"
	case KindSound:
		return "sound"
	case KindBacklight:
		return "backlight"
	case kindStop:
		return "stop"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Message is one notification request.
type Message struct {
	Kind Kind
	// Value is the intensity (LEDs, backlight, vibro on/off) or the sound
	// frequency in Hz.
	Value uint16
	// DurationMs is how long a sound or vibration lasts; 0 holds it.
	DurationMs uint32
}

// State is the output state after all delivered messages.
type State struct {
	Red, Green, Blue uint8
	Backlight        uint8
	Vibro            bool
	SoundHz          uint16
}

const (
	queueCapacity = 8
	threadName    = "NotificationSrv"
	stackSize     = 2048

	flagDelivered uint32 = 1 << 0
)

// SendTimeout bounds how long Send waits for queue space.
var SendTimeout = furi.FromMillis(100)

// ErrInUse is returned by Stop while applications hold the record open.
var ErrInUse = errors.New("notification: record still open")

// Service drains the message queue on its own thread.
type Service struct {
	queue     *furi.MessageQueue[Message]
	events    *furi.EventFlag
	state     *furi.Mutex[State]
	worker    *thread.JoinHandle
	delivered atomic.Uint32
}

// Start spawns the service thread and publishes the notification record.
func Start() *Service {
	s := &Service{
		queue:  furi.NewMessageQueue[Message](queueCapacity),
		events: furi.NewEventFlag(),
		state:  furi.NewMutex(State{}),
	}
	b, err := thread.NewBuilder().Name(threadName)
	if err != nil {
		panic(err)
	}
	s.worker = b.StackSize(stackSize).Spawn(s.run)
	kernel.RecordCreate(furi.RecordNotification, s)
	return s
}

func (s *Service) run() int32 {
	for {
		msg, err := s.queue.Get(furi.WaitForever)
		if err != nil {
			furi.Logger().Warn("notification receive failed", zap.Error(err))
			continue
		}
		if msg.Kind == kindStop {
			return 0
		}
		if err := s.state.WithLock(func(st *State) { apply(st, msg) }); err != nil {
			furi.Logger().Warn("notification apply failed", zap.Error(err))
			continue
		}
		furi.Log(furi.LogDebug, "notification", "delivered "+msg.Kind.String())
		s.delivered.Add(1)
		s.events.Set(flagDelivered)
	}
}

func apply(st *State, msg Message) {
	level := uint8(min(msg.Value, 255))
	switch msg.Kind {
	case KindLedRed:
		st.Red = level
	case KindLedGreen:
		st.Green = level
	case KindLedBlue:
		st.Blue = level
	case KindBacklight:
		st.Backlight = level
	case KindVibro:
		st.Vibro = msg.Value != 0
	case KindSound:
		st.SoundHz = msg.Value
	}
}

// Send queues msg, waiting up to SendTimeout for space.
func (s *Service) Send(msg Message) error {
	if msg.Kind == 0 || msg.Kind >= kindStop {
		return fmt.Errorf("notification: invalid kind %d", msg.Kind)
	}
	return s.queue.Put(msg, SendTimeout)
}

// Delivered returns the number of applied messages.
func (s *Service) Delivered() uint32 { return s.delivered.Load() }

// WaitDelivered waits until a message has been applied since the last wait.
func (s *Service) WaitDelivered(timeout furi.Duration) error {
	_, err := s.events.WaitAny(flagDelivered, true, timeout)
	return err
}

// State returns a snapshot of the outputs.
func (s *Service) State() (State, error) {
	var out State
	err := s.state.WithLock(func(st *State) { out = *st })
	return out, err
}

// Stop removes the record, stops the thread and frees the service.
func (s *Service) Stop() error {
	if !kernel.RecordDestroy(furi.RecordNotification) {
		return ErrInUse
	}
	if err := s.queue.Put(Message{Kind: kindStop}, furi.WaitForever); err != nil {
		return err
	}
	s.worker.Join()
	s.queue.Close()
	s.events.Close()
	s.state.Close()
	return nil
}
