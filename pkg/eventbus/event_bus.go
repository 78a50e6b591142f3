package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/pkg/serrors"
)

// EventBus dispatches events to every subscribed func whose parameter list
// matches the published arguments.
type EventBus interface {
	Publish(args ...any)
	PublishE(args ...any) error
	Subscribe(handler any)
	Unsubscribe(handler any)
	SubscribersCount() int
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type subscriber struct {
	fn reflect.Value
}

type bus struct {
	log *logrus.Logger

	mu   sync.RWMutex
	subs []subscriber
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &bus{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			switch param.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice:
				continue
			default:
				return false
			}
		}
		if !reflect.TypeOf(arg).AssignableTo(param) {
			return false
		}
	}
	return true
}

func (b *bus) matching(args []any) []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if MatchSignature(s.fn.Interface(), args) {
			out = append(out, s)
		}
	}
	return out
}

func callArgs(fn reflect.Value, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fn.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

// invoke calls one subscriber; a panic is converted into an error.
func invoke(s subscriber, args []any) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", s.fn.Type(), r)
		}
	}()
	return s.fn.Call(callArgs(s.fn, args)), nil
}

// Publish delivers the event and logs handler panics and returned errors.
func (b *bus) Publish(args ...any) {
	subs := b.matching(args)
	if len(subs) == 0 {
		if b.log != nil {
			b.log.Warnf("eventbus.Publish: no matching subscribers for event %T", firstArg(args))
		}
		return
	}
	for _, s := range subs {
		out, err := invoke(s, args)
		if err == nil {
			err = returnedError(s, out)
		}
		if err != nil && b.log != nil {
			b.log.WithError(err).Errorf("eventbus: handler %s failed", s.fn.Type())
		}
	}
}

// PublishE delivers the event and joins every handler failure.
func (b *bus) PublishE(args ...any) error {
	subs := b.matching(args)
	if len(subs) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, s := range subs {
		out, err := invoke(s, args)
		if err == nil {
			err = returnedError(s, out)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func returnedError(s subscriber, out []reflect.Value) error {
	switch len(out) {
	case 0:
		return nil
	case 1:
		if out[0].Type() != errorType {
			return ErrInvalidHandlerReturn.Wrapf("handler %s returns %s", s.fn.Type(), out[0].Type())
		}
		if out[0].IsNil() {
			return nil
		}
		return out[0].Interface().(error)
	default:
		return ErrInvalidHandlerReturn.Wrapf("handler %s returns %d values", s.fn.Type(), len(out))
	}
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func (b *bus) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscriber{fn: v})
}

func (b *bus) Unsubscribe(handler any) {
	target := reflect.ValueOf(handler)
	if target.Kind() != reflect.Func {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.fn.Pointer() == target.Pointer() {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
