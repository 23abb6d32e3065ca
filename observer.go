package xframe

import (
	"reflect"
	"strconv"
	"sync"

	"github.com/trickstertwo/xlog"
	"golang.org/x/time/rate"
)

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
// Func values are not comparable, so an ObserverFunc cannot be removed once added.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver is an Adapter that emits notices via xlog.
// Failure notices are logged at Warn and, when Limiter is set, throttled by it;
// everything else goes to Debug.
type LoggingObserver struct {
	Logger  *xlog.Logger
	Limiter *rate.Limiter
}

// NewLoggingObserver returns a LoggingObserver allowing perSecond failure lines
// with the given burst.
func NewLoggingObserver(l *xlog.Logger, perSecond float64, burst int) LoggingObserver {
	var lim *rate.Limiter
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return LoggingObserver{Logger: l, Limiter: lim}
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	if e.Type.Failure() && o.Limiter != nil && !o.Limiter.Allow() {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("kind", string(e.Kind)),
		xlog.Str("subject", e.Subject),
		xlog.Str("prototype", e.Prototype),
	)
	if e.Count > 0 {
		ev = ev.With(xlog.Str("count", strconv.Itoa(e.Count)))
	}
	if e.Duration > 0 {
		ev = ev.With(xlog.Dur("duration", e.Duration))
	}
	if e.Type.Failure() {
		ev.Warn().Err(e.Err).Msg("xframe event")
		return
	}
	ev.Debug().Msg("xframe event")
}

// observerSet is the notification fan-out shared by every service.
type observerSet struct {
	mu   sync.RWMutex
	list []Observer
}

func (s *observerSet) add(obs Observer) {
	if obs == nil {
		return
	}
	s.mu.Lock()
	s.list = append(s.list, obs)
	s.mu.Unlock()
}

func (s *observerSet) remove(obs Observer) {
	if obs == nil || !isComparable(obs) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.list {
		if isComparable(o) && o == obs {
			s.list = append(s.list[:i:i], s.list[i+1:]...)
			break
		}
	}
}

// notify iterates a copy so observers may add or remove observers.
func (s *observerSet) notify(e Event) {
	for _, o := range s.snapshot() {
		o.OnEvent(e)
	}
}

func (s *observerSet) snapshot() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.list) == 0 {
		return nil
	}
	return append([]Observer(nil), s.list...)
}

// isComparable reports whether v can be used with == and as a map key.
func isComparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}

func describe(v any) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return reflect.TypeOf(v).String()
}
