package agitation

import (
	"golang.org/x/sync/singleflight"
)

// Engine resolves phases for modes shared between sessions. It keeps no
// per-session state and is safe for concurrent use.
type Engine struct {
	describer    Describer
	cache        *PhaseCache
	singleflight singleflight.Group
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDescriber replaces the English phase descriptions.
func WithDescriber(d Describer) EngineOption {
	return func(e *Engine) { e.describer = d }
}

// WithCacheSize bounds the phase cache.
func WithCacheSize(n int) EngineOption {
	return func(e *Engine) { e.cache = NewPhaseCache(n) }
}

// NewEngine creates an engine with a 1024 entry phase cache.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		describer: defaultDescriber,
		cache:     NewPhaseCache(1024),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PhaseAt returns the phase mode prescribes for minute. A nil mode is still
// throughout.
func (e *Engine) PhaseAt(minute, totalMinutes int, mode *Mode) Phase {
	if mode == nil {
		return phaseAtWith(e.describer, minute, totalMinutes, nil)
	}

	key := cacheKey(mode.fingerprint, minute, totalMinutes)
	if p, ok := e.cache.Get(key); ok {
		return p
	}

	// One Engine serves the session loop and concurrent previews of the same
	// built-in modes; a miss is computed once and the others wait for it.
	v, _, _ := e.singleflight.Do(key, func() (interface{}, error) {
		p := phaseAtWith(e.describer, minute, totalMinutes, mode.rules)
		e.cache.Set(key, p)
		return p, nil
	})
	return v.(Phase)
}

// Schedule returns the phase for every minute of a process, index 0 being
// minute 1.
func (e *Engine) Schedule(totalMinutes int, mode *Mode) []Phase {
	out := make([]Phase, 0, totalMinutes)
	for m := 1; m <= totalMinutes; m++ {
		out = append(out, e.PhaseAt(m, totalMinutes, mode))
	}
	return out
}

// CacheStats exposes the phase cache counters.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}
