package gonogo

import "time"

var CtxWithLogger = ctxWithLogger

var BlockLabel = blockLabel

// SampleISI draws one interval from the engine's sampler.
func (e *Engine) SampleISI() time.Duration {
	return e.isiSampler()
}
