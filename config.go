package statechart

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stateforward/statechart.go/muid"
)

// DefaultCompletionLimit bounds how deeply completion transitions may chain.
const DefaultCompletionLimit = 1000

// Config provides options applied when a model is compiled.
type Config struct {
	// Random returns an integer in [0, n). Choice pseudo-states use it to break
	// ties between several enabled branches. Defaults to a seeded generator
	// owned by the model.
	Random func(n int) int
	// Logger receives debug events for fired transitions and trace events for
	// every entered and exited state. Nil disables logging.
	Logger *zerolog.Logger
	// CompletionLimit is the deepest completion chain allowed before
	// ErrCompletionCascade is returned. Zero means DefaultCompletionLimit.
	CompletionLimit int
}

func (config Config) withDefaults() Config {
	if config.Random == nil {
		config.Random = seededRandom(uint64(time.Now().UnixNano()), uint64(muid.Make()))
	}
	if config.Logger == nil {
		nop := zerolog.Nop()
		config.Logger = &nop
	}
	if config.CompletionLimit <= 0 {
		config.CompletionLimit = DefaultCompletionLimit
	}
	return config
}

// seededRandom returns a Random function backed by its own PCG source.
func seededRandom(seed1, seed2 uint64) func(int) int {
	var mutex sync.Mutex
	generator := rand.New(rand.NewPCG(seed1, seed2))
	return func(n int) int {
		mutex.Lock()
		defer mutex.Unlock()
		return generator.IntN(n)
	}
}
