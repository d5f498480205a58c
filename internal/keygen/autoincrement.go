package keygen

import (
	"strconv"
	"sync"

	"github.com/dreamware/docshaper/internal/docerr"
)

// autoIncrement is the monotonic generator driven by offset, increment
// and a running high-water mark (lastValue). Grounded on
// AutoIncrementInit/AutoIncrementNext/AutoIncrementGenerate/
// AutoIncrementTrack in key-generator.c.
type autoIncrement struct {
	mu            sync.Mutex
	allowUserKeys bool
	offset        uint64
	increment     uint64
	lastValue     uint64
}

func newAutoIncrement(opts Options) (*autoIncrement, error) {
	increment := opts.Increment
	if increment == 0 {
		increment = 1
	} else if increment >= maxIncrement {
		return nil, docerr.New(docerr.InvalidKeyGenerator, "increment %d must be less than %d", increment, maxIncrement)
	}

	return &autoIncrement{
		allowUserKeys: opts.allowUserKeys(),
		offset:        opts.Offset,
		increment:     increment,
		lastValue:     opts.LastValue,
	}, nil
}

// next computes the smallest value >= lastValue+1 congruent to offset
// modulo increment (AutoIncrementNext in key-generator.c). The trailing
// re-clamp to offset mirrors the original's defensive "if next < offset"
// check, which is unreachable given increment > 0 but kept for parity.
func autoIncrementNext(lastValue, increment, offset uint64) uint64 {
	if lastValue < offset {
		return offset
	}
	next := lastValue + increment - ((lastValue - offset) % increment)
	if next < offset {
		next = offset
	}
	return next
}

func (a *autoIncrement) Generate(_ uint64, userKey string, isRestore bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if userKey != "" {
		if !a.allowUserKeys && !isRestore {
			return "", docerr.New(docerr.KeyUnexpected, "collection does not allow user-supplied keys")
		}
		if !ValidateNumericKey(userKey) {
			return "", docerr.New(docerr.KeyBad, "key %q is not a valid auto-increment key", userKey)
		}
		value, err := strconv.ParseUint(userKey, 10, 64)
		if err != nil {
			return "", docerr.New(docerr.KeyBad, "key %q overflows uint64", userKey)
		}
		if value > a.lastValue {
			a.lastValue = value
		}
		return userKey, nil
	}

	next := autoIncrementNext(a.lastValue, a.increment, a.offset)
	if next == ^uint64(0) || next < a.lastValue {
		return "", docerr.New(docerr.OutOfKeys, "auto-increment generator exhausted its key space")
	}
	a.lastValue = next
	return strconv.FormatUint(next, 10), nil
}

// Track folds an externally observed key into lastValue, used when
// replaying a collection's documents at open time.
func (a *autoIncrement) Track(key string) {
	value, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if value > a.lastValue {
		a.lastValue = value
	}
}

func (a *autoIncrement) Options() Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	allow := a.allowUserKeys
	return Options{
		Type:          typeAutoIncrement,
		AllowUserKeys: &allow,
		Offset:        a.offset,
		Increment:     a.increment,
		LastValue:     a.lastValue,
	}
}
