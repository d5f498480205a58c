package keygen

import (
	"strconv"
	"sync"

	"github.com/dreamware/docshaper/internal/docerr"
)

// traditional is the tick-based generator: absent a user-supplied key,
// it stringifies the caller-provided tick (a monotonic, time-derived
// counter) as the new key. Grounded on TraditionalInit/
// TraditionalGenerate in key-generator.c.
type traditional struct {
	mu            sync.Mutex
	allowUserKeys bool
}

func newTraditional(opts Options) *traditional {
	return &traditional{allowUserKeys: opts.allowUserKeys()}
}

func (t *traditional) Generate(tick uint64, userKey string, isRestore bool) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if userKey != "" {
		if !t.allowUserKeys && !isRestore {
			return "", docerr.New(docerr.KeyUnexpected, "collection does not allow user-supplied keys")
		}
		if !ValidateKey(userKey) {
			return "", docerr.New(docerr.KeyBad, "key %q does not match the allowed alphabet", userKey)
		}
		return userKey, nil
	}

	return strconv.FormatUint(tick, 10), nil
}

// Track is a no-op for the traditional generator: it carries no
// high-water mark to replay (generator.track is NULL in
// key-generator.c's CreateGenerator for TYPE_TRADITIONAL).
func (t *traditional) Track(key string) {}

func (t *traditional) Options() Options {
	t.mu.Lock()
	defer t.mu.Unlock()
	allow := t.allowUserKeys
	return Options{Type: typeTraditional, AllowUserKeys: &allow}
}
