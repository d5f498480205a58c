// Package keygen implements the two pluggable, stateful document-key
// allocators bound to a collection: Traditional (tick-based, with an
// optional user-supplied key) and AutoIncrement (monotonic, arithmetic
// over offset/increment/lastValue). Both validate externally supplied
// keys against the shared alphabet in validate.go and never re-issue a
// value once handed out (spec §4.2).
package keygen

import (
	"encoding/json"

	"github.com/dreamware/docshaper/internal/docerr"
)

// Generator is a stateful per-collection key allocator. Both
// implementations guard Generate, Track and Options with their own
// mutex.
type Generator interface {
	// Generate produces the next key. If userKey is non-empty it is
	// validated and, if acceptable, used verbatim (and, for
	// AutoIncrement, folded into the high-water mark); otherwise a new
	// key is derived from tick (Traditional) or from the internal
	// counter (AutoIncrement). isRestore relaxes the allowUserKeys
	// check, matching replay during collection restore.
	Generate(tick uint64, userKey string, isRestore bool) (string, error)

	// Track folds an externally known key into the generator's
	// high-water mark without generating anything, used while replaying
	// a collection's existing documents at open time.
	Track(key string)

	// Options returns the JSON-serializable options that recreate this
	// generator exactly, including its current high-water mark
	// (AutoIncrement's LastValue), so FromJSON(ToJSON(gen)) never
	// re-issues a value gen already handed out.
	Options() Options
}

// Options is the wire/storage representation of a generator's
// configuration and running state (spec §4.2 "Key-generator JSON").
// AllowUserKeys is a pointer so that an absent field defaults to true
// (mirrors TraditionalInit/AutoIncrementInit, which only override the
// true default when the option is explicitly present in the JSON
// blob). LastValue carries AutoIncrement's high-water mark so a
// restarted coordinator that imports this blob resumes exactly where
// the previous instance left off rather than reissuing a used key.
type Options struct {
	Type          string `json:"type"`
	AllowUserKeys *bool  `json:"allowUserKeys,omitempty"`
	Offset        uint64 `json:"offset,omitempty"`
	Increment     uint64 `json:"increment,omitempty"`
	LastValue     uint64 `json:"lastValue,omitempty"`
}

func (o Options) allowUserKeys() bool {
	if o.AllowUserKeys == nil {
		return true
	}
	return *o.AllowUserKeys
}

const (
	typeTraditional   = "traditional"
	typeAutoIncrement = "autoincrement"

	maxIncrement = uint64(1) << 16
)

// New creates a Generator from its JSON options, defaulting to a
// Traditional generator with allowUserKeys=true when opts.Type is empty
// (mirrors GeneratorType's TYPE_TRADITIONAL fallback in key-generator.c).
func New(opts Options) (Generator, error) {
	switch opts.Type {
	case "", typeTraditional:
		return newTraditional(opts), nil

	case typeAutoIncrement:
		return newAutoIncrement(opts)

	default:
		return nil, docerr.New(docerr.InvalidKeyGenerator, "unknown key generator type %q", opts.Type)
	}
}

// FromJSON unmarshals opts and constructs the corresponding Generator.
func FromJSON(data []byte) (Generator, error) {
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, docerr.New(docerr.InvalidKeyGenerator, "malformed key generator options: %v", err)
	}
	return New(opts)
}

// ToJSON serializes gen's current options.
func ToJSON(gen Generator) ([]byte, error) {
	return json.Marshal(gen.Options())
}
