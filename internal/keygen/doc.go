// Package keygen allocates and validates document keys on behalf of a
// collection. Two generator kinds are supported (Options.Type):
//
//	"traditional"   — stringifies a caller-supplied monotonic tick when
//	                  no user key is given.
//	"autoincrement" — derives the next key from an offset/increment
//	                  arithmetic sequence over a running high-water mark.
//
// Both kinds accept a user-supplied key instead of generating one.
// AutoIncrement folds a user key (or an externally tracked one) into its
// high-water mark so that it never issues that value again; Traditional
// keeps no such state, and its Track is a no-op. Construction
// happens once per collection open, from the Options a previous close
// serialized; Track replays a collection's existing keys to rebuild the
// high-water mark before new keys are generated.
package keygen
