package keygen

// MaxKeyLength is the longest a document key may be (spec §"Key
// alphabet").
const MaxKeyLength = 254

// MaxCollectionNameLength is the longest a collection name may be.
const MaxCollectionNameLength = 64

// ValidateKey reports whether key matches the allowed key alphabet
// [A-Za-z0-9_:-] with length 1..MaxKeyLength, mirroring ValidateKey in
// key-generator.c.
func ValidateKey(key string) bool {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if !isKeyChar(key[i]) {
			return false
		}
	}
	return true
}

// ValidateNumericKey reports whether key is a non-empty run of ASCII
// digits no longer than MaxKeyLength, as required of user-supplied
// auto-increment keys (mirrors ValidateNumericKey in key-generator.c).
func ValidateNumericKey(key string) bool {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

func isKeyChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == ':' || c == '-':
		return true
	default:
		return false
	}
}

func isCollectionNameStartChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isCollectionNameChar(c byte) bool {
	return c == '_' || c == '-' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ValidateCollectionName reports whether name matches
// [_A-Za-z0-9][-_A-Za-z0-9]{0,63}.
func ValidateCollectionName(name string) bool {
	if len(name) == 0 || len(name) > MaxCollectionNameLength {
		return false
	}
	if !isCollectionNameStartChar(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isCollectionNameChar(name[i]) {
			return false
		}
	}
	return true
}

// SplitDocumentID splits id at its first '/' into a collection name and
// a key, validating both halves (mirrors
// TRI_ValidateDocumentIdKeyGenerator, which returns the split position
// alongside its boolean result).
func SplitDocumentID(id string) (collection, key string, ok bool) {
	slash := -1
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			slash = i
			break
		}
	}
	if slash <= 0 {
		return "", "", false
	}

	collection = id[:slash]
	key = id[slash+1:]
	if !ValidateCollectionName(collection) || !ValidateKey(key) {
		return "", "", false
	}
	return collection, key, true
}

// ValidateDocumentID reports whether id is a valid "collection/key" pair.
func ValidateDocumentID(id string) bool {
	_, _, ok := SplitDocumentID(id)
	return ok
}
