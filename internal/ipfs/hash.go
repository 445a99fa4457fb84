package ipfs

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	contentIDLength = 46
	sha256Code      = 0x12
	sha256Length    = 0x20
)

// ValidateHash checks that hash is a base58 CIDv0: 46 characters encoding a
// sha2-256 multihash.
func ValidateHash(hash string) error {
	if len(hash) != contentIDLength {
		return newError("validate", KindInvalidInput,
			fmt.Errorf("content id must have %d characters (got %d)", contentIDLength, len(hash)))
	}
	decoded, err := base58.Decode(hash)
	if err != nil {
		return newError("validate", KindInvalidInput, fmt.Errorf("content id is not valid base58: %w", err))
	}
	if len(decoded) != 2+sha256Length || decoded[0] != sha256Code || decoded[1] != sha256Length {
		return newError("validate", KindInvalidInput, errors.New("content id is not a sha2-256 multihash"))
	}
	return nil
}
