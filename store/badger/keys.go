package badger

import (
	"fmt"

	"github.com/poiesic/docstream/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "docrec"
)

// makeDocumentKey generates a key for a document by fingerprint.
func makeDocumentKey(fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, fp))
}
