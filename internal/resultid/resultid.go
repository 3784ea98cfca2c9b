// Package resultid computes the stable identifier attached to every
// query result: a content-addressed hash over the result's
// file path, block span, and the indexed file's content hash, so a
// result's id survives a reindex of unrelated files and only changes
// when the thing it names actually changes.
package resultid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Of hashes (relPath, lineStart, lineEnd, fileContentHash) into a
// hex-encoded 128-bit id.
//
// The contract asks for BLAKE2b or an equivalent 128-bit cryptographic
// hash; this truncates a SHA-256 digest to its first 16 bytes, which is
// exactly that equivalent without reaching for a dependency nothing
// else in the tree needs.
func Of(relPath string, lineStart, lineEnd int, fileContentHash string) string {
	input := fmt.Sprintf("%s|%d|%d|%s", relPath, lineStart, lineEnd, fileContentHash)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
