package share

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const tokenSeparator = "."

// mintToken builds an opaque share token from three dot-joined parts:
// 128 bits of crypto/rand (unguessability), a short hash of the cart id
// (debugging aid that does not leak the raw id), and a base-36
// timestamp. The shape distinguishes real tokens from accidental
// collisions while staying opaque to callers.
func mintToken(cartID string, now time.Time) string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("share: rand.Read: " + err.Error())
	}

	sum := sha256.Sum256([]byte(cartID))

	return hex.EncodeToString(buf) +
		tokenSeparator + hex.EncodeToString(sum[:4]) +
		tokenSeparator + strconv.FormatInt(now.Unix(), 36)
}
