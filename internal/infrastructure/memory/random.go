package memory

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// secretBytes gives 192 bits of entropy per token and session id.
const secretBytes = 24

func randomHex(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
