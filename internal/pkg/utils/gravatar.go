package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const defaultAvatarSize = 200

// GravatarURL returns the Gravatar image of email, used while a player has
// not uploaded an avatar. Sizes outside 1..2048 fall back to 200px.
func GravatarURL(email string, size int) string {
	if size <= 0 || size > 2048 {
		size = defaultAvatarSize
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=mp", hex.EncodeToString(sum[:]), size)
}
