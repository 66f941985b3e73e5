package redis

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

const (
	// KeyPrefixSession is the prefix for session keys
	KeyPrefixSession = "toonshare:session:"
	// KeyPrefixThumbnail is the prefix for shared thumbnail cache keys
	KeyPrefixThumbnail = "toonshare:thumb:"
)

// SessionKey returns the Redis key for a session by ID
func SessionKey(id string) string {
	return KeyPrefixSession + id
}

// ThumbnailKey returns the Redis key for a page URL.
// URLs are hashed to keep keys short and free of odd characters.
func ThumbnailKey(pageURL string) string {
	sum := sha1.Sum([]byte(pageURL))
	return KeyPrefixThumbnail + hex.EncodeToString(sum[:])
}

// ExtractSessionID extracts the session ID from a Redis key
func ExtractSessionID(key string) (string, error) {
	if len(key) <= len(KeyPrefixSession) {
		return "", fmt.Errorf("invalid session key: %s", key)
	}
	return key[len(KeyPrefixSession):], nil
}
