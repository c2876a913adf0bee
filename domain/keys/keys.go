package keys

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const (
	// PfxHealthCheck is used for prefixing health check cache keys
	PfxHealthCheck = "healthcheck"
	// PfxTokenType is used for prefixing collection token type probe results
	PfxTokenType = "tokenType"
	// PfxBlockTime is used for prefixing block timestamp lookups
	PfxBlockTime = "blockTime"
)

// MD5 hashes the data with md5
func MD5(data string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

// CustomKey is used to join the customized key by components with specified delimiter
func CustomKey(delimiter string, components ...string) string {
	return strings.Join(components, delimiter)
}

// CacheKey is used to join the cache key by components
func CacheKey(components ...string) string {
	return CustomKey(":", components...)
}
