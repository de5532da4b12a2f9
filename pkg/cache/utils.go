package cache

import (
	"fmt"
	"strings"
)

// GenerateKey joins a prefix and an id into a colon-separated cache key.
func GenerateKey(prefix, id string) string {
	return prefix + ":" + id
}

// GenerateKeyWithParams builds a colon-separated key from a prefix and
// any number of parameters, e.g. "candles:BTC:1h:100".
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}
