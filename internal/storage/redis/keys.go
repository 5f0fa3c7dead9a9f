package redis

import "fmt"

// Key prefix for all scorekeeper data
const keyPrefix = "dutch"

// storageKey namespaces a medium key under the scorekeeper prefix
func storageKey(key string) string {
	return fmt.Sprintf("%s:kv:%s", keyPrefix, key)
}
