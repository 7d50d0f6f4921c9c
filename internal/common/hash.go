// Package common provides small shared helpers for xbridge.
package common

import (
	"hash/fnv"
	"strconv"
)

// RepositoryID normalizes a repository id from an event payload. GitHub
// sends numeric ids; GitLab webhooks may send opaque strings, which are
// hashed down to a stable 64-bit value so the uniqueness index on
// (provider, repository_id, number) keeps working.
func RepositoryID(raw interface{}) int64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(v))
		return int64(h.Sum64())
	default:
		return 0
	}
}
