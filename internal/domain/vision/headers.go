package vision

import (
	"net/http"
	"sort"
	"strings"

	"vision-relay-go/internal/domain/provider"
)

// buildHeaders combines the profile's auth headers, the JSON content type and
// caller extras. Keys compare case-insensitively. Extras may add or replace
// any header except Authorization and the profile's API key header; those are
// returned as skipped.
func buildHeaders(profile provider.Profile, apiKey string, extra map[string]string) (map[string]string, []string) {
	headers := make(map[string]string)
	set := func(key, value string) {
		for existing := range headers {
			if strings.EqualFold(existing, key) && existing != key {
				delete(headers, existing)
			}
		}
		headers[key] = value
	}

	for k, v := range profile.Headers(apiKey) {
		set(k, v)
	}
	set("Content-Type", "application/json")

	protected := map[string]bool{"authorization": true}
	if profile.APIKeyHeader != "" {
		protected[strings.ToLower(profile.APIKeyHeader)] = true
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var skipped []string
	for _, k := range keys {
		name := strings.TrimSpace(k)
		if name == "" {
			continue
		}
		if protected[strings.ToLower(name)] {
			skipped = append(skipped, http.CanonicalHeaderKey(name))
			continue
		}
		set(name, extra[k])
	}
	return headers, skipped
}
