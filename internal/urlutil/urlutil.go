// Package urlutil builds query-string-encoded repository URLs.
package urlutil

import "net/url"

// Build resolves path against base and attaches query as the query string.
func Build(base *url.URL, path string, query url.Values) *url.URL {
	return base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
}
