package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces all cache keys in Redis.
const keyPrefix = "sendgrid"

// credentialParams are excluded from cache keys.
var credentialParams = map[string]bool{
	"api_user": true,
	"api_key":  true,
}

// Key identifies a cached SendGrid response.
type Key struct {
	// Account is the api_user the response belongs to
	Account string

	// Endpoint is the logical endpoint, e.g. "identity/list"
	Endpoint string

	// Params are the request parameters (credentials are ignored)
	Params url.Values
}

// String generates a deterministic key. Account, parameter names and values
// are query-escaped so separators inside them cannot collide.
// Format: sendgrid:account:endpoint:param1=val1:param2=val2
//
// Example:
//
//	sendgrid:acme:identity/get:identity=Default
func (k Key) String() string {
	parts := []string{k.Prefix()}

	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		if credentialParams[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := make([]string, len(k.Params[name]))
		for i, v := range k.Params[name] {
			values[i] = url.QueryEscape(v)
		}
		parts = append(parts, fmt.Sprintf("%s=%s", url.QueryEscape(name), strings.Join(values, ",")))
	}

	return strings.Join(parts, ":")
}

// Prefix returns the key prefix shared by all parameter variants of the endpoint.
func (k Key) Prefix() string {
	return strings.Join([]string{keyPrefix, url.QueryEscape(k.Account), k.Endpoint}, ":")
}
