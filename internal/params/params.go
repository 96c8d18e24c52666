package params

import (
	"net/url"
	"strings"
)

// ParseQueryString turns "a=1&b=2" into a map. Pairs without a key or a
// value, and pairs that fail to decode, are dropped. Later keys win.
func ParseQueryString(s string) map[string]string {
	out := make(map[string]string)
	if s == "" {
		return out
	}

	for _, pair := range strings.Split(s, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			continue
		}

		k, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}

		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}

		out[k] = v
	}

	return out
}

// Encode appends every entry of p to the query of u. The existing query is
// kept byte for byte.
func Encode(u *url.URL, p map[string]string) {
	enc := EncodeString(p)
	if enc == "" {
		return
	}

	if u.RawQuery != "" {
		u.RawQuery += "&"
	}
	u.RawQuery += enc
}

func EncodeString(p map[string]string) string {
	q := url.Values{}
	for k, v := range p {
		q.Add(k, v)
	}

	return q.Encode()
}
