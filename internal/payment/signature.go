package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// signParams computes the VNPay request signature: non-empty parameters
// sorted lexicographically by key, URL-escaped, joined as key=value pairs
// with '&', then HMAC-SHA512 under the merchant secret.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, key := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[key]))
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks a callback's signature in constant time
func verifySignature(params map[string]string, secret, signature string) bool {
	expected := signParams(params, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
