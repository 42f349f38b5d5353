package polygon

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const nonceLength = 6

// newNonce returns a fresh 6-character nonce. The remote service
// rejects a repeated (nonce, method, params) tuple as a replay, so a
// nonce is generated per HTTP attempt and never reused across retries.
func newNonce() string {
	buf := make([]byte, nonceLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to read random bytes for nonce: %v", err))
	}
	for i, b := range buf {
		buf[i] = nonceAlphabet[int(b)%len(nonceAlphabet)]
	}
	return string(buf)
}

// signParams computes the apiSig parameter for a method call:
//
//	nonce + hex(sha512(nonce + "/" + method + "?" + sortedParams + "#" + secret))
//
// Parameters are sorted lexicographically by name, then by value.
func signParams(method string, params url.Values, secret string, nonce string) string {
	type kv struct{ k, v string }
	var pairs []kv
	for k, vs := range params {
		for _, v := range vs {
			pairs = append(pairs, kv{k, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var sb strings.Builder
	sb.WriteString(nonce)
	sb.WriteString("/")
	sb.WriteString(method)
	sb.WriteString("?")
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString("&")
		}
		sb.WriteString(p.k)
		sb.WriteString("=")
		sb.WriteString(p.v)
	}
	sb.WriteString("#")
	sb.WriteString(secret)

	sum := sha512.Sum512([]byte(sb.String()))
	return nonce + fmt.Sprintf("%x", sum)
}
