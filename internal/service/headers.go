package service

import "net/http"

// strippedHeaders are injected by CloudFront, API Gateway or client tooling
// and must not reach the backend. Keys are matched exactly, without case folding.
var strippedHeaders = map[string]struct{}{
	"Accept-Encoding":              {},
	"CloudFront-Forwarded-Proto":   {},
	"CloudFront-Is-Desktop-Viewer": {},
	"CloudFront-Is-Mobile-Viewer":  {},
	"CloudFront-Is-SmartTV-Viewer": {},
	"CloudFront-Is-Tablet-Viewer":  {},
	"CloudFront-Viewer-ASN":        {},
	"CloudFront-Viewer-Country":    {},
	"Host":                         {},
	"Postman-Token":                {},
	"User-Agent":                   {},
	"Via":                          {},
	"X-Amz-Cf-Id":                  {},
	"X-Amzn-Trace-Id":              {},
	"X-Forwarded-For":              {},
	"X-Forwarded-Port":             {},
	"X-Forwarded-Proto":            {},
}

// edgeSpellings maps the canonical MIME form of every stripped header to the
// spelling API Gateway delivers it in.
var edgeSpellings = func() map[string]string {
	m := make(map[string]string, len(strippedHeaders))
	for k := range strippedHeaders {
		m[http.CanonicalHeaderKey(k)] = k
	}
	return m
}()

// EdgeHeaderName returns the API Gateway spelling of key when key is a
// stripped header in any casing, and key unchanged otherwise. Callers
// building requests from net/http, which canonicalises keys, use it so
// SanitizeHeaders still recognises names such as CloudFront-Viewer-Country.
func EdgeHeaderName(key string) string {
	if name, ok := edgeSpellings[http.CanonicalHeaderKey(key)]; ok {
		return name
	}
	return key
}

// SanitizeHeaders returns a new map holding every header except the
// stripped ones. The input map is not modified.
func SanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if _, drop := strippedHeaders[k]; drop {
			continue
		}
		out[k] = v
	}
	return out
}
