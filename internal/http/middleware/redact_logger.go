// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger for the monitor API.
// Message and patient routes carry protected health information, so nothing
// identifying a patient may reach the logs:
//
//   - Bodies are never logged.
//   - The path is logged as the route template (/patients/:name/messages),
//     never the concrete URL, except for unmatched routes where the raw path
//     is scrubbed like a query string.
//   - Query values of PHI parameters (patient, name, mrn, case_number) are
//     replaced wholesale; everything else is pattern-scrubbed for medical
//     record numbers, case numbers, emails, phone numbers and UUIDs.
//   - Authorization, Cookie and Set-Cookie plus any configured headers are
//     masked.
//
// The middleware also installs the request-scoped logger returned by
// LoggerFrom, carrying request_id, method and route.
package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are extra header names (case-insensitive) to replace with
	// "[REDACTED]".
	MaskHeaders []string
	// PHIParams are extra query parameter names whose values are dropped.
	PHIParams []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	mrnRE   = regexp.MustCompile(`(?i)\bMRN[-_:]?\s?\d{3,}\b`)
	caseRE  = regexp.MustCompile(`(?i)\bCASE[-_:]?\s?\d{3,}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so it cannot eat hex runs from UUIDs.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// defaultPHIParams lists query parameters that identify a patient.
var defaultPHIParams = []string{"patient", "name", "mrn", "case_number"}

// Redact scrubs identifiers from free text. UUIDs go first, then record
// numbers, then emails, then the loose phone pattern.
func Redact(s string) string {
	if s == "" {
		return s
	}
	out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	out = mrnRE.ReplaceAllString(out, "[REDACTED:mrn]")
	out = caseRE.ReplaceAllString(out, "[REDACTED:case]")
	out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
	out = phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
	return out
}

// redactQuery drops the values of PHI parameters and scrubs the rest. An
// unparseable query is scrubbed as plain text.
func redactQuery(raw string, phi map[string]struct{}) string {
	if raw == "" {
		return raw
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return Redact(raw)
	}
	for k, vv := range vals {
		if _, ok := phi[strings.ToLower(k)]; ok {
			vals[k] = []string{"[REDACTED:phi]"}
			continue
		}
		for i, v := range vv {
			vv[i] = Redact(v)
		}
	}
	// Encode sorts keys and escapes brackets; unescape for readability.
	enc := vals.Encode()
	if dec, err := url.QueryUnescape(enc); err == nil {
		return dec
	}
	return enc
}

// RedactingLogger returns a Gin middleware that logs each request with PHI
// scrubbed. 4xx responses log at warn, 5xx at error, everything else at info.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}
	phi := make(map[string]struct{}, len(defaultPHIParams)+len(opts.PHIParams))
	for _, p := range append(append([]string{}, defaultPHIParams...), opts.PHIParams...) {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phi[p] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = Redact(c.Request.URL.Path)
		}
		safeQuery := truncate(redactQuery(c.Request.URL.RawQuery, phi), maxQueryLogLength)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = Redact(strings.Join(vv, ", "))
		}

		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		scoped := log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		status := c.Writer.Status()
		ev := scoped.Info()
		switch {
		case status >= 500:
			ev = scoped.Error()
		case status >= 400:
			ev = scoped.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", Redact(c.Errors.String()))
		}

		ev.
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("remote_ip", c.ClientIP()).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
