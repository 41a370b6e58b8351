// Package versioning negotiates the API version for each request and stamps
// it on the context. The API currently serves v1; v2 is reserved so clients
// can start pinning versions before any breaking change lands.
package versioning

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Version represents an API version.
type Version int

const (
	// V1 is the initial API version (current default)
	V1 Version = 1
	// V2 is reserved for future breaking changes
	V2 Version = 2

	// LatestVersion points to the most recent stable API version
	LatestVersion = V1

	// DefaultVersion is used when the client doesn't specify a version
	DefaultVersion = V1
)

// vendorPrefix starts the vendor media type clients may send in Accept,
// e.g. "application/vnd.commerce.v1+json".
const vendorPrefix = "application/vnd.commerce."

// String returns the version as a string (e.g., "v1", "v2").
func (v Version) String() string {
	if v <= 0 {
		return "v1"
	}
	return "v" + strconv.Itoa(int(v))
}

type ctxKey struct{}

// FromContext retrieves the negotiated API version from the context.
func FromContext(ctx context.Context) Version {
	if v, ok := ctx.Value(ctxKey{}).(Version); ok {
		return v
	}
	return DefaultVersion
}

// WithVersion adds the API version to the context.
func WithVersion(ctx context.Context, version Version) context.Context {
	return context.WithValue(ctx, ctxKey{}, version)
}

// Negotiation resolves the requested API version and installs it on the
// request context. Clients can ask for a version three ways:
//   - X-API-Version: 2                            (explicit header)
//   - Accept: application/vnd.commerce.v2+json    (vendor media type)
//   - Accept: application/json; version=2         (version parameter)
//
// Unspecified or unknown versions fall back to v1.
func Negotiation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := negotiateVersion(r)

		// Echo the resolved version so clients can tell what they got.
		// Vary is added, not set: the CORS layer contributes its own value.
		w.Header().Set("X-API-Version", version.String())
		w.Header().Add("Vary", "Accept, X-API-Version")

		ctx := WithVersion(r.Context(), version)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// negotiateVersion extracts the requested API version from the request.
// X-API-Version wins over Accept; within Accept, media ranges are scanned
// in order and the first one naming a known version wins.
func negotiateVersion(r *http.Request) Version {
	if header := r.Header.Get("X-API-Version"); header != "" {
		if v := parseVersionString(header); v > 0 {
			return v
		}
	}

	for _, rangePart := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(rangePart))
		if err != nil {
			continue
		}
		if rest, ok := strings.CutPrefix(mediaType, vendorPrefix); ok {
			versionPart, _, _ := strings.Cut(rest, "+")
			if v := parseVersionString(versionPart); v > 0 {
				return v
			}
		}
		if v := parseVersionString(params["version"]); v > 0 {
			return v
		}
	}

	return DefaultVersion
}

// parseVersionString converts version strings like "v2", "2", "V2" to a
// Version, or 0 when the string names no known version.
func parseVersionString(s string) Version {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v")
	n, err := strconv.Atoi(s)
	if err != nil || n < int(V1) || n > int(V2) {
		return 0
	}
	return Version(n)
}

// DeprecationWarning adds deprecation headers to responses served on an old
// API version, giving clients notice before the version goes away.
type DeprecationWarning struct {
	deprecatedVersion Version
	sunsetDate        string // RFC 3339 date when the version will be removed
	message           string
}

// NewDeprecationWarning creates a deprecation warning for a specific API version.
func NewDeprecationWarning(version Version, sunsetDate, message string) *DeprecationWarning {
	return &DeprecationWarning{
		deprecatedVersion: version,
		sunsetDate:        sunsetDate,
		message:           message,
	}
}

// Middleware stamps RFC 8594 deprecation headers on responses for requests
// negotiated to the deprecated version.
func (d *DeprecationWarning) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == d.deprecatedVersion {
			w.Header().Set("Deprecation", "true")
			if d.sunsetDate != "" {
				w.Header().Set("Sunset", d.sunsetDate)
			}
			if d.message != "" {
				w.Header().Set("Warning", `299 - "Deprecated API Version: `+d.message+`"`)
			}
		}
		next.ServeHTTP(w, r)
	})
}
