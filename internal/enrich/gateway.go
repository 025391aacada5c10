// Package enrich fills missing token display fields from off-chain
// metadata JSON and on-chain account data. Every lookup is a single
// attempt with a bounded timeout and fails open: an event is never
// dropped because its metadata could not be resolved.
package enrich

import "strings"

// Known IPFS gateways. The public ipfs.io gateway is slow under load;
// images pointing at it are rewritten to the mirrored pinata gateway
// by literal hostname substitution.
const (
	slowGatewayHost = "ipfs.io"
	fastGatewayHost = "gateway.pinata.cloud"
)

// NormalizeImageURL swaps the slow IPFS gateway host for the fast
// mirror. This is a plain string replacement, not a URL rewrite; any
// other host passes through untouched.
func NormalizeImageURL(u string) string {
	return strings.Replace(u, "://"+slowGatewayHost+"/", "://"+fastGatewayHost+"/", 1)
}

// imageSuffixes mark a URI as a direct image rather than a metadata
// pointer.
var imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// LooksLikeImage reports whether the URI points at an image directly.
// Anything else is treated as a metadata pointer and fetched as JSON.
func LooksLikeImage(uri string) bool {
	lower := strings.ToLower(uri)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
