package domain

import "regexp"

// Asset ids come back from the remote API and end up interpolated into view
// names, so only the id alphabet CoinGecko actually uses is accepted.
var assetIDRe = regexp.MustCompile(`^[a-z0-9-]+$`)

func IsValidAssetID(id string) bool {
	return assetIDRe.MatchString(id)
}
