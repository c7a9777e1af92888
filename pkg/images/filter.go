package images

import (
	"regexp"
	"strings"
)

// Origin is prepended to root-relative image paths.
const Origin = "https://www.rightmove.co.uk"

var (
	resolutionDir    = regexp.MustCompile(`/\d+x\d+/`)
	resolutionSuffix = regexp.MustCompile(`_\d+x\d+\.`)
	queryString      = regexp.MustCompile(`\?.*$`)

	photoStrict  = regexp.MustCompile(`(?i)_IMG_\d{2}_\d{4}\.(jpe?g|png|webp)$`)
	photoLoose   = regexp.MustCompile(`(?i)_IMG_\d{1,2}_\d{1,4}\.(jpe?g|png|webp)$`)
	imageExt     = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)$`)
	upperPrefix  = regexp.MustCompile(`/[A-Z]{2,}_`)
	estateAgent  = regexp.MustCompile(`(?i)estate[-_]agent`)
	agentPhoto   = regexp.MustCompile(`(?i)agent[-_]photo`)
	numberedAdBp = regexp.MustCompile(`\d+_(bp|ad)_`)
)

var thumbnailMarkers = []string{
	"_thumb", "_small", "/thumb", "_max_", "_bp_", "_ad_", "_mpu_", "_pd_",
}

var systemMarkers = []string{
	"logo", "icon", "avatar", "agent", "brand", "watermark",
	"overlay", "marker", "assets/", "static/images/", "banner",
	"badge", "stamp", "/text/", "_text_", "/UI/", "ui-",
	"branding", "clarke", "peter", "_bp_", "/bp_", "_ad_",
	"/ad_", "_mpu_", "_pd_", "_promo_", "_sponsor_",
}

var basicExclusions = []string{"logo", "icon", "agent"}

// Normalize turns protocol-relative and root-relative URLs into absolute
// HTTPS URLs. Absolute URLs are returned unchanged.
func Normalize(src string) string {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return Origin + src
	default:
		return src
	}
}

// BaseURL strips resolution tokens and the query string so the same photo
// at different sizes compares equal.
func BaseURL(u string) string {
	u = resolutionDir.ReplaceAllString(u, "/")
	u = resolutionSuffix.ReplaceAllString(u, ".")
	return queryString.ReplaceAllString(u, "")
}

// IsCDN reports whether the URL is served from the listing site's image hosts.
func IsCDN(u string) bool {
	return strings.Contains(u, "media.rightmove") || strings.Contains(u, "rightmove-static")
}

// IsQualityPhoto reports whether the filename looks like a listing photo
// rather than a thumbnail or promotional asset.
func IsQualityPhoto(u string) bool {
	photo := photoStrict.MatchString(u) ||
		photoLoose.MatchString(u) ||
		(strings.Contains(u, "_IMG_") && imageExt.MatchString(u) && !strings.Contains(u, "_max_"))
	if !photo {
		return false
	}
	for _, m := range thumbnailMarkers {
		if strings.Contains(u, m) {
			return false
		}
	}
	return true
}

// IsSystemImage reports branding, advertising and agent imagery.
func IsSystemImage(u string) bool {
	for _, m := range systemMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return upperPrefix.MatchString(u) ||
		estateAgent.MatchString(u) ||
		agentPhoto.MatchString(u) ||
		numberedAdBp.MatchString(u)
}

func isBasicExcluded(u string) bool {
	lower := strings.ToLower(u)
	for _, m := range basicExclusions {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
