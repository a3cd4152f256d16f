package targeting

import "strings"

// Platform is the request's client class derived from its User-Agent.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformMobile  Platform = "mobile"
	PlatformAPI     Platform = "api"
	PlatformUnknown Platform = ""
)

// keywordSet enables substring matching against a set of markers.
type keywordSet []string

func (k keywordSet) contains(s string) bool {
	for _, keyword := range k {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

// Classification keyword sets. API clients include SDKs, CLI tools, and
// crawlers; anything that isn't a human browsing session counts as api.
var (
	apiKeywords = keywordSet{
		"curl", "wget", "httpie", "okhttp", "go-http-client", "python-requests",
		"python-urllib", "java/", "axios", "node-fetch", "libwww", "postman",
		"insomnia", "bot", "spider", "crawler", "monitor", "scraper",
	}
	mobileKeywords = keywordSet{
		"mobile", "iphone", "ipad", "android", "windows phone", "iemobile",
		"blackberry", "okhttp-mobile", "dalvik", "cfnetwork",
	}
	webKeywords = keywordSet{
		"mozilla", "chrome", "safari", "firefox", "edge", "opera", "webkit",
	}
)

// DetectPlatform classifies a raw User-Agent header into a Platform.
//
// Order matters: API-client markers win over everything because SDKs often
// spoof browser tokens, then mobile markers, then generic browser tokens.
// An empty or unrecognizable User-Agent maps to api rather than unknown
// since header-less traffic is overwhelmingly programmatic.
func DetectPlatform(userAgent string) Platform {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return PlatformAPI
	}

	if apiKeywords.contains(ua) {
		return PlatformAPI
	}
	if mobileKeywords.contains(ua) {
		return PlatformMobile
	}
	if webKeywords.contains(ua) {
		return PlatformWeb
	}

	return PlatformUnknown
}
