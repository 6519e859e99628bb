package valueobject

import "fmt"

// Platform identifies which upstream social network a scrape job targets.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformThreads   Platform = "threads"
	PlatformTikTok    Platform = "tiktok"
	PlatformX         Platform = "x"
)

func (p Platform) String() string { return string(p) }

// ParsePlatform validates a wire-level platform string. Unknown platform is
// a fatal configuration error per the Upstream Scrape Adapter contract.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformInstagram, PlatformThreads, PlatformTikTok, PlatformX:
		return Platform(s), nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}
