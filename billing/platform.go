package billing

import (
	"fmt"
	"strings"
)

// Platform identifies which native store SDK sits behind an Invoker.
type Platform uint8

const (
	PlatformUnknown Platform = iota
	PlatformIOS
	PlatformAndroid
)

func (p Platform) String() string {
	switch p {
	case PlatformIOS:
		return "ios"
	case PlatformAndroid:
		return "android"
	default:
		return "unknown"
	}
}

// ParsePlatform accepts "ios"/"apple" and "android"/"google", case-insensitively.
func ParsePlatform(value string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ios", "apple":
		return PlatformIOS, nil
	case "android", "google":
		return PlatformAndroid, nil
	default:
		return PlatformUnknown, fmt.Errorf("unknown platform: %q", value)
	}
}
