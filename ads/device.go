package ads

import (
	"strings"

	"github.com/mssola/user_agent"
)

// DeviceType is the platform a download was resolved for.
type DeviceType string

const (
	DeviceWindows DeviceType = "WINDOWS"
	DeviceMac     DeviceType = "MAC"
	DeviceLinux   DeviceType = "LINUX"
	DeviceAndroid DeviceType = "ANDROID"
	DeviceIOS     DeviceType = "IOS"
	DeviceUnknown DeviceType = "UNKNOWN"
)

func DeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceWindows,
		DeviceMac,
		DeviceLinux,
		DeviceAndroid,
		DeviceIOS,
		DeviceUnknown,
	}
}

// ParseDeviceType is lenient: case is ignored and anything unrecognised maps to DeviceUnknown.
func ParseDeviceType(s string) DeviceType {
	d := DeviceType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range DeviceTypes() {
		if d == known {
			return d
		}
	}
	return DeviceUnknown
}

// DeviceTypeFromUserAgent infers the visitor's platform from a User-Agent header.
func DeviceTypeFromUserAgent(ua string) DeviceType {
	if ua == "" {
		return DeviceUnknown
	}
	parsed := user_agent.New(ua)
	osName := strings.ToLower(parsed.OSInfo().Name)
	platform := strings.ToLower(parsed.Platform())

	switch {
	case strings.Contains(osName, "android"):
		return DeviceAndroid
	case strings.Contains(platform, "iphone"), strings.Contains(platform, "ipad"),
		strings.Contains(platform, "ipod"), strings.Contains(osName, "ios"):
		return DeviceIOS
	case strings.Contains(osName, "windows"):
		return DeviceWindows
	case strings.Contains(osName, "mac os"), strings.Contains(platform, "macintosh"):
		return DeviceMac
	case strings.Contains(osName, "linux"), strings.Contains(platform, "linux"):
		return DeviceLinux
	}
	return DeviceUnknown
}
