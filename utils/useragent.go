package utils

import (
	"regexp"
	"strings"

	"malawiexplorer/analytics/models"
)

var (
	mobileUA = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	tabletUA = regexp.MustCompile(`(?i)iPad|Tablet|PlayBook|Silk`)
	// Android tablets omit the "Mobile" token that Android phones send.
	androidPhoneUA = regexp.MustCompile(`(?i)Android.*Mobile`)
	// Windows desktop browsers may advertise "Tablet PC" regardless of form factor.
	windowsDesktopUA = regexp.MustCompile(`(?i)Windows NT`)
)

type uaRule struct {
	needles []string
	name    string
}

// Order matters: Edge and Opera both embed "Chrome", and Chrome embeds "Safari".
var browserRules = []uaRule{
	{[]string{"Edg"}, "Edge"},
	{[]string{"OPR", "Opera"}, "Opera"},
	{[]string{"Chrome", "CriOS"}, "Chrome"},
	{[]string{"Firefox", "FxiOS"}, "Firefox"},
	{[]string{"Safari"}, "Safari"},
}

// iOS before Mac: iPhone user agents contain "like Mac OS X".
// Android before Linux: Android user agents contain "Linux".
var osRules = []uaRule{
	{[]string{"Windows"}, "Windows"},
	{[]string{"iPhone", "iPad", "iPod"}, "iOS"},
	{[]string{"Android"}, "Android"},
	{[]string{"Mac"}, "macOS"},
	{[]string{"Linux"}, "Linux"},
}

// DeviceType classifies a user agent as desktop, mobile or tablet.
// Anything unrecognised is desktop.
func DeviceType(ua string) string {
	if !mobileUA.MatchString(ua) {
		if tabletUA.MatchString(ua) && !windowsDesktopUA.MatchString(ua) {
			return models.DeviceTablet
		}
		return models.DeviceDesktop
	}
	if tabletUA.MatchString(ua) {
		return models.DeviceTablet
	}
	if strings.Contains(strings.ToLower(ua), "android") && !androidPhoneUA.MatchString(ua) {
		return models.DeviceTablet
	}
	return models.DeviceMobile
}

func Browser(ua string) string { return firstMatch(ua, browserRules) }

func OS(ua string) string { return firstMatch(ua, osRules) }

func firstMatch(ua string, rules []uaRule) string {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(ua, n) {
				return r.name
			}
		}
	}
	return models.Unknown
}
