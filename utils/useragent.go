package utils

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// DeviceProfile is the normalized result of classifying a User-Agent string.
// Known reports whether classification produced anything at all; when it is
// false every other field is zero, so callers store NULLs instead of checking
// individual fields.
type DeviceProfile struct {
	Known          bool
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	DeviceBrand    string
	DeviceModel    string
	DeviceType     string // mobile, tablet, desktop, bot, unknown
	IsBot          bool
}

// ClassifyUserAgent parses a raw User-Agent header. A missing or unparseable
// header degrades to an unknown profile; it never fails visitor creation.
func ClassifyUserAgent(raw string) DeviceProfile {
	if strings.TrimSpace(raw) == "" {
		return DeviceProfile{}
	}

	parsed := ua.Parse(raw)
	if parsed.Name == "" && parsed.OS == "" && !parsed.Bot {
		return DeviceProfile{}
	}

	return DeviceProfile{
		Known:          true,
		Browser:        parsed.Name,
		BrowserVersion: parsed.Version,
		OS:             parsed.OS,
		OSVersion:      parsed.OSVersion,
		DeviceBrand:    deviceBrand(parsed.Device),
		DeviceModel:    parsed.Device,
		DeviceType:     deviceType(parsed),
		IsBot:          parsed.Bot,
	}
}

// deviceType picks one label per visitor. A UA can match several parser
// flags, so the priority order is mobile > tablet > desktop > bot.
func deviceType(parsed ua.UserAgent) string {
	switch {
	case parsed.Mobile:
		return "mobile"
	case parsed.Tablet:
		return "tablet"
	case parsed.Desktop:
		return "desktop"
	case parsed.Bot:
		return "bot"
	}
	return "unknown"
}

// deviceBrand recovers a brand for the model strings the parser reports.
// Only the common Apple models are identifiable; everything else stays blank.
func deviceBrand(model string) string {
	switch {
	case strings.HasPrefix(model, "iPhone"),
		strings.HasPrefix(model, "iPad"),
		strings.HasPrefix(model, "iPod"),
		strings.HasPrefix(model, "Mac"):
		return "Apple"
	}
	return ""
}
