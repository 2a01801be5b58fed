// Package stock holds the stock marketplace side of metadata generation:
// platform layouts, title cleaning, category heuristics and CSV export.
package stock

import (
	"fmt"
	"strings"
)

// Platform is a target stock marketplace with its own CSV schema.
type Platform string

const (
	PlatformGeneral      Platform = "general"
	PlatformFreepik      Platform = "freepik"
	PlatformShutterstock Platform = "shutterstock"
	PlatformAdobeStock   Platform = "adobestock"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{PlatformGeneral, PlatformFreepik, PlatformShutterstock, PlatformAdobeStock}

// ParsePlatform parses a platform name. An empty string selects the general layout.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "general", "default":
		return PlatformGeneral, nil
	case "freepik":
		return PlatformFreepik, nil
	case "shutterstock":
		return PlatformShutterstock, nil
	case "adobestock", "adobe-stock", "adobe":
		return PlatformAdobeStock, nil
	default:
		return "", fmt.Errorf("unknown platform: %q", s)
	}
}

// Label returns the human readable platform name.
func (p Platform) Label() string {
	switch p {
	case PlatformFreepik:
		return "Freepik"
	case PlatformShutterstock:
		return "Shutterstock"
	case PlatformAdobeStock:
		return "AdobeStock"
	default:
		return "General"
	}
}

// Mode selects what the model generates for an image.
type Mode string

const (
	// ModeMetadata generates title, description and keywords.
	ModeMetadata Mode = "metadata"
	// ModePrompt generates a single descriptive prompt (image-to-prompt).
	ModePrompt Mode = "prompt"
)

// ParseMode parses a generation mode. An empty string selects metadata.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "metadata":
		return ModeMetadata, nil
	case "prompt", "image-to-prompt":
		return ModePrompt, nil
	default:
		return "", fmt.Errorf("unknown generation mode: %q", s)
	}
}
