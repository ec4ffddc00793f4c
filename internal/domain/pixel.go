package domain

import "time"

// PixelEvent is one analytics event reported by the storefront web pixel.
type PixelEvent struct {
	ID         string
	ShopDomain string
	SessionID  string
	Kind       string
	ProductID  string
	Country    string
	Locale     string
	Properties map[string]any
	CreatedAt  time.Time
}

// PixelSummary aggregates pixel activity for the embedded admin dashboard.
type PixelSummary struct {
	WidgetOpens    int
	TryOnStarts    int
	TryOnCompletes int
	AddToCarts     int
	Sessions       int
}
