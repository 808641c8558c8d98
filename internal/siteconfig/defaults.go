package siteconfig

// Default document values.
const (
	DefaultHeroTitle    = "ShodaiEV"
	DefaultHeroSubtitle = "ขายของเกี่ยวกับรถ"
)

// DefaultTheme is the fallback palette. Missing theme channels always fall back
// to the matching channel here, never to an empty string.
var DefaultTheme = Theme{
	Primary:     "#f97316",
	PrimarySoft: "#ffedd5",
	Accent:      "#dc2626",
	Background:  "#ffffff",
	Surface:     "#fef3c7",
	Text:        "#0f172a",
}

// Default returns the hard-coded seed document.
func Default() *SiteConfig {
	return &SiteConfig{
		HeroTitle:    DefaultHeroTitle,
		HeroSubtitle: DefaultHeroSubtitle,
		HeroImages:   []string{},
		Services:     []ServiceItem{},
		Products:     []ProductItem{},
		ProductsSections: ProductSections{
			Home:  []ProductItem{},
			Page2: []ProductItem{},
		},
		Topics:         []Topic{},
		ServiceDetails: []ServiceDetail{},
		HomeGallery:    []string{},
		Theme:          DefaultTheme,
	}
}
