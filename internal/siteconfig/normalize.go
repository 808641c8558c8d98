package siteconfig

// Normalize returns a fully-populated document built from a partial one.
//
// The procedure is:
//  1. Start from Default()
//  2. Shallow-merge raw on top (present fields win)
//  3. Force every list field, nested ones included, to a non-nil slice
//  4. Fill missing theme channels from DefaultTheme
//  5. Collapse duplicate service details for the same topic
//
// Normalize(nil) equals Default(), and the function is idempotent:
// Normalize(Normalize(x).Patch()) deep-equals Normalize(x).
func Normalize(raw *Patch) *SiteConfig {
	cfg := Default()
	if raw != nil {
		applyPatch(cfg, raw)
	}
	finish(cfg)
	return cfg
}

// Merge shallow-merges patch onto a copy of current and normalises the result.
// current is not modified. A nil current is treated as the default document.
func Merge(current *SiteConfig, patch *Patch) *SiteConfig {
	base := current.Clone()
	if base == nil {
		base = Default()
	}
	if patch != nil {
		applyPatch(base, patch)
	}
	finish(base)
	return base
}

// applyPatch copies every present patch field onto cfg. The theme is merged
// channel by channel over cfg's current theme; empty channels are ignored.
func applyPatch(cfg *SiteConfig, p *Patch) { //nolint:gocyclo // one branch per document field
	p = clonePatch(p)

	setString(&cfg.HeroTitle, p.HeroTitle)
	setString(&cfg.HeroSubtitle, p.HeroSubtitle)
	setString(&cfg.HeroImageURL, p.HeroImageURL)
	setString(&cfg.Phone, p.Phone)
	setString(&cfg.Line, p.Line)
	setString(&cfg.LineURL, p.LineURL)
	setString(&cfg.Facebook, p.Facebook)
	setString(&cfg.MapURL, p.MapURL)
	setString(&cfg.BusinessName, p.BusinessName)
	setString(&cfg.BusinessAddress, p.BusinessAddress)
	setString(&cfg.SEOTitle, p.SEOTitle)
	setString(&cfg.SEODescription, p.SEODescription)

	if p.Latitude != nil {
		cfg.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		cfg.Longitude = p.Longitude
	}

	if p.HeroImages != nil {
		cfg.HeroImages = p.HeroImages
	}
	if p.Services != nil {
		cfg.Services = p.Services
	}
	if p.Products != nil {
		cfg.Products = p.Products
	}
	if p.ProductsSections != nil {
		cfg.ProductsSections = *p.ProductsSections
	}
	if p.Topics != nil {
		cfg.Topics = p.Topics
	}
	if p.ServiceDetails != nil {
		cfg.ServiceDetails = p.ServiceDetails
	}
	if p.HomeGallery != nil {
		cfg.HomeGallery = p.HomeGallery
	}
	if p.Theme != nil {
		cfg.Theme = MergeTheme(cfg.Theme, *p.Theme)
	}
}

// MergeTheme overlays the non-empty channels of patch onto base.
func MergeTheme(base, patch Theme) Theme {
	pick := func(b, p string) string {
		if p != "" {
			return p
		}
		return b
	}
	return Theme{
		Primary:     pick(base.Primary, patch.Primary),
		PrimarySoft: pick(base.PrimarySoft, patch.PrimarySoft),
		Accent:      pick(base.Accent, patch.Accent),
		Background:  pick(base.Background, patch.Background),
		Surface:     pick(base.Surface, patch.Surface),
		Text:        pick(base.Text, patch.Text),
	}
}

func finish(cfg *SiteConfig) {
	cfg.HeroImages = nonNil(cfg.HeroImages)
	cfg.Services = nonNil(cfg.Services)
	cfg.Products = nonNil(cfg.Products)
	cfg.ProductsSections.Home = nonNil(cfg.ProductsSections.Home)
	cfg.ProductsSections.Page2 = nonNil(cfg.ProductsSections.Page2)
	cfg.Topics = nonNil(cfg.Topics)
	cfg.HomeGallery = nonNil(cfg.HomeGallery)
	cfg.Theme = MergeTheme(DefaultTheme, cfg.Theme)
	cfg.ServiceDetails = dedupeDetails(nonNil(cfg.ServiceDetails))
}

// dedupeDetails keeps one record per topic: the first position, the last content.
func dedupeDetails(in []ServiceDetail) []ServiceDetail {
	out := make([]ServiceDetail, 0, len(in))
	index := make(map[string]int, len(in))
	for _, d := range in {
		d.Images = nonNil(d.Images)
		d.Sections = nonNil(d.Sections)
		for i := range d.Sections {
			d.Sections[i].Images = nonNil(d.Sections[i].Images)
		}
		if i, ok := index[d.TopicID]; ok {
			out[i] = d
			continue
		}
		index[d.TopicID] = len(out)
		out = append(out, d)
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// clonePatch deep-copies the slices of p so the merged document never aliases
// caller-owned memory.
func clonePatch(p *Patch) *Patch {
	c := *p
	c.HeroImages = cloneStrings(p.HeroImages)
	c.Latitude = cloneFloat(p.Latitude)
	c.Longitude = cloneFloat(p.Longitude)
	c.Services = cloneSlice(p.Services)
	c.Products = cloneSlice(p.Products)
	c.Topics = cloneSlice(p.Topics)
	c.HomeGallery = cloneStrings(p.HomeGallery)
	if p.ProductsSections != nil {
		c.ProductsSections = &ProductSections{
			Home:  cloneSlice(p.ProductsSections.Home),
			Page2: cloneSlice(p.ProductsSections.Page2),
		}
	}
	if p.ServiceDetails != nil {
		c.ServiceDetails = make([]ServiceDetail, len(p.ServiceDetails))
		for i, d := range p.ServiceDetails {
			c.ServiceDetails[i] = d.clone()
		}
	}
	return &c
}
