package siteconfig

// SiteConfig is the whole site configuration document.
//
// Field names are part of the contract with the public renderer and must not change.
// After Normalize every list is non-nil and every theme channel is set.
type SiteConfig struct {
	HeroTitle    string   `json:"heroTitle"`
	HeroSubtitle string   `json:"heroSubtitle"`
	HeroImageURL string   `json:"heroImageUrl"`
	HeroImages   []string `json:"heroImages"`

	Phone    string `json:"phone"`
	Line     string `json:"line"`
	LineURL  string `json:"lineUrl"`
	Facebook string `json:"facebook"`
	MapURL   string `json:"mapUrl"`

	BusinessName    string   `json:"businessName"`
	BusinessAddress string   `json:"businessAddress"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`

	SEOTitle       string `json:"seoTitle"`
	SEODescription string `json:"seoDescription"`

	Services         []ServiceItem   `json:"services"`
	Products         []ProductItem   `json:"products"`
	ProductsSections ProductSections `json:"productsSections"`
	Topics           []Topic         `json:"topics"`
	ServiceDetails   []ServiceDetail `json:"serviceDetails"`
	HomeGallery      []string        `json:"homeGallery"`
	Theme            Theme           `json:"theme"`
}

// ServiceItem is a legacy simple service card.
type ServiceItem struct {
	ID          string `json:"id"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProductItem is a product tile.
type ProductItem struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProductSections splits products between the home page and the second page.
type ProductSections struct {
	Home  []ProductItem `json:"home"`
	Page2 []ProductItem `json:"page2"`
}

// Topic is a service category. ID is a URL slug unique among topics.
type Topic struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary,omitempty"`
	Detail       string `json:"detail,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// ServiceDetail is the rich content attached to exactly one topic.
type ServiceDetail struct {
	ID          string          `json:"id"`
	TopicID     string          `json:"topicId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Images      []string        `json:"images"`
	Sections    []DetailSection `json:"sections"`
}

// DetailSection is a sub-section of a service detail with its own gallery.
type DetailSection struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images"`
}

// Theme holds the six site colours.
type Theme struct {
	Primary     string `json:"primary"`
	PrimarySoft string `json:"primarySoft"`
	Accent      string `json:"accent"`
	Background  string `json:"background"`
	Surface     string `json:"surface"`
	Text        string `json:"text"`
}

// Clone returns a deep copy of the document.
func (c *SiteConfig) Clone() *SiteConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.HeroImages = cloneStrings(c.HeroImages)
	out.Latitude = cloneFloat(c.Latitude)
	out.Longitude = cloneFloat(c.Longitude)
	out.Services = cloneSlice(c.Services)
	out.Products = cloneSlice(c.Products)
	out.ProductsSections = ProductSections{
		Home:  cloneSlice(c.ProductsSections.Home),
		Page2: cloneSlice(c.ProductsSections.Page2),
	}
	out.Topics = cloneSlice(c.Topics)
	out.HomeGallery = cloneStrings(c.HomeGallery)
	if c.ServiceDetails != nil {
		out.ServiceDetails = make([]ServiceDetail, len(c.ServiceDetails))
		for i, d := range c.ServiceDetails {
			out.ServiceDetails[i] = d.clone()
		}
	}
	return &out
}

func (d ServiceDetail) clone() ServiceDetail {
	out := d
	out.Images = cloneStrings(d.Images)
	if d.Sections != nil {
		out.Sections = make([]DetailSection, len(d.Sections))
		for i, s := range d.Sections {
			s.Images = cloneStrings(s.Images)
			out.Sections[i] = s
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	return cloneSlice(in)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
