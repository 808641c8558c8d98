package siteconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Patch is a partial SiteConfig.
//
// A nil pointer or nil slice means "absent": the field is left untouched by
// Merge. JSON null decodes to absent as well, so a field can only be cleared by
// sending an explicit empty value ("" or []).
type Patch struct {
	HeroTitle    *string  `json:"heroTitle,omitempty"`
	HeroSubtitle *string  `json:"heroSubtitle,omitempty"`
	HeroImageURL *string  `json:"heroImageUrl,omitempty"`
	HeroImages   []string `json:"heroImages,omitempty"`

	Phone    *string `json:"phone,omitempty"`
	Line     *string `json:"line,omitempty"`
	LineURL  *string `json:"lineUrl,omitempty"`
	Facebook *string `json:"facebook,omitempty"`
	MapURL   *string `json:"mapUrl,omitempty"`

	BusinessName    *string  `json:"businessName,omitempty"`
	BusinessAddress *string  `json:"businessAddress,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`

	SEOTitle       *string `json:"seoTitle,omitempty"`
	SEODescription *string `json:"seoDescription,omitempty"`

	Services         []ServiceItem    `json:"services,omitempty"`
	Products         []ProductItem    `json:"products,omitempty"`
	ProductsSections *ProductSections `json:"productsSections,omitempty"`
	Topics           []Topic          `json:"topics,omitempty"`
	ServiceDetails   []ServiceDetail  `json:"serviceDetails,omitempty"`
	HomeGallery      []string         `json:"homeGallery,omitempty"`
	Theme            *Theme           `json:"theme,omitempty"`
}

// Patch returns a patch with every field of c present.
func (c *SiteConfig) Patch() *Patch {
	if c == nil {
		return nil
	}
	d := c.Clone()
	ps := d.ProductsSections
	th := d.Theme
	return &Patch{
		HeroTitle:        &d.HeroTitle,
		HeroSubtitle:     &d.HeroSubtitle,
		HeroImageURL:     &d.HeroImageURL,
		HeroImages:       nonNil(d.HeroImages),
		Phone:            &d.Phone,
		Line:             &d.Line,
		LineURL:          &d.LineURL,
		Facebook:         &d.Facebook,
		MapURL:           &d.MapURL,
		BusinessName:     &d.BusinessName,
		BusinessAddress:  &d.BusinessAddress,
		Latitude:         d.Latitude,
		Longitude:        d.Longitude,
		SEOTitle:         &d.SEOTitle,
		SEODescription:   &d.SEODescription,
		Services:         nonNil(d.Services),
		Products:         nonNil(d.Products),
		ProductsSections: &ps,
		Topics:           nonNil(d.Topics),
		ServiceDetails:   nonNil(d.ServiceDetails),
		HomeGallery:      nonNil(d.HomeGallery),
		Theme:            &th,
	}
}

// DecodePatch strictly decodes a request payload into a Patch.
// Any JSON type mismatch is reported as ErrInvalidPatch.
func DecodePatch(data []byte) (*Patch, error) {
	var p Patch
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	return &p, nil
}

// ParseDocument decodes persisted bytes into a Patch, tolerating structural damage.
//
// Fields with the wrong JSON type are dropped so Normalize defaults them; list
// elements that are not objects (or strings, for URL lists) are skipped. Only
// input that is not a JSON object at all is rejected with ErrCorruptDocument.
func ParseDocument(data []byte) (*Patch, error) {
	var top object
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return nil, ErrCorruptDocument
	}

	p := &Patch{
		HeroTitle:       top.strPtr("heroTitle"),
		HeroSubtitle:    top.strPtr("heroSubtitle"),
		HeroImageURL:    top.strPtr("heroImageUrl"),
		HeroImages:      top.strings("heroImages"),
		Phone:           top.strPtr("phone"),
		Line:            top.strPtr("line"),
		LineURL:         top.strPtr("lineUrl"),
		Facebook:        top.strPtr("facebook"),
		MapURL:          top.strPtr("mapUrl"),
		BusinessName:    top.strPtr("businessName"),
		BusinessAddress: top.strPtr("businessAddress"),
		Latitude:        top.floatPtr("latitude"),
		Longitude:       top.floatPtr("longitude"),
		SEOTitle:        top.strPtr("seoTitle"),
		SEODescription:  top.strPtr("seoDescription"),
		HomeGallery:     top.strings("homeGallery"),
		Services:        decodeObjects(top, "services", parseService),
		Products:        decodeObjects(top, "products", parseProduct),
		Topics:          decodeObjects(top, "topics", parseTopic),
		ServiceDetails:  decodeObjects(top, "serviceDetails", parseServiceDetail),
	}

	if sec, ok := top.object("productsSections"); ok {
		p.ProductsSections = &ProductSections{
			Home:  decodeObjects(sec, "home", parseProduct),
			Page2: decodeObjects(sec, "page2", parseProduct),
		}
	}
	if th, ok := top.object("theme"); ok {
		p.Theme = &Theme{
			Primary:     th.str("primary"),
			PrimarySoft: th.str("primarySoft"),
			Accent:      th.str("accent"),
			Background:  th.str("background"),
			Surface:     th.str("surface"),
			Text:        th.str("text"),
		}
	}

	return p, nil
}

// object is a JSON object decoded one level deep.
type object map[string]json.RawMessage

func (o object) strPtr(key string) *string {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var s *string
	if json.Unmarshal(raw, &s) != nil {
		return nil
	}
	return s
}

func (o object) str(key string) string {
	if s := o.strPtr(key); s != nil {
		return *s
	}
	return ""
}

func (o object) floatPtr(key string) *float64 {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var f *float64
	if json.Unmarshal(raw, &f) != nil {
		return nil
	}
	return f
}

func (o object) list(key string) ([]json.RawMessage, bool) {
	raw, ok := o[key]
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil || items == nil {
		return nil, false
	}
	return items, true
}

// strings returns the string elements of an array field, skipping anything else.
// It returns nil when the field is absent or not an array.
func (o object) strings(key string) []string {
	items, ok := o.list(key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

func (o object) object(key string) (object, bool) {
	raw, ok := o[key]
	if !ok {
		return nil, false
	}
	var child object
	if json.Unmarshal(raw, &child) != nil || child == nil {
		return nil, false
	}
	return child, true
}

func decodeObjects[T any](o object, key string, parse func(object) T) []T {
	items, ok := o.list(key)
	if !ok {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var child object
		if json.Unmarshal(item, &child) != nil || child == nil {
			continue
		}
		out = append(out, parse(child))
	}
	return out
}

func parseService(o object) ServiceItem {
	return ServiceItem{
		ID:          o.str("id"),
		Icon:        o.str("icon"),
		Title:       o.str("title"),
		Description: o.str("description"),
	}
}

func parseProduct(o object) ProductItem {
	return ProductItem{
		ID:          o.str("id"),
		ImageURL:    o.str("imageUrl"),
		Name:        o.str("name"),
		Description: o.str("description"),
	}
}

func parseTopic(o object) Topic {
	return Topic{
		ID:           o.str("id"),
		Title:        o.str("title"),
		Summary:      o.str("summary"),
		Detail:       o.str("detail"),
		ThumbnailURL: o.str("thumbnailUrl"),
	}
}

func parseServiceDetail(o object) ServiceDetail {
	return ServiceDetail{
		ID:          o.str("id"),
		TopicID:     o.str("topicId"),
		Title:       o.str("title"),
		Description: o.str("description"),
		Images:      o.strings("images"),
		Sections:    decodeObjects(o, "sections", parseSection),
	}
}

func parseSection(o object) DetailSection {
	return DetailSection{
		ID:          o.str("id"),
		Title:       o.str("title"),
		Description: o.str("description"),
		Images:      o.strings("images"),
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
