package siteconfig

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// DetailUpdater transforms one service-detail record.
type DetailUpdater func(ServiceDetail) (ServiceDetail, error)

// newID generates record identifiers. Tests may replace it.
var newID = uuid.NewString

// UpsertServiceDetail applies update to the detail record of topicID.
//
// The base record is the existing entry (images and sections defaulted to
// empty) or a fresh one for the topic. After update runs, the result is pinned
// to topicID, given an id if it has none, and has its lists defaulted. The
// returned slice holds exactly one entry for topicID; details is not modified.
func UpsertServiceDetail(details []ServiceDetail, topicID string, update DetailUpdater) ([]ServiceDetail, error) {
	idx := slices.IndexFunc(details, func(d ServiceDetail) bool { return d.TopicID == topicID })

	var base ServiceDetail
	if idx != -1 {
		base = details[idx].clone()
	} else {
		base = ServiceDetail{TopicID: topicID}
	}
	base.Images = nonNil(base.Images)
	base.Sections = nonNil(base.Sections)

	updated, err := update(base)
	if err != nil {
		return nil, err
	}

	updated.TopicID = topicID
	if updated.ID == "" {
		updated.ID = base.ID
	}
	if updated.ID == "" {
		updated.ID = newID()
	}
	updated.Images = nonNil(updated.Images)
	updated.Sections = nonNil(updated.Sections)

	out := make([]ServiceDetail, 0, len(details)+1)
	for i, d := range details {
		if i == idx {
			out = append(out, updated)
			continue
		}
		if d.TopicID == topicID {
			continue
		}
		out = append(out, d.clone())
	}
	if idx == -1 {
		out = append(out, updated)
	}
	return out, nil
}

// FindServiceDetail returns the detail record for a topic.
func FindServiceDetail(details []ServiceDetail, topicID string) (ServiceDetail, bool) {
	idx := slices.IndexFunc(details, func(d ServiceDetail) bool { return d.TopicID == topicID })
	if idx == -1 {
		return ServiceDetail{}, false
	}
	return details[idx], true
}

// DetailInput carries the editable fields of a service detail. Nil fields are
// left unchanged.
type DetailInput struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Sections    []DetailSection `json:"sections,omitempty"`
}

// SetDetailFields returns an updater applying in.
func SetDetailFields(in DetailInput) DetailUpdater {
	return func(d ServiceDetail) (ServiceDetail, error) {
		setString(&d.Title, in.Title)
		setString(&d.Description, in.Description)
		if in.Images != nil {
			d.Images = cloneStrings(in.Images)
		}
		if in.Sections != nil {
			d.Sections = make([]DetailSection, 0, len(in.Sections))
			for _, s := range in.Sections {
				if s.ID == "" {
					s.ID = newID()
				}
				s.Images = nonNil(cloneStrings(s.Images))
				d.Sections = append(d.Sections, s)
			}
		}
		return d, nil
	}
}

// AppendDetailImages returns an updater adding urls to the detail gallery.
func AppendDetailImages(urls ...string) DetailUpdater {
	return func(d ServiceDetail) (ServiceDetail, error) {
		d.Images = AppendURLs(d.Images, urls...)
		return d, nil
	}
}

// RemoveDetailImage returns an updater removing url from the detail gallery.
func RemoveDetailImage(url string) DetailUpdater {
	return func(d ServiceDetail) (ServiceDetail, error) {
		d.Images = RemoveURL(d.Images, url)
		return d, nil
	}
}

// AddSection returns an updater appending a new section, and the section id it
// will carry.
func AddSection(title, description string) (DetailUpdater, string) {
	id := newID()
	return func(d ServiceDetail) (ServiceDetail, error) {
		d.Sections = append(d.Sections, DetailSection{
			ID:          id,
			Title:       title,
			Description: description,
			Images:      []string{},
		})
		return d, nil
	}, id
}

// UpdateSection returns an updater editing the title/description of a section.
func UpdateSection(sectionID string, title, description *string) DetailUpdater {
	return withSection(sectionID, func(s *DetailSection) {
		setString(&s.Title, title)
		setString(&s.Description, description)
	})
}

// RemoveSection returns an updater deleting a section.
func RemoveSection(sectionID string) DetailUpdater {
	return func(d ServiceDetail) (ServiceDetail, error) {
		idx := slices.IndexFunc(d.Sections, func(s DetailSection) bool { return s.ID == sectionID })
		if idx == -1 {
			return d, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
		}
		d.Sections = slices.Delete(d.Sections, idx, idx+1)
		return d, nil
	}
}

// AppendSectionImages returns an updater adding urls to a section gallery.
func AppendSectionImages(sectionID string, urls ...string) DetailUpdater {
	return withSection(sectionID, func(s *DetailSection) {
		s.Images = AppendURLs(s.Images, urls...)
	})
}

// RemoveSectionImage returns an updater removing url from a section gallery.
func RemoveSectionImage(sectionID, url string) DetailUpdater {
	return withSection(sectionID, func(s *DetailSection) {
		s.Images = RemoveURL(s.Images, url)
	})
}

func withSection(sectionID string, edit func(*DetailSection)) DetailUpdater {
	return func(d ServiceDetail) (ServiceDetail, error) {
		idx := slices.IndexFunc(d.Sections, func(s DetailSection) bool { return s.ID == sectionID })
		if idx == -1 {
			return d, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
		}
		edit(&d.Sections[idx])
		return d, nil
	}
}
