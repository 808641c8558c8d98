package siteconfig

import (
	"fmt"
	"slices"
)

// AssignTopicIDs returns topics with every id slugified and unique, assigned in
// list order. Used when the admin replaces the whole topic list.
func AssignTopicIDs(topics []Topic) []Topic {
	out := make([]Topic, 0, len(topics))
	taken := make([]string, 0, len(topics))
	for _, t := range topics {
		t.ID = AssignSlug(t.ID, t.Title, taken)
		taken = append(taken, t.ID)
		out = append(out, t)
	}
	return out
}

// AssignServiceIDs gives legacy service cards an id derived from the title when
// they have none, or when their id repeats an earlier card. Existing unique ids
// are kept verbatim.
func AssignServiceIDs(services []ServiceItem) []ServiceItem {
	out := make([]ServiceItem, 0, len(services))
	taken := make([]string, 0, len(services))
	for _, s := range services {
		if s.ID == "" || slices.Contains(taken, s.ID) {
			s.ID = AssignSlug("", s.Title, taken)
		}
		taken = append(taken, s.ID)
		out = append(out, s)
	}
	return out
}

// CreateTopic appends t to cfg with a collision-free id and returns the stored topic.
func CreateTopic(cfg *SiteConfig, t Topic) Topic {
	t.ID = AssignSlug(t.ID, t.Title, topicIDs(cfg.Topics, ""))
	cfg.Topics = append(cfg.Topics, t)
	return t
}

// UpdateTopic replaces the topic identified by originalID, keeping its position.
//
// The new id is checked for collisions against every other topic, never against
// the record's own original id. When the id changes, the topic's service detail
// follows it.
func UpdateTopic(cfg *SiteConfig, originalID string, t Topic) (Topic, error) {
	idx := slices.IndexFunc(cfg.Topics, func(x Topic) bool { return x.ID == originalID })
	if idx == -1 {
		return Topic{}, fmt.Errorf("%w: %s", ErrTopicNotFound, originalID)
	}

	t.ID = AssignSlug(t.ID, t.Title, topicIDs(cfg.Topics, originalID))
	cfg.Topics[idx] = t

	if t.ID != originalID {
		for i := range cfg.ServiceDetails {
			if cfg.ServiceDetails[i].TopicID == originalID {
				cfg.ServiceDetails[i].TopicID = t.ID
			}
		}
	}
	return t, nil
}

// DeleteTopic removes a topic and its service detail.
func DeleteTopic(cfg *SiteConfig, id string) error {
	idx := slices.IndexFunc(cfg.Topics, func(x Topic) bool { return x.ID == id })
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	cfg.Topics = slices.Delete(cfg.Topics, idx, idx+1)
	cfg.ServiceDetails = slices.DeleteFunc(cfg.ServiceDetails, func(d ServiceDetail) bool {
		return d.TopicID == id
	})
	return nil
}

// FindTopic returns the topic with the given id.
func FindTopic(cfg *SiteConfig, id string) (Topic, bool) {
	idx := slices.IndexFunc(cfg.Topics, func(x Topic) bool { return x.ID == id })
	if idx == -1 {
		return Topic{}, false
	}
	return cfg.Topics[idx], true
}

// topicIDs lists topic ids, leaving out exclude.
func topicIDs(topics []Topic, exclude string) []string {
	ids := make([]string, 0, len(topics))
	for _, t := range topics {
		if exclude != "" && t.ID == exclude {
			continue
		}
		ids = append(ids, t.ID)
	}
	return ids
}
