package siteconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"strings"
)

// Revision returns the content revision of a document: the hex SHA-256 of its
// canonical JSON encoding. Equal documents always share a revision, whichever
// backend stored them.
func Revision(cfg *SiteConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChangedFields lists the JSON names of the top-level fields that differ
// between before and after. A nil before reports every field.
func ChangedFields(before, after *SiteConfig) []string {
	if after == nil {
		return nil
	}
	av := reflect.ValueOf(*after)
	t := av.Type()

	var bv reflect.Value
	if before != nil {
		bv = reflect.ValueOf(*before)
	}

	var fields []string
	for i := 0; i < t.NumField(); i++ {
		if before != nil && reflect.DeepEqual(bv.Field(i).Interface(), av.Field(i).Interface()) {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		fields = append(fields, name)
	}
	return fields
}
