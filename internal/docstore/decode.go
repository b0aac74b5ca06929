package docstore

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/internal/story"
)

// DecodeError reports a stored document that cannot be turned into a typed record
type DecodeError struct {
	ID     string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("malformed story %s: %s %s", e.ID, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed story: %s %s", e.Field, e.Reason)
}

// decodeStory validates required fields and fills defaults for optional ones
func decodeStory(doc bson.M) (models.Story, error) {
	var s models.Story

	id, err := requiredString(doc, "_id")
	if err != nil {
		return s, err
	}
	s.ID = id

	fail := func(field, reason string) (models.Story, error) {
		return models.Story{}, &DecodeError{ID: id, Field: field, Reason: reason}
	}

	if s.AuthorID, err = requiredString(doc, "author_id"); err != nil {
		return fail("author_id", "is required")
	}
	if s.ImageURL, err = requiredString(doc, "image_url"); err != nil {
		return fail("image_url", "is required")
	}

	if v, ok := doc["caption"]; ok && v != nil {
		caption, ok := v.(string)
		if !ok {
			return fail("caption", "must be a string")
		}
		s.Caption = caption
	}

	created, ok, valid := int64Field(doc, "created_at")
	if !ok || !valid {
		return fail("created_at", "must be an integer timestamp")
	}
	s.CreatedAt = created

	s.ExpiresAt = story.ExpiresAt(created)
	if expires, ok, valid := int64Field(doc, "expires_at"); ok {
		if !valid {
			return fail("expires_at", "must be an integer timestamp")
		}
		s.ExpiresAt = expires
	}

	if views, ok, valid := int64Field(doc, "view_count"); ok {
		if !valid || views < 0 {
			return fail("view_count", "must be a non-negative integer")
		}
		s.ViewCount = views
	}

	s.IsActive = true
	if v, ok := doc["is_active"]; ok && v != nil {
		active, ok := v.(bool)
		if !ok {
			return fail("is_active", "must be a boolean")
		}
		s.IsActive = active
	}

	return s, nil
}

func requiredString(doc bson.M, field string) (string, error) {
	v, ok := doc[field].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &DecodeError{Field: field, Reason: "is required"}
	}
	return v, nil
}

// int64Field reads a numeric field. ok reports presence, valid whether it is an integer.
func int64Field(doc bson.M, field string) (n int64, ok bool, valid bool) {
	v, present := doc[field]
	if !present || v == nil {
		return 0, false, false
	}
	switch x := v.(type) {
	case int64:
		return x, true, true
	case int32:
		return int64(x), true, true
	case int:
		return int64(x), true, true
	case float64:
		if x != float64(int64(x)) {
			return 0, true, false
		}
		return int64(x), true, true
	}
	return 0, true, false
}
