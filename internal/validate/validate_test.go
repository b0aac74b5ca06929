package validate

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewCompilesEverySchema(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	want := []string{"profile.update", "secrets.add_comment", "secrets.create", "secrets.get_feed", "stories.create"}
	got := v.Methods()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Methods() = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	long := strings.Repeat("é", 501)

	tests := []struct {
		name    string
		method  string
		params  string
		wantErr bool
	}{
		{name: "secret ok", method: "secrets.create", params: `{"text":"hi","location":{"latitude":1,"longitude":2}}`},
		{name: "secret full", method: "secrets.create", params: `{"text":"hi","location":{"latitude":-90,"longitude":180},"imageUrls":["a","b"],"isAnonymous":true,"mood":"calm","hashtags":["x"]}`},
		{name: "secret missing location", method: "secrets.create", params: `{"text":"hi"}`, wantErr: true},
		{name: "secret latitude range", method: "secrets.create", params: `{"text":"hi","location":{"latitude":91,"longitude":0}}`, wantErr: true},
		{name: "secret text too long", method: "secrets.create", params: `{"text":"` + long + `","location":{"latitude":0,"longitude":0}}`, wantErr: true},
		{name: "secret too many images", method: "secrets.create", params: `{"text":"hi","location":{"latitude":0,"longitude":0},"imageUrls":["a","b","c","d","e"]}`, wantErr: true},
		{name: "secret empty params", method: "secrets.create", params: ``, wantErr: true},
		{name: "feed without location", method: "secrets.get_feed", params: `{"strategy":"popular"}`},
		{name: "feed bad strategy", method: "secrets.get_feed", params: `{"strategy":"hot"}`, wantErr: true},
		{name: "feed negative radius", method: "secrets.get_feed", params: `{"radiusMeters":-1}`, wantErr: true},
		{name: "comment ok", method: "secrets.add_comment", params: `{"postId":"p","text":"nice"}`},
		{name: "comment empty text", method: "secrets.add_comment", params: `{"postId":"p","text":""}`, wantErr: true},
		{name: "story ok", method: "stories.create", params: `{"imageUrl":"https://img/x.jpg","caption":"c"}`},
		{name: "story missing image", method: "stories.create", params: `{"caption":"c"}`, wantErr: true},
		{name: "profile empty", method: "profile.update", params: `null`},
		{name: "profile bio too long", method: "profile.update", params: `{"bio":"` + strings.Repeat("b", 281) + `"}`, wantErr: true},
		{name: "no schema", method: "secrets.get", params: `["anything"]`},
		{name: "not json", method: "stories.create", params: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.method, json.RawMessage(tt.params))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidParams", err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var p struct {
		PostID string `json:"postId"`
	}
	if err := Decode(json.RawMessage(`{"postId":"abc"}`), &p); err != nil || p.PostID != "abc" {
		t.Fatalf("Decode() = %+v, %v", p, err)
	}
	if err := Decode(nil, &p); err != nil {
		t.Errorf("Decode(nil) error: %v", err)
	}
	if err := Decode(json.RawMessage(`{"postId":1}`), &p); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Decode(type mismatch) = %v, want ErrInvalidParams", err)
	}
}
