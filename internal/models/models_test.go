package models

import (
	"errors"
	"strings"
	"testing"
)

func validPost() *Post {
	return &Post{AuthorID: "u1", Text: "hello", Latitude: 10, Longitude: 20}
}

func TestPostValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Post)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *Post) {}},
		{name: "empty text", mutate: func(p *Post) { p.Text = "" }, wantErr: true},
		{name: "whitespace text", mutate: func(p *Post) { p.Text = "   " }, wantErr: true},
		{name: "500 runes", mutate: func(p *Post) { p.Text = strings.Repeat("é", 500) }},
		{name: "501 runes", mutate: func(p *Post) { p.Text = strings.Repeat("a", 501) }, wantErr: true},
		{name: "no author", mutate: func(p *Post) { p.AuthorID = "" }, wantErr: true},
		{name: "bad latitude", mutate: func(p *Post) { p.Latitude = 91 }, wantErr: true},
		{name: "long mood", mutate: func(p *Post) { p.Mood = strings.Repeat("m", 33) }, wantErr: true},
		{name: "too many hashtags", mutate: func(p *Post) { p.Hashtags = make([]string, 11) }, wantErr: true},
		{name: "empty hashtag", mutate: func(p *Post) { p.Hashtags = []string{""} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPost()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Validate() = %v, want ErrInvalid", err)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestSetImagesMirrorsFirst(t *testing.T) {
	p := validPost()
	p.SetImages([]string{" ", "https://img/1.jpg", "https://img/2.jpg"})

	if p.ImageURL != "https://img/1.jpg" {
		t.Errorf("ImageURL = %q, want first image", p.ImageURL)
	}
	if len(p.ImageURLs) != 2 {
		t.Errorf("ImageURLs = %v, want 2 entries", p.ImageURLs)
	}

	p.SetImages(nil)
	if p.ImageURL != "" || p.ImageURLs != nil {
		t.Errorf("expected images cleared, got %q %v", p.ImageURL, p.ImageURLs)
	}
}

func TestProfileValidate(t *testing.T) {
	p := &Profile{ID: "u1", DisplayName: "Ann", Bio: strings.Repeat("b", 281)}
	if err := p.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected bio cap error, got %v", err)
	}
	p.Bio = "short"
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
