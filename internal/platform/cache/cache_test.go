package cache_test

import (
	"testing"

	"github.com/skilldesk/skilldesk/internal/platform/cache"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid url", "redis://localhost:6379", false},
		{"valid with db", "redis://localhost:6379/2", false},
		{"empty url", "", true},
		{"wrong scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := cache.ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if !tt.wantErr && opts == nil {
				t.Error("ParseURL() returned nil options without error")
			}
		})
	}
}
