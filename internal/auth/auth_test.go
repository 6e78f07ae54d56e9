package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/voxkit/datamap/internal/pkg/config"
)

func TestValidateAPIKey(t *testing.T) {
	a := NewAuthenticator([]config.APIKeyConfig{
		{KeyHash: HashAPIKey("good-key"), Description: "test"},
	})

	if !a.HasKeys() {
		t.Fatal("HasKeys = false, want true")
	}
	if err := a.ValidateAPIKey("good-key"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := a.ValidateAPIKey("bad-key"); err == nil {
		t.Error("invalid key accepted")
	}
	if err := a.ValidateAPIKey(""); err == nil {
		t.Error("empty key accepted")
	}
}

func TestNoKeysConfigured(t *testing.T) {
	a := NewAuthenticator(nil)
	if a.HasKeys() {
		t.Error("HasKeys = true with no keys")
	}

	a = NewAuthenticator([]config.APIKeyConfig{{KeyHash: "", Description: "empty"}})
	if a.HasKeys() {
		t.Error("HasKeys = true with only empty hashes")
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer abc123", "abc123", false},
		{"lowercase scheme", "bearer abc123", "abc123", false},
		{"missing header", "", "", true},
		{"no scheme", "abc123", "", true},
		{"wrong scheme", "Basic abc123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractAPIKey(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}
