package media

import (
	"errors"
	"strings"
	"testing"
)

func TestObjectKeyPrefixesAndExtensions(t *testing.T) {
	cases := []struct {
		contentType string
		prefix      string
		ext         string
	}{
		{"image/png", "images/", ".png"},
		{"image/jpeg; charset=utf-8", "images/", ".jpg"},
		{"video/mp4", "videos/", ".mp4"},
		{"video/webm", "videos/", ".webm"},
	}
	for _, tc := range cases {
		key, err := objectKey(tc.contentType)
		if err != nil {
			t.Fatalf("objectKey(%q): %v", tc.contentType, err)
		}
		if !strings.HasPrefix(key, tc.prefix) {
			t.Fatalf("key %q should start with %q", key, tc.prefix)
		}
		if !strings.HasSuffix(key, tc.ext) {
			t.Fatalf("key %q should end with %q", key, tc.ext)
		}
	}
}

func TestObjectKeyRejectsUnsupportedTypes(t *testing.T) {
	for _, ct := range []string{"application/pdf", "text/html", "", "image"} {
		if _, err := objectKey(ct); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("objectKey(%q): expected ErrUnsupportedType, got %v", ct, err)
		}
	}
}

func TestObjectKeysAreUnique(t *testing.T) {
	a, err := objectKey("image/png")
	if err != nil {
		t.Fatalf("objectKey: %v", err)
	}
	b, err := objectKey("image/png")
	if err != nil {
		t.Fatalf("objectKey: %v", err)
	}
	if a == b {
		t.Fatalf("keys must not collide: %q", a)
	}
}
