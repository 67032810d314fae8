// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"testing"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"v1 stripped", "2507.13353v1", "2507.13353"},
		{"v2 stripped", "2507.13353v2", "2507.13353"},
		{"double digit version", "2301.07041v12", "2301.07041"},
		{"no version", "2507.13353", "2507.13353"},
		{"non-numeric suffix kept", "paper-vienna", "paper-vienna"},
		{"trailing v kept", "2507.13353v", "2507.13353v"},
		{"hash id untouched", "gs-9f86d081884c7d65", "gs-9f86d081884c7d65"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeID(tt.id); got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestNormalizeIDFoldsVersions(t *testing.T) {
	if NormalizeID("2507.13353v1") != NormalizeID("2507.13353v2") {
		t.Error("two versions of the same paper should normalize to the same key")
	}
}

func TestHashID(t *testing.T) {
	a := HashID("Attention Is All You Need", "https://example.org/a")
	b := HashID("Attention Is All You Need", "https://example.org/a")
	c := HashID("Attention Is All You Need", "https://example.org/b")

	if a != b {
		t.Errorf("HashID not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Error("HashID should differ for different links")
	}
	if !strings.HasPrefix(a, "gs-") {
		t.Errorf("HashID = %q, want gs- prefix", a)
	}
	// Hex payload cannot contain "v", so hash ids survive NormalizeID.
	if NormalizeID(a) != a {
		t.Errorf("NormalizeID(%q) = %q, want unchanged", a, NormalizeID(a))
	}
}
