// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestLoadStoreMissingFile(t *testing.T) {
	configs, err := LoadStore(t.TempDir())
	if err != nil {
		t.Fatalf("missing store should not error: %v", err)
	}
	if configs != nil {
		t.Errorf("got %v, want nil", configs)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	zetaModels := NewModelMap()
	zetaModels.Set("zeta-large", "zl")
	zetaModels.Set("zeta-small", "zs")

	alphaModels := NewModelMap()
	alphaModels.Set("alpha-1", "a1")

	in := []PersistedProviderConfig{
		{
			Name:          "zeta",
			BaseAPIURL:    "https://zeta.example/v1",
			APIKey:        "sk-zeta",
			ValidModels:   zetaModels,
			InvalidModels: []string{"zeta-broken"},
		},
		{
			Name:        "alpha",
			BaseAPIURL:  "https://alpha.example/v1",
			APIKey:      "sk-alpha",
			ValidModels: alphaModels,
		},
	}

	if err := SaveStore(dataDir, in); err != nil {
		t.Fatalf("SaveStore error = %v", err)
	}

	out, err := LoadStore(dataDir)
	if err != nil {
		t.Fatalf("LoadStore error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d providers, want 2", len(out))
	}

	// Provider order survives: zeta before alpha, not alphabetical.
	if out[0].Name != "zeta" || out[1].Name != "alpha" {
		t.Errorf("order = %s, %s; want zeta, alpha", out[0].Name, out[1].Name)
	}

	// Model order survives within a provider.
	wantLongs := []string{"zeta-large", "zeta-small"}
	if got := out[0].ValidModels.Longs(); !reflect.DeepEqual(got, wantLongs) {
		t.Errorf("model order = %v, want %v", got, wantLongs)
	}

	if short, _ := out[0].ValidModels.Get("zeta-large"); short != "zl" {
		t.Errorf("alias = %q, want zl", short)
	}
	if out[0].APIKey != "sk-zeta" {
		t.Errorf("APIKey = %q", out[0].APIKey)
	}
	if !reflect.DeepEqual(out[0].InvalidModels, []string{"zeta-broken"}) {
		t.Errorf("InvalidModels = %v", out[0].InvalidModels)
	}
}

func TestStoreFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file mode semantics differ on windows")
	}

	dataDir := t.TempDir()
	if err := SaveStore(dataDir, []PersistedProviderConfig{
		{Name: "p", APIKey: "sk-secret", ValidModels: NewModelMap()},
	}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dataDir, StoreFileName))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("store mode = %o, want 0600 (file carries API keys)", perm)
	}
}

func TestParseStoreDefaults(t *testing.T) {
	data := []byte(`
providers:
  bare:
    base_api_url: https://bare.example/v1
`)
	configs, err := parseStore(data)
	if err != nil {
		t.Fatalf("parseStore error = %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("got %d providers", len(configs))
	}

	// Name defaults to the map key; model containers are never nil.
	if configs[0].Name != "bare" {
		t.Errorf("Name = %q, want bare", configs[0].Name)
	}
	if configs[0].ValidModels == nil || configs[0].ValidModels.Len() != 0 {
		t.Error("ValidModels should default to an empty map")
	}
	if len(configs[0].InvalidModels) != 0 {
		t.Errorf("InvalidModels = %v, want empty", configs[0].InvalidModels)
	}
}

func TestParseStoreEmptyDocument(t *testing.T) {
	for _, data := range []string{"", "# just a comment\n", "unrelated: true\n"} {
		configs, err := parseStore([]byte(data))
		if err != nil {
			t.Errorf("parseStore(%q) error = %v", data, err)
		}
		if configs != nil {
			t.Errorf("parseStore(%q) = %v, want nil", data, configs)
		}
	}
}
