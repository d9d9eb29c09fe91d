package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/morezero/member-query/pkg/catalog"
)

const mainTestPrefix = "cmd/member-query:main_test"

func TestRootCmd_HasCommands(t *testing.T) {
	required := []string{"serve", "migrate", "clear", "seed", "ensure-db", "ask", "catalog"}
	for _, name := range required {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s - root command should have %q", mainTestPrefix, name)
		}
	}
}

func TestAskCmd_Flags(t *testing.T) {
	for _, flag := range []string{"health-plan-id", "year-of-service", "data-file"} {
		if askCmd.Flags().Lookup(flag) == nil {
			t.Errorf("%s - ask should have --%s", mainTestPrefix, flag)
		}
	}
}

func TestCatalogCmd_PrintsDefaultCatalog(t *testing.T) {
	os.Unsetenv("CATALOG_MANIFEST_FILE")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"catalog"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%s - catalog: %v", mainTestPrefix, err)
	}

	var descriptors []catalog.Descriptor
	if err := json.Unmarshal(out.Bytes(), &descriptors); err != nil {
		t.Fatalf("%s - decode: %v", mainTestPrefix, err)
	}
	if len(descriptors) != len(catalog.All()) {
		t.Errorf("%s - got %d descriptors, want %d", mainTestPrefix, len(descriptors), len(catalog.All()))
	}
}
