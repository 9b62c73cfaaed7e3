package pushext

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const testEntitlementsXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>aps-environment</key>
	<string>production</string>
</dict>
</plist>`

const testInfoPlistXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>com.acme.app</string>
	<key>CFBundleDisplayName</key>
	<string>Acme</string>
</dict>
</plist>`

// writeTestApp lays out a full minimal iOS project: descriptor,
// entitlements, and Info.plist in the conventional locations.
func writeTestApp(t *testing.T, root string) {
	t.Helper()
	writeTestProject(t, root, "Acme")
	appDir := filepath.Join(root, "Acme")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatalf("failed to create app dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(appDir, "Acme.entitlements"), []byte(testEntitlementsXML), 0644); err != nil {
		t.Fatalf("failed to write entitlements: %v", err)
	}
	if err := os.WriteFile(filepath.Join(appDir, "Acme-Info.plist"), []byte(testInfoPlistXML), 0644); err != nil {
		t.Fatalf("failed to write Info.plist: %v", err)
	}
}

func testOptions(root string) Options {
	return Options{
		Mode:             "development",
		DevelopmentTeam:  "ABCD1234EF",
		BundleIdentifier: "com.acme.app",
		AppName:          "Acme",
		ProjectRoot:      root,
		Log:              &bytes.Buffer{},
	}
}

func TestApply(t *testing.T) {
	root := t.TempDir()
	writeTestApp(t, root)

	if err := Apply(testOptions(root)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	entitlements, err := LoadPlistFile(filepath.Join(root, "Acme", "Acme.entitlements"))
	if err != nil {
		t.Fatalf("failed to reload entitlements: %v", err)
	}
	if entitlements["aps-environment"] != "development" {
		t.Errorf("Expected aps-environment overwritten to 'development', got %v", entitlements["aps-environment"])
	}
	groups, ok := entitlements["com.apple.security.application-groups"].([]interface{})
	if !ok || len(groups) != 1 || groups[0] != "group.com.acme.app.onesignal" {
		t.Errorf("Expected app group appended, got %v", entitlements["com.apple.security.application-groups"])
	}

	info, err := LoadPlistFile(filepath.Join(root, "Acme", "Acme-Info.plist"))
	if err != nil {
		t.Fatalf("failed to reload Info.plist: %v", err)
	}
	modes, ok := info["UIBackgroundModes"].([]interface{})
	if !ok || len(modes) != 1 || modes[0] != "remote-notification" {
		t.Errorf("Expected remote-notification background mode, got %v", info["UIBackgroundModes"])
	}
	if info["CFBundleIdentifier"] != "com.acme.app" {
		t.Errorf("Unrelated manifest keys must be preserved, got %v", info["CFBundleIdentifier"])
	}

	proj, err := LoadProject(filepath.Join(root, "Acme.xcodeproj", "project.pbxproj"))
	if err != nil {
		t.Fatalf("failed to reload descriptor: %v", err)
	}
	if len(proj.Targets()) != 2 {
		t.Errorf("Expected extension target registered, got %d targets", len(proj.Targets()))
	}
}

func TestApply_SecondRunDuplicatesAppGroupOnly(t *testing.T) {
	root := t.TempDir()
	writeTestApp(t, root)

	if err := Apply(testOptions(root)); err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	if err := Apply(testOptions(root)); err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}

	entitlements, err := LoadPlistFile(filepath.Join(root, "Acme", "Acme.entitlements"))
	if err != nil {
		t.Fatalf("failed to reload entitlements: %v", err)
	}
	groups := entitlements["com.apple.security.application-groups"].([]interface{})
	if len(groups) != 2 {
		t.Errorf("Expected duplicated app group entry after second run, got %v", groups)
	}

	info, err := LoadPlistFile(filepath.Join(root, "Acme", "Acme-Info.plist"))
	if err != nil {
		t.Fatalf("failed to reload Info.plist: %v", err)
	}
	modes := info["UIBackgroundModes"].([]interface{})
	if len(modes) != 1 {
		t.Errorf("Background mode append must stay idempotent, got %v", modes)
	}
}

func TestApply_MissingEntitlementsStartsEmpty(t *testing.T) {
	root := t.TempDir()
	writeTestApp(t, root)
	if err := os.Remove(filepath.Join(root, "Acme", "Acme.entitlements")); err != nil {
		t.Fatalf("failed to remove entitlements: %v", err)
	}

	if err := Apply(testOptions(root)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	entitlements, err := LoadPlistFile(filepath.Join(root, "Acme", "Acme.entitlements"))
	if err != nil {
		t.Fatalf("entitlements file should be created: %v", err)
	}
	if entitlements["aps-environment"] != "development" {
		t.Errorf("Expected aps-environment in freshly created file, got %v", entitlements["aps-environment"])
	}
}

func TestApply_MissingInfoPlist(t *testing.T) {
	root := t.TempDir()
	writeTestApp(t, root)
	if err := os.Remove(filepath.Join(root, "Acme", "Acme-Info.plist")); err != nil {
		t.Fatalf("failed to remove Info.plist: %v", err)
	}

	if err := Apply(testOptions(root)); err == nil {
		t.Error("Expected error for missing info manifest")
	}
}

func TestApply_PathOverrides(t *testing.T) {
	root := t.TempDir()
	writeTestApp(t, root)

	entPath := filepath.Join(root, "custom.entitlements")
	infoPath := filepath.Join(root, "Custom-Info.plist")
	if err := os.WriteFile(entPath, []byte(testEntitlementsXML), 0644); err != nil {
		t.Fatalf("failed to write entitlements: %v", err)
	}
	if err := os.WriteFile(infoPath, []byte(testInfoPlistXML), 0644); err != nil {
		t.Fatalf("failed to write Info.plist: %v", err)
	}

	opts := testOptions(root)
	opts.EntitlementsPath = entPath
	opts.InfoPlistPath = infoPath
	if err := Apply(opts); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	entitlements, err := LoadPlistFile(entPath)
	if err != nil {
		t.Fatalf("failed to reload entitlements: %v", err)
	}
	if entitlements["aps-environment"] != "development" {
		t.Errorf("Expected override path to be edited, got %v", entitlements["aps-environment"])
	}
}
