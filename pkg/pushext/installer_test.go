package pushext

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestProject lays out <root>/<app>.xcodeproj/project.pbxproj with the
// minimal descriptor fixture and returns the descriptor path.
func writeTestProject(t *testing.T, root, appName string) string {
	t.Helper()
	projDir := filepath.Join(root, appName+".xcodeproj")
	if err := os.MkdirAll(projDir, 0755); err != nil {
		t.Fatalf("failed to create project dir: %v", err)
	}
	path := filepath.Join(projDir, "project.pbxproj")
	if err := os.WriteFile(path, []byte(testProjectPBX), 0644); err != nil {
		t.Fatalf("failed to write descriptor: %v", err)
	}
	return path
}

func TestInstallExtension(t *testing.T) {
	root := t.TempDir()
	pbxPath := writeTestProject(t, root, "Acme")
	var log bytes.Buffer

	err := InstallExtension(InstallOptions{
		AppName:          "Acme",
		ProjectRoot:      root,
		BundleIdentifier: "com.acme.app",
		DevelopmentTeam:  "ABCD1234EF",
		Log:              &log,
	})
	if err != nil {
		t.Fatalf("InstallExtension failed: %v\nlog:\n%s", err, log.String())
	}

	// All four template files are copied into the extension directory.
	extDir := filepath.Join(root, ExtensionTargetName)
	for _, name := range ExtensionTemplateFiles {
		if _, err := os.Stat(filepath.Join(extDir, name)); err != nil {
			t.Errorf("Expected template %s to be copied: %v", name, err)
		}
	}

	proj, err := LoadProject(pbxPath)
	if err != nil {
		t.Fatalf("failed to reload descriptor: %v", err)
	}

	targets := proj.Targets()
	if len(targets) != 2 {
		t.Fatalf("Expected 2 targets, got %d", len(targets))
	}
	ext := targets[1]
	if ext.Name != ExtensionTargetName {
		t.Errorf("Expected extension target %q, got %q", ExtensionTargetName, ext.Name)
	}

	obj, _ := proj.Object(ext.ID)
	if len(toSlice(obj["buildPhases"])) != 3 {
		t.Errorf("Expected 3 build phases, got %v", obj["buildPhases"])
	}

	configs := proj.BuildConfigurationsForProduct(ExtensionTargetName)
	if len(configs) != 2 {
		t.Fatalf("Expected 2 matching configurations, got %d", len(configs))
	}
	for _, id := range configs {
		checks := map[string]string{
			"DEVELOPMENT_TEAM":           "ABCD1234EF",
			"PRODUCT_BUNDLE_IDENTIFIER":  "com.acme.app." + ExtensionTargetName,
			"IPHONEOS_DEPLOYMENT_TARGET": "11.0",
			"TARGETED_DEVICE_FAMILY":     "1,2",
			"CODE_SIGN_ENTITLEMENTS":     ExtensionTargetName + "/" + ExtensionTargetName + ".entitlements",
			"CODE_SIGN_STYLE":            "Automatic",
		}
		for key, want := range checks {
			if got, ok := proj.BuildSetting(id, key); !ok || got != want {
				t.Errorf("config %s: expected %s=%q, got %v (ok=%v)", id, key, want, got, ok)
			}
		}
	}

	// Both the extension target and the app target carry the team attribute.
	for _, target := range targets {
		if team, ok := proj.DevelopmentTeam(target.ID); !ok || team != "ABCD1234EF" {
			t.Errorf("target %s: expected team attribute, got %q (ok=%v)", target.Name, team, ok)
		}
	}
}

func TestInstallExtension_ParseFailure(t *testing.T) {
	root := t.TempDir()
	pbxPath := writeTestProject(t, root, "Acme")
	if err := os.WriteFile(pbxPath, []byte("\x00not a descriptor"), 0644); err != nil {
		t.Fatalf("failed to corrupt descriptor: %v", err)
	}
	var log bytes.Buffer

	err := InstallExtension(InstallOptions{
		AppName:          "Acme",
		ProjectRoot:      root,
		BundleIdentifier: "com.acme.app",
		DevelopmentTeam:  "ABCD1234EF",
		Log:              &log,
	})
	if err == nil {
		t.Fatal("Expected error for malformed descriptor")
	}

	// Nothing else happens: no extension directory, descriptor untouched.
	if _, statErr := os.Stat(filepath.Join(root, ExtensionTargetName)); statErr == nil {
		t.Error("Extension directory should not be created when parsing fails")
	}
	data, _ := os.ReadFile(pbxPath)
	if !bytes.Equal(data, []byte("\x00not a descriptor")) {
		t.Error("Descriptor should not be rewritten when parsing fails")
	}
}

func TestInstallExtension_TwiceRegistersTwoTargets(t *testing.T) {
	root := t.TempDir()
	pbxPath := writeTestProject(t, root, "Acme")

	opts := InstallOptions{
		AppName:          "Acme",
		ProjectRoot:      root,
		BundleIdentifier: "com.acme.app",
		DevelopmentTeam:  "ABCD1234EF",
		Log:              &bytes.Buffer{},
	}
	if err := InstallExtension(opts); err != nil {
		t.Fatalf("first install failed: %v", err)
	}
	if err := InstallExtension(opts); err != nil {
		t.Fatalf("second install failed: %v", err)
	}

	proj, err := LoadProject(pbxPath)
	if err != nil {
		t.Fatalf("failed to reload descriptor: %v", err)
	}
	count := 0
	for _, target := range proj.Targets() {
		if target.Name == ExtensionTargetName {
			count++
		}
	}
	if count != 2 {
		t.Errorf("Expected 2 extension target registrations after two runs, got %d", count)
	}
}

func TestInstallExtension_CopyFailureIsNonFatal(t *testing.T) {
	root := t.TempDir()
	pbxPath := writeTestProject(t, root, "Acme")

	// A template dir missing everything but the implementation file: three
	// copies fail, the install still completes.
	templatesDir := filepath.Join(root, "templates")
	if err := os.MkdirAll(templatesDir, 0755); err != nil {
		t.Fatalf("failed to create templates dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(templatesDir, ExtensionSourceFile), []byte("// impl\n"), 0644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	var log bytes.Buffer
	err := InstallExtension(InstallOptions{
		AppName:          "Acme",
		ProjectRoot:      root,
		BundleIdentifier: "com.acme.app",
		DevelopmentTeam:  "ABCD1234EF",
		TemplatesDir:     templatesDir,
		Log:              &log,
	})
	if err != nil {
		t.Fatalf("InstallExtension should not fail on per-file copy errors: %v", err)
	}

	if !strings.Contains(log.String(), "NotificationService.h") {
		t.Errorf("Expected a logged warning for the missing header, log:\n%s", log.String())
	}
	data, err := os.ReadFile(filepath.Join(root, ExtensionTargetName, ExtensionSourceFile))
	if err != nil || string(data) != "// impl\n" {
		t.Errorf("Present template should be copied byte-for-byte, got %q (err=%v)", data, err)
	}

	// The descriptor mutation still happened.
	proj, err := LoadProject(pbxPath)
	if err != nil {
		t.Fatalf("failed to reload descriptor: %v", err)
	}
	if len(proj.Targets()) != 2 {
		t.Errorf("Expected target registration despite copy failures, got %d targets", len(proj.Targets()))
	}
}

func TestApplyExtensionBuildSettings_NoMatchingConfigurations(t *testing.T) {
	proj := parseTestProject(t)

	ApplyExtensionBuildSettings(proj, "com.acme.app", "ABCD1234EF")

	// The app's own configuration is untouched.
	if _, ok := proj.BuildSetting("FF01000000000000000000FF", "DEVELOPMENT_TEAM"); ok {
		t.Error("Expected zero build-settings mutations when no configuration matches")
	}
}

func TestExtensionBundleID(t *testing.T) {
	got := ExtensionBundleID("com.acme.app")
	if got != "com.acme.app.OneSignalNotificationServiceExtension" {
		t.Errorf("unexpected extension bundle id %q", got)
	}
}
