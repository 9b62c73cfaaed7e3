package pushext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pushext/pushext/pkg/templates"
)

const (
	// ExtensionTargetName names the injected notification-service-extension
	// target, its product, and the directory its files live in.
	ExtensionTargetName = "OneSignalNotificationServiceExtension"

	extensionDeploymentTarget = "11.0"
	extensionDeviceFamily     = "1,2"
)

// ExtensionSourceFile is the single source compiled into the extension.
const ExtensionSourceFile = "NotificationService.m"

// ExtensionTemplateFiles lists the four files copied into the extension
// directory.
var ExtensionTemplateFiles = []string{
	"NotificationService.h",
	ExtensionSourceFile,
	ExtensionTargetName + ".entitlements",
	ExtensionTargetName + "-Info.plist",
}

// InstallOptions configures one extension install.
type InstallOptions struct {
	AppName          string // display name of the app; names the .xcodeproj
	ProjectRoot      string // native project root containing <AppName>.xcodeproj
	BundleIdentifier string // reverse-domain app id
	DevelopmentTeam  string // Apple developer team identifier
	TemplatesDir     string // optional source dir; embedded defaults used when empty
	Log              io.Writer
}

// ExtensionBundleID returns the product bundle identifier of the extension.
func ExtensionBundleID(bundleID string) string {
	return bundleID + "." + ExtensionTargetName
}

// InstallExtension installs the notification-service-extension target into
// the app's Xcode project:
//
//  1. Parse <ProjectRoot>/<AppName>.xcodeproj/project.pbxproj. A parse
//     failure is the only fatal error; nothing is mutated or written.
//  2. Create <ProjectRoot>/OneSignalNotificationServiceExtension/ and copy
//     the four template files into it. Each copy is best-effort: a failed
//     copy is logged and the rest of the install continues.
//  3. Register the extension target with sources, resources, and
//     frameworks build phases.
//  4. Set the extension build settings on every configuration matching the
//     extension product name, stamp the development team on the new target
//     and the root project's first target, and write the descriptor back.
//
// All copies complete (or fail and get logged) before the descriptor is
// serialized.
func InstallExtension(opts InstallOptions) error {
	log := opts.Log
	if log == nil {
		log = os.Stdout
	}

	pbxPath := filepath.Join(opts.ProjectRoot, opts.AppName+".xcodeproj", "project.pbxproj")
	proj, err := LoadProject(pbxPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", pbxPath, err)
	}

	extDir := filepath.Join(opts.ProjectRoot, ExtensionTargetName)
	if err := os.MkdirAll(extDir, 0755); err != nil {
		return fmt.Errorf("failed to create extension directory: %w", err)
	}

	for _, name := range ExtensionTemplateFiles {
		if err := copyTemplateFile(opts.TemplatesDir, name, extDir); err != nil {
			warnf(log, "copying %s: %v", name, err)
		}
	}

	target := proj.AddAppExtensionTarget(ExtensionTargetName, ExtensionBundleID(opts.BundleIdentifier))
	proj.AddSourcesBuildPhase(target, []string{ExtensionSourceFile})
	proj.AddResourcesBuildPhase(target)
	proj.AddFrameworksBuildPhase(target)

	ApplyExtensionBuildSettings(proj, opts.BundleIdentifier, opts.DevelopmentTeam)

	proj.SetDevelopmentTeam(target.ID, opts.DevelopmentTeam)
	if first, ok := proj.FirstTarget(); ok && first.ID != target.ID {
		proj.SetDevelopmentTeam(first.ID, opts.DevelopmentTeam)
	}

	if err := proj.Save(); err != nil {
		return err
	}
	successf(log, "installed %s target in %s", ExtensionTargetName, pbxPath)
	return nil
}

// ApplyExtensionBuildSettings sets the extension's build settings on every
// build configuration whose product name matches the extension target.
// Configurations for other products are untouched; when nothing matches,
// nothing is mutated.
func ApplyExtensionBuildSettings(proj *Project, bundleID, team string) {
	entitlementsPath := ExtensionTargetName + "/" + ExtensionTargetName + ".entitlements"
	for _, configID := range proj.BuildConfigurationsForProduct(ExtensionTargetName) {
		proj.SetBuildSetting(configID, "DEVELOPMENT_TEAM", team)
		proj.SetBuildSetting(configID, "PRODUCT_BUNDLE_IDENTIFIER", ExtensionBundleID(bundleID))
		proj.SetBuildSetting(configID, "IPHONEOS_DEPLOYMENT_TARGET", extensionDeploymentTarget)
		proj.SetBuildSetting(configID, "TARGETED_DEVICE_FAMILY", extensionDeviceFamily)
		proj.SetBuildSetting(configID, "CODE_SIGN_ENTITLEMENTS", entitlementsPath)
		proj.SetBuildSetting(configID, "CODE_SIGN_STYLE", "Automatic")
	}
}

// copyTemplateFile copies one template file into destDir, byte-for-byte.
// With an empty templatesDir the embedded default set is used.
func copyTemplateFile(templatesDir, name, destDir string) error {
	destPath := filepath.Join(destDir, name)

	if templatesDir == "" {
		data, err := templates.ReadFile(name)
		if err != nil {
			return fmt.Errorf("no embedded template %s: %w", name, err)
		}
		return os.WriteFile(destPath, data, 0644)
	}

	return copyFile(filepath.Join(templatesDir, name), destPath, 0644)
}

// copyFile copies a single file from src to dst with the given mode using
// streaming I/O.
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
