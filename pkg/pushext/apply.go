package pushext

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Options carries the host build pipeline's configuration for one injection
// run.
type Options struct {
	Mode             string // aps-environment value: "development" or "production"
	DevelopmentTeam  string
	BundleIdentifier string
	AppName          string
	ProjectRoot      string

	// EntitlementsPath overrides the default
	// <ProjectRoot>/<AppName>/<AppName>.entitlements.
	EntitlementsPath string
	// InfoPlistPath overrides the default
	// <ProjectRoot>/<AppName>/<AppName>-Info.plist.
	InfoPlistPath string
	// TemplatesDir overrides the embedded extension templates.
	TemplatesDir string

	Log io.Writer
}

func (o Options) entitlementsPath() string {
	if o.EntitlementsPath != "" {
		return o.EntitlementsPath
	}
	return filepath.Join(o.ProjectRoot, o.AppName, o.AppName+".entitlements")
}

func (o Options) infoPlistPath() string {
	if o.InfoPlistPath != "" {
		return o.InfoPlistPath
	}
	return filepath.Join(o.ProjectRoot, o.AppName, o.AppName+"-Info.plist")
}

// Apply runs the full injection sequence, once:
//
//  1. set aps-environment on the app entitlements
//  2. ensure the remote-notification background mode in Info.plist
//  3. append the onesignal app group to the app entitlements
//  4. install the notification service extension target
//
// Steps 1 and 3 share one read-modify-write of the entitlements file. A
// missing entitlements file starts from an empty record; a missing
// Info.plist is an error.
func Apply(opts Options) error {
	log := opts.Log
	if log == nil {
		log = os.Stdout
	}

	entPath := opts.entitlementsPath()
	entitlements, err := LoadPlistFile(entPath)
	if errors.Is(err, os.ErrNotExist) {
		entitlements = map[string]interface{}{}
	} else if err != nil {
		return fmt.Errorf("failed to load entitlements %s: %w", entPath, err)
	}
	SetAPSEnvironment(entitlements, opts.Mode)
	AddAppGroup(entitlements, opts.BundleIdentifier)
	if err := SavePlistFile(entPath, entitlements); err != nil {
		return fmt.Errorf("failed to save entitlements %s: %w", entPath, err)
	}
	successf(log, "set %s=%s and app group %s", apsEnvironmentKey, opts.Mode, AppGroupID(opts.BundleIdentifier))

	infoPath := opts.infoPlistPath()
	info, err := LoadPlistFile(infoPath)
	if err != nil {
		return fmt.Errorf("failed to load info manifest %s: %w", infoPath, err)
	}
	EnsureBackgroundModes(info)
	if err := SavePlistFile(infoPath, info); err != nil {
		return fmt.Errorf("failed to save info manifest %s: %w", infoPath, err)
	}
	successf(log, "ensured %s in %s", backgroundModesKey, infoPath)

	return InstallExtension(InstallOptions{
		AppName:          opts.AppName,
		ProjectRoot:      opts.ProjectRoot,
		BundleIdentifier: opts.BundleIdentifier,
		DevelopmentTeam:  opts.DevelopmentTeam,
		TemplatesDir:     opts.TemplatesDir,
		Log:              log,
	})
}
