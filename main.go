package main

import (
	"fmt"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/fatih/color"
	"github.com/go-pushext/pushext/pkg/config"
	"github.com/go-pushext/pushext/pkg/pushext"
)

const version = "1.0.0"

const usage = `pushext - OneSignal iOS Notification Extension Injector

A build-time tool that injects the configuration required by the OneSignal
push-notification SDK into an iOS application project: aps-environment and
app-group entitlements, the remote-notification background mode, and a
notification-service-extension target in the Xcode project.

Usage:
  pushext install --project=<dir> --app-name=<name> --bundleid=<id> [--team=<id>] [--mode=<env>] [--templates=<dir>] [--entitlements=<path>] [--info-plist=<path>]
  pushext verify [--team=<id>] [--mode=<env>] [--bundleid=<id>] [--profile=<path>] [--p12=<path>] [--password=<password>] [--binary=<path>]
  pushext -h | --help
  pushext --version

Commands:
  install   Apply the full injection sequence to a native iOS project
  verify    Check signing inputs against the injected configuration

Options:
  --project=<dir>        Native project root containing <app-name>.xcodeproj
  --app-name=<name>      Application display name (names the .xcodeproj)
  --bundleid=<id>        Reverse-domain application bundle identifier
  --team=<id>            Apple developer team identifier
  --mode=<env>           aps-environment value: development or production
  --templates=<dir>      Directory with extension template files (default: embedded)
  --entitlements=<path>  App entitlements file (default: <project>/<app-name>/<app-name>.entitlements)
  --info-plist=<path>    App Info.plist (default: <project>/<app-name>/<app-name>-Info.plist)
  --profile=<path>       Provisioning profile (.mobileprovision) to verify
  --p12=<path>           PKCS#12 signing identity to verify
  --password=<password>  Password for the P12 file
  --binary=<path>        Built extension executable to verify
  -h --help              Show this help message
  --version              Show version

Configuration:
  Defaults for install can also come from pushext.yml (or legacy
  pushext.json) in the project root and from PUSHEXT_* environment
  variables (e.g. PUSHEXT_DEV_TEAM, PUSHEXT_MODE). Flags win.

Examples:
  # Inject during a prebuild step
  pushext install --project=platforms/ios --app-name=Acme --bundleid=com.acme.app --team=ABCD1234EF --mode=production

  # Check that the signing inputs match what was injected
  pushext verify --team=ABCD1234EF --mode=production --bundleid=com.acme.app --profile=dist.mobileprovision
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	if install, _ := opts.Bool("install"); install {
		if err := runInstall(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else if verify, _ := opts.Bool("verify"); verify {
		if err := runVerify(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func runInstall(opts docopt.Opts) error {
	projectRoot, _ := opts.String("--project")

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	// Flags override config file and environment values.
	if v, _ := opts.String("--app-name"); v != "" {
		cfg.AppName = v
	}
	if v, _ := opts.String("--bundleid"); v != "" {
		cfg.BundleIdentifier = v
	}
	if v, _ := opts.String("--team"); v != "" {
		cfg.DevTeam = v
	}
	if v, _ := opts.String("--mode"); v != "" {
		cfg.Mode = v
	}
	if v, _ := opts.String("--templates"); v != "" {
		cfg.TemplatesDir = v
	}
	if v, _ := opts.String("--entitlements"); v != "" {
		cfg.EntitlementsPath = v
	}
	if v, _ := opts.String("--info-plist"); v != "" {
		cfg.InfoPlistPath = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return pushext.Apply(pushext.Options{
		Mode:             cfg.Mode,
		DevelopmentTeam:  cfg.DevTeam,
		BundleIdentifier: cfg.BundleIdentifier,
		AppName:          cfg.AppName,
		ProjectRoot:      projectRoot,
		EntitlementsPath: cfg.EntitlementsPath,
		InfoPlistPath:    cfg.InfoPlistPath,
		TemplatesDir:     cfg.TemplatesDir,
	})
}

func runVerify(opts docopt.Opts) error {
	team, _ := opts.String("--team")
	mode, _ := opts.String("--mode")
	bundleID, _ := opts.String("--bundleid")
	profilePath, _ := opts.String("--profile")
	p12Path, _ := opts.String("--p12")
	password, _ := opts.String("--password")
	binaryPath, _ := opts.String("--binary")

	results := pushext.Verify(pushext.VerifyOptions{
		Mode:             mode,
		DevelopmentTeam:  team,
		BundleIdentifier: bundleID,
		ProfilePath:      profilePath,
		P12Path:          p12Path,
		P12Password:      password,
		BinaryPath:       binaryPath,
	})
	if len(results) == 0 {
		return fmt.Errorf("nothing to verify: pass at least one of --profile, --p12, --binary")
	}

	pass := color.New(color.FgGreen).Sprint("PASS")
	fail := color.New(color.FgRed).Sprint("FAIL")
	failed := 0
	for _, r := range results {
		if r.OK() {
			fmt.Printf("%s  %s\n", pass, r.Name)
		} else {
			fmt.Printf("%s  %s: %v\n", fail, r.Name, r.Err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}
