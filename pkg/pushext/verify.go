package pushext

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

// VerifyOptions selects which signing inputs to check after injection. Each
// path is optional; only checks with a configured input run.
type VerifyOptions struct {
	Mode             string // expected aps-environment value
	DevelopmentTeam  string // expected team identifier
	BundleIdentifier string // app bundle id; used for the app-group check

	ProfilePath string // .mobileprovision to check
	P12Path     string // signing identity to check
	P12Password string
	BinaryPath  string // built extension executable to check
}

// CheckResult is the outcome of a single verification check.
type CheckResult struct {
	Name string
	Err  error
}

// OK reports whether the check passed.
func (r CheckResult) OK() bool { return r.Err == nil }

// Verify runs each configured check and returns one result per check run.
// Checks are independent; a failing check does not stop the others.
func Verify(opts VerifyOptions) []CheckResult {
	var results []CheckResult
	if opts.ProfilePath != "" {
		results = append(results, CheckResult{
			Name: "provisioning profile",
			Err:  checkProfile(opts),
		})
	}
	if opts.P12Path != "" {
		results = append(results, CheckResult{
			Name: "signing certificate",
			Err:  checkSigningCertificate(opts),
		})
	}
	if opts.BinaryPath != "" {
		results = append(results, CheckResult{
			Name: "extension binary",
			Err:  checkExtensionBinary(opts.BinaryPath),
		})
	}
	return results
}

// checkProfile confirms the provisioning profile agrees with the injected
// configuration: team id, expiry, aps-environment, and app-group coverage.
func checkProfile(opts VerifyOptions) error {
	data, err := os.ReadFile(opts.ProfilePath)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	profile, err := ParseProvisioningProfile(data)
	if err != nil {
		return err
	}

	if profile.IsExpired() {
		return fmt.Errorf("profile %s expired on %s", profile.Name, profile.ExpirationDate.Format("2006-01-02"))
	}
	if opts.DevelopmentTeam != "" && profile.TeamID() != opts.DevelopmentTeam {
		return fmt.Errorf("profile team %s does not match %s", profile.TeamID(), opts.DevelopmentTeam)
	}
	if opts.Mode != "" && profile.APSEnvironment() != opts.Mode {
		return fmt.Errorf("profile aps-environment %q does not match %q", profile.APSEnvironment(), opts.Mode)
	}
	if opts.BundleIdentifier != "" {
		if groups := profile.ApplicationGroups(); groups != nil {
			want := AppGroupID(opts.BundleIdentifier)
			if !coversAppGroup(groups, want) {
				return fmt.Errorf("profile application-groups do not cover %s", want)
			}
		}
	}
	return nil
}

func coversAppGroup(groups []string, want string) bool {
	for _, g := range groups {
		if g == want || g == "*" {
			return true
		}
	}
	return false
}

// checkSigningCertificate decodes a PKCS#12 identity and confirms the
// certificate carries the expected team and has not expired.
func checkSigningCertificate(opts VerifyOptions) error {
	data, err := os.ReadFile(opts.P12Path)
	if err != nil {
		return fmt.Errorf("failed to read P12 file: %w", err)
	}
	_, cert, _, err := gop12.DecodeChain(data, opts.P12Password)
	if err != nil {
		return fmt.Errorf("failed to decode P12: %w", err)
	}
	if time.Now().After(cert.NotAfter) {
		return fmt.Errorf("certificate %s expired on %s", cert.Subject.CommonName, cert.NotAfter.Format("2006-01-02"))
	}
	if opts.DevelopmentTeam != "" {
		if team := teamIDFromCertificate(cert); team != opts.DevelopmentTeam {
			return fmt.Errorf("certificate team %s does not match %s", team, opts.DevelopmentTeam)
		}
	}
	return nil
}

// checkExtensionBinary confirms the built extension executable is a Mach-O
// executable whose minimum OS version is at least the injected deployment
// target. Binaries without version load commands pass the version check.
func checkExtensionBinary(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read binary: %w", err)
	}

	m, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		// Fat binaries carry one slice per architecture; any slice will do
		// for the header and version checks.
		fat, fatErr := macho.NewFatFile(bytes.NewReader(data))
		if fatErr != nil {
			return fmt.Errorf("failed to parse Mach-O: %w", err)
		}
		if len(fat.Arches) == 0 {
			return fmt.Errorf("fat binary has no architectures")
		}
		m = fat.Arches[0].File
	}

	if m.FileHeader.Type != types.MH_EXECUTE {
		return fmt.Errorf("binary is not an executable (type %v)", m.FileHeader.Type)
	}

	for _, load := range m.Loads {
		bv, ok := load.(*macho.BuildVersion)
		if !ok {
			continue
		}
		minos := bv.Minos.String()
		if !versionAtLeast(minos, extensionDeploymentTarget) {
			return fmt.Errorf("binary minimum OS %s is below deployment target %s", minos, extensionDeploymentTarget)
		}
	}
	return nil
}

// versionAtLeast compares dotted version strings numerically, component by
// component. Malformed components compare as zero.
func versionAtLeast(got, want string) bool {
	gotParts := strings.Split(got, ".")
	wantParts := strings.Split(want, ".")
	for i := 0; i < len(gotParts) || i < len(wantParts); i++ {
		g, w := 0, 0
		if i < len(gotParts) {
			g, _ = strconv.Atoi(gotParts[i])
		}
		if i < len(wantParts) {
			w, _ = strconv.Atoi(wantParts[i])
		}
		if g != w {
			return g > w
		}
	}
	return true
}
