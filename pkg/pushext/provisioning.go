package pushext

import (
	"crypto/x509"
	"fmt"
	"time"

	"go.mozilla.org/pkcs7"
	"howett.net/plist"
)

// ProvisioningProfile represents a parsed .mobileprovision file, reduced to
// the fields the verification checks need.
type ProvisioningProfile struct {
	Name                        string                 `plist:"Name"`
	TeamName                    string                 `plist:"TeamName"`
	TeamIdentifier              []string               `plist:"TeamIdentifier"`
	ApplicationIdentifierPrefix []string               `plist:"ApplicationIdentifierPrefix"`
	Entitlements                map[string]interface{} `plist:"Entitlements"`
	ExpirationDate              time.Time              `plist:"ExpirationDate"`
	UUID                        string                 `plist:"UUID"`
}

// ParseProvisioningProfile parses a .mobileprovision file.
// The file is a CMS (PKCS#7) signed container with a plist payload.
func ParseProvisioningProfile(data []byte) (*ProvisioningProfile, error) {
	p7, err := pkcs7.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS#7 container: %w", err)
	}

	var profile ProvisioningProfile
	if _, err := plist.Unmarshal(p7.Content, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse provisioning profile plist: %w", err)
	}
	return &profile, nil
}

// TeamID returns the team identifier from the profile.
func (p *ProvisioningProfile) TeamID() string {
	if len(p.TeamIdentifier) > 0 {
		return p.TeamIdentifier[0]
	}
	if len(p.ApplicationIdentifierPrefix) > 0 {
		return p.ApplicationIdentifierPrefix[0]
	}
	return ""
}

// IsExpired checks if the provisioning profile has expired.
func (p *ProvisioningProfile) IsExpired() bool {
	return time.Now().After(p.ExpirationDate)
}

// APSEnvironment returns the aps-environment entitlement of the profile.
func (p *ProvisioningProfile) APSEnvironment() string {
	env, _ := p.Entitlements[apsEnvironmentKey].(string)
	return env
}

// ApplicationGroups returns the application-groups entitlement of the
// profile, when present.
func (p *ProvisioningProfile) ApplicationGroups() []string {
	raw, ok := p.Entitlements[appGroupsKey].([]interface{})
	if !ok {
		return nil
	}
	var groups []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups
}

// teamIDFromCertificate extracts the team identifier from a signing
// certificate's OrganizationalUnit field.
func teamIDFromCertificate(cert *x509.Certificate) string {
	if len(cert.Subject.OrganizationalUnit) > 0 {
		return cert.Subject.OrganizationalUnit[0]
	}
	return ""
}
