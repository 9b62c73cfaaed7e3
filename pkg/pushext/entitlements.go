package pushext

import "fmt"

const (
	apsEnvironmentKey = "aps-environment"
	appGroupsKey      = "com.apple.security.application-groups"

	// appGroupSuffix is the vendor suffix appended to every injected app
	// group identifier.
	appGroupSuffix = "onesignal"
)

// SetAPSEnvironment sets the aps-environment entitlement to mode,
// overwriting any prior value. Valid modes are "development" and
// "production"; the value is not validated here.
func SetAPSEnvironment(entitlements map[string]interface{}, mode string) {
	entitlements[apsEnvironmentKey] = mode
}

// AppGroupID returns the app group identifier shared between the app and
// the notification service extension: group.<bundleID>.onesignal.
func AppGroupID(bundleID string) string {
	return fmt.Sprintf("group.%s.%s", bundleID, appGroupSuffix)
}

// AddAppGroup appends the app group identifier for bundleID to the
// application-groups entitlement, creating the list if it is missing or
// not a list. Repeated calls append a second identical entry; the group
// membership is intended to be injected once per build.
func AddAppGroup(entitlements map[string]interface{}, bundleID string) {
	groups, ok := entitlements[appGroupsKey].([]interface{})
	if !ok {
		groups = []interface{}{}
	}
	entitlements[appGroupsKey] = append(groups, AppGroupID(bundleID))
}
