// Package pushext injects the build configuration required by the OneSignal
// push-notification SDK into an iOS application project.
//
// It edits three native project files in place:
//
//   - the app's entitlements file (aps-environment, application groups)
//   - the app's Info.plist (UIBackgroundModes)
//   - the project.pbxproj descriptor (a new notification-service-extension
//     target with build phases and build settings)
//
// # Basic Usage
//
// To run the full injection sequence during a prebuild step:
//
//	err := pushext.Apply(pushext.Options{
//	    Mode:             "development",
//	    DevelopmentTeam:  "ABCD1234EF",
//	    BundleIdentifier: "com.acme.app",
//	    AppName:          "Acme",
//	    ProjectRoot:      "platforms/ios",
//	})
//
// All edits are additive: existing keys, targets, and build settings that do
// not belong to the extension are left untouched. The sequence runs once per
// build; it does not detect earlier runs.
package pushext
