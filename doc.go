// Package main provides the pushext CLI, a build-time injector for the
// OneSignal iOS notification service extension.
//
// For the library API, see the pushext subpackage:
//
//	import "github.com/go-pushext/pushext/pkg/pushext"
//
// # Installation
//
// Install the CLI:
//
//	go install github.com/go-pushext/pushext@latest
package main
