// Package version exposes fetchkit build information.
//
// Version and commit are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/fetchkit/version.Version=1.2.0" ./cmd/fetchkit
//
// When they are not set, the VCS stamp embedded by the Go toolchain is used.
package version
