// Package vkdriver implements vklife.Driver on top of the system Vulkan
// loader through cgo.
//
// The implementation is only compiled with the vulkan build tag:
//
//	go build -tags vulkan ./...
//
// Without the tag the package is empty so that the rest of the module builds
// and tests on machines without the Vulkan SDK.
package vkdriver
