// Package vklife wraps a Vulkan-style native API with Go-side ownership of
// every native handle.
//
// Each wrapper owns exactly one handle and releases it at most once. Destroy
// is idempotent and safe to call from several goroutines. A wrapper that
// becomes unreachable without Destroy is released by a runtime cleanup and a
// warning is logged, unless finalizers are disabled with WithFinalizers.
//
// Command buffers and descriptor sets are allocated from pools. Their release
// capability belongs to the pool: resetting or destroying the pool invalidates
// every sub-object it handed out, after which their Destroy is a no-op and
// their operations return ErrDestroyed.
//
// Destroying a Device releases every object still alive on it, newest first,
// when Config.ReleaseChildren is set, and destroying an Instance destroys its
// devices.
//
// All native calls go through a Driver. vkdriver implements it on the system
// Vulkan loader and drivertest provides an in-memory implementation for tests.
package vklife
