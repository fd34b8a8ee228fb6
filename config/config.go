// Package config defines the read-only configuration surface the renderer
// consults for variables that have no binding of their own: build-global
// settings such as target platform paths and toolchain defaults.
package config

// View is a read-only variable lookup backed by the surrounding build
// configuration, consulted by the renderer only after a command's own
// render-time bindings have been checked.
type View interface {
	// Lookup returns the configured value for name, if any.
	Lookup(name string) (string, bool)
	// KeepTargetPlatform reports whether name's value should be resolved
	// against the target (rather than host) platform's paths, for
	// variables whose meaning depends on the platform a build artifact is
	// destined for.
	KeepTargetPlatform(name string) bool
}

// Map is a simple in-memory View over a flat string table; every name
// resolves against the host platform.
type Map map[string]string

// Lookup implements View.
func (m Map) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// KeepTargetPlatform implements View, always reporting false: Map carries
// no per-variable platform metadata.
func (m Map) KeepTargetPlatform(string) bool { return false }
