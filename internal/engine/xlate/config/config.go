// Package config parses the environment variables spec.md §6 names into a
// typed Config, once at startup. Two prefixes are recognized — ANVIL_
// canonical, ATS_ an alias — matching spec.md's "implementers may pick one
// canonical and one alias".
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Prefixes are the two recognized environment-variable prefixes, canonical
// first.
var Prefixes = [2]string{"ANVIL_", "ATS_"}

// Config is the parsed, typed form of every spec.md §6 environment
// variable.
type Config struct {
	PrintIR                     bool
	DisableAOT                  bool
	AdvertiseAVX                bool
	PrintSegments               bool
	DebugServerPort             int // 0 means unset
	AllowGuardPages             bool
	DisableSigaction            bool
	DisableExceptions           bool
	AOTErrorsAreFatal           bool
	HardwareTracingPath         string
	ScribbleTranslations        bool
	MemoryAccessInstrumentation bool
}

// Error reports a malformed or unrecognized <prefix>_* environment
// variable; spec.md §6/§7 treats either as fatal before translation begins.
type Error struct {
	Var    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Var, e.Reason)
}

var boolVars = map[string]func(*Config){
	"PRINT_IR":           func(c *Config) { c.PrintIR = true },
	"DISABLE_AOT":        func(c *Config) { c.DisableAOT = true },
	"PRINT_SEGMENTS":     func(c *Config) { c.PrintSegments = true },
	"ALLOW_GUARD_PAGES":  func(c *Config) { c.AllowGuardPages = true },
	"DISABLE_SIGACTION":  func(c *Config) { c.DisableSigaction = true },
	"DISABLE_EXCEPTIONS": func(c *Config) { c.DisableExceptions = true },
	"AOT_ERRORS_ARE_FATAL": func(c *Config) {
		c.AOTErrorsAreFatal = true
	},
	"SCRIBBLE_TRANSLATIONS":         func(c *Config) { c.ScribbleTranslations = true },
	"MEMORY_ACCESS_INSTRUMENTATION": func(c *Config) { c.MemoryAccessInstrumentation = true },
}

// Load parses every <prefix>_* variable in os.Environ() matching Prefixes,
// for both prefixes at once (a variable present under either is honored;
// spec.md does not say the two are mutually exclusive, only that both are
// recognized). An unknown <prefix>_* name or a malformed value is an
// *Error.
func Load() (*Config, error) {
	return load(os.Environ())
}

func load(environ []string) (*Config, error) {
	c := &Config{}
	for _, kv := range environ {
		name, value, ok := splitEnv(kv)
		if !ok {
			continue
		}
		suffix, matched := stripPrefix(name)
		if !matched {
			continue
		}
		if err := applyVar(c, name, suffix, value); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func splitEnv(kv string) (name, value string, ok bool) {
	i := strings.IndexByte(kv, '=')
	if i < 0 {
		return "", "", false
	}
	return kv[:i], kv[i+1:], true
}

func stripPrefix(name string) (suffix string, matched bool) {
	for _, p := range Prefixes {
		if strings.HasPrefix(name, p) {
			return name[len(p):], true
		}
	}
	return "", false
}

func applyVar(c *Config, fullName, suffix, value string) error {
	if set, ok := boolVars[suffix]; ok {
		set(c)
		return nil
	}
	switch suffix {
	case "ADVERTISE_AVX":
		v, err := strconv.Atoi(value)
		if err != nil || (v != 0 && v != 1) {
			return &Error{Var: fullName, Reason: "must be 0 or 1"}
		}
		c.AdvertiseAVX = v == 1
	case "DEBUGSERVER_PORT":
		v, err := strconv.Atoi(value)
		if err != nil || v < 1 || v > 999999 {
			return &Error{Var: fullName, Reason: "must be a positive integer, 1..999999"}
		}
		c.DebugServerPort = v
	case "HARDWARE_TRACING_PATH":
		c.HardwareTracingPath = value
	default:
		return &Error{Var: fullName, Reason: "unrecognized variable"}
	}
	return nil
}

// CacheDir returns the optional AOT cache directory spec.md §6 names
// ($HOME/.cache/<prefix>/, canonical prefix lower-cased without its
// trailing underscore), or "" if $HOME is unset.
func CacheDir() string {
	home, ok := os.LookupEnv("HOME")
	if !ok || home == "" {
		return ""
	}
	name := strings.ToLower(strings.TrimSuffix(Prefixes[0], "_"))
	return home + "/.cache/" + name + "/"
}
