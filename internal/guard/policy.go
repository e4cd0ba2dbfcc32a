package guard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy classifies request paths for the route guard. Matching is by
// prefix for entries ending in "/" and exact otherwise.
type Policy struct {
	// Public paths never require a session (login page, auth callbacks,
	// health checks, static assets)
	Public []string `yaml:"public"`

	// AdminPrefixes are path prefixes restricted to admin sessions
	AdminPrefixes []string `yaml:"admin_prefixes"`

	// Fallback is where non-admins are sent when they hit an admin path
	Fallback string `yaml:"fallback"`

	// LoginPath is where unauthenticated visitors are redirected
	LoginPath string `yaml:"login_path"`
}

// DefaultPolicy returns the compiled-in route policy
func DefaultPolicy() Policy {
	return Policy{
		Public: []string{
			"/login",
			"/auth/",
			"/health",
			"/assets/",
			"/favicon.ico",
		},
		AdminPrefixes: []string{"/admin"},
		Fallback:      "/",
		LoginPath:     "/login",
	}
}

// LoadPolicy reads a route policy from a YAML file. Missing fields fall
// back to the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("failed to read guard policy: %w", err)
	}

	var loaded Policy
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return policy, fmt.Errorf("failed to parse guard policy: %w", err)
	}

	if len(loaded.Public) > 0 {
		policy.Public = loaded.Public
	}
	if len(loaded.AdminPrefixes) > 0 {
		policy.AdminPrefixes = loaded.AdminPrefixes
	}
	if loaded.Fallback != "" {
		policy.Fallback = loaded.Fallback
	}
	if loaded.LoginPath != "" {
		policy.LoginPath = loaded.LoginPath
	}

	return policy, nil
}

// IsPublic reports whether the path is reachable without a session
func (p Policy) IsPublic(path string) bool {
	for _, entry := range p.Public {
		if strings.HasSuffix(entry, "/") {
			if strings.HasPrefix(path, entry) {
				return true
			}
			continue
		}
		if path == entry {
			return true
		}
	}
	return false
}

// IsAdminPath reports whether the path is restricted to admins
func (p Policy) IsAdminPath(path string) bool {
	for _, prefix := range p.AdminPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
