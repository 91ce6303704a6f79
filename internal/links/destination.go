package links

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule allows destinations on Host whose path starts with PathPrefix.
// An empty Host matches any host.
type Rule struct {
	Host       string `yaml:"host"`
	PathPrefix string `yaml:"pathPrefix"`
}

// DestinationPolicy restricts which destinations may be shortened.
// A nil policy or one without rules allows everything.
type DestinationPolicy struct {
	Rules []Rule `yaml:"allow"`
}

// NewDestinationPolicy builds a policy from a single host/prefix pair.
// Both empty means no restriction.
func NewDestinationPolicy(host, pathPrefix string) *DestinationPolicy {
	policy := &DestinationPolicy{}

	if host != "" || pathPrefix != "" {
		policy.Rules = append(policy.Rules, Rule{Host: host, PathPrefix: pathPrefix})
	}

	return policy
}

// LoadDestinationPolicy reads allow rules from a YAML file:
//
//	allow:
//	  - host: www.typescriptlang.org
//	    pathPrefix: /play
func LoadDestinationPolicy(path string) (*DestinationPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read destination policy: %w", err)
	}

	var policy DestinationPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse destination policy %s: %w", path, err)
	}

	return &policy, nil
}

// Merge returns a policy holding the rules of both p and other.
func (p *DestinationPolicy) Merge(other *DestinationPolicy) *DestinationPolicy {
	merged := &DestinationPolicy{}

	if p != nil {
		merged.Rules = append(merged.Rules, p.Rules...)
	}

	if other != nil {
		merged.Rules = append(merged.Rules, other.Rules...)
	}

	return merged
}

// Allows reports whether u matches at least one rule.
func (p *DestinationPolicy) Allows(u *url.URL) bool {
	if p == nil || len(p.Rules) == 0 {
		return true
	}

	host := strings.ToLower(u.Hostname())

	for _, rule := range p.Rules {
		if rule.Host != "" && strings.ToLower(rule.Host) != host {
			continue
		}

		if strings.HasPrefix(u.Path, rule.PathPrefix) {
			return true
		}
	}

	return false
}
