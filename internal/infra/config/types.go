package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coachpo/executor/internal/domain/schema"
)

// Environment identifies the runtime environment where the executor operates.
type Environment string

const (
	// EnvDev marks the development environment.
	EnvDev Environment = "dev"
	// EnvStaging marks the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd marks the production environment.
	EnvProd Environment = "prod"
)

// OrderTypeList accepts either a YAML sequence or a single comma separated scalar.
type OrderTypeList []string

// UnmarshalYAML supports `[Limit, Market]` as well as `"Limit,Market"`.
func (l *OrderTypeList) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*l = nil
		return nil
	}
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return fmt.Errorf("validOrderTypes: %w", err)
		}
		*l = items
	case yaml.ScalarNode:
		*l = splitList(node.Value)
	default:
		return fmt.Errorf("validOrderTypes: unsupported yaml node kind %d", node.Kind)
	}
	return nil
}

// Resolve converts the configured names into order types, dropping duplicates.
func (l OrderTypeList) Resolve() ([]schema.OrderType, error) {
	out := make([]schema.OrderType, 0, len(l))
	seen := make(map[schema.OrderType]struct{}, len(l))
	for _, raw := range l {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		ot, err := schema.ParseOrderType(trimmed)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[ot]; ok {
			continue
		}
		seen[ot] = struct{}{}
		out = append(out, ot)
	}
	return out, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
