package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/moamenhredeen/oasrec/internal/generator"
	"github.com/moamenhredeen/oasrec/internal/reconcile"
	"github.com/moamenhredeen/oasrec/internal/selector"
)

// ownedRule is one [[owned]] table of the config file
type ownedRule struct {
	Selector    string   `mapstructure:"selector"`
	Array       bool     `mapstructure:"array"`
	CompareKeys []string `mapstructure:"compare_keys"`
}

type fileConfig struct {
	OpenAPI         string      `mapstructure:"openapi"`
	Title           string      `mapstructure:"title"`
	Version         string      `mapstructure:"version"`
	Servers         []string    `mapstructure:"servers"`
	RequestHeaders  []string    `mapstructure:"request_headers"`
	ResponseHeaders []string    `mapstructure:"response_headers"`
	MaxExamples     int         `mapstructure:"max_examples"`
	Owned           []ownedRule `mapstructure:"owned"`
}

func setDefaults(v *viper.Viper) {
	d := generator.DefaultConfig()
	v.SetDefault("openapi", d.OpenAPIVersion)
	v.SetDefault("title", d.Title)
	v.SetDefault("version", d.Version)
	v.SetDefault("max_examples", d.MaxExamples)
}

// loadConfig turns the merged viper settings into the generator config and
// the ownership rules. Without [[owned]] tables the default rules apply.
func loadConfig(v *viper.Viper) (generator.Config, []reconcile.Rule, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return generator.Config{}, nil, fmt.Errorf("invalid config: %w", err)
	}
	if fc.MaxExamples < 0 {
		return generator.Config{}, nil, fmt.Errorf("invalid config: max_examples must not be negative")
	}

	cfg := generator.Config{
		OpenAPIVersion:  fc.OpenAPI,
		Title:           fc.Title,
		Version:         fc.Version,
		Servers:         fc.Servers,
		RequestHeaders:  fc.RequestHeaders,
		ResponseHeaders: fc.ResponseHeaders,
		MaxExamples:     fc.MaxExamples,
	}

	if len(fc.Owned) == 0 {
		return cfg, reconcile.DefaultRules(), nil
	}
	rules := make([]reconcile.Rule, 0, len(fc.Owned))
	for i, o := range fc.Owned {
		sel, err := selector.Parse(o.Selector)
		if err != nil {
			return generator.Config{}, nil, fmt.Errorf("owned[%d]: %w", i, err)
		}
		if len(o.CompareKeys) > 0 && !o.Array {
			return generator.Config{}, nil, fmt.Errorf("owned[%d]: compare_keys requires array = true", i)
		}
		rules = append(rules, reconcile.Rule{Selector: sel, Array: o.Array, CompareKeys: o.CompareKeys})
	}
	return cfg, rules, nil
}
