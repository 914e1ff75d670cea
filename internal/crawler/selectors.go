package crawler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// selectorFile is the on-disk shape of a selector override file
type selectorFile struct {
	Selectors           Selectors           `yaml:"selectors"`
	ElementTransformers ElementTransformers `yaml:",inline"`
}

// LoadSelectors reads selector overrides from a YAML file.
// Roles missing from the file keep their default selector.
func LoadSelectors(path string) (Selectors, ElementTransformers, error) {
	f, err := os.Open(path)
	if err != nil {
		return Selectors{}, ElementTransformers{}, fmt.Errorf("open selectors file: %w", err)
	}
	defer f.Close()

	var file selectorFile
	if err := yaml.NewDecoder(f).Decode(&file); err != nil {
		return Selectors{}, ElementTransformers{}, fmt.Errorf("decode selectors file: %w", err)
	}

	return mergeSelectors(DefaultSelectors, file.Selectors), file.ElementTransformers, nil
}

func mergeSelectors(base, override Selectors) Selectors {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.ItemList, override.ItemList)
	pick(&base.Title, override.Title)
	pick(&base.Link, override.Link)
	pick(&base.Price, override.Price)
	pick(&base.Shipping, override.Shipping)
	pick(&base.Seller, override.Seller)
	pick(&base.EndTime, override.EndTime)
	pick(&base.Tag, override.Tag)
	pick(&base.Status, override.Status)
	pick(&base.Condition, override.Condition)
	pick(&base.ClassFilter, override.ClassFilter)
	return base
}
