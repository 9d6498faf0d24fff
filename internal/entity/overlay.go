package entity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOverlay reads an operator-maintained alias file shaped like
//
//	nba:
//	  bos: [beantown, "boston celtics"]
//
// and returns it as a Table to pass to New.
func LoadOverlay(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("entity: read overlay: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("entity: decode overlay %s: %w", path, err)
	}
	return t, nil
}
