package pushext

import (
	"fmt"
	"os"

	"howett.net/plist"
)

// LoadPlistFile reads a property-list file (XML or binary) into a map.
func LoadPlistFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plist: %w", err)
	}
	return ParsePlist(data)
}

// ParsePlist parses property-list bytes into a map.
func ParsePlist(data []byte) (map[string]interface{}, error) {
	var values map[string]interface{}
	if _, err := plist.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse plist: %w", err)
	}
	return values, nil
}

// SavePlistFile marshals the map as an XML plist and overwrites path.
func SavePlistFile(path string, values map[string]interface{}) error {
	data, err := plist.MarshalIndent(values, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal plist: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}
	return nil
}
