package cmd

import (
	"fmt"
	"slices"
	"strings"
)

// packages lists the vdec packages the dev commands can be narrowed to.
var packages = []string{
	"adapter",
	"board",
	"chips",
	"cci",
	"config",
	"detect",
	"gpio",
	"i2c",
	"notify",
	"sensor",
	"wlan",
	"cmd/vdec",
}

// packageDirs validates package names and returns them as repository
// relative directories. An empty selection yields no directories.
func packageDirs(names []string) ([]string, error) {
	dirs := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.Trim(strings.TrimPrefix(name, "./"), "/.")
		if !slices.Contains(packages, name) {
			return nil, fmt.Errorf("unknown package %q, expected one of %s", name, strings.Join(packages, ", "))
		}
		dirs = append(dirs, name)
	}
	return dirs, nil
}
