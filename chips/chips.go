// Package chips maps chip names to their descriptions.
package chips

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/chips/tp2854b"
	"github.com/mklimuk/vdec/chips/tp9950"
	"github.com/mklimuk/vdec/detect"
	"github.com/mklimuk/vdec/sensor"
)

// Entry is a supported chip.
type Entry struct {
	Chip            func() *sensor.Chip
	DetectGroup     string
	DiscoverOptions func() []detect.DiscoverOption
	// DumpPages lists the register pages of a full dump.
	DumpPages []byte
}

var known = map[string]Entry{
	tp9950.Name: {
		Chip:            tp9950.Chip,
		DetectGroup:     tp9950.DetectGroup,
		DiscoverOptions: tp9950.DiscoverOptions,
		DumpPages:       []byte{0x00},
	},
	tp2854b.Name: {
		Chip:            tp2854b.Chip,
		DetectGroup:     tp2854b.DetectGroup,
		DiscoverOptions: tp2854b.DiscoverOptions,
		DumpPages:       tp2854b.DumpPages,
	},
}

func Lookup(name string) (Entry, error) {
	e, ok := known[strings.ToLower(name)]
	if !ok {
		return Entry{}, fmt.Errorf("chips: unknown chip %q (known: %s): %w", name, strings.Join(Names(), ", "), vdec.ErrConfigMissing)
	}
	return e, nil
}

func Names() []string {
	names := make([]string, 0, len(known))
	for n := range known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
