package console

import "github.com/fatih/color"

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Faint  = color.New(color.Faint).SprintFunc()
)

// State colors a state name green when it is the active one and yellow
// otherwise, e.g. power on/off or camera present/absent.
func State(s interface{}, active bool) string {
	if active {
		return Green(s)
	}
	return Yellow(s)
}
