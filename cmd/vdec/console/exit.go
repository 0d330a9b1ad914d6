package console

import (
	"errors"
	"fmt"

	"github.com/mklimuk/vdec"
	"github.com/urfave/cli/v2"
)

// Exit codes returned by the vdec commands.
const (
	CodeFailure = 1
	CodeUsage   = 2
)

// usageErrors are the errors caused by what the user asked for rather than
// by the board.
var usageErrors = []error{
	vdec.ErrOutOfRange,
	vdec.ErrUnknownControl,
	vdec.ErrNoMatchingMode,
	vdec.ErrInvalidPowerState,
	vdec.ErrUnsupportedFeature,
}

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// Fail reports a failed operation. Errors caused by invalid input exit with
// CodeUsage, everything else with CodeFailure.
func Fail(what string, err error) cli.ExitCoder {
	return Exit(ExitCode(err), "%s: %s", what, Red(err))
}

func ExitCode(err error) int {
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return CodeUsage
		}
	}
	return CodeFailure
}
