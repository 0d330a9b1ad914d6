package console

import (
	"fmt"
	"io"
	"os"
)

const PictoCamera = "📷"
const PictoPlug = "🔌"
const PictoNoCamera = "🚫"
const PictoChip = "🔎"
const PictoPower = "⚡"
const PictoStream = "🎞"
const PictoPin = "📌"
const PictoKnob = "🎛"
const PictoAntenna = "📶"
const PictoNotebook = "📒"

var writer io.Writer
var errWriter io.Writer

func init() {
	writer = os.Stdout
	errWriter = os.Stderr
}

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Errorf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", Faint("..."), fmt.Sprintf(msg, args...))
}

// Writer returns the console output, e.g. for tabular listings.
func Writer() io.Writer {
	return writer
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
