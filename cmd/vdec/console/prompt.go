package console

import (
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

// Confirm asks a yes/no question defaulting to no. Ctrl-C and a closed
// input both count as no.
func Confirm(question string) (bool, error) {
	answer, err := Prompt(question, No, Yes)
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return answer == Yes, nil
}

// Prompt reads one line. With constraints the first one is the default and
// answers outside the set fall back to it.
func Prompt(question string, constraints ...string) (string, error) {
	rl, err := readline.New(promptText(question, constraints))
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()
	response, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return pick(response, constraints), nil
}

func promptText(question string, constraints []string) string {
	if len(constraints) == 0 {
		return question
	}
	opts := slices.Clone(constraints)
	opts[0] = strings.ToUpper(opts[0])
	return question + " [" + strings.Join(opts, "/") + "]: "
}

func pick(response string, constraints []string) string {
	if len(constraints) == 0 {
		return response
	}
	normalized := strings.ToLower(strings.TrimSpace(response))
	if slices.Contains(constraints, normalized) {
		return normalized
	}
	return constraints[0]
}
