// Package prompt asks for configuration values on the terminal.
package prompt

import (
	"errors"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err comes from an interrupted prompt.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}

func run(p promptui.Prompt) (string, error) {
	result, err := p.Run()
	if err != nil && IsAborted(err) {
		return "", ErrAborted
	}
	return result, err
}

// Input asks for free text, offering def as the default.
func Input(label, def string) (string, error) {
	return run(promptui.Prompt{Label: label, Default: def})
}

// InputRequired asks for text that may not be empty.
func InputRequired(label string) (string, error) {
	return run(promptui.Prompt{Label: label, Validate: required})
}

// InputOptional asks for text that may be left empty.
func InputOptional(label string) (string, error) {
	return run(promptui.Prompt{Label: label + " (optional)"})
}

// Password asks for a secret without echoing it.
func Password(label string) (string, error) {
	return run(promptui.Prompt{Label: label, Mask: '*'})
}

// InputInt asks for a non-negative integer.
func InputInt(label string, def int) (int, error) {
	s, err := run(promptui.Prompt{Label: label, Default: strconv.Itoa(def), Validate: nonNegativeInt})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// InputPort asks for a TCP port.
func InputPort(label string, def int) (int, error) {
	s, err := run(promptui.Prompt{Label: label, Default: strconv.Itoa(def), Validate: port})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// InputDuration asks for a Go duration such as "5ms" or "1m". "0" is
// accepted.
func InputDuration(label string, def time.Duration) (time.Duration, error) {
	s, err := run(promptui.Prompt{Label: label, Default: def.String(), Validate: duration})
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(s)
}
