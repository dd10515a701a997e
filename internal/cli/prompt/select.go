package prompt

import (
	"strings"

	"github.com/manifoldco/promptui"
)

// SelectOption is one entry of a Select list.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

var optionTemplates = &promptui.SelectTemplates{
	Label:    "{{ . }}",
	Active:   "▸ {{ .Label | cyan }}",
	Inactive: "  {{ .Label }}",
	Selected: "{{ .Label | green }}",
	Details:  `{{ with .Description }}{{ . | faint }}{{ end }}`,
}

// Select asks the user to pick one option and returns its Value.
func Select(label string, options []SelectOption) (string, error) {
	i, _, err := (&promptui.Select{
		Label:     label,
		Items:     options,
		Templates: optionTemplates,
		Size:      len(options),
	}).Run()
	if err != nil {
		if IsAborted(err) {
			return "", ErrAborted
		}
		return "", err
	}
	return options[i].Value, nil
}

// SelectString asks the user to pick one of items.
func SelectString(label string, items []string) (string, error) {
	options := make([]SelectOption, len(items))
	for i, item := range items {
		options[i] = SelectOption{Label: item, Value: item}
	}
	return Select(label, options)
}

// Confirm asks a yes/no question. An empty answer returns def.
func Confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	s, err := run(promptui.Prompt{Label: label + " [" + hint + "]"})
	if err != nil {
		return false, err
	}
	return parseAnswer(s, def), nil
}

// ConfirmWithForce skips the question when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

func parseAnswer(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}
