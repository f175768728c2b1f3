package tui

import "github.com/charmbracelet/bubbles/textinput"

// InputField adapts the bubbles text input to the controller's Input. It is
// only touched from the program's update loop.
type InputField struct {
	model *textinput.Model
}

func NewInputField() *InputField {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()
	return &InputField{model: &ti}
}

func (f *InputField) Value() string {
	return f.model.Value()
}

func (f *InputField) Clear() {
	f.model.Reset()
}
