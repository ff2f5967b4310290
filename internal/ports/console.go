package ports

// Console is everything the workflows say to and ask from the operator
type Console interface {
	Ask(prompt string) (string, error)
	// Confirm returns true only for an affirmative answer (y, yes)
	Confirm(prompt string) (bool, error)

	Section(title string)
	Step(current, total int, msg string)
	Success(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Highlight(label, value string)
	Print(text string)
}
