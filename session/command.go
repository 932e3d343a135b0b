package session

import "github.com/ltwin/communication-translator/types"

// Command is a typed UI action consumed by Controller.Dispatch.
type Command interface {
	command()
}

// Submit requests a translation of Content in the current mode.
// It is a no-op while a session is active.
type Submit struct {
	Content string
}

// ChangeDirection sets the direction mode. A nil Mode cycles to the next one.
type ChangeDirection struct {
	Mode *types.Mode
}

// ToggleTheme switches between the light and dark theme.
type ToggleTheme struct{}

// Copy exports the accumulated output through the configured exporter.
type Copy struct{}

func (Submit) command()          {}
func (ChangeDirection) command() {}
func (ToggleTheme) command()     {}
func (Copy) command()            {}
