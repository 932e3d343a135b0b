package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ltwin/communication-translator/session"
)

// Run shows the page until the user quits or ctx ends. The controller is
// closed on return.
func Run(ctx context.Context, ctrl *session.Controller, bridge *Bridge) error {
	defer ctrl.Close()

	p := tea.NewProgram(New(ctx, ctrl, bridge), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
