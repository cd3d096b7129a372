package app

import (
	"context"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/domain"
	"github.com/aussiebroadwan/sqrl/pkg/slogx"
)

// RejectURL is where the demo question sends users who press No.
const RejectURL = "/NoMessagePage"

// DemoQuestion asks the user to confirm before a login on an Ask path
// completes.
func DemoQuestion(ctx context.Context, path, _ string) *domain.AskQuestion {
	slogx.FromContext(ctx).Debug("sqrl: attaching demo question", "path", path)
	return &domain.AskQuestion{
		Message: "Do you want to log in and read your messages?",
		Button1: &domain.AskButton{Label: "Yes"},
		Button2: &domain.AskButton{Label: "No", URL: RejectURL},
	}
}

// AcceptFirstButton treats button 1 as consent and anything else as a refusal.
func AcceptFirstButton(_ context.Context, _, _ string, button int) bool {
	return button == 1
}
