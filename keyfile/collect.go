package keyfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/dialog"
)

// Outcome is how the passphrase conversation ended.
type Outcome int

const (
	Provided Outcome = iota
	Cancelled
	Mismatched
	NoDialogTool
)

func (o Outcome) String() string {
	switch o {
	case Provided:
		return "provided"
	case Cancelled:
		return "cancelled"
	case Mismatched:
		return "mismatched"
	case NoDialogTool:
		return "no-dialog-tool"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// CancelReason tells apart the two ways a user can back out.
type CancelReason int

const (
	// Declined means the rationale dialog was answered with no.
	Declined CancelReason = iota + 1
	// EmptyPassphrase means the passphrase dialog was dismissed or left blank.
	EmptyPassphrase
)

// Result is the outcome plus the secret when one was provided.
type Result struct {
	Outcome Outcome
	Reason  CancelReason
	Secret  string
}

// CollectPassphrase explains why the passphrase is needed, asks for it and
// asks again to confirm. Surrounding whitespace is trimmed from both entries.
// The returned error is only set when a dialog could not be shown at all.
func CollectPassphrase(ctx context.Context, tool dialog.Tool) (Result, error) {
	if tool == nil {
		return Result{Outcome: NoDialogTool}, nil
	}

	ok, err := tool.Confirm(ctx, constants.InfoTitle, constants.InfoText)
	if err != nil {
		return Result{}, fmt.Errorf("showing information dialog with %s: %w", tool.Name(), err)
	}
	if !ok {
		return Result{Outcome: Cancelled, Reason: Declined}, nil
	}

	first, ok, err := tool.PromptSecret(ctx, constants.PassphraseTitle, constants.PassphrasePrompt)
	if err != nil {
		return Result{}, fmt.Errorf("asking for passphrase with %s: %w", tool.Name(), err)
	}
	passphrase := strings.TrimSpace(first)
	if !ok || passphrase == "" {
		return Result{Outcome: Cancelled, Reason: EmptyPassphrase}, nil
	}

	second, ok, err := tool.PromptSecret(ctx, constants.ConfirmTitle, constants.ConfirmPrompt)
	if err != nil {
		return Result{}, fmt.Errorf("asking for passphrase confirmation with %s: %w", tool.Name(), err)
	}
	if !ok || strings.TrimSpace(second) != passphrase {
		return Result{Outcome: Mismatched}, nil
	}

	return Result{Outcome: Provided, Secret: passphrase}, nil
}
