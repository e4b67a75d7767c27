package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/sjperalta/advance-portal/internal/models"
)

// ErrInvalidTransition is returned when an event is not allowed from the current state
var ErrInvalidTransition = errors.New("invalid state transition")

// BorrowerFSM wraps a borrower with its state machine.
//
//	active --complete--> completed
//	active --cancel----> cancelled
//
// completed and cancelled are terminal.
type BorrowerFSM struct {
	borrower *models.Borrower
	fsm      *fsm.FSM
}

// NewBorrowerFSM creates a new borrower state machine
func NewBorrowerFSM(borrower *models.Borrower) *BorrowerFSM {
	bf := &BorrowerFSM{
		borrower: borrower,
	}

	bf.fsm = fsm.NewFSM(
		borrower.Status,
		fsm.Events{
			// outstanding reached zero
			{Name: "complete", Src: []string{models.BorrowerStatusActive}, Dst: models.BorrowerStatusCompleted},

			// soft delete of a live loan
			{Name: "cancel", Src: []string{models.BorrowerStatusActive}, Dst: models.BorrowerStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return bf
}

// CanEdit reports whether administrative corrections are allowed
func (b *BorrowerFSM) CanEdit() bool {
	return b.borrower.MayEdit() && b.fsm.Current() == models.BorrowerStatusActive
}

// Complete transitions the borrower to completed
func (b *BorrowerFSM) Complete(ctx context.Context) error {
	if !b.borrower.MayComplete() {
		return fmt.Errorf("%w: borrower cannot be completed in state %s", ErrInvalidTransition, b.borrower.Status)
	}

	if err := b.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete borrower: %w", err)
	}

	b.borrower.Status = b.fsm.Current()
	return nil
}

// Cancel transitions the borrower to cancelled
func (b *BorrowerFSM) Cancel(ctx context.Context) error {
	if !b.borrower.MayCancel() {
		return fmt.Errorf("%w: borrower cannot be cancelled in state %s", ErrInvalidTransition, b.borrower.Status)
	}

	if err := b.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel borrower: %w", err)
	}

	b.borrower.Status = b.fsm.Current()
	return nil
}

// Current returns the current state
func (b *BorrowerFSM) Current() string {
	return b.fsm.Current()
}
