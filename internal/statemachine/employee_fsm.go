package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/sjperalta/advance-portal/internal/models"
)

// EmployeeFSM wraps an employee with its state machine (active --deactivate--> inactive)
type EmployeeFSM struct {
	employee *models.Employee
	fsm      *fsm.FSM
}

// NewEmployeeFSM creates a new employee state machine
func NewEmployeeFSM(employee *models.Employee) *EmployeeFSM {
	ef := &EmployeeFSM{employee: employee}
	ef.fsm = fsm.NewFSM(
		employee.Status,
		fsm.Events{
			{Name: "deactivate", Src: []string{models.EmployeeStatusActive}, Dst: models.EmployeeStatusInactive},
		},
		fsm.Callbacks{},
	)
	return ef
}

// Deactivate transitions the employee to inactive
func (e *EmployeeFSM) Deactivate(ctx context.Context) error {
	if !e.employee.MayDeactivate() {
		return fmt.Errorf("%w: employee cannot be deactivated in state %s", ErrInvalidTransition, e.employee.Status)
	}

	if err := e.fsm.Event(ctx, "deactivate"); err != nil {
		return fmt.Errorf("failed to deactivate employee: %w", err)
	}

	e.employee.Status = e.fsm.Current()
	return nil
}
