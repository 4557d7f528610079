package machine

import (
	"fmt"

	"github.com/praetorian-inc/dfamatch/pkg/statemachine"
	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// ValidateMachine checks required fields, table consistency and the
// structural ID.
func ValidateMachine(m *types.Machine) error {
	if m == nil {
		return fmt.Errorf("machine is nil")
	}

	if m.ID == "" {
		return &DescriptorError{Kind: MissingField, Message: "machine ID is required"}
	}
	if m.Name == "" {
		return &DescriptorError{Kind: MissingField, MachineID: m.ID, Message: "machine name is required"}
	}

	if err := statemachine.Validate(m.DFA); err != nil {
		return &DescriptorError{Kind: InvalidTable, MachineID: m.ID, Message: "invalid table", Cause: err}
	}

	if m.StructuralID != "" {
		if expected := m.ComputeStructuralID(); m.StructuralID != expected {
			return &DescriptorError{
				Kind:      InconsistentStructuralID,
				MachineID: m.ID,
				Message:   fmt.Sprintf("inconsistent StructuralID: got %s, expected %s", m.StructuralID, expected),
			}
		}
	}

	return nil
}

// ValidateMachines validates each machine and rejects duplicate IDs.
func ValidateMachines(machines []*types.Machine) error {
	seen := make(map[string]bool, len(machines))
	for _, m := range machines {
		if err := ValidateMachine(m); err != nil {
			return err
		}
		if seen[m.ID] {
			return &DescriptorError{Kind: DuplicateID, MachineID: m.ID, Message: "duplicate machine ID"}
		}
		seen[m.ID] = true
	}
	return nil
}
