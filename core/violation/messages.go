package violation

import "github.com/pkg/errors"

// fallback messages shown when the server gives no better explanation
const (
	msgFetchStudents   = "could not load the students list"
	msgFetchReporters  = "could not load the reporters list"
	msgFetchViolations = "could not load the violations"
	msgFetchViolation  = "could not refresh the violation"
	msgCreate          = "could not record the violations"
	msgDelete          = "could not delete the violation"
	msgToggleStep      = "could not update the procedure step"
	msgToggleTask      = "could not update the procedure task"
	msgSaveNotes       = "could not save the procedure notes"
	msgInvalidPayload  = "the violation form contains errors"

	actionCreate = "recording the violations"
	actionDelete = "deleting the violation"
)

var (
	ErrNotFound         = errors.New("violation not found")
	ErrStepNotFound     = errors.New("procedure step not found")
	ErrMutationInFlight = errors.New("an update for this item is already in progress")
	ErrRepositoryClosed = errors.New("violation repository closed")
)
