package tiers

import (
	"errors"
	"strings"
)

// Mode is the state of the editor for one category.
type Mode string

const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
	ModeSaving  Mode = "saving"
)

// NewRowID marks the create form as the row being edited.
const NewRowID = "new"

// ErrSaveInFlight is returned when a save starts while another one is pending.
var ErrSaveInFlight = errors.New("tiers: save already in progress")

// Editor tracks which row of a category is being edited. At most one row is
// in editing or saving at a time; starting an edit elsewhere discards the
// pending draft. Editor holds no rendering or transport concerns.
type Editor struct {
	mode   Mode
	rowID  string
	input  FormInput
	fields []FieldError
	err    error
	// rejected marks input as a submission that failed to save.
	rejected bool
}

// EditorState is the part of an Editor that survives between requests. Draft
// is set only while the open row holds a rejected submission.
type EditorState struct {
	RowID string     `json:"rowId,omitempty"`
	Draft *FormInput `json:"draft,omitempty"`
}

// NewEditor returns an editor in viewing mode.
func NewEditor() *Editor {
	return &Editor{mode: ModeViewing}
}

// RestoreEditor rebuilds an editor from persisted state. A restored row is
// in editing mode. Without a rejected draft the input is empty and callers
// reload it from the store; field errors are never persisted.
func RestoreEditor(state EditorState) *Editor {
	e := NewEditor()
	id := strings.TrimSpace(state.RowID)
	if id == "" {
		return e
	}
	e.mode = ModeEditing
	e.rowID = id
	if state.Draft != nil {
		e.input = *state.Draft
		e.rejected = true
	}
	return e
}

// State returns the persistable part of the editor.
func (e *Editor) State() EditorState {
	if e.mode == ModeViewing {
		return EditorState{}
	}
	state := EditorState{RowID: e.rowID}
	if e.rejected {
		draft := e.input
		state.Draft = &draft
	}
	return state
}

// Rejected reports whether the input is a submission that failed to save.
func (e *Editor) Rejected() bool { return e.rejected }

func (e *Editor) Mode() Mode       { return e.mode }
func (e *Editor) RowID() string    { return e.rowID }
func (e *Editor) Input() FormInput { return e.input }
func (e *Editor) Err() error       { return e.err }

// FieldErrors returns every field error of the last failed save.
func (e *Editor) FieldErrors() []FieldError {
	out := make([]FieldError, len(e.fields))
	copy(out, e.fields)
	return out
}

// FieldError returns the first error reported for field, if any.
func (e *Editor) FieldError(field string) (FieldError, bool) {
	for _, fe := range e.fields {
		if fe.Field == field {
			return fe, true
		}
	}
	return FieldError{}, false
}

// Editing reports whether rowID is the row currently open in the editor.
func (e *Editor) Editing(rowID string) bool {
	return e.mode != ModeViewing && e.rowID == rowID
}

// Busy reports whether some row other than rowID holds an unsaved draft.
func (e *Editor) Busy(rowID string) bool {
	return e.mode != ModeViewing && e.rowID != rowID
}

// BeginEdit opens rowID with the given draft. It reports whether a draft of
// another row was discarded to do so.
func (e *Editor) BeginEdit(rowID string, input FormInput) (discarded bool) {
	discarded = e.Busy(rowID)
	e.mode = ModeEditing
	e.rowID = rowID
	e.input = input
	e.fields = nil
	e.err = nil
	e.rejected = false
	return discarded
}

// BeginSave moves rowID into saving with the submitted draft.
func (e *Editor) BeginSave(rowID string, input FormInput) error {
	if e.mode == ModeSaving {
		return ErrSaveInFlight
	}
	e.mode = ModeSaving
	e.rowID = rowID
	e.input = input
	e.fields = nil
	e.err = nil
	e.rejected = false
	return nil
}

// Succeed closes the editor after a save was persisted.
func (e *Editor) Succeed() {
	e.reset()
}

// Fail returns to editing, keeping the rejected draft populated. Validation
// failures are kept per field; any other error is kept for the notification.
func (e *Editor) Fail(err error) {
	e.mode = ModeEditing
	e.fields = nil
	e.err = err
	e.rejected = true

	var verr *ValidationError
	if errors.As(err, &verr) {
		e.fields = append([]FieldError(nil), verr.Errors...)
		e.err = nil
	}
}

// Cancel drops the draft and returns to viewing.
func (e *Editor) Cancel() {
	e.reset()
}

func (e *Editor) reset() {
	e.mode = ModeViewing
	e.rowID = ""
	e.input = FormInput{}
	e.fields = nil
	e.err = nil
	e.rejected = false
}
