package bill

import (
	"context"
	"fmt"
	"sync"
)

// Routes the controller navigates to
const (
	RouteBills   = "#employee/bills"
	RouteNewBill = "#employee/bill/new"
)

// IdentityProvider resolves the logged-in employee
type IdentityProvider interface {
	CurrentEmail() (string, error)
}

// Navigator moves the UI to another view
type Navigator interface {
	GoTo(route string)
}

// View is the part of the form the controller drives directly
type View interface {
	ClearFileInput()
	ShowFileError(reason string)
	HideFileError()
}

// State is where the controller stands in the submission flow
type State int

const (
	StateIdle State = iota
	StateUploading
	StateReady
	StateSubmitting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// UploadTask tracks a receipt upload running in the background
type UploadTask struct {
	done   chan struct{}
	result *PendingUpload
	err    error
}

// Done is closed once the upload finished
func (t *UploadTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the upload finished or ctx is done
func (t *UploadTask) Wait(ctx context.Context) (*PendingUpload, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Controller drives one bill draft from receipt selection to submission.
// It lives as long as the new bill form.
type Controller struct {
	store     Store
	identity  IdentityProvider
	navigator Navigator
	view      View
	uploads   *UploadCoordinator

	mu       sync.Mutex
	state    State
	inflight int
}

// NewController creates a Controller in the idle state
func NewController(store Store, identity IdentityProvider, navigator Navigator, view View) *Controller {
	return &Controller{
		store:     store,
		identity:  identity,
		navigator: navigator,
		view:      view,
		uploads:   NewUploadCoordinator(store),
		state:     StateIdle,
	}
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingUpload returns the latest successful upload, or nil
func (c *Controller) PendingUpload() *PendingUpload {
	return c.uploads.Snapshot()
}

// HandleChangeFile handles a new receipt selection. Rejected files clear the
// input and show an error; accepted ones are uploaded in the background and
// the returned task reports the outcome. The task is nil for rejected files.
func (c *Controller) HandleChangeFile(ctx context.Context, file Attachment) (Validation, *UploadTask) {
	v := ValidateAttachment(file.Name)
	if !v.Accepted {
		c.view.ClearFileInput()
		c.view.ShowFileError(v.Reason)
		return v, nil
	}
	c.view.HideFileError()

	file.Name = v.Name
	if file.ContentType == "" {
		file.ContentType = ContentTypeFor(v.Name)
	}

	task := &UploadTask{done: make(chan struct{})}

	email, err := c.identity.CurrentEmail()
	if err != nil {
		task.err = fmt.Errorf("resolving session: %w", err)
		close(task.done)
		return v, task
	}

	c.mu.Lock()
	c.inflight++
	if c.state == StateIdle || c.state == StateReady {
		c.state = StateUploading
	}
	c.mu.Unlock()

	// uploads run to completion even if the caller gives up
	uploadCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(task.done)
		task.result, task.err = c.uploads.Upload(uploadCtx, file, email)

		c.mu.Lock()
		c.inflight--
		if c.inflight == 0 && c.state == StateUploading {
			c.state = StateReady
		}
		c.mu.Unlock()
	}()

	return v, task
}

// HandleSubmit assembles the bill from form and whatever upload has finished
// at this moment, then persists it with exactly one store update. It does not
// wait for uploads still in flight and does not check the form values. Store
// errors are returned unchanged and leave the controller ready for another
// attempt; on success the navigator is sent to the bills list.
func (c *Controller) HandleSubmit(ctx context.Context, form FormValues) (*Bill, error) {
	pending := c.uploads.Snapshot()

	email, err := c.identity.CurrentEmail()
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	b := Assemble(form, pending, email)

	c.setState(StateSubmitting)
	saved, err := c.store.Update(ctx, b)
	if err != nil {
		c.mu.Lock()
		if c.inflight > 0 {
			c.state = StateUploading
		} else {
			c.state = StateReady
		}
		c.mu.Unlock()
		return nil, err
	}

	c.setState(StateDone)
	c.navigator.GoTo(RouteBills)
	return saved, nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
