package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/thiagokokada/gitdesk/internal/git"
)

type MutationKind string

const (
	MutationCommit   MutationKind = "commit"
	MutationRollback MutationKind = "rollback"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseOpen       Phase = "open"
	PhaseSubmitting Phase = "submitting"
)

var (
	ErrNotOpen = errors.New("workflow is not open")
	// ErrChangesNotLoaded means the displayed change list belongs to another
	// commit than the selected one.
	ErrChangesNotLoaded = errors.New("changed files of the selected commit are not loaded")
)

// MutationRequest is what a submitted workflow sends to the repository.
type MutationRequest struct {
	Kind    MutationKind
	Targets []string
	Message string
	// Commit is the rollback source; empty or the working-set hash means HEAD.
	Commit string
}

func (r MutationRequest) Validate() error {
	switch r.Kind {
	case MutationCommit, MutationRollback:
	default:
		return fmt.Errorf("unknown mutation %q", r.Kind)
	}
	if len(r.Targets) == 0 {
		return ErrNoTargets
	}
	if r.Kind == MutationCommit && strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Workflow is the externally visible state of one mutation workflow.
type Workflow struct {
	Kind       MutationKind `json:"kind"`
	Phase      Phase        `json:"phase"`
	Candidates []string     `json:"candidates,omitempty"`
	Targets    []string     `json:"targets,omitempty"`
	Message    string       `json:"message,omitempty"`
	Commit     string       `json:"commit,omitempty"`
	Error      string       `json:"error,omitempty"`
}

type workflow struct {
	Workflow
	// gen changes whenever the workflow is reopened or reset, so a late
	// submission result cannot touch a newer workflow.
	gen uint64
}

func newWorkflow(kind MutationKind) *workflow {
	return &workflow{Workflow: Workflow{Kind: kind, Phase: PhaseIdle}}
}

func (w *workflow) reset() {
	w.gen++
	w.Workflow = Workflow{Kind: w.Kind, Phase: PhaseIdle}
}

func (w *workflow) view() Workflow {
	out := w.Workflow
	out.Candidates = slices.Clone(w.Candidates)
	out.Targets = slices.Clone(w.Targets)
	return out
}

func (w *workflow) request() MutationRequest {
	return MutationRequest{
		Kind:    w.Kind,
		Targets: slices.Clone(w.Targets),
		Message: w.Message,
		Commit:  w.Commit,
	}
}

// setTargets keeps candidate order and drops duplicates.
func (w *workflow) setTargets(paths []string) error {
	for _, p := range paths {
		if !slices.Contains(w.Candidates, p) {
			return fmt.Errorf("%s is not a candidate", p)
		}
	}
	targets := make([]string, 0, len(paths))
	for _, cand := range w.Candidates {
		if slices.Contains(paths, cand) {
			targets = append(targets, cand)
		}
	}
	w.Targets = targets
	return nil
}

// OpenMutation opens a workflow with every candidate file selected. Commit
// candidates come from the working-set listing; rollback candidates are the
// files changed by the selected commit, and opening fails until that list
// has been fetched for it.
func (c *Controller) OpenMutation(kind MutationKind) error {
	return c.loop.call(func() error {
		wf, err := c.workflow("open", kind)
		if err != nil {
			return err
		}
		if c.submitting() {
			return validationError("open "+string(kind), ErrBusy)
		}
		var candidates []string
		var commit string
		switch kind {
		case MutationCommit:
			candidates = slices.Clone(c.uncommitted)
		case MutationRollback:
			sel := c.sel.Current()
			if sel.ChangeListCommit != sel.CommitHash() {
				return validationError("open "+string(kind), ErrChangesNotLoaded)
			}
			candidates = sel.ChangeList
			commit = sel.CommitHash()
		}
		wf.reset()
		wf.Phase = PhaseOpen
		wf.Candidates = candidates
		wf.Commit = commit
		wf.Targets = slices.Clone(wf.Candidates)
		c.changed()
		return nil
	})
}

func (c *Controller) ToggleTarget(kind MutationKind, path string) error {
	return c.loop.call(func() error {
		wf, err := c.openWorkflow("toggle", kind)
		if err != nil {
			return err
		}
		targets := slices.Clone(wf.Targets)
		if i := slices.Index(targets, path); i >= 0 {
			targets = slices.Delete(targets, i, i+1)
		} else {
			targets = append(targets, path)
		}
		if err := wf.setTargets(targets); err != nil {
			return validationError("toggle", err)
		}
		c.changed()
		return nil
	})
}

func (c *Controller) SetTargets(kind MutationKind, paths []string) error {
	return c.loop.call(func() error {
		wf, err := c.openWorkflow("set targets", kind)
		if err != nil {
			return err
		}
		if err := wf.setTargets(paths); err != nil {
			return validationError("set targets", err)
		}
		c.changed()
		return nil
	})
}

func (c *Controller) SetMessage(kind MutationKind, message string) error {
	return c.loop.call(func() error {
		wf, err := c.openWorkflow("set message", kind)
		if err != nil {
			return err
		}
		wf.Message = message
		c.changed()
		return nil
	})
}

// CancelMutation closes an open workflow. A submission cannot be cancelled.
func (c *Controller) CancelMutation(kind MutationKind) error {
	return c.loop.call(func() error {
		wf, err := c.workflow("cancel", kind)
		if err != nil {
			return err
		}
		if wf.Phase == PhaseSubmitting {
			return validationError("cancel "+string(kind), ErrBusy)
		}
		if wf.Phase == PhaseIdle {
			return nil
		}
		wf.reset()
		c.changed()
		return nil
	})
}

// SubmitMutation validates the open workflow and sends it once pending
// writes to its targets have settled. The outcome is published as a notice
// and reflected in the workflow phase.
func (c *Controller) SubmitMutation(kind MutationKind) error {
	return c.loop.call(func() error {
		wf, err := c.openWorkflow("submit", kind)
		if err != nil {
			return err
		}
		if c.submitting() {
			return validationError("submit "+string(kind), ErrBusy)
		}
		req := wf.request()
		if err := req.Validate(); err != nil {
			return validationError("submit "+string(kind), err)
		}
		wf.Phase = PhaseSubmitting
		wf.Error = ""
		gen := wf.gen
		c.changed()
		c.writer.whenSettled(req.Targets, func() {
			c.runMutation(req, gen)
		})
		return nil
	})
}

func (c *Controller) runMutation(req MutationRequest, gen uint64) {
	slog.Debug("submitting mutation",
		slog.String("kind", string(req.Kind)),
		slog.Int("files", len(req.Targets)),
	)
	call := func(ctx context.Context) (string, error) {
		if req.Kind == MutationCommit {
			hash, err := c.repo.CreateCommit(ctx, req.Targets, req.Message)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Committed %d file(s) as %s", len(req.Targets), shortHash(hash)), nil
		}
		return c.repo.RollbackFiles(ctx, req.Commit, req.Targets)
	}
	fetch(c, call, func(msg string, err error) {
		wf := c.mutations[req.Kind]
		current := wf.gen == gen
		if err != nil {
			e := &Error{Kind: KindMutation, Op: string(req.Kind), Err: err}
			c.notify(errorNotice(e))
			if current {
				wf.Phase = PhaseOpen
				wf.Error = e.Error()
				c.changed()
			}
			return
		}
		c.notify(infoNotice(KindMutation, msg))
		if !current {
			return
		}
		wf.reset()
		c.selectCommit(git.WorkingSet(c.uncommitted))
		c.refresh()
	})
}

func (c *Controller) workflow(op string, kind MutationKind) (*workflow, error) {
	wf, ok := c.mutations[kind]
	if !ok {
		return nil, validationError(op, fmt.Errorf("unknown mutation %q", kind))
	}
	return wf, nil
}

func (c *Controller) openWorkflow(op string, kind MutationKind) (*workflow, error) {
	wf, err := c.workflow(op, kind)
	if err != nil {
		return nil, err
	}
	if wf.Phase == PhaseSubmitting {
		return nil, validationError(op+" "+string(kind), ErrBusy)
	}
	if wf.Phase != PhaseOpen {
		return nil, validationError(op+" "+string(kind), ErrNotOpen)
	}
	return wf, nil
}

func (c *Controller) submitting() bool {
	for _, wf := range c.mutations {
		if wf.Phase == PhaseSubmitting {
			return true
		}
	}
	return false
}
