package bulk

import (
	"context"
	"strconv"
	"strings"
)

// handler has one method per action. Executor implements it, so a new
// action type cannot be added without the executor handling it.
type handler interface {
	activate(ctx context.Context, ids []uint) (*Outcome, error)
	revoke(ctx context.Context, ids []uint) (*Outcome, error)
	remove(ctx context.Context, ids []uint) (*Outcome, error)
	export(ctx context.Context, ids []uint) (*Outcome, error)
}

// Action is one of Activate, Revoke, Delete or Export.
type Action interface {
	Name() string
	dispatch(ctx context.Context, h handler, ids []uint) (*Outcome, error)
}

type activateAction struct{}
type revokeAction struct{}
type deleteAction struct{}
type exportAction struct{}

func (activateAction) Name() string { return "activate" }
func (revokeAction) Name() string   { return "revoke" }
func (deleteAction) Name() string   { return "delete" }
func (exportAction) Name() string   { return "export" }

func (activateAction) dispatch(ctx context.Context, h handler, ids []uint) (*Outcome, error) {
	return h.activate(ctx, ids)
}

func (revokeAction) dispatch(ctx context.Context, h handler, ids []uint) (*Outcome, error) {
	return h.revoke(ctx, ids)
}

func (deleteAction) dispatch(ctx context.Context, h handler, ids []uint) (*Outcome, error) {
	return h.remove(ctx, ids)
}

func (exportAction) dispatch(ctx context.Context, h handler, ids []uint) (*Outcome, error) {
	return h.export(ctx, ids)
}

var (
	Activate Action = activateAction{}
	Revoke   Action = revokeAction{}
	Delete   Action = deleteAction{}
	Export   Action = exportAction{}
)

var actionsByName = map[string]Action{
	Activate.Name(): Activate,
	Revoke.Name():   Revoke,
	Delete.Name():   Delete,
	Export.Name():   Export,
}

func ParseAction(name string) (Action, error) {
	action, ok := actionsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrInvalidAction
	}
	return action, nil
}

// Selection is a validated bulk request.
type Selection struct {
	Action Action
	IDs    []uint
}

// ParseSelection validates raw form input without touching storage. Checks
// run in order: empty selection, missing action, no usable ids, unknown action.
func ParseSelection(rawIDs []string, actionName string) (Selection, error) {
	if len(rawIDs) == 0 {
		return Selection{}, ErrEmptySelection
	}
	if strings.TrimSpace(actionName) == "" {
		return Selection{}, ErrNoAction
	}

	ids := parseIDs(rawIDs)
	if len(ids) == 0 {
		return Selection{}, ErrInvalidSelection
	}

	action, err := ParseAction(actionName)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Action: action, IDs: ids}, nil
}

// parseIDs keeps positive integers in first-seen order, without duplicates.
func parseIDs(raw []string) []uint {
	seen := make(map[uint]bool, len(raw))
	ids := make([]uint, 0, len(raw))
	for _, r := range raw {
		n, err := strconv.ParseUint(strings.TrimSpace(r), 10, 32)
		if err != nil || n == 0 {
			continue
		}
		id := uint(n)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
