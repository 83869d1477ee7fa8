// Package bulk applies one administrative action to a selection of
// certificates as a single unit.
package bulk

import (
	"certhub/models"
	"certhub/repository"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrEmptySelection   = errors.New("empty selection")
	ErrNoAction         = errors.New("no action")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidAction    = errors.New("invalid action")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNothingToExport  = errors.New("nothing to export")
	ErrDatabase         = errors.New("database error")
)

// Message is the user-facing text for an executor error. Unknown errors are
// reported as a database failure.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmptySelection):
		return "Please select at least one certificate."
	case errors.Is(err, ErrNoAction):
		return "Please select an action."
	case errors.Is(err, ErrInvalidSelection):
		return "Invalid certificate selection."
	case errors.Is(err, ErrInvalidAction):
		return "Invalid action selected."
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized!"
	case errors.Is(err, ErrNothingToExport):
		return "No certificates found for export."
	default:
		return "A database error occurred. No changes were made."
	}
}

// Principal is the caller identity resolved for this request.
type Principal interface {
	Authenticated() bool
}

// FileStore removes certificate artifacts after a delete commits.
type FileStore interface {
	Exists(path string) bool
	Delete(path string) error
}

type Outcome struct {
	Action   Action
	Affected int64
	Message  string
	Export   *Document
}

type Executor struct {
	store *repository.CertificateRepository
	files FileStore
	now   func() time.Time
}

func NewExecutor(store *repository.CertificateRepository, files FileStore) *Executor {
	return &Executor{store: store, files: files, now: time.Now}
}

// Execute runs sel for who. Status changes and deletes commit atomically;
// file cleanup for deletes happens after commit and never fails the call.
func (e *Executor) Execute(ctx context.Context, who Principal, sel Selection) (*Outcome, error) {
	if who == nil || !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	if sel.Action == nil {
		return nil, ErrNoAction
	}
	if len(sel.IDs) == 0 {
		return nil, ErrInvalidSelection
	}
	return sel.Action.dispatch(ctx, e, sel.IDs)
}

func (e *Executor) activate(ctx context.Context, ids []uint) (*Outcome, error) {
	return e.setStatus(ctx, Activate, ids, models.CertificateActive, "activated")
}

func (e *Executor) revoke(ctx context.Context, ids []uint) (*Outcome, error) {
	return e.setStatus(ctx, Revoke, ids, models.CertificateRevoked, "revoked")
}

func (e *Executor) setStatus(ctx context.Context, action Action, ids []uint, status models.CertificateStatus, verb string) (*Outcome, error) {
	var affected int64
	err := e.store.Transaction(ctx, func(tx *repository.CertificateRepository) error {
		n, err := tx.UpdateStatus(ctx, ids, status)
		affected = n
		return err
	})
	if err != nil {
		log.Printf("[BULK] %s of %d certificate(s) rolled back: %v", action.Name(), len(ids), err)
		return nil, errors.Wrap(ErrDatabase, err.Error())
	}

	log.Printf("[BULK] %s %d of %d selected certificate(s)", verb, affected, len(ids))
	return &Outcome{
		Action:   action,
		Affected: affected,
		Message:  fmt.Sprintf("Successfully %s %d certificate(s).", verb, affected),
	}, nil
}

func (e *Executor) remove(ctx context.Context, ids []uint) (*Outcome, error) {
	var (
		affected int64
		files    []string
	)
	err := e.store.Transaction(ctx, func(tx *repository.CertificateRepository) error {
		n, paths, err := tx.DeleteByIDs(ctx, ids)
		affected, files = n, paths
		return err
	})
	if err != nil {
		log.Printf("[BULK] delete of %d certificate(s) rolled back: %v", len(ids), err)
		return nil, errors.Wrap(ErrDatabase, err.Error())
	}

	RemoveFiles(e.files, files)

	log.Printf("[BULK] deleted %d of %d selected certificate(s)", affected, len(ids))
	return &Outcome{
		Action:   Delete,
		Affected: affected,
		Message:  fmt.Sprintf("Successfully deleted %d certificate(s) and associated files.", affected),
	}, nil
}

func (e *Executor) export(ctx context.Context, ids []uint) (*Outcome, error) {
	rows, err := e.store.Find(ctx, repository.CertificateFilter{IDs: ids, OrderBy: "created_at desc"})
	if err != nil {
		log.Printf("[BULK] export of %d certificate(s) failed: %v", len(ids), err)
		return nil, errors.Wrap(ErrDatabase, err.Error())
	}
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}

	return &Outcome{
		Action:   Export,
		Affected: int64(len(rows)),
		Message:  fmt.Sprintf("Exported %d certificate(s).", len(rows)),
		Export:   &Document{Filename: ExportFilename(e.now()), Rows: rows},
	}, nil
}

// RemoveFiles deletes each existing path, logging failures. The database is
// the record of truth, so nothing here is reported to the caller.
func RemoveFiles(files FileStore, paths []string) {
	if files == nil {
		return
	}
	for _, p := range paths {
		if !files.Exists(p) {
			continue
		}
		if err := files.Delete(p); err != nil {
			log.Printf("[BULK] could not remove %s: %v", p, err)
		}
	}
}
