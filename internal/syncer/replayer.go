// Package syncer pushes dirty local cache rows to the remote task stores.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/wemake-app/wemake-api/internal/localcache"
	"github.com/wemake-app/wemake-api/internal/repository"
)

// Outbox is the part of the local cache the replayer drives.
type Outbox interface {
	ListPending(ctx context.Context, limit int) ([]localcache.TaskRecord, error)
	MarkSynced(ctx context.Context, id string, revision int64) (bool, error)
	RecordFailure(ctx context.Context, id string, cause error) error
	MarkDeleted(ctx context.Context, id, boardID string, isProposal bool) error
	Purge(ctx context.Context, id string, revision int64) (bool, error)
	Discard(ctx context.Context, id string) error
}

// RowError describes a row that failed to push.
type RowError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Report summarizes one replay pass.
type Report struct {
	Scanned    int        `json:"scanned"`
	Pushed     int        `json:"pushed"`
	StillDirty int        `json:"still_dirty"`
	Failed     int        `json:"failed"`
	Rejected   int        `json:"rejected"`
	Errors     []RowError `json:"errors,omitempty"`
}

type Replayer struct {
	outbox  Outbox
	targets []repository.RemoteTaskStore
	batch   int
}

// New creates a replayer that pushes up to batch rows per pass to every target.
func New(outbox Outbox, batch int, targets ...repository.RemoteTaskStore) *Replayer {
	if batch <= 0 {
		batch = 50
	}
	return &Replayer{outbox: outbox, targets: targets, batch: batch}
}

// RunOnce scans dirty rows and pushes each one independently. A failing row is
// recorded and skipped; it never stops the rest of the batch.
func (r *Replayer) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	records, err := r.outbox.ListPending(ctx, r.batch)
	if err != nil {
		return report, fmt.Errorf("failed to scan local cache: %w", err)
	}
	report.Scanned = len(records)

	for i := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rec := &records[i]
		synced, err := r.Flush(ctx, rec)
		switch {
		case errors.Is(err, repository.ErrRecordDeleted), errors.Is(err, repository.ErrOwnerMismatch):
			report.Rejected++
			report.Errors = append(report.Errors, RowError{ID: rec.ID, Error: err.Error()})
		case err != nil:
			report.Failed++
			report.Errors = append(report.Errors, RowError{ID: rec.ID, Error: err.Error()})
		case synced:
			report.Pushed++
		default:
			report.StillDirty++
		}
	}

	if report.Scanned > 0 {
		log.Printf("Sync pass: scanned=%d pushed=%d dirty=%d failed=%d rejected=%d",
			report.Scanned, report.Pushed, report.StillDirty, report.Failed, report.Rejected)
	}
	return report, nil
}

// Flush pushes one row to every target. It reports whether the row was marked
// clean; a row edited since it was read stays dirty for the next pass.
//
// A row whose id was deleted upstream becomes a delete marker so the
// remaining targets drop it too. A row that would overwrite someone else's
// record is discarded.
func (r *Replayer) Flush(ctx context.Context, rec *localcache.TaskRecord) (bool, error) {
	err := r.push(ctx, rec)
	switch {
	case errors.Is(err, repository.ErrRecordDeleted):
		if markErr := r.outbox.MarkDeleted(ctx, rec.ID, rec.BoardID, rec.IsProposal); markErr != nil {
			log.Printf("Failed to mark %s deleted: %v", rec.ID, markErr)
		}
		return false, err
	case errors.Is(err, repository.ErrOwnerMismatch):
		log.Printf("Discarding cached row %s: %v", rec.ID, err)
		if discardErr := r.outbox.Discard(ctx, rec.ID); discardErr != nil {
			log.Printf("Failed to discard %s: %v", rec.ID, discardErr)
		}
		return false, err
	case err != nil:
		if recErr := r.outbox.RecordFailure(ctx, rec.ID, err); recErr != nil {
			log.Printf("Failed to record sync failure for %s: %v", rec.ID, recErr)
		}
		return false, err
	}

	if rec.Deleted {
		return r.outbox.Purge(ctx, rec.ID, rec.Revision)
	}
	return r.outbox.MarkSynced(ctx, rec.ID, rec.Revision)
}

// push stops at the first target that refuses the row outright so a rejected
// write never reaches the mirrors behind it.
func (r *Replayer) push(ctx context.Context, rec *localcache.TaskRecord) error {
	var errs []error
	for _, target := range r.targets {
		err := pushTo(ctx, target, rec)
		if err == nil {
			continue
		}
		err = fmt.Errorf("%s: %w", target.Name(), err)
		if errors.Is(err, repository.ErrRecordDeleted) || errors.Is(err, repository.ErrOwnerMismatch) {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func pushTo(ctx context.Context, target repository.RemoteTaskStore, rec *localcache.TaskRecord) error {
	switch {
	case rec.Deleted && rec.IsProposal:
		return target.DeleteProposal(ctx, rec.ID)
	case rec.Deleted:
		return target.DeleteTask(ctx, rec.ID)
	case rec.IsProposal:
		return target.UpsertProposal(ctx, rec.Proposal())
	default:
		return target.UpsertTask(ctx, rec.Task())
	}
}
