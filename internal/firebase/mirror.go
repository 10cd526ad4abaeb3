package firebase

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/wemake-app/wemake-api/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreMirror is a RemoteTaskStore that keeps a copy of tasks and
// proposals in Firestore, keyed by the same ids as the primary store.
type FirestoreMirror struct {
	client *firestore.Client
	now    func() time.Time
}

func NewFirestoreMirror(client *firestore.Client) *FirestoreMirror {
	return &FirestoreMirror{client: client, now: time.Now}
}

func (m *FirestoreMirror) Name() string {
	return "firestore"
}

// UpsertTask writes the whole document on first sight and merges only the
// content fields afterwards. A proposal document with the same id is dropped
// since the proposal has been approved.
func (m *FirestoreMirror) UpsertTask(ctx context.Context, task *models.Task) error {
	ref := m.client.Collection(tasksCollection).Doc(task.ID)
	doc := NewTaskDocument(task, m.now())

	proposalRef := m.client.Collection(proposalsCollection).Doc(task.ID)

	err := m.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		exists, err := documentExists(tx, ref)
		if err != nil {
			return err
		}
		if err := tx.Delete(proposalRef); err != nil {
			return err
		}
		if !exists {
			return tx.Set(ref, doc)
		}
		return tx.Set(ref, doc, firestore.Merge(fieldPaths(taskContentFields)...))
	})
	if err != nil {
		return fmt.Errorf("firestore: upsert task %s: %w", task.ID, err)
	}
	return nil
}

// UpsertProposal writes the proposal unless a task with the same id exists,
// which means the proposal was already approved.
func (m *FirestoreMirror) UpsertProposal(ctx context.Context, proposal *models.TaskProposal) error {
	taskRef := m.client.Collection(tasksCollection).Doc(proposal.ID)
	ref := m.client.Collection(proposalsCollection).Doc(proposal.ID)
	doc := NewProposalDocument(proposal, m.now())

	err := m.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		approved, err := documentExists(tx, taskRef)
		if err != nil {
			return err
		}
		if approved {
			return nil
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return fmt.Errorf("firestore: upsert proposal %s: %w", proposal.ID, err)
	}
	return nil
}

// DeleteTask removes the task document. Deleting a missing document succeeds.
func (m *FirestoreMirror) DeleteTask(ctx context.Context, id string) error {
	if _, err := m.client.Collection(tasksCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore: delete task %s: %w", id, err)
	}
	return nil
}

func (m *FirestoreMirror) DeleteProposal(ctx context.Context, id string) error {
	if _, err := m.client.Collection(proposalsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore: delete proposal %s: %w", id, err)
	}
	return nil
}

func documentExists(tx *firestore.Transaction, ref *firestore.DocumentRef) (bool, error) {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return snap.Exists(), nil
}

func fieldPaths(fields []string) []firestore.FieldPath {
	paths := make([]firestore.FieldPath, 0, len(fields))
	for _, f := range fields {
		paths = append(paths, firestore.FieldPath{f})
	}
	return paths
}
