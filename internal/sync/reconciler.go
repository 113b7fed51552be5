// Package sync reconciles the backend's authoritative snapshot into the
// local entity store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"flyte-sync/internal/models"
	"flyte-sync/internal/observability"
	"flyte-sync/internal/rest"
	"flyte-sync/internal/store"
)

// BackendClient is the slice of the REST client the reconciler consumes.
type BackendClient interface {
	RoomsAndMessages(ctx context.Context, userID string) ([]models.RoomWithMessages, error)
	RoomMessages(ctx context.Context, roomID string) ([]models.APIMessage, error)
	CreateJourney(ctx context.Context, req models.JourneyRequest) (models.JourneyResponse, error)
}

// Summary reports what a reconciliation run changed.
type Summary struct {
	RoomsUpserted    int `json:"rooms_upserted"`
	MessagesInserted int `json:"messages_inserted"`
	RoomsDeleted     int `json:"rooms_deleted"`
}

// Reconciler merges backend snapshots into the store. It never partially
// applies a snapshot: either the whole merge commits or nothing changes.
type Reconciler struct {
	store   *store.Store
	backend BackendClient
}

// New builds a Reconciler.
func New(st *store.Store, backend BackendClient) *Reconciler {
	return &Reconciler{store: st, backend: backend}
}

// Sync performs an upsert-merge: rooms are created or updated in place,
// messages are inserted only when their id is unseen, and nothing local
// is deleted.
func (r *Reconciler) Sync(ctx context.Context, userID string) (Summary, error) {
	return r.run(ctx, userID, false)
}

// FullResync additionally drops local rooms the server no longer
// reports, inside the same transaction as the upserts.
func (r *Reconciler) FullResync(ctx context.Context, userID string) (Summary, error) {
	return r.run(ctx, userID, true)
}

func (r *Reconciler) run(ctx context.Context, userID string, fullReplace bool) (Summary, error) {
	mode := "merge"
	if fullReplace {
		mode = "full_replace"
	}

	if strings.TrimSpace(userID) == "" {
		observability.IncSyncRun(mode, "unauthorized")
		return Summary{}, fmt.Errorf("%w: empty user id", rest.ErrUnauthorized)
	}

	snapshot, err := r.backend.RoomsAndMessages(ctx, userID)
	if err != nil {
		observability.IncSyncRun(mode, outcomeFor(err))
		return Summary{}, fmt.Errorf("fetch snapshot: %w", err)
	}

	var summary Summary
	err = r.store.Tx(ctx, func(txn *store.Txn) error {
		keep := make([]string, 0, len(snapshot))
		for _, item := range snapshot {
			room := item.Room.ToRoom()
			// Parent room first, so message inserts see it.
			if err := txn.UpsertRoom(room); err != nil {
				return err
			}
			summary.RoomsUpserted++
			keep = append(keep, room.ID)

			for _, apiMsg := range item.Messages {
				inserted, err := txn.InsertMessageIfAbsent(apiMsg.ToMessage(room.ID))
				if err != nil {
					return err
				}
				if inserted {
					summary.MessagesInserted++
				}
			}
		}

		if fullReplace {
			deleted, err := txn.DeleteRoomsExcept(keep)
			if err != nil {
				return err
			}
			summary.RoomsDeleted = int(deleted)
		}
		return nil
	})
	if err != nil {
		observability.IncSyncRun(mode, outcomeFor(err))
		return Summary{}, fmt.Errorf("merge snapshot: %w", err)
	}

	observability.IncSyncRun(mode, "ok")
	observability.AddSyncRows("rooms_upserted", summary.RoomsUpserted)
	observability.AddSyncRows("messages_inserted", summary.MessagesInserted)
	observability.AddSyncRows("rooms_deleted", summary.RoomsDeleted)
	log.Printf("sync complete mode=%s rooms=%d messages=%d deleted=%d",
		mode, summary.RoomsUpserted, summary.MessagesInserted, summary.RoomsDeleted)
	return summary, nil
}

// SyncJourney creates a journey upstream and persists its three rooms
// through the same upsert path a snapshot merge uses.
func (r *Reconciler) SyncJourney(ctx context.Context, req models.JourneyRequest) (models.JourneyResponse, error) {
	resp, err := r.backend.CreateJourney(ctx, req)
	if err != nil {
		return models.JourneyResponse{}, fmt.Errorf("create journey: %w", err)
	}

	err = r.store.Tx(ctx, func(txn *store.Txn) error {
		for _, apiRoom := range resp.Rooms() {
			if apiRoom.ID == "" {
				continue
			}
			if err := txn.UpsertRoom(apiRoom.ToRoom()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.JourneyResponse{}, fmt.Errorf("persist journey rooms: %w", err)
	}
	return resp, nil
}

// RoomHistory backfills one room's message history. Inserts are
// idempotent, so overlapping with realtime delivery is safe.
func (r *Reconciler) RoomHistory(ctx context.Context, roomID string) (int, error) {
	msgs, err := r.backend.RoomMessages(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("fetch room history: %w", err)
	}

	inserted := 0
	err = r.store.Tx(ctx, func(txn *store.Txn) error {
		for _, apiMsg := range msgs {
			ok, err := txn.InsertMessageIfAbsent(apiMsg.ToMessage(roomID))
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("merge room history: %w", err)
	}
	return inserted, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, rest.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, rest.ErrParse):
		return "parse"
	case errors.Is(err, rest.ErrNetwork):
		return "network"
	case errors.Is(err, store.ErrConstraintViolation):
		return "constraint"
	default:
		return "error"
	}
}
