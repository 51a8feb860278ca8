package main

import (
	"context"
	"fmt"
)

type change struct {
	typ     ActivityType
	details string
}

// Changeset collects the activity a write wants recorded once it commits.
type Changeset struct {
	entries []change
}

func (c *Changeset) Add(typ ActivityType, format string, args ...any) {
	c.entries = append(c.entries, change{typ: typ, details: fmt.Sprintf(format, args...)})
}

func (c *Changeset) Len() int { return len(c.entries) }

// WriteFunc mutates through tx only. Returning an error rolls back everything it did.
type WriteFunc func(ctx context.Context, tx *Store, changes *Changeset) error

// Guard is the single path for board mutations: it checks the principal's
// level, runs the operation in one transaction and records activity after
// commit.
type Guard struct {
	store    *Store
	access   *Evaluator
	activity *Recorder
}

func NewGuard(store *Store, access *Evaluator, activity *Recorder) *Guard {
	return &Guard{store: store, access: access, activity: activity}
}

// Write requires edit or owner level on boardID.
func (g *Guard) Write(ctx context.Context, p Principal, boardID int64, op WriteFunc) error {
	return g.run(ctx, p, boardID, LevelEdit, op)
}

// OwnerWrite requires the principal to own boardID.
func (g *Guard) OwnerWrite(ctx context.Context, p Principal, boardID int64, op WriteFunc) error {
	return g.run(ctx, p, boardID, LevelOwner, op)
}

func (g *Guard) run(ctx context.Context, p Principal, boardID int64, want Level, op WriteFunc) error {
	if _, err := g.access.Require(ctx, p, boardID, want); err != nil {
		return err
	}
	var changes Changeset
	err := g.store.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		return op(ctx, tx, &changes)
	})
	if err != nil {
		return err
	}
	g.flush(ctx, boardID, p.ID, &changes)
	return nil
}

// NewBoard runs op, which creates a board owned by p, and records its
// activity against the returned board id.
func (g *Guard) NewBoard(ctx context.Context, p Principal, op func(ctx context.Context, tx *Store, changes *Changeset) (int64, error)) (int64, error) {
	var (
		changes Changeset
		boardID int64
	)
	err := g.store.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		id, err := op(ctx, tx, &changes)
		boardID = id
		return err
	})
	if err != nil {
		return 0, err
	}
	g.flush(ctx, boardID, p.ID, &changes)
	return boardID, nil
}

func (g *Guard) flush(ctx context.Context, boardID, userID int64, changes *Changeset) {
	ctx = context.WithoutCancel(ctx)
	for _, c := range changes.entries {
		g.activity.RecordBestEffort(ctx, boardID, userID, c.typ, c.details)
	}
}

// MoveCard moves a card to targetListID at newIndex. The target list must
// be on the card's board; it is only looked at once write access is granted.
func (g *Guard) MoveCard(ctx context.Context, p Principal, cardID, targetListID int64, newIndex int) (Card, error) {
	boardID, fromList, err := g.store.BoardAndListByCard(ctx, cardID)
	if err != nil {
		return Card{}, err
	}
	var moved Card
	err = g.Write(ctx, p, boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		if targetListID <= 0 {
			return badRequest("target_list_id is required")
		}
		targetBoard, err := tx.BoardIDByList(ctx, targetListID)
		if err != nil {
			return err
		}
		if targetBoard != boardID {
			return badRequest("target list belongs to another board")
		}
		moved, err = tx.MoveCard(ctx, cardID, targetListID, newIndex)
		if err != nil {
			return err
		}
		changes.Add(ActivityCardMoved, "moved card %q from list %d to list %d", moved.Title, fromList, targetListID)
		return nil
	})
	return moved, err
}
