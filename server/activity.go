package main

import (
	"context"
	"log/slog"
)

type ActivityType string

const (
	ActivityBoardCreated      ActivityType = "board_created"
	ActivityBoardUpdated      ActivityType = "board_updated"
	ActivityMemberAdded       ActivityType = "member_added"
	ActivityMemberUpdated     ActivityType = "member_updated"
	ActivityMemberRemoved     ActivityType = "member_removed"
	ActivityListCreated       ActivityType = "list_created"
	ActivityListUpdated       ActivityType = "list_updated"
	ActivityListMoved         ActivityType = "list_moved"
	ActivityListDeleted       ActivityType = "list_deleted"
	ActivityCardCreated       ActivityType = "card_created"
	ActivityCardUpdated       ActivityType = "card_updated"
	ActivityCardMoved         ActivityType = "card_moved"
	ActivityCardArchived      ActivityType = "card_archived"
	ActivityCardRestored      ActivityType = "card_restored"
	ActivityCardDeleted       ActivityType = "card_deleted"
	ActivityCommentAdded      ActivityType = "comment_added"
	ActivityLabelAdded        ActivityType = "label_added"
	ActivityLabelRemoved      ActivityType = "label_removed"
	ActivityAttachmentAdded   ActivityType = "attachment_added"
	ActivityAttachmentRemoved ActivityType = "attachment_removed"
)

var activityTypes = map[ActivityType]struct{}{
	ActivityBoardCreated: {}, ActivityBoardUpdated: {},
	ActivityMemberAdded: {}, ActivityMemberUpdated: {}, ActivityMemberRemoved: {},
	ActivityListCreated: {}, ActivityListUpdated: {}, ActivityListMoved: {}, ActivityListDeleted: {},
	ActivityCardCreated: {}, ActivityCardUpdated: {}, ActivityCardMoved: {},
	ActivityCardArchived: {}, ActivityCardRestored: {}, ActivityCardDeleted: {},
	ActivityCommentAdded: {}, ActivityLabelAdded: {}, ActivityLabelRemoved: {},
	ActivityAttachmentAdded: {}, ActivityAttachmentRemoved: {},
}

func (t ActivityType) Valid() bool {
	_, ok := activityTypes[t]
	return ok
}

func ParseActivityType(s string) (ActivityType, error) {
	t := ActivityType(s)
	if !t.Valid() {
		return "", badRequest("unknown activity type " + s)
	}
	return t, nil
}

type activityStore interface {
	InsertActivity(ctx context.Context, a *Activity) error
	RecentActivity(ctx context.Context, boardID int64, typ ActivityType) ([]Activity, error)
}

// Recorder appends to and reads from the board activity log.
type Recorder struct {
	store activityStore
	log   *slog.Logger
}

func NewRecorder(store activityStore, log *slog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

func (r *Recorder) Record(ctx context.Context, boardID, userID int64, typ ActivityType, details string) error {
	if !typ.Valid() {
		return badRequest("unknown activity type " + string(typ))
	}
	return r.store.InsertActivity(ctx, &Activity{
		BoardID:   boardID,
		UserID:    userID,
		Type:      typ,
		Details:   details,
		CreatedAt: now(),
	})
}

// RecordBestEffort records and only logs a failure. The mutation it
// describes is already committed.
func (r *Recorder) RecordBestEffort(ctx context.Context, boardID, userID int64, typ ActivityType, details string) {
	if err := r.Record(ctx, boardID, userID, typ, details); err != nil {
		r.log.Warn("record activity", "board_id", boardID, "type", typ, "err", err)
	}
}

// Recent returns the newest entries of a board first. A zero typ matches all.
func (r *Recorder) Recent(ctx context.Context, boardID int64, typ ActivityType) ([]Activity, error) {
	if typ != "" && !typ.Valid() {
		return nil, badRequest("unknown activity type " + string(typ))
	}
	return r.store.RecentActivity(ctx, boardID, typ)
}
