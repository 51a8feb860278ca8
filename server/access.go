package main

import (
	"context"
)

// PermissionLevel is what a board member row stores.
type PermissionLevel string

const (
	PermissionView PermissionLevel = "view"
	PermissionEdit PermissionLevel = "edit"
)

// ParsePermission accepts only storable levels. "owner" is not one of them.
func ParsePermission(s string) (PermissionLevel, error) {
	switch p := PermissionLevel(s); p {
	case PermissionView, PermissionEdit:
		return p, nil
	}
	return "", badRequest("permission must be view or edit")
}

// Level is the effective access a principal has on a board. LevelOwner is
// derived from the board's owner and never stored.
type Level int

const (
	LevelNone Level = iota
	LevelView
	LevelEdit
	LevelOwner
)

func (l Level) CanRead() bool  { return l >= LevelView }
func (l Level) CanWrite() bool { return l >= LevelEdit }

func (l Level) String() string {
	switch l {
	case LevelView:
		return "view"
	case LevelEdit:
		return "edit"
	case LevelOwner:
		return "owner"
	}
	return "none"
}

// Principal is the authenticated user a request acts for.
type Principal struct {
	ID       int64
	Username string
}

type accessSource interface {
	BoardOwner(ctx context.Context, boardID int64) (int64, error)
	MemberPermission(ctx context.Context, boardID, userID int64) (PermissionLevel, error)
}

// Evaluator resolves a principal's level on a board from stored state on
// every call.
type Evaluator struct {
	src accessSource
}

func NewEvaluator(src accessSource) *Evaluator { return &Evaluator{src: src} }

// Evaluate returns NotFound for a missing board and Forbidden when the
// principal is neither the owner nor a member.
func (e *Evaluator) Evaluate(ctx context.Context, p Principal, boardID int64) (Level, error) {
	owner, err := e.src.BoardOwner(ctx, boardID)
	if err != nil {
		return LevelNone, err
	}
	if owner == p.ID {
		return LevelOwner, nil
	}
	perm, err := e.src.MemberPermission(ctx, boardID, p.ID)
	if err != nil {
		if isNotFound(err) {
			return LevelNone, forbidden("not a member of this board")
		}
		return LevelNone, err
	}
	switch perm {
	case PermissionEdit:
		return LevelEdit, nil
	case PermissionView:
		return LevelView, nil
	}
	return LevelNone, forbidden("not a member of this board")
}

// Require evaluates and then checks want; a lower level is Forbidden.
func (e *Evaluator) Require(ctx context.Context, p Principal, boardID int64, want Level) (Level, error) {
	lvl, err := e.Evaluate(ctx, p, boardID)
	if err != nil {
		return lvl, err
	}
	if lvl < want {
		switch want {
		case LevelOwner:
			return lvl, forbidden("only the board owner can do this")
		case LevelEdit:
			return lvl, forbidden("edit permission required")
		}
		return lvl, forbidden("forbidden")
	}
	return lvl, nil
}
