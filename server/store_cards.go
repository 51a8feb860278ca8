package main

import (
	"context"
	"math"
	"time"

	"github.com/uptrace/bun"
)

const posStep int64 = 1000

type sibling struct {
	ID  int64 `bun:"id"`
	Pos int64 `bun:"pos"`
}

// slotFor returns a position that sorts at index among the ordered
// positions. ok is false when two neighbours leave no room between them.
func slotFor(positions []int64, index int) (pos int64, ok bool) {
	n := len(positions)
	switch {
	case n == 0:
		return posStep, true
	case index <= 0:
		if positions[0] > 1 {
			return positions[0] / 2, true
		}
		return 0, false
	case index >= n:
		return positions[n-1] + posStep, true
	}
	before, after := positions[index-1], positions[index]
	if after-before <= 1 {
		return 0, false
	}
	return before + (after-before)/2, true
}

// positionFor computes the pos for a row placed at index among the rows of
// table sharing parentCol = parentID, excluding selfID. Siblings are
// renumbered in steps of posStep when there is no gap left.
func (s *Store) positionFor(ctx context.Context, table, parentCol string, parentID, selfID int64, index int) (int64, error) {
	var sibs []sibling
	err := s.db.NewSelect().Table(table).Column("id", "pos").
		Where("? = ?", bun.Ident(parentCol), parentID).
		Where("id <> ?", selfID).
		OrderExpr("pos ASC, id ASC").
		Scan(ctx, &sibs)
	if err != nil {
		return 0, err
	}
	positions := make([]int64, len(sibs))
	for i, sb := range sibs {
		positions[i] = sb.Pos
	}
	if pos, ok := slotFor(positions, index); ok {
		return pos, nil
	}
	for i, sb := range sibs {
		positions[i] = int64(i+1) * posStep
		if _, err := s.db.NewUpdate().Table(table).
			Set("pos = ?", positions[i]).
			Where("id = ?", sb.ID).
			Exec(ctx); err != nil {
			return 0, err
		}
	}
	pos, _ := slotFor(positions, index)
	return pos, nil
}

// --- lists ---

func (s *Store) ListsByBoard(ctx context.Context, boardID int64) ([]List, error) {
	items := []List{}
	err := s.db.NewSelect().Model(&items).
		Where("l.board_id = ?", boardID).
		OrderExpr("l.pos ASC, l.id ASC").
		Scan(ctx)
	return items, err
}

func (s *Store) GetList(ctx context.Context, id int64) (List, error) {
	var l List
	err := s.db.NewSelect().Model(&l).Where("l.id = ?", id).Scan(ctx)
	return l, noRows(err, "list")
}

func (s *Store) CreateList(ctx context.Context, boardID int64, title string) (List, error) {
	pos, err := s.positionFor(ctx, "lists", "board_id", boardID, 0, math.MaxInt)
	if err != nil {
		return List{}, err
	}
	l := List{BoardID: boardID, Title: title, Pos: pos, CreatedAt: now()}
	if _, err := s.db.NewInsert().Model(&l).Exec(ctx); err != nil {
		return List{}, err
	}
	return l, nil
}

// UpdateList changes presentation only; ordering goes through MoveList.
func (s *Store) UpdateList(ctx context.Context, id int64, title, color *string) (List, error) {
	l, err := s.GetList(ctx, id)
	if err != nil {
		return List{}, err
	}
	if title != nil {
		l.Title = *title
	}
	if color != nil {
		l.Color = *color
	}
	t := now()
	l.UpdatedAt = &t
	if _, err := s.db.NewUpdate().Model(&l).Column("title", "color", "updated_at").WherePK().Exec(ctx); err != nil {
		return List{}, err
	}
	return l, nil
}

// MoveList reorders a list within its own board.
func (s *Store) MoveList(ctx context.Context, id int64, newIndex int) (List, error) {
	l, err := s.GetList(ctx, id)
	if err != nil {
		return List{}, err
	}
	pos, err := s.positionFor(ctx, "lists", "board_id", l.BoardID, l.ID, newIndex)
	if err != nil {
		return List{}, err
	}
	t := now()
	l.Pos = pos
	l.UpdatedAt = &t
	if _, err := s.db.NewUpdate().Model(&l).Column("pos", "updated_at").WherePK().Exec(ctx); err != nil {
		return List{}, err
	}
	return l, nil
}

func (s *Store) DeleteList(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*List)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, "list")
}

// --- cards ---

func (s *Store) CardsByList(ctx context.Context, listID int64, withArchived bool) ([]Card, error) {
	items := []Card{}
	q := s.db.NewSelect().Model(&items).Where("c.list_id = ?", listID)
	if !withArchived {
		q = q.Where("c.archived = ?", false)
	}
	err := q.OrderExpr("c.pos ASC, c.id ASC").Scan(ctx)
	return items, err
}

func (s *Store) GetCard(ctx context.Context, id int64) (Card, error) {
	var c Card
	err := s.db.NewSelect().Model(&c).Where("c.id = ?", id).Scan(ctx)
	return c, noRows(err, "card")
}

type cardInput struct {
	Title           string
	Description     string
	DescriptionIsMD bool
	DueAt           *time.Time
}

func (s *Store) CreateCard(ctx context.Context, listID int64, in cardInput) (Card, error) {
	pos, err := s.positionFor(ctx, "cards", "list_id", listID, 0, math.MaxInt)
	if err != nil {
		return Card{}, err
	}
	c := Card{
		ListID:          listID,
		Title:           in.Title,
		Description:     in.Description,
		DescriptionIsMD: in.DescriptionIsMD,
		DueAt:           in.DueAt,
		Pos:             pos,
		CreatedAt:       now(),
	}
	if _, err := s.db.NewInsert().Model(&c).Exec(ctx); err != nil {
		return Card{}, err
	}
	return c, nil
}

// cardPatch carries a partial card update; nil fields are left alone.
// ClearDue removes the due date.
type cardPatch struct {
	Title           *string
	Description     *string
	DescriptionIsMD *bool
	Color           *string
	DueAt           *time.Time
	ClearDue        bool
}

func (p cardPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.DescriptionIsMD == nil &&
		p.Color == nil && p.DueAt == nil && !p.ClearDue
}

func (s *Store) UpdateCard(ctx context.Context, id int64, p cardPatch) (Card, error) {
	c, err := s.GetCard(ctx, id)
	if err != nil {
		return Card{}, err
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.DescriptionIsMD != nil {
		c.DescriptionIsMD = *p.DescriptionIsMD
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	switch {
	case p.ClearDue:
		c.DueAt = nil
	case p.DueAt != nil:
		c.DueAt = p.DueAt
	}
	t := now()
	c.UpdatedAt = &t
	if _, err := s.db.NewUpdate().Model(&c).
		Column("title", "description", "description_is_md", "color", "due_at", "updated_at").
		WherePK().Exec(ctx); err != nil {
		return Card{}, err
	}
	return c, nil
}

// MoveCard places a card at newIndex of targetListID. Callers check that
// the target list is on the card's board.
func (s *Store) MoveCard(ctx context.Context, id, targetListID int64, newIndex int) (Card, error) {
	c, err := s.GetCard(ctx, id)
	if err != nil {
		return Card{}, err
	}
	pos, err := s.positionFor(ctx, "cards", "list_id", targetListID, c.ID, newIndex)
	if err != nil {
		return Card{}, err
	}
	t := now()
	c.ListID = targetListID
	c.Pos = pos
	c.UpdatedAt = &t
	if _, err := s.db.NewUpdate().Model(&c).Column("list_id", "pos", "updated_at").WherePK().Exec(ctx); err != nil {
		return Card{}, err
	}
	return c, nil
}

func (s *Store) SetCardArchived(ctx context.Context, id int64, archived bool) (Card, error) {
	c, err := s.GetCard(ctx, id)
	if err != nil {
		return Card{}, err
	}
	t := now()
	c.Archived = archived
	c.UpdatedAt = &t
	if _, err := s.db.NewUpdate().Model(&c).Column("archived", "updated_at").WherePK().Exec(ctx); err != nil {
		return Card{}, err
	}
	return c, nil
}

func (s *Store) DeleteCard(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*Card)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, "card")
}
