package main

import (
	"context"
	"strings"

	"github.com/uptrace/bun"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	activityLimit = 50
	searchLimit   = 50
)

// --- comments ---

func (s *Store) CommentsByCard(ctx context.Context, cardID int64) ([]Comment, error) {
	items := []Comment{}
	err := s.db.NewSelect().Model(&items).
		Where("cm.card_id = ?", cardID).
		OrderExpr("cm.created_at ASC, cm.id ASC").
		Scan(ctx)
	return items, err
}

func (s *Store) AddComment(ctx context.Context, cardID, userID int64, body string) (Comment, error) {
	c := Comment{CardID: cardID, UserID: userID, Body: body, CreatedAt: now()}
	if _, err := s.db.NewInsert().Model(&c).Exec(ctx); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// --- labels ---

func (s *Store) LabelsByCard(ctx context.Context, cardID int64) ([]Label, error) {
	items := []Label{}
	err := s.db.NewSelect().Model(&items).Where("lb.card_id = ?", cardID).OrderExpr("lb.id ASC").Scan(ctx)
	return items, err
}

func (s *Store) AddLabel(ctx context.Context, cardID int64, name, color string) (Label, error) {
	l := Label{CardID: cardID, Name: name, Color: color}
	if _, err := s.db.NewInsert().Model(&l).Exec(ctx); err != nil {
		return Label{}, err
	}
	return l, nil
}

func (s *Store) GetLabel(ctx context.Context, id int64) (Label, error) {
	var l Label
	err := s.db.NewSelect().Model(&l).Where("lb.id = ?", id).Scan(ctx)
	return l, noRows(err, "label")
}

func (s *Store) DeleteLabel(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*Label)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, "label")
}

// --- attachments ---

func (s *Store) AttachmentsByCard(ctx context.Context, cardID int64) ([]Attachment, error) {
	items := []Attachment{}
	err := s.db.NewSelect().Model(&items).Where("at.card_id = ?", cardID).OrderExpr("at.id ASC").Scan(ctx)
	return items, err
}

func (s *Store) AddAttachment(ctx context.Context, a Attachment) (Attachment, error) {
	a.UploadedAt = now()
	if _, err := s.db.NewInsert().Model(&a).Exec(ctx); err != nil {
		return Attachment{}, err
	}
	return a, nil
}

func (s *Store) GetAttachment(ctx context.Context, id int64) (Attachment, error) {
	var a Attachment
	err := s.db.NewSelect().Model(&a).Where("at.id = ?", id).Scan(ctx)
	return a, noRows(err, "attachment")
}

func (s *Store) DeleteAttachment(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*Attachment)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, "attachment")
}

// StoredNamesForBoard lists the on-disk names of every attachment under a board.
func (s *Store) StoredNamesForBoard(ctx context.Context, boardID int64) ([]string, error) {
	return s.storedNames(ctx, "l.board_id = ?", boardID)
}

func (s *Store) StoredNamesForList(ctx context.Context, listID int64) ([]string, error) {
	return s.storedNames(ctx, "l.id = ?", listID)
}

func (s *Store) storedNames(ctx context.Context, where string, id int64) ([]string, error) {
	var names []string
	err := s.db.NewSelect().TableExpr("attachments AS at").
		ColumnExpr("at.stored_name").
		Join("JOIN cards AS c ON c.id = at.card_id").
		Join("JOIN lists AS l ON l.id = c.list_id").
		Where(where, id).
		Scan(ctx, &names)
	return names, err
}

// --- activity ---

func (s *Store) InsertActivity(ctx context.Context, a *Activity) error {
	_, err := s.db.NewInsert().Model(a).Exec(ctx)
	return err
}

// RecentActivity returns at most activityLimit entries of a board, newest
// first. An empty typ matches every type.
func (s *Store) RecentActivity(ctx context.Context, boardID int64, typ ActivityType) ([]Activity, error) {
	items := []Activity{}
	q := s.db.NewSelect().Model(&items).Where("ac.board_id = ?", boardID)
	if typ != "" {
		q = q.Where("ac.activity_type = ?", typ)
	}
	err := q.OrderExpr("ac.created_at DESC, ac.id DESC").Limit(activityLimit).Scan(ctx)
	return items, err
}

// --- templates ---

func (s *Store) CreateTemplate(ctx context.Context, t BoardTemplate) (BoardTemplate, error) {
	t.CreatedAt = now()
	if _, err := s.db.NewInsert().Model(&t).Exec(ctx); err != nil {
		return BoardTemplate{}, err
	}
	return t, nil
}

func (s *Store) TemplatesByUser(ctx context.Context, userID int64) ([]BoardTemplate, error) {
	items := []BoardTemplate{}
	err := s.db.NewSelect().Model(&items).Where("bt.created_by = ?", userID).OrderExpr("bt.id ASC").Scan(ctx)
	return items, err
}

func (s *Store) GetTemplate(ctx context.Context, id int64) (BoardTemplate, error) {
	var t BoardTemplate
	err := s.db.NewSelect().Model(&t).Where("bt.id = ?", id).Scan(ctx)
	return t, noRows(err, "template")
}

// --- search ---

// foldText lowercases with Unicode rules. A Caser is stateful, so each call
// gets its own.
func foldText(s string) string { return cases.Lower(language.Und).String(s) }

// likePattern builds a case-folded substring pattern escaped with '!'.
func likePattern(term string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(foldText(term)) + "%"
}

type searchHit struct {
	ID      int64  `bun:"id"`
	Title   string `bun:"title"`
	BoardID int64  `bun:"board_id"`
}

// Search matches boards, lists and non-archived cards by title across the
// boards userID can read.
func (s *Store) Search(ctx context.Context, userID int64, term string) ([]SearchResult, error) {
	pat := likePattern(term)
	out := []SearchResult{}

	var boards []searchHit
	if err := s.db.NewSelect().TableExpr("boards AS b").
		ColumnExpr("b.id, b.title, b.id AS board_id").
		Where("b.id IN (?)", s.readableBoardIDs(userID)).
		Where("? LIKE ? ESCAPE '!'", bun.Safe(s.foldExpr("b.title")), pat).
		OrderExpr("b.id ASC").Limit(searchLimit).
		Scan(ctx, &boards); err != nil {
		return nil, err
	}
	out = appendHits(out, "board", boards)

	var lists []searchHit
	if err := s.db.NewSelect().TableExpr("lists AS l").
		ColumnExpr("l.id, l.title, l.board_id").
		Where("l.board_id IN (?)", s.readableBoardIDs(userID)).
		Where("? LIKE ? ESCAPE '!'", bun.Safe(s.foldExpr("l.title")), pat).
		OrderExpr("l.id ASC").Limit(searchLimit).
		Scan(ctx, &lists); err != nil {
		return nil, err
	}
	out = appendHits(out, "list", lists)

	var cards []searchHit
	if err := s.db.NewSelect().TableExpr("cards AS c").
		ColumnExpr("c.id, c.title, l.board_id").
		Join("JOIN lists AS l ON l.id = c.list_id").
		Where("l.board_id IN (?)", s.readableBoardIDs(userID)).
		Where("c.archived = ?", false).
		Where("? LIKE ? ESCAPE '!'", bun.Safe(s.foldExpr("c.title")), pat).
		OrderExpr("c.id ASC").Limit(searchLimit).
		Scan(ctx, &cards); err != nil {
		return nil, err
	}
	return appendHits(out, "card", cards), nil
}

func appendHits(out []SearchResult, typ string, hits []searchHit) []SearchResult {
	for _, h := range hits {
		out = append(out, SearchResult{Type: typ, ID: h.ID, Title: h.Title, BoardID: h.BoardID})
	}
	return out
}

// --- statistics ---

func (s *Store) BoardStats(ctx context.Context, boardID int64) (BoardStats, error) {
	lists := []ListStats{}
	err := s.db.NewSelect().TableExpr("lists AS l").
		ColumnExpr("l.id AS list_id, l.title, COUNT(c.id) AS card_count").
		Join("LEFT JOIN cards AS c ON c.list_id = l.id AND c.archived = ?", false).
		Where("l.board_id = ?", boardID).
		GroupExpr("l.id, l.title, l.pos").
		OrderExpr("l.pos ASC, l.id ASC").
		Scan(ctx, &lists)
	if err != nil {
		return BoardStats{}, err
	}
	st := BoardStats{TotalLists: len(lists), Lists: lists}
	for _, l := range lists {
		st.TotalCards += l.CardCount
	}
	return st, nil
}
