package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Store holds every query the API runs. A Store returned by RunInTx is
// bound to that transaction.
type Store struct {
	db   bun.IDB
	root *bun.DB
}

func NewStore(db *bun.DB) *Store { return &Store{db: db, root: db} }

// sqliteDriver is go-sqlite3 with a Unicode fold() function; the built-in
// lower() only folds ASCII.
const sqliteDriver = "sqlite3_fold"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", foldText, true)
		},
	})
}

// foldExpr wraps a column in the case fold that matches foldText.
func (s *Store) foldExpr(col string) string {
	if s.db.Dialect().Name() == dialect.SQLite {
		return "fold(" + col + ")"
	}
	return "lower(" + col + ")"
}

// openDB picks the driver and dialect from the DSN scheme.
func openDB(dsn string) (*bun.DB, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(10)
		sqldb.SetMaxIdleConns(5)
		sqldb.SetConnMaxLifetime(30 * time.Minute)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case strings.HasPrefix(dsn, "file:"), strings.HasPrefix(dsn, "sqlite:"):
		dsn = strings.TrimPrefix(dsn, "sqlite:")
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		sqldb, err := sql.Open(sqliteDriver, dsn+sep+"_foreign_keys=1")
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers; one connection keeps in-memory databases alive
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
	return nil, fmt.Errorf("unsupported database url %q", dsn)
}

func (s *Store) Close() error { return s.root.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.root.PingContext(ctx) }

// RunInTx runs fn inside one transaction. Nested calls reuse the outer one.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	if _, ok := s.db.(bun.Tx); ok {
		return fn(ctx, s)
	}
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: tx, root: s.root})
	})
}

func (s *Store) Migrate(ctx context.Context) error {
	tables := []struct {
		model any
		fks   []string
	}{
		{model: (*User)(nil)},
		{model: (*Board)(nil), fks: []string{
			`("owner_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		}},
		{model: (*BoardMember)(nil), fks: []string{
			`("board_id") REFERENCES "boards" ("id") ON DELETE CASCADE`,
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		}},
		{model: (*List)(nil), fks: []string{
			`("board_id") REFERENCES "boards" ("id") ON DELETE CASCADE`,
		}},
		{model: (*Card)(nil), fks: []string{
			`("list_id") REFERENCES "lists" ("id") ON DELETE CASCADE`,
		}},
		{model: (*Comment)(nil), fks: []string{
			`("card_id") REFERENCES "cards" ("id") ON DELETE CASCADE`,
			`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		}},
		{model: (*Label)(nil), fks: []string{
			`("card_id") REFERENCES "cards" ("id") ON DELETE CASCADE`,
		}},
		{model: (*Attachment)(nil), fks: []string{
			`("card_id") REFERENCES "cards" ("id") ON DELETE CASCADE`,
		}},
		{model: (*Activity)(nil), fks: []string{
			`("board_id") REFERENCES "boards" ("id") ON DELETE CASCADE`,
		}},
		{model: (*BoardTemplate)(nil), fks: []string{
			`("created_by") REFERENCES "users" ("id") ON DELETE CASCADE`,
		}},
	}
	for _, t := range tables {
		q := s.db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.fks {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", t.model, err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*Board)(nil), "boards_owner_idx", []string{"owner_id"}},
		{(*BoardMember)(nil), "board_members_user_idx", []string{"user_id"}},
		{(*List)(nil), "lists_board_pos_idx", []string{"board_id", "pos"}},
		{(*Card)(nil), "cards_list_pos_idx", []string{"list_id", "pos"}},
		{(*Comment)(nil), "comments_card_idx", []string{"card_id"}},
		{(*Label)(nil), "labels_card_idx", []string{"card_id"}},
		{(*Attachment)(nil), "attachments_card_idx", []string{"card_id"}},
		{(*Activity)(nil), "activities_board_created_idx", []string{"board_id", "created_at"}},
	}
	for _, ix := range indexes {
		if _, err := s.db.NewCreateIndex().Model(ix.model).Index(ix.name).
			Column(ix.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", ix.name, err)
		}
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }

// noRows turns sql.ErrNoRows into a NotFound error for what.
func noRows(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(what)
	}
	return err
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(what)
	}
	return nil
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (User, error) {
	taken, err := s.db.NewSelect().Model((*User)(nil)).Where("username = ?", username).Exists(ctx)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, badRequest("username already taken")
	}
	taken, err = s.db.NewSelect().Model((*User)(nil)).Where("email = ?", email).Exists(ctx)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, badRequest("email already registered")
	}
	u := User{Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: now()}
	if _, err := s.db.NewInsert().Model(&u).Exec(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.NewSelect().Model(&u).Where("u.id = ?", id).Scan(ctx)
	return u, noRows(err, "user")
}

func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.NewSelect().Model(&u).Where("u.username = ?", username).Scan(ctx)
	return u, noRows(err, "user")
}

// --- boards ---

// readableBoardIDs selects the ids of every board userID owns or is a member of.
func (s *Store) readableBoardIDs(userID int64) *bun.SelectQuery {
	members := s.db.NewSelect().Model((*BoardMember)(nil)).Column("bm.board_id").Where("bm.user_id = ?", userID)
	return s.db.NewSelect().Model((*Board)(nil)).Column("b.id").
		Where("b.owner_id = ?", userID).
		WhereOr("b.id IN (?)", members)
}

func (s *Store) BoardsForUser(ctx context.Context, userID int64) ([]Board, error) {
	items := []Board{}
	err := s.db.NewSelect().Model(&items).
		Where("b.id IN (?)", s.readableBoardIDs(userID)).
		OrderExpr("b.id ASC").
		Scan(ctx)
	return items, err
}

func (s *Store) CreateBoard(ctx context.Context, ownerID int64, title, color string) (Board, error) {
	b := Board{Title: title, Color: color, OwnerID: ownerID, CreatedAt: now()}
	if _, err := s.db.NewInsert().Model(&b).Exec(ctx); err != nil {
		return Board{}, err
	}
	return b, nil
}

func (s *Store) GetBoard(ctx context.Context, id int64) (Board, error) {
	var b Board
	err := s.db.NewSelect().Model(&b).Where("b.id = ?", id).Scan(ctx)
	return b, noRows(err, "board")
}

// BoardOwner returns the owner of a board, or NotFound.
func (s *Store) BoardOwner(ctx context.Context, boardID int64) (int64, error) {
	var owner int64
	err := s.db.NewSelect().Model((*Board)(nil)).Column("b.owner_id").Where("b.id = ?", boardID).Scan(ctx, &owner)
	return owner, noRows(err, "board")
}

func (s *Store) UpdateBoard(ctx context.Context, id int64, title, color *string) (Board, error) {
	b, err := s.GetBoard(ctx, id)
	if err != nil {
		return Board{}, err
	}
	if title != nil {
		b.Title = *title
	}
	if color != nil {
		b.Color = *color
	}
	t := now()
	b.UpdatedAt = &t
	if _, err := s.db.NewUpdate().Model(&b).Column("title", "color", "updated_at").WherePK().Exec(ctx); err != nil {
		return Board{}, err
	}
	return b, nil
}

func (s *Store) DeleteBoard(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*Board)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, "board")
}

// --- board resolution for nested resources ---

func (s *Store) BoardIDByList(ctx context.Context, listID int64) (int64, error) {
	var bid int64
	err := s.db.NewSelect().Model((*List)(nil)).Column("l.board_id").Where("l.id = ?", listID).Scan(ctx, &bid)
	return bid, noRows(err, "list")
}

func (s *Store) BoardAndListByCard(ctx context.Context, cardID int64) (boardID, listID int64, err error) {
	err = s.db.NewSelect().TableExpr("cards AS c").
		ColumnExpr("l.board_id, c.list_id").
		Join("JOIN lists AS l ON l.id = c.list_id").
		Where("c.id = ?", cardID).
		Scan(ctx, &boardID, &listID)
	return boardID, listID, noRows(err, "card")
}

func (s *Store) BoardIDByLabel(ctx context.Context, labelID int64) (int64, error) {
	var bid int64
	err := s.db.NewSelect().TableExpr("labels AS lb").
		ColumnExpr("l.board_id").
		Join("JOIN cards AS c ON c.id = lb.card_id").
		Join("JOIN lists AS l ON l.id = c.list_id").
		Where("lb.id = ?", labelID).
		Scan(ctx, &bid)
	return bid, noRows(err, "label")
}

func (s *Store) BoardIDByAttachment(ctx context.Context, attachmentID int64) (int64, error) {
	var bid int64
	err := s.db.NewSelect().TableExpr("attachments AS at").
		ColumnExpr("l.board_id").
		Join("JOIN cards AS c ON c.id = at.card_id").
		Join("JOIN lists AS l ON l.id = c.list_id").
		Where("at.id = ?", attachmentID).
		Scan(ctx, &bid)
	return bid, noRows(err, "attachment")
}

// --- members ---

// MemberPermission returns the stored permission of userID on boardID,
// or NotFound when there is no member row.
func (s *Store) MemberPermission(ctx context.Context, boardID, userID int64) (PermissionLevel, error) {
	var perm PermissionLevel
	err := s.db.NewSelect().Model((*BoardMember)(nil)).Column("bm.permission").
		Where("bm.board_id = ?", boardID).
		Where("bm.user_id = ?", userID).
		Scan(ctx, &perm)
	return perm, noRows(err, "member")
}

func (s *Store) AddMember(ctx context.Context, boardID, userID int64, perm PermissionLevel) (BoardMember, error) {
	owner, err := s.BoardOwner(ctx, boardID)
	if err != nil {
		return BoardMember{}, err
	}
	if owner == userID {
		return BoardMember{}, badRequest("owner cannot be added as a member")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return BoardMember{}, err
	}
	exists, err := s.db.NewSelect().Model((*BoardMember)(nil)).
		Where("board_id = ?", boardID).Where("user_id = ?", userID).Exists(ctx)
	if err != nil {
		return BoardMember{}, err
	}
	if exists {
		return BoardMember{}, badRequest("user is already a member")
	}
	m := BoardMember{BoardID: boardID, UserID: userID, Permission: perm, CreatedAt: now()}
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return BoardMember{}, err
	}
	return m, nil
}

func (s *Store) UpdateMember(ctx context.Context, boardID, userID int64, perm PermissionLevel) (BoardMember, error) {
	var m BoardMember
	err := s.db.NewSelect().Model(&m).Where("bm.board_id = ?", boardID).Where("bm.user_id = ?", userID).Scan(ctx)
	if err != nil {
		return BoardMember{}, noRows(err, "member")
	}
	t := now()
	m.Permission = perm
	m.UpdatedAt = &t
	if _, err := s.db.NewUpdate().Model(&m).Column("permission", "updated_at").WherePK().Exec(ctx); err != nil {
		return BoardMember{}, err
	}
	return m, nil
}

func (s *Store) RemoveMember(ctx context.Context, boardID, userID int64) error {
	res, err := s.db.NewDelete().Model((*BoardMember)(nil)).
		Where("board_id = ?", boardID).Where("user_id = ?", userID).Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, "member")
}

func (s *Store) Members(ctx context.Context, boardID int64) ([]MemberView, error) {
	items := []MemberView{}
	err := s.db.NewSelect().TableExpr("board_members AS bm").
		ColumnExpr("bm.user_id, u.username, bm.permission, bm.created_at").
		Join("JOIN users AS u ON u.id = bm.user_id").
		Where("bm.board_id = ?", boardID).
		OrderExpr("u.username ASC").
		Scan(ctx, &items)
	return items, err
}
