package main

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:",pk,autoincrement" json:"id"`
	Username     string    `bun:",notnull,unique" json:"username"`
	Email        string    `bun:",notnull,unique" json:"email"`
	PasswordHash string    `bun:",notnull" json:"-"`
	CreatedAt    time.Time `bun:",notnull" json:"created_at"`
}

type Board struct {
	bun.BaseModel `bun:"table:boards,alias:b"`

	ID        int64      `bun:",pk,autoincrement" json:"id"`
	Title     string     `bun:",notnull" json:"title"`
	Color     string     `bun:",notnull" json:"color,omitempty"`
	OwnerID   int64      `bun:",notnull" json:"owner_id"`
	CreatedAt time.Time  `bun:",notnull" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// BoardMember grants a non-owner user a permission on a board.
// The owner never has a row here.
type BoardMember struct {
	bun.BaseModel `bun:"table:board_members,alias:bm"`

	ID         int64           `bun:",pk,autoincrement" json:"id"`
	BoardID    int64           `bun:",notnull,unique:board_member_idx" json:"board_id"`
	UserID     int64           `bun:",notnull,unique:board_member_idx" json:"user_id"`
	Permission PermissionLevel `bun:",notnull" json:"permission"`
	CreatedAt  time.Time       `bun:",notnull" json:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

// MemberView is a board member joined with the user's name for listings.
type MemberView struct {
	UserID     int64           `json:"user_id"`
	Username   string          `json:"username"`
	Permission PermissionLevel `json:"permission"`
	CreatedAt  time.Time       `json:"created_at"`
}

type List struct {
	bun.BaseModel `bun:"table:lists,alias:l"`

	ID        int64      `bun:",pk,autoincrement" json:"id"`
	BoardID   int64      `bun:",notnull" json:"board_id"`
	Title     string     `bun:",notnull" json:"title"`
	Color     string     `bun:",notnull" json:"color,omitempty"`
	Pos       int64      `bun:",notnull" json:"pos"`
	CreatedAt time.Time  `bun:",notnull" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID              int64      `bun:",pk,autoincrement" json:"id"`
	ListID          int64      `bun:",notnull" json:"list_id"`
	Title           string     `bun:",notnull" json:"title"`
	Description     string     `bun:",notnull" json:"description"`
	DescriptionIsMD bool       `bun:"description_is_md,notnull" json:"description_is_md"`
	DescriptionHTML string     `bun:"-" json:"description_html,omitempty"`
	Color           string     `bun:",notnull" json:"color,omitempty"`
	Pos             int64      `bun:",notnull" json:"pos"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	Archived        bool       `bun:",notnull" json:"archived"`
	CreatedAt       time.Time  `bun:",notnull" json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cm"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	CardID    int64     `bun:",notnull" json:"card_id"`
	UserID    int64     `bun:",notnull" json:"user_id"`
	Body      string    `bun:",notnull" json:"body"`
	CreatedAt time.Time `bun:",notnull" json:"created_at"`
}

type Label struct {
	bun.BaseModel `bun:"table:labels,alias:lb"`

	ID     int64  `bun:",pk,autoincrement" json:"id"`
	CardID int64  `bun:",notnull" json:"card_id"`
	Name   string `bun:",notnull" json:"name"`
	Color  string `bun:",notnull" json:"color"`
}

type Attachment struct {
	bun.BaseModel `bun:"table:attachments,alias:at"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	CardID      int64     `bun:",notnull" json:"card_id"`
	UserID      int64     `bun:",notnull" json:"user_id"`
	Filename    string    `bun:",notnull" json:"filename"`
	StoredName  string    `bun:",notnull,unique" json:"-"`
	ContentType string    `bun:",notnull" json:"content_type"`
	Size        int64     `bun:",notnull" json:"size"`
	SizeHuman   string    `bun:"-" json:"size_human,omitempty"`
	Checksum    string    `bun:",notnull" json:"checksum"`
	UploadedAt  time.Time `bun:",notnull" json:"uploaded_at"`
}

// Activity is one entry of a board's append-only audit log.
type Activity struct {
	bun.BaseModel `bun:"table:activities,alias:ac"`

	ID        int64        `bun:",pk,autoincrement" json:"id"`
	BoardID   int64        `bun:",notnull" json:"board_id"`
	UserID    int64        `bun:",notnull" json:"user_id"`
	Type      ActivityType `bun:"activity_type,notnull" json:"activity_type"`
	Details   string       `bun:",notnull" json:"details"`
	CreatedAt time.Time    `bun:",notnull" json:"created_at"`
}

// BoardTemplate is a named set of list titles a user can stamp new boards from.
type BoardTemplate struct {
	bun.BaseModel `bun:"table:board_templates,alias:bt"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	Name        string    `bun:",notnull" json:"name"`
	Description string    `bun:",notnull" json:"description"`
	Lists       []string  `bun:",notnull" json:"lists"`
	CreatedBy   int64     `bun:",notnull" json:"created_by"`
	CreatedAt   time.Time `bun:",notnull" json:"created_at"`
}

type SearchResult struct {
	Type    string `json:"type"`
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	BoardID int64  `json:"board_id"`
}

type ListStats struct {
	ListID    int64  `json:"list_id"`
	Title     string `json:"title"`
	CardCount int    `json:"card_count"`
}

type BoardStats struct {
	TotalLists int         `json:"total_lists"`
	TotalCards int         `json:"total_cards"`
	Lists      []ListStats `json:"lists_statistics"`
}
