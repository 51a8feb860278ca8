package main

import (
	"context"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

const multipartOverhead = 1 << 20

func withSizeHuman(items []Attachment) []Attachment {
	for i := range items {
		items[i].SizeHuman = humanize.Bytes(uint64(items[i].Size))
	}
	return items
}

func (a *api) handleAttachmentsByCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "attachments by card")
		return
	}
	if !a.canRead(w, r, boardID) {
		return
	}
	items, err := a.store.AttachmentsByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "attachments by card")
		return
	}
	writeJSON(w, 200, withSizeHuman(items))
}

func (a *api) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, _, err := a.store.BoardAndListByCard(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "upload attachment")
		return
	}
	if !a.requireLevel(w, r, boardID, LevelEdit) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.files.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, 400, "invalid upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, 400, "file is required")
		return
	}
	defer file.Close()

	p := a.principal(r)
	var (
		att    Attachment
		stored string
	)
	err = a.guard.Write(r.Context(), p, boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		sf, err := a.files.Save(file)
		if err != nil {
			return err
		}
		stored = sf.Name
		ct := hdr.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		att, err = tx.AddAttachment(ctx, Attachment{
			CardID:      id,
			UserID:      p.ID,
			Filename:    filepath.Base(hdr.Filename),
			StoredName:  sf.Name,
			ContentType: ct,
			Size:        sf.Size,
			Checksum:    sf.Checksum,
		})
		if err != nil {
			return err
		}
		changes.Add(ActivityAttachmentAdded, "attached %q to card %d", att.Filename, id)
		return nil
	})
	if err != nil {
		if stored != "" {
			a.removeFiles([]string{stored})
		}
		a.writeErr(w, err, "upload attachment")
		return
	}
	att.SizeHuman = humanize.Bytes(uint64(att.Size))
	writeJSON(w, 201, att)
}

func (a *api) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, err := a.store.BoardIDByAttachment(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "download attachment")
		return
	}
	if !a.canRead(w, r, boardID) {
		return
	}
	att, err := a.store.GetAttachment(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "download attachment")
		return
	}
	f, err := a.files.Open(att.StoredName)
	if err != nil {
		a.writeErr(w, err, "open attachment")
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
	http.ServeContent(w, r, att.Filename, att.UploadedAt, f)
}

func (a *api) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	boardID, err := a.store.BoardIDByAttachment(r.Context(), id)
	if err != nil {
		a.writeErr(w, err, "delete attachment")
		return
	}
	var stored string
	err = a.guard.Write(r.Context(), a.principal(r), boardID, func(ctx context.Context, tx *Store, changes *Changeset) error {
		att, err := tx.GetAttachment(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteAttachment(ctx, id); err != nil {
			return err
		}
		stored = att.StoredName
		changes.Add(ActivityAttachmentRemoved, "removed %q from card %d", att.Filename, att.CardID)
		return nil
	})
	if err != nil {
		a.writeErr(w, err, "delete attachment")
		return
	}
	a.removeFiles([]string{stored})
	writeJSON(w, 200, map[string]any{"ok": true})
}
