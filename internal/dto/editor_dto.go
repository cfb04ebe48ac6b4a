package dto

import (
	"notefiber-editor/pkg/autosave"
	"notefiber-editor/pkg/document"

	"github.com/google/uuid"
)

// Editor operations accepted over the websocket.
const (
	OpInsertText     = "insert_text"
	OpDeleteBackward = "delete_backward"
	OpInsertBreak    = "insert_break"
	OpPaste          = "paste"
	OpSelect         = "select"
	OpFormat         = "format"
	OpLink           = "link"
	OpUnlink         = "unlink"
	OpSlashKey       = "slash_key"
	OpInvoke         = "invoke"
	OpSetType        = "set_type"
	OpWrapList       = "wrap_list"
	OpSetChecked     = "set_checked"
	OpSetCollapsed   = "set_collapsed"
	OpRetryMedia     = "retry_media"
	OpSetMeta        = "set_meta"
	OpSave           = "save"
)

type EditorOperation struct {
	Op        string              `json:"op" validate:"required"`
	Text      string              `json:"text,omitempty"`
	HTML      string              `json:"html,omitempty"`
	Selection *document.Selection `json:"selection,omitempty"`
	Mark      string              `json:"mark,omitempty"`
	URL       string              `json:"url,omitempty"`
	Key       string              `json:"key,omitempty"`
	Type      string              `json:"type,omitempty"`
	Command   string              `json:"command,omitempty"`
	Flag      bool                `json:"flag,omitempty"`
	LocalRef  string              `json:"local_ref,omitempty"`
	Title     string              `json:"title,omitempty"`
	Slug      string              `json:"slug,omitempty"`
}

type DocumentSnapshot struct {
	NoteId    uuid.UUID           `json:"note_id"`
	Version   uint64              `json:"version"`
	Children  []document.Node     `json:"children"`
	Selection *document.Selection `json:"selection,omitempty"`
}

type UploadMediaRequest struct {
	NoteId uuid.UUID
	Kind   string `form:"kind" validate:"omitempty,oneof=image video file"`
}

type UploadMediaResponse struct {
	LocalRef string `json:"local_ref"`
	Kind     string `json:"kind"`
}

type SaveNoteResponse struct {
	State autosave.State `json:"state"`
}
