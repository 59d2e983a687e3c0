// Package core defines the artifact model and store interfaces shared by the
// pipeline stages.
package core

import (
	"context"
	"path"
)

// Kind names one class of artifact and where it lives in a store.
// Prefix addresses the remote namespace (prefix/id.ext); LocalDir is the
// directory used by local stores and defaults to Prefix.
type Kind struct {
	Name     string
	Prefix   string
	LocalDir string
	Ext      string
}

// Dir returns the local directory name for the kind.
func (k Kind) Dir() string {
	if k.LocalDir != "" {
		return k.LocalDir
	}

	return k.Prefix
}

// Filename returns the artifact filename for id, e.g. "0f1c.txt".
func (k Kind) Filename(id string) string {
	return id + k.Ext
}

// Key returns the remote object key for id, e.g. "text_prompts/0f1c.txt".
func (k Kind) Key(id string) string {
	return path.Join(k.Prefix, k.Filename(id))
}

// Artifact kinds used by the pipeline stages.
var (
	KindInputAudio = Kind{
		Name:     "input-audio",
		Prefix:   "input_audios",
		LocalDir: "",
		Ext:      ".mp3",
	}
	KindPromptText = Kind{
		Name:     "prompt-text",
		Prefix:   "text_prompts",
		LocalDir: "",
		Ext:      ".txt",
	}
	KindParagraphText = Kind{
		Name:     "paragraph-text",
		Prefix:   "text_paragraphs",
		LocalDir: "",
		Ext:      ".txt",
	}
	KindTranslatedText = Kind{
		Name:     "translated-text",
		Prefix:   "text_translated",
		LocalDir: "",
		Ext:      ".txt",
	}
	KindSynthesizedAudio = Kind{
		Name:     "synthesized-audio",
		Prefix:   "text_audios",
		LocalDir: "",
		Ext:      ".mp3",
	}
	KindDubbedAudio = Kind{
		Name:     "dubbed-audio",
		Prefix:   "output_audios",
		LocalDir: "output_audios_pp",
		Ext:      ".mp3",
	}
)

// ArtifactStore maps (kind, id) to an immutable byte blob.
type ArtifactStore interface {
	List(ctx context.Context, kind Kind) ([]string, error)
	Exists(ctx context.Context, kind Kind, id string) (bool, error)
	Read(ctx context.Context, kind Kind, id string) ([]byte, error)
	Write(ctx context.Context, kind Kind, id string, data []byte) error
}

// ClearableStore is an ArtifactStore that can drop every artifact of a kind.
type ClearableStore interface {
	ArtifactStore
	Clear(ctx context.Context, kind Kind) error
}
