package domain

import "time"

// ItemType identifies what kind of entry the file source reported.
type ItemType int

const (
	// ItemFile is a regular file.
	ItemFile ItemType = iota

	// ItemFolder is a folder. Folders are counted but not indexed.
	ItemFolder
)

// String returns the item type name.
func (t ItemType) String() string {
	switch t {
	case ItemFile:
		return "file"
	case ItemFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// SourceItem is a file or folder as reported by the file source.
// It carries listing metadata only; content is fetched separately.
type SourceItem struct {
	// ID is the source's stable identifier for the item.
	ID string

	// Name is the item name including extension.
	Name string

	// Path is the full display path within the watched folder.
	Path string

	// Type distinguishes files from folders.
	Type ItemType

	// Size is the file size in bytes. Zero for folders.
	Size int64

	// ModifiedAt is the server-side modification time. Zero for folders.
	ModifiedAt time.Time

	// Rev is the source's revision identifier, when available.
	Rev string

	// ContentHash is the source's own content hash, when available.
	// This is the source's hashing scheme, not ours.
	ContentHash string
}

// ChangeKind classifies an incremental sync change.
type ChangeKind int

const (
	// ChangeUpserted indicates the item was added or modified.
	// The source does not distinguish the two; the index decides
	// based on whether the item is already present.
	ChangeUpserted ChangeKind = iota

	// ChangeDeleted indicates the item was removed at the source.
	ChangeDeleted
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeUpserted:
		return "upserted"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ItemChange is a single change reported by incremental sync.
type ItemChange struct {
	Kind ChangeKind
	Item SourceItem
}
