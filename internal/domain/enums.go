package domain

// EntityType identifies the kind of tracked entity a timeline event refers to.
type EntityType string

const (
	EntityTypeAuthor  EntityType = "author"
	EntityTypeBook    EntityType = "book"
	EntityTypeReading EntityType = "reading"
	EntityTypeGenre   EntityType = "genre"
)

func (t EntityType) String() string { return string(t) }

func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeAuthor, EntityTypeBook, EntityTypeReading, EntityTypeGenre:
		return true
	}
	return false
}

// EventAction is the free-form action label recorded on a timeline event.
// The constants below cover every action the services emit; the column itself
// is not constrained to them.
type EventAction = string

const (
	ActionAdded     EventAction = "added"
	ActionUpdated   EventAction = "updated"
	ActionDeleted   EventAction = "deleted"
	ActionShelved   EventAction = "shelved"
	ActionStarted   EventAction = "started"
	ActionFinished  EventAction = "finished"
	ActionAbandoned EventAction = "abandoned"
)

// ReadingStatus represents the lifecycle state of a reading session.
type ReadingStatus string

const (
	ReadingStatusReading   ReadingStatus = "reading"
	ReadingStatusRead      ReadingStatus = "read"
	ReadingStatusAbandoned ReadingStatus = "abandoned"
)

func (s ReadingStatus) String() string { return string(s) }

func (s ReadingStatus) IsValid() bool {
	switch s {
	case ReadingStatusReading, ReadingStatusRead, ReadingStatusAbandoned:
		return true
	}
	return false
}

// Action returns the timeline action label for a reading entering this status.
func (s ReadingStatus) Action() EventAction {
	switch s {
	case ReadingStatusRead:
		return ActionFinished
	case ReadingStatusAbandoned:
		return ActionAbandoned
	default:
		return ActionStarted
	}
}

// Shelf classifies a book on a user's shelf.
type Shelf string

const (
	ShelfLibrary  Shelf = "library"
	ShelfWishlist Shelf = "wishlist"
)

func (s Shelf) String() string { return string(s) }

func (s Shelf) IsValid() bool {
	return s == ShelfLibrary || s == ShelfWishlist
}

// AuthorRole describes how a person contributed to a book.
type AuthorRole string

const (
	AuthorRoleAuthor     AuthorRole = "author"
	AuthorRoleEditor     AuthorRole = "editor"
	AuthorRoleTranslator AuthorRole = "translator"
)

func (r AuthorRole) String() string { return string(r) }

func (r AuthorRole) IsValid() bool {
	switch r {
	case AuthorRoleAuthor, AuthorRoleEditor, AuthorRoleTranslator:
		return true
	}
	return false
}

// ReadingFormat is the medium a book was read in.
type ReadingFormat string

const (
	ReadingFormatPrint     ReadingFormat = "print"
	ReadingFormatEbook     ReadingFormat = "ebook"
	ReadingFormatAudiobook ReadingFormat = "audiobook"
)

func (f ReadingFormat) String() string { return string(f) }

func (f ReadingFormat) IsValid() bool {
	switch f {
	case ReadingFormatPrint, ReadingFormatEbook, ReadingFormatAudiobook:
		return true
	}
	return false
}

// DisplayLabel returns the human-readable label used in event payloads.
func (f ReadingFormat) DisplayLabel() string {
	switch f {
	case ReadingFormatPrint:
		return "Print"
	case ReadingFormatEbook:
		return "E-book"
	case ReadingFormatAudiobook:
		return "Audiobook"
	default:
		return string(f)
	}
}
