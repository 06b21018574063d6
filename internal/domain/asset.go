package domain

import "time"

type AssetKind string

const (
	KindImage    AssetKind = "image"
	KindDocument AssetKind = "document"
)

type DurableState string

const (
	// StateStaged means the bytes live only in this session's handle table.
	StateStaged DurableState = "staged"
	// StateCommitted means the asset has a durable locator on the media
	// service. There is no transition back to staged.
	StateCommitted DurableState = "committed"
)

// ImageMeta is user-editable metadata of a gallery image.
type ImageMeta struct {
	AltText string `json:"altText"`
	Title   string `json:"title"`
}

// DocumentMeta is user-editable metadata of a property document.
type DocumentMeta struct {
	TypeCode    string `json:"typeCode"`
	DisplayName string `json:"displayName"`
}

// StagedAsset is one file the user attached during an edit session, or an
// already persisted asset carried into the session by its locator.
type StagedAsset struct {
	ID       string    `json:"id"`
	Kind     AssetKind `json:"kind"`
	Filename string    `json:"filename,omitempty"`
	Size     int64     `json:"size,omitempty"`

	// Handle ids into the session's blob table. Empty for committed
	// assets, whose bytes are not session-owned.
	SourceHandle    string `json:"sourceHandle,omitempty"`
	PreviewHandle   string `json:"previewHandle,omitempty"`
	ThumbnailHandle string `json:"thumbnailHandle,omitempty"`

	Image    ImageMeta    `json:"image,omitempty"`
	Document DocumentMeta `json:"document,omitempty"`

	Main          bool         `json:"main,omitempty"`
	State         DurableState `json:"state"`
	RemoteLocator string       `json:"remoteLocator,omitempty"`
	CommittedAt   *time.Time   `json:"committedAt,omitempty"`
}

// Staged reports whether the asset still needs an upload.
func (a *StagedAsset) Staged() bool {
	return a.State == StateStaged
}

// Snapshot is an immutable copy of one session's staging state. Slices are
// deep-copied value structs; mutating a snapshot never touches the session.
type Snapshot struct {
	Gallery   []StagedAsset `json:"gallery"`
	Documents []StagedAsset `json:"documents"`
}

// MainAsset returns the gallery's main image, or nil for an empty gallery.
func (s *Snapshot) MainAsset() *StagedAsset {
	for i := range s.Gallery {
		if s.Gallery[i].Main {
			return &s.Gallery[i]
		}
	}
	if len(s.Gallery) > 0 {
		return &s.Gallery[0]
	}
	return nil
}

// AssetCommit pairs a staged asset with the durable locator the upload
// batch returned for it.
type AssetCommit struct {
	AssetID string
	Locator string
}

// DocumentRecord is the fully resolved form of one property document as the
// persistence boundary expects it.
type DocumentRecord struct {
	ID          string    `json:"id"`
	TypeCode    string    `json:"typeCode"`
	DisplayName string    `json:"displayName"`
	URL         string    `json:"url"`
	CommittedAt time.Time `json:"committedAt"`
}

// PropertyForm carries the non-media fields of the property editor.
type PropertyForm struct {
	PropertyID  string         `json:"propertyId,omitempty"` // empty means create
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	IsProject   bool           `json:"isProject"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// PropertyPayload is the final create/update body sent to the persistence
// boundary. All media references are durable locators; nothing ephemeral
// survives into it.
type PropertyPayload struct {
	PropertyID      string           `json:"propertyId,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	DescriptionHTML string           `json:"descriptionHtml"`
	IsProject       bool             `json:"isProject"`
	Fields          map[string]any   `json:"fields,omitempty"`
	MainImage       string           `json:"mainImage"`
	Images          []string         `json:"images"`
	Documents       []DocumentRecord `json:"documents"`
}
