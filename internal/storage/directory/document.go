// Manages document records. Content lives outside the store; rows hold an
// opaque file path handle.

package directory

import (
	"errors"
	"iter"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// FileStore stores and retrieves document content addressed by opaque paths.
// The directory itself never reads content; it only records the handle.
type FileStore interface {
	StoreFile(data []byte, name string) (path string, err error)
	RetrieveFile(path string) ([]byte, error)
}

// Document is a record of externally stored content, optionally owned by a
// person.
type Document struct {
	ID             jsonldb.ID   `json:"id" jsonschema:"description=Unique document identifier"`
	OrganizationID jsonldb.ID   `json:"organization_id" jsonschema:"description=Organization this document belongs to"`
	Name           string       `json:"name" jsonschema:"description=Document display name"`
	FilePath       string       `json:"file_path" jsonschema:"description=Opaque handle to the stored content"`
	PersonID       jsonldb.ID   `json:"person_id,omitzero" jsonschema:"description=Person owning the document"`
	Created        storage.Time `json:"created" jsonschema:"description=Document creation timestamp"`
}

// Clone returns a deep copy of the Document.
func (d *Document) Clone() *Document {
	c := *d
	return &c
}

// GetID returns the Document's ID.
func (d *Document) GetID() jsonldb.ID {
	return d.ID
}

// Validate checks that the Document is valid.
func (d *Document) Validate() error {
	if d.ID.IsZero() {
		return errIDRequired
	}
	if d.OrganizationID.IsZero() {
		return errOrgIDRequired
	}
	if d.Name == "" {
		return errNameRequired
	}
	if d.FilePath == "" {
		return errFilePathRequired
	}
	return nil
}

// DocumentParams are the caller-supplied fields for creating a document.
type DocumentParams struct {
	OrganizationID jsonldb.ID
	Name           string
	FilePath       string
	PersonID       jsonldb.ID
}

// DocumentPatch is a partial update. Nil fields keep their stored value.
type DocumentPatch struct {
	Name     *string
	FilePath *string
	PersonID *jsonldb.ID
}

// DocumentService handles document record management.
type DocumentService struct {
	table   *jsonldb.Table[*Document]
	byOrg   *jsonldb.Index[jsonldb.ID, *Document]
	byOwner *jsonldb.Index[jsonldb.ID, *Document]
}

// NewDocumentService creates a new document service.
func NewDocumentService(tablePath string) (*DocumentService, error) {
	table, err := jsonldb.NewTable[*Document](tablePath)
	if err != nil {
		return nil, err
	}
	byOrg := jsonldb.NewIndex(table, func(d *Document) jsonldb.ID { return d.OrganizationID })
	byOwner := jsonldb.NewIndex(table, func(d *Document) jsonldb.ID { return d.PersonID })
	return &DocumentService{table: table, byOrg: byOrg, byOwner: byOwner}, nil
}

// Create creates a new document record.
func (s *DocumentService) Create(params DocumentParams) (*Document, error) {
	if params.OrganizationID.IsZero() {
		return nil, MissingField("organization_id")
	}
	if params.Name == "" {
		return nil, MissingField("name")
	}
	if params.FilePath == "" {
		return nil, MissingField("file_path")
	}
	d := &Document{
		ID:             jsonldb.NewID(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		FilePath:       params.FilePath,
		PersonID:       params.PersonID,
		Created:        storage.Now(),
	}
	if err := s.table.Append(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(id jsonldb.ID) (*Document, error) {
	d := s.table.Get(id)
	if d == nil {
		return nil, NotFound("document")
	}
	return d, nil
}

// Update applies a partial update. Returns false if the document does not exist.
func (s *DocumentService) Update(id jsonldb.ID, patch DocumentPatch) (bool, error) {
	if patch.Name != nil && *patch.Name == "" {
		return false, MissingField("name")
	}
	if patch.FilePath != nil && *patch.FilePath == "" {
		return false, MissingField("file_path")
	}
	_, err := s.table.Modify(id, func(d *Document) error {
		if patch.Name != nil {
			d.Name = *patch.Name
		}
		if patch.FilePath != nil {
			d.FilePath = *patch.FilePath
		}
		if patch.PersonID != nil {
			d.PersonID = *patch.PersonID
		}
		return nil
	})
	if errors.Is(err, jsonldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a document record. The underlying content is not touched.
// Returns false if the document does not exist.
func (s *DocumentService) Delete(id jsonldb.ID) (bool, error) {
	return s.table.Delete(id)
}

// IterByOrg iterates over all documents in an organization.
func (s *DocumentService) IterByOrg(orgID jsonldb.ID) iter.Seq[*Document] {
	return s.byOrg.Iter(orgID)
}

// Reload re-reads the documents table from disk.
func (s *DocumentService) Reload() error {
	return s.table.Reload()
}

// CountOwnedBy returns the number of documents owned by a person.
func (s *DocumentService) CountOwnedBy(personID jsonldb.ID) int {
	if personID.IsZero() {
		return 0
	}
	return s.byOwner.Count(personID)
}

var errFilePathRequired = errors.New("file path is required")
