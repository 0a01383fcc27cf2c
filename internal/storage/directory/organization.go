// Manages organization entities, the tenancy root for everything else.

package directory

import (
	"errors"
	"iter"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// Organization is the root scoping unit; every other entity belongs to
// exactly one.
type Organization struct {
	ID      jsonldb.ID   `json:"id" jsonschema:"description=Unique organization identifier"`
	Name    string       `json:"name" jsonschema:"description=Display name of the organization"`
	Created storage.Time `json:"created" jsonschema:"description=Organization creation timestamp"`
}

// Clone returns a deep copy of the Organization.
func (o *Organization) Clone() *Organization {
	c := *o
	return &c
}

// GetID returns the Organization's ID.
func (o *Organization) GetID() jsonldb.ID {
	return o.ID
}

// Validate checks that the Organization is valid.
func (o *Organization) Validate() error {
	if o.ID.IsZero() {
		return errIDRequired
	}
	if o.Name == "" {
		return errNameRequired
	}
	return nil
}

// OrganizationService handles organization management.
type OrganizationService struct {
	table *jsonldb.Table[*Organization]
}

// NewOrganizationService creates a new organization service.
func NewOrganizationService(tablePath string) (*OrganizationService, error) {
	table, err := jsonldb.NewTable[*Organization](tablePath)
	if err != nil {
		return nil, err
	}
	return &OrganizationService{table: table}, nil
}

// Create creates a new organization.
func (s *OrganizationService) Create(name string) (*Organization, error) {
	if name == "" {
		return nil, MissingField("name")
	}
	org := &Organization{
		ID:      jsonldb.NewID(),
		Name:    name,
		Created: storage.Now(),
	}
	if err := s.table.Append(org); err != nil {
		return nil, err
	}
	return org, nil
}

// Get retrieves an organization by ID.
func (s *OrganizationService) Get(id jsonldb.ID) (*Organization, error) {
	org := s.table.Get(id)
	if org == nil {
		return nil, NotFound("organization")
	}
	return org, nil
}

// Rename changes an organization's display name.
// Returns false if the organization does not exist.
func (s *OrganizationService) Rename(id jsonldb.ID, name string) (bool, error) {
	if name == "" {
		return false, MissingField("name")
	}
	_, err := s.table.Modify(id, func(org *Organization) error {
		org.Name = name
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

// Delete removes an organization. Owned entities are not cascaded; callers
// must not leave orphans behind.
// Returns false if the organization does not exist.
func (s *OrganizationService) Delete(id jsonldb.ID) (bool, error) {
	return s.table.Delete(id)
}

// All iterates over all organizations in ID order.
func (s *OrganizationService) All() iter.Seq[*Organization] {
	return s.table.All()
}

// Count returns the total number of organizations.
func (s *OrganizationService) Count() int {
	return s.table.Len()
}

// Reload re-reads the organizations table from disk.
func (s *OrganizationService) Reload() error {
	return s.table.Reload()
}
