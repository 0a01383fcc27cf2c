// Manages physical assets and their optional assignment to people.

package directory

import (
	"errors"
	"iter"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// Asset is a physical item owned by an organization, optionally assigned to
// a person.
type Asset struct {
	ID             jsonldb.ID   `json:"id" jsonschema:"description=Unique asset identifier"`
	OrganizationID jsonldb.ID   `json:"organization_id" jsonschema:"description=Organization this asset belongs to"`
	Name           string       `json:"name" jsonschema:"description=Asset display name"`
	SerialNumber   string       `json:"serial_number,omitempty" jsonschema:"description=Manufacturer serial number"`
	PersonID       jsonldb.ID   `json:"person_id,omitzero" jsonschema:"description=Person the asset is assigned to"`
	Created        storage.Time `json:"created" jsonschema:"description=Asset creation timestamp"`
}

// Clone returns a deep copy of the Asset.
func (a *Asset) Clone() *Asset {
	c := *a
	return &c
}

// GetID returns the Asset's ID.
func (a *Asset) GetID() jsonldb.ID {
	return a.ID
}

// Validate checks that the Asset is valid.
func (a *Asset) Validate() error {
	if a.ID.IsZero() {
		return errIDRequired
	}
	if a.OrganizationID.IsZero() {
		return errOrgIDRequired
	}
	if a.Name == "" {
		return errNameRequired
	}
	return nil
}

// AssetParams are the caller-supplied fields for creating an asset.
type AssetParams struct {
	OrganizationID jsonldb.ID
	Name           string
	SerialNumber   string
	PersonID       jsonldb.ID
}

// AssetPatch is a partial update. Nil fields keep their stored value.
type AssetPatch struct {
	Name         *string
	SerialNumber *string
	PersonID     *jsonldb.ID
}

// AssetService handles asset management.
type AssetService struct {
	table    *jsonldb.Table[*Asset]
	byOrg    *jsonldb.Index[jsonldb.ID, *Asset]
	byHolder *jsonldb.Index[jsonldb.ID, *Asset]
}

// NewAssetService creates a new asset service.
func NewAssetService(tablePath string) (*AssetService, error) {
	table, err := jsonldb.NewTable[*Asset](tablePath)
	if err != nil {
		return nil, err
	}
	byOrg := jsonldb.NewIndex(table, func(a *Asset) jsonldb.ID { return a.OrganizationID })
	byHolder := jsonldb.NewIndex(table, func(a *Asset) jsonldb.ID { return a.PersonID })
	return &AssetService{table: table, byOrg: byOrg, byHolder: byHolder}, nil
}

// Create creates a new asset.
func (s *AssetService) Create(params AssetParams) (*Asset, error) {
	if params.OrganizationID.IsZero() {
		return nil, MissingField("organization_id")
	}
	if params.Name == "" {
		return nil, MissingField("name")
	}
	a := &Asset{
		ID:             jsonldb.NewID(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		SerialNumber:   params.SerialNumber,
		PersonID:       params.PersonID,
		Created:        storage.Now(),
	}
	if err := s.table.Append(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get retrieves an asset by ID.
func (s *AssetService) Get(id jsonldb.ID) (*Asset, error) {
	a := s.table.Get(id)
	if a == nil {
		return nil, NotFound("asset")
	}
	return a, nil
}

// Update applies a partial update. Returns false if the asset does not exist.
func (s *AssetService) Update(id jsonldb.ID, patch AssetPatch) (bool, error) {
	if patch.Name != nil && *patch.Name == "" {
		return false, MissingField("name")
	}
	_, err := s.table.Modify(id, func(a *Asset) error {
		if patch.Name != nil {
			a.Name = *patch.Name
		}
		if patch.SerialNumber != nil {
			a.SerialNumber = *patch.SerialNumber
		}
		if patch.PersonID != nil {
			a.PersonID = *patch.PersonID
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

// Delete removes an asset. Returns false if the asset does not exist.
func (s *AssetService) Delete(id jsonldb.ID) (bool, error) {
	return s.table.Delete(id)
}

// IterByOrg iterates over all assets in an organization.
func (s *AssetService) IterByOrg(orgID jsonldb.ID) iter.Seq[*Asset] {
	return s.byOrg.Iter(orgID)
}

// Reload re-reads the assets table from disk.
func (s *AssetService) Reload() error {
	return s.table.Reload()
}

// CountHeldBy returns the number of assets assigned to a person.
func (s *AssetService) CountHeldBy(personID jsonldb.ID) int {
	if personID.IsZero() {
		return 0
	}
	return s.byHolder.Count(personID)
}
