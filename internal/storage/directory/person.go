// Manages people and the self-referential manager relationship.

package directory

import (
	"errors"
	"iter"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// Person is a member of an organization. ManagerID optionally points at
// another Person; a zero ManagerID means no manager.
type Person struct {
	ID             jsonldb.ID   `json:"id" jsonschema:"description=Unique person identifier"`
	OrganizationID jsonldb.ID   `json:"organization_id" jsonschema:"description=Organization this person belongs to"`
	Name           string       `json:"name" jsonschema:"description=Full display name"`
	Email          string       `json:"email" jsonschema:"description=Contact email address"`
	Position       string       `json:"position,omitempty" jsonschema:"description=Job title"`
	ManagerID      jsonldb.ID   `json:"manager_id,omitzero" jsonschema:"description=Person ID of the direct manager"`
	Created        storage.Time `json:"created" jsonschema:"description=Person creation timestamp"`
}

// Clone returns a deep copy of the Person.
func (p *Person) Clone() *Person {
	c := *p
	return &c
}

// GetID returns the Person's ID.
func (p *Person) GetID() jsonldb.ID {
	return p.ID
}

// Validate checks that the Person is valid.
func (p *Person) Validate() error {
	if p.ID.IsZero() {
		return errIDRequired
	}
	if p.OrganizationID.IsZero() {
		return errOrgIDRequired
	}
	if p.Name == "" {
		return errNameRequired
	}
	if p.Email == "" {
		return errEmailRequired
	}
	if p.ManagerID == p.ID {
		return errSelfManager
	}
	return nil
}

// PersonParams are the caller-supplied fields for creating a person.
type PersonParams struct {
	OrganizationID jsonldb.ID
	Name           string
	Email          string
	Position       string
	ManagerID      jsonldb.ID
}

// PersonPatch is a partial update. Nil fields keep their stored value; there
// is no way to clear a set field through a patch.
type PersonPatch struct {
	Name      *string
	Email     *string
	Position  *string
	ManagerID *jsonldb.ID
}

// PersonService handles person management.
type PersonService struct {
	table     *jsonldb.Table[*Person]
	byOrg     *jsonldb.Index[jsonldb.ID, *Person]
	byManager *jsonldb.Index[jsonldb.ID, *Person]
}

// NewPersonService creates a new person service.
func NewPersonService(tablePath string) (*PersonService, error) {
	table, err := jsonldb.NewTable[*Person](tablePath)
	if err != nil {
		return nil, err
	}
	byOrg := jsonldb.NewIndex(table, func(p *Person) jsonldb.ID { return p.OrganizationID })
	byManager := jsonldb.NewIndex(table, func(p *Person) jsonldb.ID { return p.ManagerID })
	return &PersonService{table: table, byOrg: byOrg, byManager: byManager}, nil
}

// Create creates a new person.
func (s *PersonService) Create(params PersonParams) (*Person, error) {
	if params.OrganizationID.IsZero() {
		return nil, MissingField("organization_id")
	}
	if params.Name == "" {
		return nil, MissingField("name")
	}
	if params.Email == "" {
		return nil, MissingField("email")
	}
	p := &Person{
		ID:             jsonldb.NewID(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		Email:          params.Email,
		Position:       params.Position,
		ManagerID:      params.ManagerID,
		Created:        storage.Now(),
	}
	// A fresh ID cannot appear in an existing manager chain, but the chain
	// itself must terminate for reads to stay bounded.
	if err := s.checkManagerChain(p.ID, p.ManagerID); err != nil {
		return nil, err
	}
	if err := s.table.Append(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get retrieves a person by ID.
func (s *PersonService) Get(id jsonldb.ID) (*Person, error) {
	p := s.table.Get(id)
	if p == nil {
		return nil, NotFound("person")
	}
	return p, nil
}

// Update applies a partial update. Returns false if the person does not exist.
func (s *PersonService) Update(id jsonldb.ID, patch PersonPatch) (bool, error) {
	if patch.Name != nil && *patch.Name == "" {
		return false, MissingField("name")
	}
	if patch.Email != nil && *patch.Email == "" {
		return false, MissingField("email")
	}
	if patch.ManagerID != nil {
		if err := s.checkManagerChain(id, *patch.ManagerID); err != nil {
			return false, err
		}
	}
	_, err := s.table.Modify(id, func(p *Person) error {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Email != nil {
			p.Email = *patch.Email
		}
		if patch.Position != nil {
			p.Position = *patch.Position
		}
		if patch.ManagerID != nil {
			p.ManagerID = *patch.ManagerID
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

// Delete removes a person. References to the person (manager links, team
// memberships, seat and asset and document holders) are left dangling;
// reads resolve them as absent.
// Returns false if the person does not exist.
func (s *PersonService) Delete(id jsonldb.ID) (bool, error) {
	return s.table.Delete(id)
}

// IterByOrg iterates over all people in an organization.
func (s *PersonService) IterByOrg(orgID jsonldb.ID) iter.Seq[*Person] {
	return s.byOrg.Iter(orgID)
}

// IterReports iterates over the people whose manager is the given person.
// The caller is responsible for organization scoping.
func (s *PersonService) IterReports(managerID jsonldb.ID) iter.Seq[*Person] {
	return s.byManager.Iter(managerID)
}

// Reload re-reads the people table from disk.
func (s *PersonService) Reload() error {
	return s.table.Reload()
}

// checkManagerChain rejects a manager assignment that would make personID
// (transitively) manage itself. The walk is bounded by the table size;
// dangling manager references terminate the chain.
func (s *PersonService) checkManagerChain(personID, managerID jsonldb.ID) error {
	limit := s.table.Len() + 1
	for cur := managerID; !cur.IsZero() && limit > 0; limit-- {
		if cur == personID {
			return Conflict("manager chain forms a cycle")
		}
		next := s.table.Get(cur)
		if next == nil {
			return nil
		}
		cur = next.ManagerID
	}
	return nil
}

var (
	errEmailRequired = errors.New("email is required")
	errSelfManager   = errors.New("person cannot manage themself")
)
