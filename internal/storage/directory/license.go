// Manages software licenses and their per-seat assignments.

package directory

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// License is a software license with a fixed pool of seats.
type License struct {
	ID             jsonldb.ID   `json:"id" jsonschema:"description=Unique license identifier"`
	OrganizationID jsonldb.ID   `json:"organization_id" jsonschema:"description=Organization this license belongs to"`
	Name           string       `json:"name" jsonschema:"description=Product name of the license"`
	AccessLink     string       `json:"access_link,omitempty" jsonschema:"description=URL where the licensed product is accessed"`
	AccessPassword string       `json:"access_password,omitempty" jsonschema:"description=Shared secret for the access link"`
	Code           string       `json:"code,omitempty" jsonschema:"description=Vendor-issued license code"`
	TotalSeats     int          `json:"total_seats" jsonschema:"description=Number of seats in the pool"`
	ExpiryDate     storage.Date `json:"expiry_date,omitempty" jsonschema:"description=Civil date the license expires"`
	Created        storage.Time `json:"created" jsonschema:"description=License creation timestamp"`
}

// Clone returns a deep copy of the License.
func (l *License) Clone() *License {
	c := *l
	return &c
}

// GetID returns the License's ID.
func (l *License) GetID() jsonldb.ID {
	return l.ID
}

// Validate checks that the License is valid.
func (l *License) Validate() error {
	if l.ID.IsZero() {
		return errIDRequired
	}
	if l.OrganizationID.IsZero() {
		return errOrgIDRequired
	}
	if l.Name == "" {
		return errNameRequired
	}
	if l.TotalSeats < 1 {
		return errSeatsPositive
	}
	return l.ExpiryDate.Validate()
}

// LicenseSeat is one slot of a license's pool. A seat with a zero PersonID is
// free; assignment fills PersonID and AssignedAt together.
type LicenseSeat struct {
	ID         jsonldb.ID   `json:"id" jsonschema:"description=Unique seat identifier"`
	LicenseID  jsonldb.ID   `json:"license_id" jsonschema:"description=License this seat belongs to"`
	PersonID   jsonldb.ID   `json:"person_id,omitzero" jsonschema:"description=Person holding the seat"`
	AssignedAt storage.Time `json:"assigned_at,omitempty" jsonschema:"description=When the seat was assigned"`
}

// Clone returns a deep copy of the LicenseSeat.
func (s *LicenseSeat) Clone() *LicenseSeat {
	c := *s
	return &c
}

// GetID returns the LicenseSeat's ID.
func (s *LicenseSeat) GetID() jsonldb.ID {
	return s.ID
}

// Validate checks that the LicenseSeat is valid.
func (s *LicenseSeat) Validate() error {
	if s.ID.IsZero() {
		return errIDRequired
	}
	if s.LicenseID.IsZero() {
		return errLicenseIDRequired
	}
	if !s.PersonID.IsZero() && s.AssignedAt == 0 {
		return errAssignedAtRequired
	}
	return nil
}

// Assigned reports whether the seat is held by a person.
func (s *LicenseSeat) Assigned() bool {
	return !s.PersonID.IsZero()
}

// LicenseParams are the caller-supplied fields for creating a license.
type LicenseParams struct {
	OrganizationID jsonldb.ID
	Name           string
	AccessLink     string
	AccessPassword string
	Code           string
	TotalSeats     int
	ExpiryDate     storage.Date
}

// LicensePatch is a partial update. Nil fields keep their stored value.
// A non-nil TotalSeats resizes the seat pool.
type LicensePatch struct {
	Name           *string
	AccessLink     *string
	AccessPassword *string
	Code           *string
	TotalSeats     *int
	ExpiryDate     *storage.Date
}

// LicenseService handles license and seat management.
type LicenseService struct {
	licenses      *jsonldb.Table[*License]
	licensesByOrg *jsonldb.Index[jsonldb.ID, *License]
	seats         *jsonldb.Table[*LicenseSeat]
	seatsByLic    *jsonldb.Index[jsonldb.ID, *LicenseSeat]
	seatsByHolder *jsonldb.Index[jsonldb.ID, *LicenseSeat]
}

// NewLicenseService creates a new license service backed by two tables.
func NewLicenseService(licensesPath, seatsPath string) (*LicenseService, error) {
	licenses, err := jsonldb.NewTable[*License](licensesPath)
	if err != nil {
		return nil, err
	}
	seats, err := jsonldb.NewTable[*LicenseSeat](seatsPath)
	if err != nil {
		return nil, err
	}
	s := &LicenseService{licenses: licenses, seats: seats}
	s.licensesByOrg = jsonldb.NewIndex(licenses, func(l *License) jsonldb.ID { return l.OrganizationID })
	s.seatsByLic = jsonldb.NewIndex(seats, func(seat *LicenseSeat) jsonldb.ID { return seat.LicenseID })
	s.seatsByHolder = jsonldb.NewIndex(seats, func(seat *LicenseSeat) jsonldb.ID { return seat.PersonID })
	return s, nil
}

// Create creates a new license and fans out one free seat row per seat in the
// pool. If any seat fails to persist, the license and the seats created so
// far are removed.
func (s *LicenseService) Create(params LicenseParams) (*License, error) {
	if params.OrganizationID.IsZero() {
		return nil, MissingField("organization_id")
	}
	if params.Name == "" {
		return nil, MissingField("name")
	}
	if params.TotalSeats < 1 {
		return nil, Invalid("total_seats", "total_seats must be at least 1")
	}
	if err := params.ExpiryDate.Validate(); err != nil {
		return nil, Invalid("expiry_date", err.Error())
	}
	l := &License{
		ID:             jsonldb.NewID(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		AccessLink:     params.AccessLink,
		AccessPassword: params.AccessPassword,
		Code:           params.Code,
		TotalSeats:     params.TotalSeats,
		ExpiryDate:     params.ExpiryDate,
		Created:        storage.Now(),
	}
	if err := s.licenses.Append(l); err != nil {
		return nil, err
	}
	var created []jsonldb.ID
	for range params.TotalSeats {
		seat := &LicenseSeat{ID: jsonldb.NewID(), LicenseID: l.ID}
		if err := s.seats.Append(seat); err != nil {
			s.rollbackCreate(l.ID, created)
			return nil, fmt.Errorf("failed to create seat: %w", err)
		}
		created = append(created, seat.ID)
	}
	return l, nil
}

// rollbackCreate undoes a partial license creation.
func (s *LicenseService) rollbackCreate(licenseID jsonldb.ID, seatIDs []jsonldb.ID) {
	for _, id := range seatIDs {
		_, _ = s.seats.Delete(id)
	}
	_, _ = s.licenses.Delete(licenseID)
}

// Get retrieves a license by ID.
func (s *LicenseService) Get(id jsonldb.ID) (*License, error) {
	l := s.licenses.Get(id)
	if l == nil {
		return nil, NotFound("license")
	}
	return l, nil
}

// Update applies a partial update. A changed TotalSeats resizes the pool:
// growth adds free seats, shrinkage removes free seats and fails with a
// conflict when fewer free seats remain than the reduction needs.
// Returns false if the license does not exist.
func (s *LicenseService) Update(id jsonldb.ID, patch LicensePatch) (bool, error) {
	if patch.Name != nil && *patch.Name == "" {
		return false, MissingField("name")
	}
	if patch.TotalSeats != nil && *patch.TotalSeats < 1 {
		return false, Invalid("total_seats", "total_seats must be at least 1")
	}
	if patch.ExpiryDate != nil {
		if err := patch.ExpiryDate.Validate(); err != nil {
			return false, Invalid("expiry_date", err.Error())
		}
	}
	prev := s.licenses.Get(id)
	if prev == nil {
		return false, nil
	}
	// The seat pool changes only after the license row update has flushed,
	// so a failed flush leaves the pool at its stored size. Shrink
	// feasibility is checked up front; a conflict rejects the whole update.
	grow := 0
	var surplus []jsonldb.ID
	if patch.TotalSeats != nil && *patch.TotalSeats != prev.TotalSeats {
		if *patch.TotalSeats > prev.TotalSeats {
			grow = *patch.TotalSeats - prev.TotalSeats
		} else {
			var err error
			if surplus, err = s.surplusFreeSeats(id, prev.TotalSeats, *patch.TotalSeats); err != nil {
				return false, err
			}
		}
	}
	_, err := s.licenses.Modify(id, func(l *License) error {
		if patch.Name != nil {
			l.Name = *patch.Name
		}
		if patch.AccessLink != nil {
			l.AccessLink = *patch.AccessLink
		}
		if patch.AccessPassword != nil {
			l.AccessPassword = *patch.AccessPassword
		}
		if patch.Code != nil {
			l.Code = *patch.Code
		}
		if patch.TotalSeats != nil {
			l.TotalSeats = *patch.TotalSeats
		}
		if patch.ExpiryDate != nil {
			l.ExpiryDate = *patch.ExpiryDate
		}
		return nil
	})
	if errors.Is(err, jsonldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for range grow {
		seat := &LicenseSeat{ID: jsonldb.NewID(), LicenseID: id}
		if err := s.seats.Append(seat); err != nil {
			return false, fmt.Errorf("failed to grow seat pool: %w", err)
		}
	}
	for _, sid := range surplus {
		if _, err := s.seats.Delete(sid); err != nil {
			return false, fmt.Errorf("failed to shrink seat pool: %w", err)
		}
	}
	return true, nil
}

// surplusFreeSeats picks the seats to remove when the pool shrinks from
// `from` to `to` seats, highest ID first. Assigned seats are never removed;
// shrinking below the assigned count is a conflict.
func (s *LicenseService) surplusFreeSeats(licenseID jsonldb.ID, from, to int) ([]jsonldb.ID, error) {
	var free []jsonldb.ID
	for seat := range s.seatsByLic.Iter(licenseID) {
		if !seat.Assigned() {
			free = append(free, seat.ID)
		}
	}
	surplus := from - to
	if len(free) < surplus {
		return nil, Conflict(fmt.Sprintf("cannot shrink to %d seats: %d seats are assigned", to, from-len(free)))
	}
	sort.Slice(free, func(i, j int) bool { return free[i] > free[j] })
	return free[:surplus], nil
}

// Delete removes a license and all of its seats.
// Returns false if the license does not exist.
func (s *LicenseService) Delete(id jsonldb.ID) (bool, error) {
	ok, err := s.licenses.Delete(id)
	if err != nil || !ok {
		return ok, err
	}
	var ids []jsonldb.ID
	for seat := range s.seatsByLic.Iter(id) {
		ids = append(ids, seat.ID)
	}
	for _, sid := range ids {
		if _, err := s.seats.Delete(sid); err != nil {
			return true, err
		}
	}
	return true, nil
}

// AssignSeat gives the person the free seat with the lowest ID.
// Fails with a capacity error when every seat is taken.
func (s *LicenseService) AssignSeat(licenseID, personID jsonldb.ID) (*LicenseSeat, error) {
	if personID.IsZero() {
		return nil, MissingField("person_id")
	}
	if l := s.licenses.Get(licenseID); l == nil {
		return nil, NotFound("license")
	}
	var freeID jsonldb.ID
	for seat := range s.seatsByLic.Iter(licenseID) {
		if seat.Assigned() {
			continue
		}
		if freeID.IsZero() || seat.ID < freeID {
			freeID = seat.ID
		}
	}
	if freeID.IsZero() {
		return nil, NoSeatAvailable()
	}
	return s.seats.Modify(freeID, func(seat *LicenseSeat) error {
		if seat.Assigned() {
			return Conflict("seat already assigned")
		}
		seat.PersonID = personID
		seat.AssignedAt = storage.Now()
		return nil
	})
}

// UnassignSeat frees a seat, clearing both the holder and the assignment time.
// Returns false if the seat does not exist.
func (s *LicenseService) UnassignSeat(seatID jsonldb.ID) (bool, error) {
	_, err := s.seats.Modify(seatID, func(seat *LicenseSeat) error {
		seat.PersonID = 0
		seat.AssignedAt = 0
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

// GetSeat retrieves a seat by ID.
func (s *LicenseService) GetSeat(id jsonldb.ID) (*LicenseSeat, error) {
	seat := s.seats.Get(id)
	if seat == nil {
		return nil, NotFound("seat")
	}
	return seat, nil
}

// UsedSeats returns the number of assigned seats of a license.
func (s *LicenseService) UsedSeats(licenseID jsonldb.ID) int {
	n := 0
	for seat := range s.seatsByLic.Iter(licenseID) {
		if seat.Assigned() {
			n++
		}
	}
	return n
}

// IterByOrg iterates over all licenses in an organization.
func (s *LicenseService) IterByOrg(orgID jsonldb.ID) iter.Seq[*License] {
	return s.licensesByOrg.Iter(orgID)
}

// IterSeats iterates over all seats of a license.
func (s *LicenseService) IterSeats(licenseID jsonldb.ID) iter.Seq[*LicenseSeat] {
	return s.seatsByLic.Iter(licenseID)
}

// Reload re-reads the license and seat tables from disk.
func (s *LicenseService) Reload() error {
	if err := s.licenses.Reload(); err != nil {
		return err
	}
	return s.seats.Reload()
}

// SeatsHeldBy returns the number of seats a person holds across licenses.
func (s *LicenseService) SeatsHeldBy(personID jsonldb.ID) int {
	if personID.IsZero() {
		return 0
	}
	return s.seatsByHolder.Count(personID)
}

var (
	errSeatsPositive      = errors.New("total seats must be at least 1")
	errLicenseIDRequired  = errors.New("license id is required")
	errAssignedAtRequired = errors.New("assigned seat requires an assignment time")
)
