// Manages teams and team membership within an organization.

package directory

import (
	"errors"
	"iter"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// Team is a named group of people within an organization.
type Team struct {
	ID             jsonldb.ID   `json:"id" jsonschema:"description=Unique team identifier"`
	OrganizationID jsonldb.ID   `json:"organization_id" jsonschema:"description=Organization this team belongs to"`
	Name           string       `json:"name" jsonschema:"description=Team display name"`
	Description    string       `json:"description,omitempty" jsonschema:"description=Free-form team description"`
	Created        storage.Time `json:"created" jsonschema:"description=Team creation timestamp"`
}

// Clone returns a deep copy of the Team.
func (t *Team) Clone() *Team {
	c := *t
	return &c
}

// GetID returns the Team's ID.
func (t *Team) GetID() jsonldb.ID {
	return t.ID
}

// Validate checks that the Team is valid.
func (t *Team) Validate() error {
	if t.ID.IsZero() {
		return errIDRequired
	}
	if t.OrganizationID.IsZero() {
		return errOrgIDRequired
	}
	if t.Name == "" {
		return errNameRequired
	}
	return nil
}

// TeamMembership links a person to a team. At most one membership exists per
// (team, person) pair.
type TeamMembership struct {
	ID       jsonldb.ID   `json:"id" jsonschema:"description=Unique membership identifier"`
	TeamID   jsonldb.ID   `json:"team_id" jsonschema:"description=Team the person belongs to"`
	PersonID jsonldb.ID   `json:"person_id" jsonschema:"description=Person who is a member"`
	Created  storage.Time `json:"created" jsonschema:"description=When the person joined the team"`
}

// Clone returns a deep copy of the TeamMembership.
func (m *TeamMembership) Clone() *TeamMembership {
	c := *m
	return &c
}

// GetID returns the TeamMembership's ID.
func (m *TeamMembership) GetID() jsonldb.ID {
	return m.ID
}

// Validate checks that the TeamMembership is valid.
func (m *TeamMembership) Validate() error {
	if m.ID.IsZero() {
		return errIDRequired
	}
	if m.TeamID.IsZero() {
		return errTeamIDRequired
	}
	if m.PersonID.IsZero() {
		return errPersonIDRequired
	}
	return nil
}

// teamPersonKey is the composite key for membership lookups.
type teamPersonKey struct {
	teamID   jsonldb.ID
	personID jsonldb.ID
}

// TeamPatch is a partial update. Nil fields keep their stored value.
type TeamPatch struct {
	Name        *string
	Description *string
}

// TeamService handles team and membership management.
type TeamService struct {
	teams       *jsonldb.Table[*Team]
	teamsByOrg  *jsonldb.Index[jsonldb.ID, *Team]
	memberships *jsonldb.Table[*TeamMembership]
	byTeam      *jsonldb.Index[jsonldb.ID, *TeamMembership]
	byPerson    *jsonldb.Index[jsonldb.ID, *TeamMembership]
	byPair      *jsonldb.UniqueIndex[teamPersonKey, *TeamMembership]
}

// NewTeamService creates a new team service backed by two tables.
func NewTeamService(teamsPath, membershipsPath string) (*TeamService, error) {
	teams, err := jsonldb.NewTable[*Team](teamsPath)
	if err != nil {
		return nil, err
	}
	memberships, err := jsonldb.NewTable[*TeamMembership](membershipsPath)
	if err != nil {
		return nil, err
	}
	s := &TeamService{teams: teams, memberships: memberships}
	s.teamsByOrg = jsonldb.NewIndex(teams, func(t *Team) jsonldb.ID { return t.OrganizationID })
	s.byTeam = jsonldb.NewIndex(memberships, func(m *TeamMembership) jsonldb.ID { return m.TeamID })
	s.byPerson = jsonldb.NewIndex(memberships, func(m *TeamMembership) jsonldb.ID { return m.PersonID })
	s.byPair = jsonldb.NewUniqueIndex(memberships, func(m *TeamMembership) teamPersonKey {
		return teamPersonKey{teamID: m.TeamID, personID: m.PersonID}
	})
	return s, nil
}

// Create creates a new team.
func (s *TeamService) Create(orgID jsonldb.ID, name, description string) (*Team, error) {
	if orgID.IsZero() {
		return nil, MissingField("organization_id")
	}
	if name == "" {
		return nil, MissingField("name")
	}
	t := &Team{
		ID:             jsonldb.NewID(),
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		Created:        storage.Now(),
	}
	if err := s.teams.Append(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get retrieves a team by ID.
func (s *TeamService) Get(id jsonldb.ID) (*Team, error) {
	t := s.teams.Get(id)
	if t == nil {
		return nil, NotFound("team")
	}
	return t, nil
}

// Update applies a partial update. Returns false if the team does not exist.
func (s *TeamService) Update(id jsonldb.ID, patch TeamPatch) (bool, error) {
	if patch.Name != nil && *patch.Name == "" {
		return false, MissingField("name")
	}
	_, err := s.teams.Modify(id, func(t *Team) error {
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Description != nil {
			t.Description = *patch.Description
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

// Delete removes a team and all of its memberships.
// Returns false if the team does not exist.
func (s *TeamService) Delete(id jsonldb.ID) (bool, error) {
	ok, err := s.teams.Delete(id)
	if err != nil || !ok {
		return ok, err
	}
	var ids []jsonldb.ID
	for m := range s.byTeam.Iter(id) {
		ids = append(ids, m.ID)
	}
	for _, mid := range ids {
		if _, err := s.memberships.Delete(mid); err != nil {
			return true, err
		}
	}
	return true, nil
}

// AddMember adds a person to a team. Adding an existing member is a no-op;
// the original membership is returned unchanged.
func (s *TeamService) AddMember(teamID, personID jsonldb.ID) (*TeamMembership, error) {
	if teamID.IsZero() {
		return nil, MissingField("team_id")
	}
	if personID.IsZero() {
		return nil, MissingField("person_id")
	}
	if existing := s.byPair.Get(teamPersonKey{teamID: teamID, personID: personID}); existing != nil {
		return existing, nil
	}
	m := &TeamMembership{
		ID:       jsonldb.NewID(),
		TeamID:   teamID,
		PersonID: personID,
		Created:  storage.Now(),
	}
	if err := s.memberships.Append(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMember removes a person from a team.
// Returns false if the person was not a member.
func (s *TeamService) RemoveMember(teamID, personID jsonldb.ID) (bool, error) {
	m := s.byPair.Get(teamPersonKey{teamID: teamID, personID: personID})
	if m == nil {
		return false, nil
	}
	return s.memberships.Delete(m.ID)
}

// IsMember reports whether the person belongs to the team.
func (s *TeamService) IsMember(teamID, personID jsonldb.ID) bool {
	return s.byPair.Get(teamPersonKey{teamID: teamID, personID: personID}) != nil
}

// IterByOrg iterates over all teams in an organization.
func (s *TeamService) IterByOrg(orgID jsonldb.ID) iter.Seq[*Team] {
	return s.teamsByOrg.Iter(orgID)
}

// IterMembers iterates over the memberships of a team.
func (s *TeamService) IterMembers(teamID jsonldb.ID) iter.Seq[*TeamMembership] {
	return s.byTeam.Iter(teamID)
}

// IterMembershipsOf iterates over the memberships held by a person.
func (s *TeamService) IterMembershipsOf(personID jsonldb.ID) iter.Seq[*TeamMembership] {
	return s.byPerson.Iter(personID)
}

// Reload re-reads the team and membership tables from disk.
func (s *TeamService) Reload() error {
	if err := s.teams.Reload(); err != nil {
		return err
	}
	return s.memberships.Reload()
}

// MemberCount returns the number of members of a team.
func (s *TeamService) MemberCount(teamID jsonldb.ID) int {
	return s.byTeam.Count(teamID)
}

var (
	errTeamIDRequired   = errors.New("team id is required")
	errPersonIDRequired = errors.New("person id is required")
)
