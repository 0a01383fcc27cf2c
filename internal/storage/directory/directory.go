// Composition root for the directory: opens every table under one data
// directory and answers the fixed read catalog with enriched views.

package directory

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// Directory bundles all entity services backed by one data directory.
//
// Reads are answered from the in-memory table caches; each query is a
// sequence of independent table reads, so a write landing between two reads
// of the same query can be observed. With a single caller driving the
// directory this does not happen.
type Directory struct {
	cfg storage.DashboardConfig
	now func() time.Time

	Organizations *OrganizationService
	People        *PersonService
	Teams         *TeamService
	Licenses      *LicenseService
	Assets        *AssetService
	Documents     *DocumentService
}

// DBDir returns the directory holding the JSONL tables under dataDir.
func DBDir(dataDir string) string {
	return filepath.Join(dataDir, "db")
}

// Open loads the configuration and every table under dataDir, creating
// missing files on first use.
func Open(dataDir string) (*Directory, error) {
	cfg, err := storage.LoadConfig(dataDir)
	if err != nil {
		return nil, err
	}
	dbDir := DBDir(dataDir)
	orgs, err := NewOrganizationService(filepath.Join(dbDir, "organizations.jsonl"))
	if err != nil {
		return nil, err
	}
	people, err := NewPersonService(filepath.Join(dbDir, "people.jsonl"))
	if err != nil {
		return nil, err
	}
	teams, err := NewTeamService(
		filepath.Join(dbDir, "teams.jsonl"),
		filepath.Join(dbDir, "team_memberships.jsonl"))
	if err != nil {
		return nil, err
	}
	licenses, err := NewLicenseService(
		filepath.Join(dbDir, "licenses.jsonl"),
		filepath.Join(dbDir, "license_seats.jsonl"))
	if err != nil {
		return nil, err
	}
	assets, err := NewAssetService(filepath.Join(dbDir, "assets.jsonl"))
	if err != nil {
		return nil, err
	}
	documents, err := NewDocumentService(filepath.Join(dbDir, "documents.jsonl"))
	if err != nil {
		return nil, err
	}
	return &Directory{
		cfg:           cfg.Dashboard,
		now:           time.Now,
		Organizations: orgs,
		People:        people,
		Teams:         teams,
		Licenses:      licenses,
		Assets:        assets,
		Documents:     documents,
	}, nil
}

// Reload re-reads every table from disk.
func (d *Directory) Reload() error {
	if err := d.Organizations.Reload(); err != nil {
		return err
	}
	if err := d.People.Reload(); err != nil {
		return err
	}
	if err := d.Teams.Reload(); err != nil {
		return err
	}
	if err := d.Licenses.Reload(); err != nil {
		return err
	}
	if err := d.Assets.Reload(); err != nil {
		return err
	}
	return d.Documents.Reload()
}

// PersonView is a person enriched with read-time relationship data.
type PersonView struct {
	*Person
	ManagerName       string `json:"manager_name,omitempty"`
	SubordinatesCount int    `json:"subordinates_count"`
	AssetsCount       int    `json:"assets_count"`
	LicensesCount     int    `json:"licenses_count"`
	DocumentsCount    int    `json:"documents_count"`
}

// PersonSummary is a person with the manager resolved but without the
// resource counts.
type PersonSummary struct {
	*Person
	ManagerName string `json:"manager_name,omitempty"`
}

// TeamView is a team with its member people resolved.
type TeamView struct {
	*Team
	Members []*Person `json:"members"`
}

// LicenseView is a license enriched with its assigned seat count. The full
// listing also attaches the seat list; dashboard summaries leave it nil.
type LicenseView struct {
	*License
	UsedSeats int        `json:"used_seats"`
	Seats     []SeatView `json:"seats,omitempty"`
}

// SeatView is a seat enriched with the holder's name.
type SeatView struct {
	*LicenseSeat
	PersonName string `json:"person_name,omitempty"`
}

// AssetView is an asset enriched with the holder's name.
type AssetView struct {
	*Asset
	PersonName string `json:"person_name,omitempty"`
}

// DocumentView is a document enriched with the owner's name.
type DocumentView struct {
	*Document
	PersonName string `json:"person_name,omitempty"`
}

// ListOrganizations returns all organizations ordered by name, then ID.
func (d *Directory) ListOrganizations() []*Organization {
	var out []*Organization
	for org := range d.Organizations.All() {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool {
		return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return out
}

// ListPeople returns the people of an organization with full enrichment,
// ordered by name, then ID.
func (d *Directory) ListPeople(orgID jsonldb.ID) []PersonView {
	var out []PersonView
	for p := range d.People.IterByOrg(orgID) {
		out = append(out, PersonView{
			Person:            p,
			ManagerName:       d.personName(p.ManagerID),
			SubordinatesCount: d.subordinates(p),
			AssetsCount:       d.Assets.CountHeldBy(p.ID),
			LicensesCount:     d.Licenses.SeatsHeldBy(p.ID),
			DocumentsCount:    d.Documents.CountOwnedBy(p.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return out
}

// RecentPeople returns the newest people of an organization, ordered by
// creation time descending, capped at limit.
func (d *Directory) RecentPeople(orgID jsonldb.ID, limit int) []PersonSummary {
	var out []PersonSummary
	for p := range d.People.IterByOrg(orgID) {
		out = append(out, PersonSummary{Person: p, ManagerName: d.personName(p.ManagerID)})
	}
	sort.Slice(out, func(i, j int) bool {
		return byNewest(out[i].Created, out[i].ID, out[j].Created, out[j].ID)
	})
	return out[:min(max(limit, 0), len(out))]
}

// ListTeams returns the teams of an organization with members resolved.
// Teams are ordered by name, members by person name.
func (d *Directory) ListTeams(orgID jsonldb.ID) []TeamView {
	var out []TeamView
	for t := range d.Teams.IterByOrg(orgID) {
		members := []*Person{}
		for m := range d.Teams.IterMembers(t.ID) {
			if p := d.person(m.PersonID); p != nil {
				members = append(members, p)
			}
		}
		sort.Slice(members, func(i, j int) bool {
			return byNameThenID(members[i].Name, members[i].ID, members[j].Name, members[j].ID)
		})
		out = append(out, TeamView{Team: t, Members: members})
	}
	sort.Slice(out, func(i, j int) bool {
		return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return out
}

// ListLicenses returns the licenses of an organization with seat usage and
// their seat lists, ordered by name, then ID.
func (d *Directory) ListLicenses(orgID jsonldb.ID) []LicenseView {
	var out []LicenseView
	for l := range d.Licenses.IterByOrg(orgID) {
		out = append(out, LicenseView{
			License:   l,
			UsedSeats: d.Licenses.UsedSeats(l.ID),
			Seats:     d.ListSeats(l.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return out
}

// ListSeats returns the seats of a license with holder names resolved,
// assigned seats ordered by assignment time; free seats come first.
func (d *Directory) ListSeats(licenseID jsonldb.ID) []SeatView {
	var out []SeatView
	for seat := range d.Licenses.IterSeats(licenseID) {
		out = append(out, SeatView{LicenseSeat: seat, PersonName: d.personName(seat.PersonID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedAt != out[j].AssignedAt {
			return out[i].AssignedAt < out[j].AssignedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExpiringLicenses returns licenses whose expiry date falls within
// horizonDays from today, inclusive on both ends, ordered by expiry date
// ascending and capped at limit. Licenses without an expiry date are skipped.
func (d *Directory) ExpiringLicenses(orgID jsonldb.ID, horizonDays, limit int) []LicenseView {
	today := storage.ToDate(d.now())
	horizon := today.AddDays(horizonDays)
	var out []LicenseView
	for l := range d.Licenses.IterByOrg(orgID) {
		if l.ExpiryDate.IsZero() || l.ExpiryDate < today || l.ExpiryDate > horizon {
			continue
		}
		out = append(out, LicenseView{License: l, UsedSeats: d.Licenses.UsedSeats(l.ID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiryDate != out[j].ExpiryDate {
			return out[i].ExpiryDate < out[j].ExpiryDate
		}
		return out[i].ID < out[j].ID
	})
	return out[:min(max(limit, 0), len(out))]
}

// ListAssets returns the assets of an organization with holder names,
// ordered by name, then ID.
func (d *Directory) ListAssets(orgID jsonldb.ID) []AssetView {
	var out []AssetView
	for a := range d.Assets.IterByOrg(orgID) {
		out = append(out, AssetView{Asset: a, PersonName: d.personName(a.PersonID)})
	}
	sort.Slice(out, func(i, j int) bool {
		return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return out
}

// RecentAssets returns the newest assets of an organization, ordered by
// creation time descending, capped at limit.
func (d *Directory) RecentAssets(orgID jsonldb.ID, limit int) []AssetView {
	var out []AssetView
	for a := range d.Assets.IterByOrg(orgID) {
		out = append(out, AssetView{Asset: a, PersonName: d.personName(a.PersonID)})
	}
	sort.Slice(out, func(i, j int) bool {
		return byNewest(out[i].Created, out[i].ID, out[j].Created, out[j].ID)
	})
	return out[:min(max(limit, 0), len(out))]
}

// ListDocuments returns the documents of an organization with owner names,
// ordered by name, then ID.
func (d *Directory) ListDocuments(orgID jsonldb.ID) []DocumentView {
	var out []DocumentView
	for doc := range d.Documents.IterByOrg(orgID) {
		out = append(out, DocumentView{Document: doc, PersonName: d.personName(doc.PersonID)})
	}
	sort.Slice(out, func(i, j int) bool {
		return byNameThenID(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return out
}

// person resolves a person reference, tolerating zero and dangling IDs.
func (d *Directory) person(id jsonldb.ID) *Person {
	if id.IsZero() {
		return nil
	}
	p, err := d.People.Get(id)
	if err != nil {
		return nil
	}
	return p
}

// personName resolves a person reference to a display name, or "" when the
// reference is unset or dangling.
func (d *Directory) personName(id jsonldb.ID) string {
	if p := d.person(id); p != nil {
		return p.Name
	}
	return ""
}

// subordinates counts the direct reports of a person within their own
// organization.
func (d *Directory) subordinates(p *Person) int {
	n := 0
	for q := range d.People.IterReports(p.ID) {
		if q.OrganizationID == p.OrganizationID {
			n++
		}
	}
	return n
}

// byNameThenID orders by name ascending with ID as a deterministic tie-break.
func byNameThenID(nameI string, idI jsonldb.ID, nameJ string, idJ jsonldb.ID) bool {
	if nameI != nameJ {
		return nameI < nameJ
	}
	return idI < idJ
}

// byNewest orders by creation time descending, newest ID first on ties.
func byNewest(createdI storage.Time, idI jsonldb.ID, createdJ storage.Time, idJ jsonldb.ID) bool {
	if createdI != createdJ {
		return createdI > createdJ
	}
	return idI > idJ
}
