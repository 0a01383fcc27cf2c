// Imports a YAML seed manifest into an empty or existing directory.

package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage"
)

// SeedManifest is a declarative description of directory content. Entities
// reference people by name within the same organization, so names must be
// unique inside one manifest organization.
type SeedManifest struct {
	Organizations []SeedOrganization `yaml:"organizations"`
}

// SeedOrganization is one organization with its owned entities.
type SeedOrganization struct {
	Name      string         `yaml:"name"`
	People    []SeedPerson   `yaml:"people"`
	Teams     []SeedTeam     `yaml:"teams"`
	Licenses  []SeedLicense  `yaml:"licenses"`
	Assets    []SeedAsset    `yaml:"assets"`
	Documents []SeedDocument `yaml:"documents"`
}

// SeedPerson is one person. Manager is the name of another person in the
// same organization and must appear earlier in the list.
type SeedPerson struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Position string `yaml:"position"`
	Manager  string `yaml:"manager"`
}

// SeedTeam is one team with its members listed by person name.
type SeedTeam struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Members     []string `yaml:"members"`
}

// SeedLicense is one license; Assign lists the people to give seats to.
type SeedLicense struct {
	Name           string       `yaml:"name"`
	AccessLink     string       `yaml:"access_link"`
	AccessPassword string       `yaml:"access_password"`
	Code           string       `yaml:"code"`
	TotalSeats     int          `yaml:"total_seats"`
	ExpiryDate     storage.Date `yaml:"expiry_date"`
	Assign         []string     `yaml:"assign"`
}

// SeedAsset is one asset, optionally assigned by person name.
type SeedAsset struct {
	Name         string `yaml:"name"`
	SerialNumber string `yaml:"serial_number"`
	Person       string `yaml:"person"`
}

// SeedDocument is one document record, optionally owned by person name.
type SeedDocument struct {
	Name     string `yaml:"name"`
	FilePath string `yaml:"file_path"`
	Person   string `yaml:"person"`
}

// LoadSeedManifest parses a YAML seed manifest from disk.
func LoadSeedManifest(path string) (*SeedManifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read seed manifest: %w", err)
	}
	var m SeedManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse seed manifest: %w", err)
	}
	return &m, nil
}

// Import creates every entity described by the manifest. Already-present
// content is not deduplicated; importing the same manifest twice doubles it.
func (d *Directory) Import(m *SeedManifest) error {
	for i := range m.Organizations {
		if err := d.importOrganization(&m.Organizations[i]); err != nil {
			return fmt.Errorf("organization %q: %w", m.Organizations[i].Name, err)
		}
	}
	return nil
}

func (d *Directory) importOrganization(so *SeedOrganization) error {
	org, err := d.Organizations.Create(so.Name)
	if err != nil {
		return err
	}
	people := make(map[string]jsonldb.ID, len(so.People))
	resolve := func(name, field string) (jsonldb.ID, error) {
		if name == "" {
			return 0, nil
		}
		id, ok := people[name]
		if !ok {
			return 0, Invalid(field, fmt.Sprintf("unknown person %q", name))
		}
		return id, nil
	}

	for _, sp := range so.People {
		managerID, err := resolve(sp.Manager, "manager")
		if err != nil {
			return err
		}
		p, err := d.People.Create(PersonParams{
			OrganizationID: org.ID,
			Name:           sp.Name,
			Email:          sp.Email,
			Position:       sp.Position,
			ManagerID:      managerID,
		})
		if err != nil {
			return fmt.Errorf("person %q: %w", sp.Name, err)
		}
		people[sp.Name] = p.ID
	}

	for _, st := range so.Teams {
		t, err := d.Teams.Create(org.ID, st.Name, st.Description)
		if err != nil {
			return fmt.Errorf("team %q: %w", st.Name, err)
		}
		for _, member := range st.Members {
			personID, err := resolve(member, "members")
			if err != nil {
				return err
			}
			if _, err := d.Teams.AddMember(t.ID, personID); err != nil {
				return fmt.Errorf("team %q member %q: %w", st.Name, member, err)
			}
		}
	}

	for _, sl := range so.Licenses {
		l, err := d.Licenses.Create(LicenseParams{
			OrganizationID: org.ID,
			Name:           sl.Name,
			AccessLink:     sl.AccessLink,
			AccessPassword: sl.AccessPassword,
			Code:           sl.Code,
			TotalSeats:     sl.TotalSeats,
			ExpiryDate:     sl.ExpiryDate,
		})
		if err != nil {
			return fmt.Errorf("license %q: %w", sl.Name, err)
		}
		for _, holder := range sl.Assign {
			personID, err := resolve(holder, "assign")
			if err != nil {
				return err
			}
			if _, err := d.Licenses.AssignSeat(l.ID, personID); err != nil {
				return fmt.Errorf("license %q seat for %q: %w", sl.Name, holder, err)
			}
		}
	}

	for _, sa := range so.Assets {
		personID, err := resolve(sa.Person, "person")
		if err != nil {
			return err
		}
		if _, err := d.Assets.Create(AssetParams{
			OrganizationID: org.ID,
			Name:           sa.Name,
			SerialNumber:   sa.SerialNumber,
			PersonID:       personID,
		}); err != nil {
			return fmt.Errorf("asset %q: %w", sa.Name, err)
		}
	}

	for _, sd := range so.Documents {
		personID, err := resolve(sd.Person, "person")
		if err != nil {
			return err
		}
		if _, err := d.Documents.Create(DocumentParams{
			OrganizationID: org.ID,
			Name:           sd.Name,
			FilePath:       sd.FilePath,
			PersonID:       personID,
		}); err != nil {
			return fmt.Errorf("document %q: %w", sd.Name, err)
		}
	}
	return nil
}
