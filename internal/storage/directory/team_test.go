package directory

import (
	"testing"
)

func TestTeamService(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			team, err := d.Teams.Create(org.ID, "Platform", "Runs the infra")
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if team.ID.IsZero() {
				t.Error("expected a generated ID")
			}
			if team.Name != "Platform" || team.Description != "Runs the infra" {
				t.Errorf("unexpected team: %+v", team)
			}
		})
		t.Run("rejects empty name", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			if _, err := d.Teams.Create(org.ID, "", ""); !IsValidation(err) {
				t.Errorf("Create with empty name: got %v, want validation error", err)
			}
		})
		t.Run("rejects missing organization", func(t *testing.T) {
			d := openTestDirectory(t)
			if _, err := d.Teams.Create(0, "Platform", ""); !IsValidation(err) {
				t.Errorf("Create without org: got %v, want validation error", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		team, err := d.Teams.Create(org.ID, "Platform", "Runs the infra")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		t.Run("patches only targeted fields", func(t *testing.T) {
			name := "Infrastructure"
			ok, err := d.Teams.Update(team.ID, TeamPatch{Name: &name})
			if err != nil || !ok {
				t.Fatalf("Update = (%t, %v), want (true, nil)", ok, err)
			}
			got, err := d.Teams.Get(team.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Name != "Infrastructure" {
				t.Errorf("Name = %q, want Infrastructure", got.Name)
			}
			if got.Description != "Runs the infra" {
				t.Errorf("Description = %q, want unchanged", got.Description)
			}
		})
		t.Run("missing target", func(t *testing.T) {
			name := "X"
			ok, err := d.Teams.Update(team.ID+1, TeamPatch{Name: &name})
			if err != nil || ok {
				t.Errorf("Update of missing team = (%t, %v), want (false, nil)", ok, err)
			}
		})
	})

	t.Run("Membership", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		team, err := d.Teams.Create(org.ID, "Platform", "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		bob := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
		alice := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Alice", Email: "alice@acme.test"})

		t.Run("add is idempotent", func(t *testing.T) {
			m1, err := d.Teams.AddMember(team.ID, bob.ID)
			if err != nil {
				t.Fatalf("AddMember failed: %v", err)
			}
			m2, err := d.Teams.AddMember(team.ID, bob.ID)
			if err != nil {
				t.Fatalf("second AddMember failed: %v", err)
			}
			if m1.ID != m2.ID {
				t.Errorf("AddMember twice created two memberships: %v and %v", m1.ID, m2.ID)
			}
			if got := d.Teams.MemberCount(team.ID); got != 1 {
				t.Errorf("MemberCount = %d, want 1", got)
			}
		})
		t.Run("members sorted by name", func(t *testing.T) {
			if _, err := d.Teams.AddMember(team.ID, alice.ID); err != nil {
				t.Fatalf("AddMember failed: %v", err)
			}
			views := d.ListTeams(org.ID)
			if len(views) != 1 {
				t.Fatalf("ListTeams returned %d teams, want 1", len(views))
			}
			members := views[0].Members
			if len(members) != 2 || members[0].Name != "Alice" || members[1].Name != "Bob" {
				t.Errorf("unexpected member order: %v", members)
			}
		})
		t.Run("remove", func(t *testing.T) {
			ok, err := d.Teams.RemoveMember(team.ID, bob.ID)
			if err != nil || !ok {
				t.Fatalf("RemoveMember = (%t, %v), want (true, nil)", ok, err)
			}
			if d.Teams.IsMember(team.ID, bob.ID) {
				t.Error("IsMember still true after removal")
			}
			ok, err = d.Teams.RemoveMember(team.ID, bob.ID)
			if err != nil || ok {
				t.Errorf("RemoveMember of non-member = (%t, %v), want (false, nil)", ok, err)
			}
		})
	})

	t.Run("Delete cascades memberships", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		team, err := d.Teams.Create(org.ID, "Platform", "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		p := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
		if _, err := d.Teams.AddMember(team.ID, p.ID); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		ok, err := d.Teams.Delete(team.ID)
		if err != nil || !ok {
			t.Fatalf("Delete = (%t, %v), want (true, nil)", ok, err)
		}
		if d.Teams.IsMember(team.ID, p.ID) {
			t.Error("membership survived team deletion")
		}
		for range d.Teams.IterMembershipsOf(p.ID) {
			t.Error("person still has memberships after team deletion")
		}
	})
}
