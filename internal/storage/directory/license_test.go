package directory

import (
	"errors"
	"testing"
	"time"

	"github.com/orgdesk/orgdesk/internal/storage"
)

func TestLicenseService(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("fans out one row per seat", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 3})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			seats := d.ListSeats(l.ID)
			if len(seats) != 3 {
				t.Fatalf("got %d seats, want 3", len(seats))
			}
			for _, s := range seats {
				if s.Assigned() {
					t.Errorf("seat %v starts assigned", s.ID)
				}
			}
			if got := d.Licenses.UsedSeats(l.ID); got != 0 {
				t.Errorf("UsedSeats = %d, want 0", got)
			}
		})
		t.Run("rejects non-positive seats", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			if _, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 0}); !IsValidation(err) {
				t.Errorf("Create with 0 seats: got %v, want validation error", err)
			}
		})
		t.Run("rejects malformed expiry date", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			params := LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 1, ExpiryDate: "03/01/2026"}
			if _, err := d.Licenses.Create(params); !IsValidation(err) {
				t.Errorf("Create with bad date: got %v, want validation error", err)
			}
		})
	})

	t.Run("AssignSeat", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		p := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
		q := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Eve", Email: "eve@acme.test"})
		l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 1})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		t.Run("fills holder and time", func(t *testing.T) {
			seat, err := d.Licenses.AssignSeat(l.ID, p.ID)
			if err != nil {
				t.Fatalf("AssignSeat failed: %v", err)
			}
			if seat.PersonID != p.ID || seat.AssignedAt == 0 {
				t.Errorf("unexpected seat after assignment: %+v", seat)
			}
			if got := d.Licenses.UsedSeats(l.ID); got != 1 {
				t.Errorf("UsedSeats = %d, want 1", got)
			}
		})
		t.Run("exhausted pool", func(t *testing.T) {
			_, err := d.Licenses.AssignSeat(l.ID, q.ID)
			if !IsNoSeatAvailable(err) {
				t.Errorf("AssignSeat on full license: got %v, want seat capacity error", err)
			}
		})
		t.Run("missing license", func(t *testing.T) {
			_, err := d.Licenses.AssignSeat(l.ID+1, p.ID)
			if !IsNotFound(err) {
				t.Errorf("AssignSeat on missing license: got %v, want not found", err)
			}
		})
		t.Run("unassign frees the seat", func(t *testing.T) {
			seats := d.ListSeats(l.ID)
			if len(seats) != 1 {
				t.Fatalf("got %d seats, want 1", len(seats))
			}
			ok, err := d.Licenses.UnassignSeat(seats[0].ID)
			if err != nil || !ok {
				t.Fatalf("UnassignSeat = (%t, %v), want (true, nil)", ok, err)
			}
			got, err := d.Licenses.GetSeat(seats[0].ID)
			if err != nil {
				t.Fatalf("GetSeat failed: %v", err)
			}
			if got.Assigned() || got.AssignedAt != 0 {
				t.Errorf("seat not cleared: %+v", got)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("patches only targeted fields", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			l, err := d.Licenses.Create(LicenseParams{
				OrganizationID: org.ID,
				Name:           "Figma",
				AccessLink:     "https://figma.example",
				Code:           "FG-1",
				TotalSeats:     2,
			})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			code := "FG-2"
			ok, err := d.Licenses.Update(l.ID, LicensePatch{Code: &code})
			if err != nil || !ok {
				t.Fatalf("Update = (%t, %v), want (true, nil)", ok, err)
			}
			got, err := d.Licenses.Get(l.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Code != "FG-2" {
				t.Errorf("Code = %q, want FG-2", got.Code)
			}
			if got.Name != "Figma" || got.AccessLink != "https://figma.example" || got.TotalSeats != 2 {
				t.Errorf("untargeted fields changed: %+v", got)
			}
		})
		t.Run("grow adds free seats", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 1})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			seats := 3
			ok, err := d.Licenses.Update(l.ID, LicensePatch{TotalSeats: &seats})
			if err != nil || !ok {
				t.Fatalf("Update = (%t, %v), want (true, nil)", ok, err)
			}
			if got := len(d.ListSeats(l.ID)); got != 3 {
				t.Errorf("got %d seats after growth, want 3", got)
			}
		})
		t.Run("shrink removes free seats only", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			p := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
			l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 3})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if _, err := d.Licenses.AssignSeat(l.ID, p.ID); err != nil {
				t.Fatalf("AssignSeat failed: %v", err)
			}
			seats := 1
			ok, err := d.Licenses.Update(l.ID, LicensePatch{TotalSeats: &seats})
			if err != nil || !ok {
				t.Fatalf("Update = (%t, %v), want (true, nil)", ok, err)
			}
			left := d.ListSeats(l.ID)
			if len(left) != 1 || !left[0].Assigned() {
				t.Errorf("unexpected seats after shrink: %v", left)
			}
		})
		t.Run("shrink below assigned count is a conflict", func(t *testing.T) {
			d := openTestDirectory(t)
			org := mustCreateOrg(t, d, "Acme")
			p := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
			q := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Eve", Email: "eve@acme.test"})
			l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 2})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if _, err := d.Licenses.AssignSeat(l.ID, p.ID); err != nil {
				t.Fatalf("AssignSeat failed: %v", err)
			}
			if _, err := d.Licenses.AssignSeat(l.ID, q.ID); err != nil {
				t.Fatalf("AssignSeat failed: %v", err)
			}
			seats := 1
			_, err = d.Licenses.Update(l.ID, LicensePatch{TotalSeats: &seats})
			var de *Error
			if !errors.As(err, &de) || de.Code() != ErrorCodeConflict {
				t.Errorf("shrink below assigned count: got %v, want conflict", err)
			}
			if got := len(d.ListSeats(l.ID)); got != 2 {
				t.Errorf("got %d seats after failed shrink, want 2", got)
			}
			got, err := d.Licenses.Get(l.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.TotalSeats != 2 {
				t.Errorf("TotalSeats = %d after failed shrink, want 2", got.TotalSeats)
			}
		})
	})

	t.Run("Delete cascades seats", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 2})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ok, err := d.Licenses.Delete(l.ID)
		if err != nil || !ok {
			t.Fatalf("Delete = (%t, %v), want (true, nil)", ok, err)
		}
		if got := len(d.ListSeats(l.ID)); got != 0 {
			t.Errorf("got %d seats after license deletion, want 0", got)
		}
	})

	t.Run("full listing attaches the seat list", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		p := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
		l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 2})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := d.Licenses.AssignSeat(l.ID, p.ID); err != nil {
			t.Fatalf("AssignSeat failed: %v", err)
		}
		got := d.ListLicenses(org.ID)
		if len(got) != 1 {
			t.Fatalf("ListLicenses returned %d licenses, want 1", len(got))
		}
		if len(got[0].Seats) != 2 {
			t.Fatalf("got %d attached seats, want 2", len(got[0].Seats))
		}
		if got[0].Seats[0].Assigned() {
			t.Errorf("free seat should come first: %+v", got[0].Seats[0])
		}
		if got[0].Seats[1].PersonName != "Bob" {
			t.Errorf("assigned seat holder = %q, want Bob", got[0].Seats[1].PersonName)
		}
	})

	t.Run("ListSeats orders free first then by assignment", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		p := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
		l, err := d.Licenses.Create(LicenseParams{OrganizationID: org.ID, Name: "Figma", TotalSeats: 3})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		assigned, err := d.Licenses.AssignSeat(l.ID, p.ID)
		if err != nil {
			t.Fatalf("AssignSeat failed: %v", err)
		}
		seats := d.ListSeats(l.ID)
		if len(seats) != 3 {
			t.Fatalf("got %d seats, want 3", len(seats))
		}
		if seats[0].Assigned() || seats[1].Assigned() {
			t.Errorf("free seats should come first: %v", seats)
		}
		if seats[2].ID != assigned.ID || seats[2].PersonName != "Bob" {
			t.Errorf("assigned seat should come last with its holder: %+v", seats[2])
		}
	})

	t.Run("ExpiringLicenses", func(t *testing.T) {
		d := openTestDirectory(t)
		fixedNow(d, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		org := mustCreateOrg(t, d, "Acme")
		add := func(name string, expiry storage.Date) {
			t.Helper()
			if _, err := d.Licenses.Create(LicenseParams{
				OrganizationID: org.ID, Name: name, TotalSeats: 1, ExpiryDate: expiry,
			}); err != nil {
				t.Fatalf("Create %s failed: %v", name, err)
			}
		}
		add("Expired", "2026-02-28")
		add("Today", "2026-03-01")
		add("Edge", "2026-03-31")
		add("Beyond", "2026-04-01")
		add("Perpetual", "")

		t.Run("window is inclusive on both ends", func(t *testing.T) {
			got := d.ExpiringLicenses(org.ID, 30, 10)
			if len(got) != 2 {
				t.Fatalf("got %d licenses, want 2: %v", len(got), got)
			}
			if got[0].Name != "Today" || got[1].Name != "Edge" {
				t.Errorf("unexpected order: %q, %q", got[0].Name, got[1].Name)
			}
		})
		t.Run("limit caps the result", func(t *testing.T) {
			got := d.ExpiringLicenses(org.ID, 30, 1)
			if len(got) != 1 || got[0].Name != "Today" {
				t.Errorf("ExpiringLicenses with limit 1 = %v, want [Today]", got)
			}
		})
	})
}
