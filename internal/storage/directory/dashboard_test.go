package directory

import (
	"fmt"
	"testing"
	"time"
)

func TestDashboard(t *testing.T) {
	d := openTestDirectory(t)
	fixedNow(d, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	org := mustCreateOrg(t, d, "Acme")

	recentLimit, horizonDays, expiringLimit := d.DashboardDefaults()
	if recentLimit != 5 || horizonDays != 30 || expiringLimit != 5 {
		t.Fatalf("DashboardDefaults = (%d, %d, %d), want (5, 30, 5)", recentLimit, horizonDays, expiringLimit)
	}

	for i := range recentLimit + 2 {
		mustCreatePerson(t, d, PersonParams{
			OrganizationID: org.ID,
			Name:           fmt.Sprintf("Person %d", i),
			Email:          fmt.Sprintf("p%d@acme.test", i),
		})
		if _, err := d.Assets.Create(AssetParams{
			OrganizationID: org.ID,
			Name:           fmt.Sprintf("Asset %d", i),
		}); err != nil {
			t.Fatalf("Create asset failed: %v", err)
		}
	}
	if _, err := d.Licenses.Create(LicenseParams{
		OrganizationID: org.ID, Name: "Figma", TotalSeats: 1, ExpiryDate: "2026-03-15",
	}); err != nil {
		t.Fatalf("Create license failed: %v", err)
	}
	if _, err := d.Licenses.Create(LicenseParams{
		OrganizationID: org.ID, Name: "Slack", TotalSeats: 1, ExpiryDate: "2027-01-01",
	}); err != nil {
		t.Fatalf("Create license failed: %v", err)
	}

	snap := d.Dashboard(org.ID)
	t.Run("recent people capped at the configured limit", func(t *testing.T) {
		if len(snap.RecentPeople) != recentLimit {
			t.Fatalf("got %d recent people, want %d", len(snap.RecentPeople), recentLimit)
		}
		last := fmt.Sprintf("Person %d", recentLimit+1)
		if snap.RecentPeople[0].Name != last {
			t.Errorf("newest person = %q, want %q", snap.RecentPeople[0].Name, last)
		}
	})
	t.Run("recent assets capped at the configured limit", func(t *testing.T) {
		if len(snap.RecentAssets) != recentLimit {
			t.Errorf("got %d recent assets, want %d", len(snap.RecentAssets), recentLimit)
		}
	})
	t.Run("only licenses inside the horizon appear", func(t *testing.T) {
		if len(snap.ExpiringLicenses) != 1 || snap.ExpiringLicenses[0].Name != "Figma" {
			t.Errorf("ExpiringLicenses = %v, want [Figma]", snap.ExpiringLicenses)
		}
	})
	t.Run("other organizations stay empty", func(t *testing.T) {
		other := mustCreateOrg(t, d, "Globex")
		empty := d.Dashboard(other.ID)
		if len(empty.RecentPeople) != 0 || len(empty.RecentAssets) != 0 || len(empty.ExpiringLicenses) != 0 {
			t.Errorf("Dashboard for empty org = %+v, want empty lists", empty)
		}
	})
}
