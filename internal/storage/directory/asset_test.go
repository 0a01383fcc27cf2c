package directory

import "testing"

func TestAssetService(t *testing.T) {
	t.Run("round trip through the list view", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		a, err := d.Assets.Create(AssetParams{
			OrganizationID: org.ID,
			Name:           "MacBook Pro",
			SerialNumber:   "C02XL0T9JGH5",
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		got := d.ListAssets(org.ID)
		if len(got) != 1 {
			t.Fatalf("ListAssets returned %d assets, want 1", len(got))
		}
		v := got[0]
		if v.ID != a.ID || v.Name != "MacBook Pro" || v.SerialNumber != "C02XL0T9JGH5" {
			t.Errorf("unexpected view: %+v", v)
		}
		if v.PersonName != "" {
			t.Errorf("PersonName = %q, want empty for unassigned asset", v.PersonName)
		}
	})

	t.Run("Create rejects empty name", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		if _, err := d.Assets.Create(AssetParams{OrganizationID: org.ID}); !IsValidation(err) {
			t.Errorf("Create with empty name: got %v, want validation error", err)
		}
	})

	t.Run("assignment resolves holder name", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		p := mustCreatePerson(t, d, PersonParams{OrganizationID: org.ID, Name: "Bob", Email: "bob@acme.test"})
		a, err := d.Assets.Create(AssetParams{OrganizationID: org.ID, Name: "Dock"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ok, err := d.Assets.Update(a.ID, AssetPatch{PersonID: &p.ID})
		if err != nil || !ok {
			t.Fatalf("Update = (%t, %v), want (true, nil)", ok, err)
		}
		got := d.ListAssets(org.ID)
		if len(got) != 1 || got[0].PersonName != "Bob" {
			t.Errorf("ListAssets = %v, want holder Bob", got)
		}
		if got := d.Assets.CountHeldBy(p.ID); got != 1 {
			t.Errorf("CountHeldBy = %d, want 1", got)
		}
	})

	t.Run("patch preserves untargeted fields", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		a, err := d.Assets.Create(AssetParams{OrganizationID: org.ID, Name: "Dock", SerialNumber: "SN-1"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		name := "USB-C Dock"
		if _, err := d.Assets.Update(a.ID, AssetPatch{Name: &name}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		got, err := d.Assets.Get(a.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Name != "USB-C Dock" || got.SerialNumber != "SN-1" {
			t.Errorf("unexpected asset after patch: %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		d := openTestDirectory(t)
		org := mustCreateOrg(t, d, "Acme")
		a, err := d.Assets.Create(AssetParams{OrganizationID: org.ID, Name: "Dock"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ok, err := d.Assets.Delete(a.ID)
		if err != nil || !ok {
			t.Fatalf("Delete = (%t, %v), want (true, nil)", ok, err)
		}
		ok, err = d.Assets.Delete(a.ID)
		if err != nil || ok {
			t.Errorf("second Delete = (%t, %v), want (false, nil)", ok, err)
		}
	})
}
