// Builds the dashboard snapshot from the read catalog.

package directory

import "github.com/orgdesk/orgdesk/internal/jsonldb"

// DashboardSnapshot is the summary view for one organization.
//
// The three lists are read sequentially, not under one lock, so with
// concurrent writers they can reflect slightly different instants.
type DashboardSnapshot struct {
	RecentPeople     []PersonSummary `json:"recent_people"`
	RecentAssets     []AssetView     `json:"recent_assets"`
	ExpiringLicenses []LicenseView   `json:"expiring_licenses"`
}

// Dashboard composes the recent-activity and expiring-license lists for an
// organization using the configured limits and horizon.
func (d *Directory) Dashboard(orgID jsonldb.ID) DashboardSnapshot {
	return DashboardSnapshot{
		RecentPeople:     d.RecentPeople(orgID, d.cfg.RecentLimit),
		RecentAssets:     d.RecentAssets(orgID, d.cfg.RecentLimit),
		ExpiringLicenses: d.ExpiringLicenses(orgID, d.cfg.ExpiryHorizonDays, d.cfg.ExpiringLimit),
	}
}

// DashboardDefaults returns the configured dashboard limits.
func (d *Directory) DashboardDefaults() (recentLimit, horizonDays, expiringLimit int) {
	return d.cfg.RecentLimit, d.cfg.ExpiryHorizonDays, d.cfg.ExpiringLimit
}
