// Package main is the entry point for the orgdesk tool.
//
// orgdesk is a local-first organizational directory: organizations, people,
// teams, software licenses with per-seat assignment, assets and documents,
// stored as JSONL tables under a data directory. Configuration is read from
// CLI flags and config.json (dashboard limits).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/orgdesk/orgdesk/internal/jsonldb"
	"github.com/orgdesk/orgdesk/internal/storage/directory"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "orgdesk: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: orgdesk [flags] <command> [args]

Commands:
  orgs                     List organizations
  people                   List people of the organization
  teams                    List teams with members
  licenses                 List licenses with seat usage
  seats <license-id>       List the seats of a license
  assets                   List assets
  documents                List documents
  dashboard [-watch]       Print the dashboard summary
  seed <file.yaml>         Import a seed manifest
  version                  Print version and exit

Commands scoped to an organization take -org; when the store holds exactly
one organization it is used by default.
`

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	orgFlag := flag.String("org", "", "Organization ID for scoped commands")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	if err := parseLogLevel(ll, *logLevel); err != nil {
		return err
	}
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop time when running under systemd.
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]

	if cmd == "version" {
		printVersion()
		return nil
	}

	dir, err := directory.Open(*dataDir)
	if err != nil {
		return err
	}

	switch cmd {
	case "orgs":
		return cmdOrgs(dir, args)
	case "people":
		return scoped(dir, *orgFlag, args, cmdPeople)
	case "teams":
		return scoped(dir, *orgFlag, args, cmdTeams)
	case "licenses":
		return scoped(dir, *orgFlag, args, cmdLicenses)
	case "seats":
		return cmdSeats(dir, args)
	case "assets":
		return scoped(dir, *orgFlag, args, cmdAssets)
	case "documents":
		return scoped(dir, *orgFlag, args, cmdDocuments)
	case "dashboard":
		return cmdDashboard(ctx, dir, *dataDir, *orgFlag, args)
	case "seed":
		return cmdSeed(dir, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseLogLevel(ll *slog.LevelVar, level string) error {
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level %q", level)
	}
	return nil
}

// scoped resolves the organization for a scoped command and runs it.
// Without -org, a store holding exactly one organization selects it.
func scoped(dir *directory.Directory, orgFlag string, args []string, fn func(*directory.Directory, jsonldb.ID) error) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	orgID, err := resolveOrg(dir, orgFlag)
	if err != nil {
		return err
	}
	return fn(dir, orgID)
}

func resolveOrg(dir *directory.Directory, orgFlag string) (jsonldb.ID, error) {
	if orgFlag != "" {
		id, err := jsonldb.DecodeID(orgFlag)
		if err != nil {
			return 0, fmt.Errorf("invalid -org: %w", err)
		}
		if _, err := dir.Organizations.Get(id); err != nil {
			return 0, err
		}
		return id, nil
	}
	switch dir.Organizations.Count() {
	case 0:
		return 0, errors.New("no organizations; run seed first")
	case 1:
		var id jsonldb.ID
		for org := range dir.Organizations.All() {
			id = org.ID
		}
		return id, nil
	default:
		return 0, errors.New("several organizations exist; pass -org")
	}
}

func cmdOrgs(dir *directory.Directory, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, org := range dir.ListOrganizations() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", org.ID, org.Name, org.Created.AsTime().Format(time.DateOnly))
	}
	return w.Flush()
}

func cmdPeople(dir *directory.Directory, orgID jsonldb.ID) error {
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPOSITION\tMANAGER\tREPORTS\tASSETS\tLICENSES\tDOCS")
	for _, p := range dir.ListPeople(orgID) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			p.ID, p.Name, p.Email, p.Position, p.ManagerName,
			p.SubordinatesCount, p.AssetsCount, p.LicensesCount, p.DocumentsCount)
	}
	return w.Flush()
}

func cmdTeams(dir *directory.Directory, orgID jsonldb.ID) error {
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tMEMBERS")
	for _, t := range dir.ListTeams(orgID) {
		names := make([]string, len(t.Members))
		for i, m := range t.Members {
			names[i] = m.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, joinOrDash(names))
	}
	return w.Flush()
}

func cmdLicenses(dir *directory.Directory, orgID jsonldb.ID) error {
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tSEATS\tEXPIRES\tHOLDERS")
	for _, l := range dir.ListLicenses(orgID) {
		var holders []string
		for _, s := range l.Seats {
			if s.Assigned() {
				holders = append(holders, s.PersonName)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
			l.ID, l.Name, l.UsedSeats, l.TotalSeats, orDash(string(l.ExpiryDate)), joinOrDash(holders))
	}
	return w.Flush()
}

func cmdSeats(dir *directory.Directory, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: orgdesk seats <license-id>")
	}
	licenseID, err := jsonldb.DecodeID(args[0])
	if err != nil {
		return fmt.Errorf("invalid license ID: %w", err)
	}
	if _, err := dir.Licenses.Get(licenseID); err != nil {
		return err
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tHOLDER\tASSIGNED")
	for _, s := range dir.ListSeats(licenseID) {
		assigned := ""
		if s.Assigned() {
			assigned = s.AssignedAt.AsTime().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, orDash(s.PersonName), orDash(assigned))
	}
	return w.Flush()
}

func cmdAssets(dir *directory.Directory, orgID jsonldb.ID) error {
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tSERIAL\tASSIGNED TO")
	for _, a := range dir.ListAssets(orgID) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, orDash(a.SerialNumber), orDash(a.PersonName))
	}
	return w.Flush()
}

func cmdDocuments(dir *directory.Directory, orgID jsonldb.ID) error {
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tFILE\tOWNER")
	for _, d := range dir.ListDocuments(orgID) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, d.FilePath, orDash(d.PersonName))
	}
	return w.Flush()
}

func cmdDashboard(ctx context.Context, dir *directory.Directory, dataDir, orgFlag string, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "Reprint when the database changes on disk")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	orgID, err := resolveOrg(dir, orgFlag)
	if err != nil {
		return err
	}
	if err := printDashboard(dir, orgID); err != nil {
		return err
	}
	if !*watch {
		return nil
	}
	if err := dir.Watch(ctx, directory.DBDir(dataDir), func() {
		fmt.Println()
		if err := printDashboard(dir, orgID); err != nil {
			slog.Warn("Failed to print dashboard", "err", err)
		}
	}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func printDashboard(dir *directory.Directory, orgID jsonldb.ID) error {
	org, err := dir.Organizations.Get(orgID)
	if err != nil {
		return err
	}
	snap := dir.Dashboard(orgID)
	fmt.Printf("%s\n\n", org.Name)

	fmt.Println("Recent people:")
	w := newTable()
	for _, p := range snap.RecentPeople {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", p.Name, orDash(p.Position), orDash(p.ManagerName))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("Recent assets:")
	w = newTable()
	for _, a := range snap.RecentAssets {
		fmt.Fprintf(w, "  %s\t%s\n", a.Name, orDash(a.PersonName))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("Expiring licenses:")
	w = newTable()
	for _, l := range snap.ExpiringLicenses {
		fmt.Fprintf(w, "  %s\t%d/%d\t%s\n", l.Name, l.UsedSeats, l.TotalSeats, l.ExpiryDate)
	}
	return w.Flush()
}

func cmdSeed(dir *directory.Directory, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: orgdesk seed <file.yaml>")
	}
	m, err := directory.LoadSeedManifest(args[0])
	if err != nil {
		return err
	}
	if err := dir.Import(m); err != nil {
		return err
	}
	slog.Info("Seed imported", "organizations", len(m.Organizations))
	return nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("orgdesk %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
