package store

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"agentmem/internal/logging"
	"agentmem/internal/memerr"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migration is one parsed NNN_name.sql file.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// loadMigrations reads every embedded migration file, parses its leading
// NNN_ version number, and returns them sorted ascending. Files whose name
// doesn't parse as NNN_name.sql are skipped, matching the tolerant globbing
// in the reference migrator.
func loadMigrations() ([]migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, memerr.Wrap(memerr.KindMigrationFailed, "store.loadMigrations", "cannot list embedded migrations", err)
	}

	var out []migration
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		body, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, memerr.Wrap(memerr.KindMigrationFailed, "store.loadMigrations", "cannot read "+name, err)
		}
		out = append(out, migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// MigrationStatus describes the current schema version and any pending
// migrations, for the `migrate status` CLI command.
type MigrationStatus struct {
	CurrentVersion int
	Pending        []string
}

// currentVersion returns the highest applied version, 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// Status reports the schema's current version and any unapplied migrations.
func Status(db *sql.DB) (MigrationStatus, error) {
	cur, err := currentVersion(db)
	if err != nil {
		return MigrationStatus{}, memerr.Wrap(memerr.KindMigrationFailed, "store.Status", "cannot read current version", err)
	}
	all, err := loadMigrations()
	if err != nil {
		return MigrationStatus{}, err
	}
	status := MigrationStatus{CurrentVersion: cur}
	for _, m := range all {
		if m.Version > cur {
			status.Pending = append(status.Pending, m.Name)
		}
	}
	return status, nil
}

// RunMigrations applies every embedded migration newer than the database's
// current version, in order, recording each as it commits. A statement that
// fails because the column or table it adds already exists is treated as
// already applied and skipped, the same idempotency rule the reference
// migrator uses; any other failure aborts before recording the version,
// leaving the schema at the last successfully applied migration.
func RunMigrations(db *sql.DB) error {
	cur, err := currentVersion(db)
	if err != nil {
		return memerr.Wrap(memerr.KindMigrationFailed, "store.RunMigrations", "cannot read current version", err)
	}

	all, err := loadMigrations()
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range all {
		if m.Version <= cur {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		applied++
	}
	if applied > 0 {
		logging.Migrate("applied %d migration(s), schema now at version %d", applied, all[len(all)-1].Version)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return memerr.Wrap(memerr.KindMigrationFailed, "store.applyMigration", "cannot begin transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.Exec(stmt); err != nil {
			if isIdempotentSkip(err) {
				logging.MigrateDebug("migration %d: skipping already-applied statement: %v", m.Version, err)
				continue
			}
			return memerr.Wrap(memerr.KindMigrationFailed, "store.applyMigration",
				fmt.Sprintf("migration %d (%s) failed", m.Version, m.Name), err)
		}
	}

	checksum := fmt.Sprintf("%x", sha256.Sum256([]byte(m.SQL)))[:16]
	appliedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at, checksum) VALUES (?, ?, ?)`,
		m.Version, appliedAt, checksum); err != nil {
		return memerr.Wrap(memerr.KindMigrationFailed, "store.applyMigration", "cannot record migration", err)
	}

	if err := tx.Commit(); err != nil {
		return memerr.Wrap(memerr.KindMigrationFailed, "store.applyMigration", "cannot commit migration", err)
	}
	logging.MigrateDebug("applied migration %d: %s", m.Version, m.Name)
	return nil
}

// splitStatements splits a migration file on ";" and drops blank or
// comment-only fragments. A CREATE TRIGGER statement is kept whole up to
// its closing END, since its body contains ";"-terminated statements of its
// own. executescript-style multi-statement execution doesn't reliably
// support ALTER TABLE across drivers, so statements run one at a time,
// matching the reference migrator.
func splitStatements(sql string) []string {
	var out []string
	pending := ""
	for _, stmt := range strings.Split(sql, ";") {
		if pending != "" {
			stmt = pending + ";" + stmt
			pending = ""
		}
		s := strings.TrimSpace(stmt)
		if s == "" || strings.HasPrefix(s, "--") {
			continue
		}
		upper := strings.ToUpper(s)
		if strings.HasPrefix(upper, "CREATE TRIGGER") && !strings.HasSuffix(upper, "END") {
			pending = stmt
			continue
		}
		out = append(out, s)
	}
	return out
}

// isIdempotentSkip reports whether err is a re-applying-an-already-applied
// statement, namely "duplicate column" or "already exists", so migrations
// can be re-run safely against a database that already has the schema.
func isIdempotentSkip(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
