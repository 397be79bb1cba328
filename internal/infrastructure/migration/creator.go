package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// MigrationFile is a generated up/down pair
type MigrationFile struct {
	Version  uint
	Name     string
	UpPath   string
	DownPath string
}

// CreateMigration writes an empty up/down pair numbered one past the highest
// existing version, e.g. 000002_add_item_barcode.up.sql.
func CreateMigration(migrationsDir, name string) (*MigrationFile, error) {
	name = sanitizeName(name)
	if name == "" {
		return nil, fmt.Errorf("migration name is empty after sanitizing")
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(os.DirFS(migrationsDir))
	if err != nil {
		return nil, err
	}
	var next uint = 1
	if len(existing) > 0 {
		next = existing[len(existing)-1].Version + 1
	}

	base := fmt.Sprintf("%06d_%s", next, name)
	mf := &MigrationFile{
		Version:  next,
		Name:     name,
		UpPath:   filepath.Join(migrationsDir, base+upSuffix),
		DownPath: filepath.Join(migrationsDir, base+downSuffix),
	}

	if err := os.WriteFile(mf.UpPath, []byte("-- "+name+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := os.WriteFile(mf.DownPath, []byte("-- rollback "+name+"\n"), 0o644); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

// MigrationInfo describes one migration found in a source
type MigrationInfo struct {
	Version uint
	Name    string
	HasDown bool
}

// ListMigrations returns the migrations in fsys ordered by version
func ListMigrations(fsys fs.FS) ([]MigrationInfo, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return []MigrationInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*MigrationInfo)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base, isUp := strings.CutSuffix(entry.Name(), upSuffix)
		if !isUp {
			var isDown bool
			if base, isDown = strings.CutSuffix(entry.Name(), downSuffix); !isDown {
				continue
			}
		}
		versionPart, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(versionPart, 10, 32)
		if err != nil {
			continue
		}

		info, found := byVersion[uint(version)]
		if !found {
			info = &MigrationInfo{Version: uint(version), Name: name}
			byVersion[uint(version)] = info
		}
		if !isUp {
			info.HasDown = true
		}
	}

	migrations := make([]MigrationInfo, 0, len(byVersion))
	for _, info := range byVersion {
		migrations = append(migrations, *info)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// sanitizeName converts a migration name to a safe file name format
func sanitizeName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
