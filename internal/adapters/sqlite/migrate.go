package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/sqlite"
)

// Shared with `mage dbup`, which points the dbmate CLI at the same directory.
//
//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every embedded migration not yet recorded in
// schema_migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse("sqlite:" + r.path)
	if err != nil {
		return fmt.Errorf("migrate: database url: %w", err)
	}

	var out bytes.Buffer
	db := dbmate.New(u)
	db.FS = migrations
	db.MigrationsDir = []string{"migrations"}
	db.AutoDumpSchema = false
	db.Log = &out

	err = db.Migrate()
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			slog.Info("sqlite.migrate", "msg", line)
		}
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
