package patient

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
)

// SchemaLookup defines the contract for looking up organization schemas
type SchemaLookup interface {
	GetSchemaNameByOrgID(ctx context.Context, orgID string) (string, error)
}

// DBSchemaLookup resolves tenant schemas from the organizations registry and
// caches the answers for the life of the process.
type DBSchemaLookup struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]string
}

func NewDBSchemaLookup(db *sql.DB) *DBSchemaLookup {
	return &DBSchemaLookup{db: db, cache: make(map[string]string)}
}

// GetSchemaNameByOrgID returns "" without error for unknown organizations.
func (d *DBSchemaLookup) GetSchemaNameByOrgID(ctx context.Context, orgID string) (string, error) {
	d.mu.RLock()
	if schemaName, ok := d.cache[orgID]; ok {
		d.mu.RUnlock()
		return schemaName, nil
	}
	d.mu.RUnlock()

	query := `SELECT schema_name FROM wailsalutem.organizations WHERE id = $1 AND deleted_at IS NULL`
	var schemaName string
	err := d.db.QueryRowContext(ctx, query, orgID).Scan(&schemaName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	d.mu.Lock()
	d.cache[orgID] = schemaName
	d.mu.Unlock()

	return schemaName, nil
}

// Forget drops every cached schema name.
func (d *DBSchemaLookup) Forget() {
	d.mu.Lock()
	d.cache = make(map[string]string)
	d.mu.Unlock()
}

// ResolveSchema picks the tenant schema for the authenticated caller: the
// orgSchemaName claim when present, otherwise a lookup by organization id.
func ResolveSchema(ctx context.Context, lookup SchemaLookup) (string, error) {
	principal, ok := auth.FromContext(ctx)
	if !ok {
		return "", ErrMissingOrganization
	}
	if principal.OrgSchemaName != "" {
		return principal.OrgSchemaName, nil
	}
	if principal.OrgID == "" || lookup == nil {
		return "", ErrMissingOrganization
	}

	schemaName, err := lookup.GetSchemaNameByOrgID(ctx, principal.OrgID)
	if err != nil {
		return "", err
	}
	if schemaName == "" {
		return "", ErrSchemaNotFound
	}
	return schemaName, nil
}
