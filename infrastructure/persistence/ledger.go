package persistence

import (
	"database/sql"
	"fmt"

	"shorts-publisher/domain/repository"
	"shorts-publisher/infrastructure/configuration"
)

// NewUploadResultLedger opens the configured ledger database and ensures its schema.
// An empty vendor disables the ledger and returns (nil, nil, nil).
func NewUploadResultLedger(cfg configuration.Database) (repository.IUploadResult, *sql.DB, error) {
	switch cfg.Vendor {
	case "":
		return nil, nil, nil
	case "postgres":
		db, err := NewPostgreSQLDB(cfg.Psql)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres ledger: %w", err)
		}
		if err := EnsureUploadResultSchema(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return NewUploadResultRepository(db), db, nil
	case "mssql":
		db, err := NewMSSQLDB(cfg.Mssql)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mssql ledger: %w", err)
		}
		if err := EnsureUploadResultSchemaMSSQL(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return NewUploadResultRepositoryMSSQL(db), db, nil
	}
	return nil, nil, fmt.Errorf("unsupported database vendor %q", cfg.Vendor)
}
