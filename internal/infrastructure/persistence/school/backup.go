package school

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonathanYesh279/tenuto-go/internal/domain/deletion"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/observability/logging"
	"github.com/JonathanYesh279/tenuto-go/internal/infrastructure/persistence/database"
)

// BackupManager snapshots the sqlite database before destructive repairs.
type BackupManager struct {
	db        *database.DB
	directory string
	logger    *logging.ChanneledLogger
}

func NewBackupManager(db *database.DB, directory string, logger *logging.ChanneledLogger) *BackupManager {
	return &BackupManager{
		db:        db,
		directory: directory,
		logger:    logger,
	}
}

// Create writes a full snapshot via VACUUM INTO and returns the backup id.
// The id maps to <directory>/<id>.db.
func (b *BackupManager) Create(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.directory, 0755); err != nil {
		return "", deletion.NewError(deletion.CodeBackupFailed, fmt.Sprintf("create backup directory: %v", err))
	}

	backupID := deletion.NewBackupID()
	path := filepath.Join(b.directory, backupID+".db")

	start := time.Now()
	b.logger.Database().Debug("Creating database backup", "backupId", backupID, "path", path)

	if _, err := b.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		b.logger.Database().Error("Database backup failed", "error", err.Error(), "backupId", backupID)
		// A partial file must not look like a usable backup.
		os.Remove(path)
		return "", deletion.NewError(deletion.CodeBackupFailed, fmt.Sprintf("backup failed: %v", err))
	}

	b.logger.Database().Info("Database backup created", "backupId", backupID, "duration", time.Since(start))
	return backupID, nil
}
