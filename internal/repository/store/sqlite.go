package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/store"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// SQLiteAdapter implements store.Repository using GORM and SQLite.
type SQLiteAdapter struct {
	db   *gorm.DB
	path string
}

var _ store.Repository = (*SQLiteAdapter)(nil)

var models = []interface{}{
	&PortEventModel{},
	&FirewallRuleModel{},
	&PortInfoModel{},
	&ConfigModel{},
}

// NewSQLiteAdapter opens the database at path and migrates the schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	var dsn = path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := open(dsn)
	if err != nil {
		return nil, err
	}

	a := &SQLiteAdapter{db: db, path: path}
	if err := a.Initialize(context.Background()); err != nil {
		return nil, err
	}

	return a, nil
}

func open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// a single connection keeps in-memory databases shared and serializes writers
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Initialize migrates the schema. It is safe to call more than once.
func (a *SQLiteAdapter) Initialize(ctx context.Context) error {
	db := a.db.WithContext(ctx)

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_events_proto_port ON port_event_models(protocol, local_port)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_events_event_type ON port_event_models(event_type)")

	return nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, domain.ErrNotFound)...)
	}

	return err
}

// SavePortEvent inserts a new event or updates an existing one.
func (a *SQLiteAdapter) SavePortEvent(ctx context.Context, e domain.PortEvent) (int64, error) {
	model := toEventModel(e)

	var err error
	if model.ID == 0 {
		err = a.db.WithContext(ctx).Create(&model).Error
	} else {
		err = a.db.WithContext(ctx).Save(&model).Error
	}
	if err != nil {
		return 0, err
	}

	return model.ID, nil
}

func (a *SQLiteAdapter) GetPortEvent(ctx context.Context, id int64) (domain.PortEvent, error) {
	var model PortEventModel
	if err := a.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return domain.PortEvent{}, notFound(err, "port event [%d]", id)
	}

	return toEvent(model), nil
}

// ListPortEvents returns events newest first. A non-positive limit returns all events.
func (a *SQLiteAdapter) ListPortEvents(ctx context.Context, offset, limit int) ([]domain.PortEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	var list []PortEventModel
	err := a.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.PortEvent, 0, len(list))
	for _, m := range list {
		events = append(events, toEvent(m))
	}

	return events, nil
}

func (a *SQLiteAdapter) ListPortEventsByProcess(ctx context.Context, processName string) ([]domain.PortEvent, error) {
	var list []PortEventModel
	err := a.db.WithContext(ctx).
		Where("process_name = ?", processName).
		Order("timestamp DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.PortEvent, 0, len(list))
	for _, m := range list {
		events = append(events, toEvent(m))
	}

	return events, nil
}

func (a *SQLiteAdapter) DeletePortEvent(ctx context.Context, id int64) error {
	result := a.db.WithContext(ctx).Delete(&PortEventModel{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("port event [%d]: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeletePortEventsBefore removes events with a timestamp strictly before cutoff.
func (a *SQLiteAdapter) DeletePortEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := a.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&PortEventModel{})
	return result.RowsAffected, result.Error
}

// SaveFirewallRule inserts or replaces the rule with the same id.
func (a *SQLiteAdapter) SaveFirewallRule(ctx context.Context, r domain.FirewallRule) error {
	model := toRuleModel(r)
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

func (a *SQLiteAdapter) GetFirewallRule(ctx context.Context, id int64) (domain.FirewallRule, error) {
	var model FirewallRuleModel
	if err := a.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return domain.FirewallRule{}, notFound(err, "firewall rule [%d]", id)
	}

	return toRule(model), nil
}

func (a *SQLiteAdapter) ListFirewallRules(ctx context.Context) ([]domain.FirewallRule, error) {
	return a.listRules(a.db.WithContext(ctx))
}

func (a *SQLiteAdapter) ListActiveFirewallRules(ctx context.Context) ([]domain.FirewallRule, error) {
	return a.listRules(a.db.WithContext(ctx).Where("enabled = ?", true))
}

func (a *SQLiteAdapter) listRules(db *gorm.DB) ([]domain.FirewallRule, error) {
	var list []FirewallRuleModel
	if err := db.Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	rules := make([]domain.FirewallRule, 0, len(list))
	for _, m := range list {
		rules = append(rules, toRule(m))
	}

	return rules, nil
}

func (a *SQLiteAdapter) DeleteFirewallRule(ctx context.Context, id int64) error {
	result := a.db.WithContext(ctx).Delete(&FirewallRuleModel{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("firewall rule [%d]: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (a *SQLiteAdapter) DeleteAllUserCreatedRules(ctx context.Context) error {
	return a.db.WithContext(ctx).Where("user_created = ?", true).Delete(&FirewallRuleModel{}).Error
}

func (a *SQLiteAdapter) NextRuleID(ctx context.Context) (int64, error) {
	var max int64
	err := a.db.WithContext(ctx).Model(&FirewallRuleModel{}).Select("COALESCE(MAX(id), 0)").Scan(&max).Error
	if err != nil {
		return 0, err
	}

	return max + 1, nil
}

func (a *SQLiteAdapter) GetPortInfo(ctx context.Context, port uint32, proto domain.Protocol) (domain.PortInfo, error) {
	var model PortInfoModel
	err := a.db.WithContext(ctx).Where("port = ? AND protocol = ?", port, string(proto)).First(&model).Error
	if err != nil {
		return domain.PortInfo{}, notFound(err, "port info [%d/%s]", port, proto)
	}

	return toInfo(model), nil
}

func (a *SQLiteAdapter) ListPortInfo(ctx context.Context) ([]domain.PortInfo, error) {
	var list []PortInfoModel
	if err := a.db.WithContext(ctx).Order("port ASC, protocol ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	infos := make([]domain.PortInfo, 0, len(list))
	for _, m := range list {
		infos = append(infos, toInfo(m))
	}

	return infos, nil
}

func (a *SQLiteAdapter) SavePortInfo(ctx context.Context, info domain.PortInfo) error {
	model := toInfoModel(info)
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

// GetConfiguration returns the stored configuration, or the defaults when none was saved.
func (a *SQLiteAdapter) GetConfiguration(ctx context.Context) (domain.AppConfiguration, error) {
	var model ConfigModel
	err := a.db.WithContext(ctx).First(&model, configRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultAppConfiguration(), nil
	}
	if err != nil {
		return domain.AppConfiguration{}, err
	}

	var cfg = domain.DefaultAppConfiguration()
	if err := json.Unmarshal([]byte(model.Data), &cfg); err != nil {
		return domain.AppConfiguration{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return cfg, nil
}

func (a *SQLiteAdapter) SaveConfiguration(ctx context.Context, cfg domain.AppConfiguration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	model := ConfigModel{ID: configRowID, Data: string(data)}
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

// Backup writes a consistent copy of the database to path.
func (a *SQLiteAdapter) Backup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("backup file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	return a.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error
}

// Restore replaces the content of every table with the content of the backup at path.
func (a *SQLiteAdapter) Restore(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}

	src, err := open("file:" + path + "?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer closeDB(src)

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return multierr.Combine(
			copyTable[PortEventModel](src, tx),
			copyTable[FirewallRuleModel](src, tx),
			copyTable[PortInfoModel](src, tx),
			copyTable[ConfigModel](src, tx),
		)
	})
}

func copyTable[T any](src, dst *gorm.DB) error {
	var rows []T
	if err := src.Find(&rows).Error; err != nil {
		return err
	}

	if err := dst.Where("1 = 1").Delete(new(T)).Error; err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	return dst.CreateInBatches(rows, 100).Error
}

// Size returns the database size in bytes.
func (a *SQLiteAdapter) Size(ctx context.Context) (int64, error) {
	var pages, pageSize int64

	db := a.db.WithContext(ctx)
	if err := db.Raw("PRAGMA page_count").Scan(&pages).Error; err != nil {
		return 0, err
	}

	if err := db.Raw("PRAGMA page_size").Scan(&pageSize).Error; err != nil {
		return 0, err
	}

	return pages * pageSize, nil
}

// Optimize rebuilds the database file and refreshes query planner statistics.
func (a *SQLiteAdapter) Optimize(ctx context.Context) error {
	db := a.db.WithContext(ctx)

	return multierr.Combine(
		db.Exec("VACUUM").Error,
		db.Exec("PRAGMA optimize").Error,
	)
}

func (a *SQLiteAdapter) Close() error {
	return closeDB(a.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
