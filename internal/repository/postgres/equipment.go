package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/repository"
)

const equipmentColumns = `id, name, serial_number, COALESCE(article_number, ''), COALESCE(category, ''), COALESCE(location, ''), total_quantity, available_quantity, status, qr_type, created_on, updated_on`

const instanceColumns = `id, equipment_id, instance_number, qr_code, status, created_on`

type equipmentRepository struct {
	db *sql.DB
}

func NewEquipmentRepository(db *sql.DB) repository.EquipmentRepository {
	return &equipmentRepository{db: db}
}

func scanEquipment(row scanner) (domain.Equipment, error) {
	var eq domain.Equipment
	err := row.Scan(&eq.ID, &eq.Name, &eq.SerialNumber, &eq.ArticleNumber, &eq.Category, &eq.Location, &eq.TotalQuantity, &eq.AvailableQuantity, &eq.Status, &eq.QRType, &eq.CreatedOn, &eq.UpdatedOn)
	return eq, err
}

func scanInstance(row scanner) (domain.Instance, error) {
	var in domain.Instance
	err := row.Scan(&in.ID, &in.EquipmentID, &in.InstanceNumber, &in.QRCode, &in.Status, &in.CreatedOn)
	return in, err
}

func (r *equipmentRepository) Create(ctx context.Context, eq *domain.Equipment) error {
	if eq.ID == "" {
		eq.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	eq.CreatedOn, eq.UpdatedOn = now, now
	query := `INSERT INTO equipment (id, name, serial_number, article_number, category, location, total_quantity, available_quantity, status, qr_type, created_on, updated_on)
	          VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11, $12)`
	logger.DatabaseCall("equipment.create", query, "equipment_id", eq.ID)
	_, err := r.db.ExecContext(ctx, query, eq.ID, eq.Name, eq.SerialNumber, eq.ArticleNumber, eq.Category, eq.Location, eq.TotalQuantity, eq.AvailableQuantity, eq.Status, eq.QRType, eq.CreatedOn, eq.UpdatedOn)
	logger.DatabaseResult("equipment.create", 1, err)
	return mapError(err)
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1`
	eq, err := scanEquipment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return &eq, nil
}

func (r *equipmentRepository) List(ctx context.Context) ([]domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment ORDER BY created_on, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, rows.Err()
}

func (r *equipmentRepository) CreateInstances(ctx context.Context, instances []domain.Instance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertInstances(ctx, tx, instances); err != nil {
		return err
	}
	return tx.Commit()
}

func insertInstances(ctx context.Context, tx *sql.Tx, instances []domain.Instance) error {
	query := `INSERT INTO equipment_instances (id, equipment_id, instance_number, qr_code, status, created_on) VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range instances {
		in := &instances[i]
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query, in.ID, in.EquipmentID, in.InstanceNumber, in.QRCode, in.Status, in.CreatedOn); err != nil {
			logger.DatabaseResult("equipment_instances.create", int64(i), err)
			return mapError(err)
		}
	}
	logger.DatabaseResult("equipment_instances.create", int64(len(instances)), nil)
	return nil
}

func (r *equipmentRepository) ListInstances(ctx context.Context, equipmentID string) ([]domain.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM equipment_instances WHERE ($1 = '' OR equipment_id = $1) ORDER BY equipment_id, instance_number`
	rows, err := r.db.QueryContext(ctx, query, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Instance
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Snapshot reads records and instances from one consistent view.
func (r *equipmentRepository) Snapshot(ctx context.Context) (*domain.Catalog, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cat := &domain.Catalog{Version: time.Now().UnixNano()}

	rows, err := tx.QueryContext(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY created_on, id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		cat.Equipment = append(cat.Equipment, eq)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `SELECT `+instanceColumns+` FROM equipment_instances ORDER BY equipment_id, instance_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		cat.Instances = append(cat.Instances, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.Debug("Catalog snapshot loaded", "equipment", len(cat.Equipment), "instances", len(cat.Instances))
	return cat, tx.Commit()
}
