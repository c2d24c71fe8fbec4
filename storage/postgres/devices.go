package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admute/backend/pkg/device"
	"github.com/admute/backend/pkg/pg"
)

// DeviceStore implements device.Store. The primary key on device_id gives
// the global first-registration-wins claim; delete and activity updates
// filter on both keys so ownership scoping happens in the database.
type DeviceStore struct {
	pool *pgxpool.Pool
}

// NewDeviceStore creates a device store over the pool.
func NewDeviceStore(pool *pgxpool.Pool) *DeviceStore {
	return &DeviceStore{pool: pool}
}

func (s *DeviceStore) ByDeviceID(ctx context.Context, deviceID string) (*device.Device, error) {
	const query = `
		SELECT user_id, device_id, name, last_active, created_at
		FROM devices WHERE device_id = $1`

	var d device.Device
	err := s.pool.QueryRow(ctx, query, deviceID).Scan(
		&d.UserID, &d.DeviceID, &d.Name, &d.LastActive, &d.CreatedAt,
	)
	if pg.IsNotFound(err) {
		return nil, device.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DeviceStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]device.Device, error) {
	const query = `
		SELECT user_id, device_id, name, last_active, created_at
		FROM devices WHERE user_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []device.Device
	for rows.Next() {
		var d device.Device
		if err := rows.Scan(&d.UserID, &d.DeviceID, &d.Name, &d.LastActive, &d.CreatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (s *DeviceStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM devices WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func (s *DeviceStore) Create(ctx context.Context, d *device.Device) error {
	const query = `
		INSERT INTO devices (user_id, device_id, name, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query, d.UserID, d.DeviceID, d.Name, d.LastActive, d.CreatedAt)
	if pg.IsDuplicateKey(err) {
		return device.ErrAlreadyRegistered
	}
	return err
}

func (s *DeviceStore) Delete(ctx context.Context, userID uuid.UUID, deviceID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM devices WHERE device_id = $1 AND user_id = $2`, deviceID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return device.ErrNotFound
	}
	return nil
}

func (s *DeviceStore) SetLastActive(ctx context.Context, userID uuid.UUID, deviceID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE devices SET last_active = $3 WHERE device_id = $1 AND user_id = $2`, deviceID, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return device.ErrNotFound
	}
	return nil
}
