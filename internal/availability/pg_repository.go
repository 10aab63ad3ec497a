package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/appointment-booking/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const SlotColumns = `id, staff_id, start_time, end_time, created_at, updated_at`

// ScanSlot reads a row selected with SlotColumns.
func ScanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.StaffID,
		&s.StartTime,
		&s.EndTime,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	return &s, nil
}

func (r *PgRepository) CreateSlot(ctx context.Context, staffID uuid.UUID, start, end time.Time) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, staff_id, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING `+SlotColumns,
		uuid.New(), staffID, start, end)

	slot, err := ScanSlot(row)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("insert slot: %w", err)
	}
	return slot, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+SlotColumns+` FROM availability_slots WHERE id = $1`, id)
	return ScanSlot(row)
}

func (r *PgRepository) UpdateSlot(ctx context.Context, id uuid.UUID, start, end time.Time) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_slots
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+SlotColumns,
		id, start, end)
	return ScanSlot(row)
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM availability_slots
		WHERE id = $1
		RETURNING `+SlotColumns, id)
	return ScanSlot(row)
}

func (r *PgRepository) ListSlotsByStaff(ctx context.Context, staffID uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+SlotColumns+`
		FROM availability_slots
		WHERE staff_id = $1
		ORDER BY start_time, id
	`, staffID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	result := []Slot{}
	for rows.Next() {
		s, err := ScanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
