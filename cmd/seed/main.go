package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/user"
)

const (
	batchSize    = 500
	slotDuration = 30 * time.Minute
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	staffCount := getInt("SEED_STAFF", 50)
	userCount := getInt("SEED_USERS", 2000)
	slotsPerStaff := getInt("SEED_SLOTS_PER_STAFF", 16)
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "password123"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// one hash for every seeded account keeps seeding fast
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	staffIDs, err := seedUsers(context.Background(), pool, user.RoleStaff, staffCount, hash)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	if _, err := seedUsers(context.Background(), pool, user.RoleUser, userCount, hash); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if err := seedSlots(context.Background(), pool, staffIDs, slotsPerStaff); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

// seedEmail is stable across runs so re-seeding updates accounts in place.
func seedEmail(role user.Role, i int) string {
	return fmt.Sprintf("%s%d@example.com", strings.ToLower(string(role)), i)
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, role user.Role, count int, hash string) ([]uuid.UUID, error) {
	log.Printf("seeding %d %s accounts", count, role)

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			first, last := gofakeit.FirstName(), gofakeit.LastName()

			var id uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO users (id, full_name, email, password_hash, role, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
				ON CONFLICT (email) DO UPDATE SET updated_at = now()
				RETURNING id
			`, uuid.New(), first+" "+last, seedEmail(role, i), hash, role).Scan(&id)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("%s seeded: %d/%d", role, end, count)
	}

	return ids, nil
}

type slotRow struct {
	staffID    uuid.UUID
	start, end time.Time
}

// seedSlots gives every staff member consecutive slots from 09:00 UTC tomorrow.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, staffIDs []uuid.UUID, perStaff int) error {
	log.Printf("seeding %d slots for %d staff", perStaff, len(staffIDs))

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day()+1, 9, 0, 0, 0, time.UTC)
	rows := slotRows(staffIDs, perStaff, dayStart)

	for offset := 0; offset < len(rows); offset += batchSize {
		end := min(offset+batchSize, len(rows))
		if err := insertSlots(ctx, pool, rows[offset:end]); err != nil {
			return err
		}
		log.Printf("slots seeded: %d/%d", end, len(rows))
	}
	return nil
}

func slotRows(staffIDs []uuid.UUID, perStaff int, dayStart time.Time) []slotRow {
	rows := make([]slotRow, 0, len(staffIDs)*perStaff)
	for _, staffID := range staffIDs {
		for i := 0; i < perStaff; i++ {
			start := dayStart.Add(time.Duration(i) * slotDuration)
			rows = append(rows, slotRow{staffID: staffID, start: start, end: start.Add(slotDuration)})
		}
	}
	return rows
}

// insertSlots skips a slot when the staff member already has that slot or a
// live appointment overlapping it.
func insertSlots(ctx context.Context, pool *pgxpool.Pool, rows []slotRow) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_slots (id, staff_id, start_time, end_time, created_at, updated_at)
			SELECT $1::uuid, $2::uuid, $3::timestamptz, $4::timestamptz, now(), now()
			WHERE NOT EXISTS (
				SELECT 1 FROM availability_slots
				WHERE staff_id = $2 AND start_time < $4 AND end_time > $3
			)
			AND NOT EXISTS (
				SELECT 1 FROM appointments
				WHERE staff_id = $2 AND status <> 'CANCELLED' AND start_time < $4 AND end_time > $3
			)
		`, uuid.New(), r.staffID, r.start, r.end)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
