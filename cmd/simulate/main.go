package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	Password     string
	BookingRatio float64
	CancelRatio  float64
	ReadRatio    float64
	UserLimit    int
	SlotLimit    int
	PostgresDSN  string
}

type slotRef struct {
	ID      uuid.UUID
	StaffID uuid.UUID
}

type DataPool struct {
	Emails []string
	Slots  []slotRef

	mu     sync.Mutex
	booked map[string][]uuid.UUID // appointments per customer email
}

func (dp *DataPool) AddAppointment(email string, id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.booked[email] = append(dp.booked[email], id)
}

// TakeAppointment removes and returns one appointment of the customer.
func (dp *DataPool) TakeAppointment(email string, rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	ids := dp.booked[email]
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	i := rng.Intn(len(ids))
	id := ids[i]
	dp.booked[email] = append(ids[:i], ids[i+1:]...)
	return id, true
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConflict
	outcomeNotFound
	outcomeError
)

func classify(status int, want int) outcome {
	switch status {
	case want:
		return outcomeSuccess
	case http.StatusConflict:
		return outcomeConflict
	case http.StatusNotFound:
		return outcomeNotFound
	}
	return outcomeError
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	NotFound  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case outcomeNotFound:
		atomic.AddInt64(&om.NotFound, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (om *OperationMetrics) Stats() (avg, p50, p95, p99, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	return sum / time.Duration(len(latencies)),
		percentile(latencies, 50),
		percentile(latencies, 95),
		percentile(latencies, 99),
		latencies[len(latencies)-1]
}

type Metrics struct {
	Login            OperationMetrics
	Booking          OperationMetrics
	Cancel           OperationMetrics
	ListAppointments OperationMetrics
	ListSlots        OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	metrics Metrics
}

// session is one logged-in customer with its own cookie jar.
type session struct {
	email  string
	client *http.Client
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f cancel=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.CancelRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d customers, %d open slots", len(dataPool.Emails), len(dataPool.Slots))

	sim := &Simulator{config: cfg, pool: dataPool}
	sim.Run()
	sim.PrintReport()

	overlaps, err := countOverlaps(context.Background(), pgPool)
	if err != nil {
		log.Fatalf("overlap check: %v", err)
	}
	if overlaps > 0 {
		log.Printf("INVARIANT VIOLATED: %d overlapping appointment pairs", overlaps)
		os.Exit(1)
	}
	log.Println("no overlapping appointments found")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:"+baseCfg.HTTPPort),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 20),
		Password:     getEnv("SEED_PASSWORD", "password123"),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		UserLimit:    getInt("SIM_USER_LIMIT", 500),
		SlotLimit:    getInt("SIM_SLOT_LIMIT", 2000),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{booked: make(map[string][]uuid.UUID)}

	rows, err := pool.Query(ctx, `SELECT email FROM users WHERE role = 'USER' LIMIT $1`, cfg.UserLimit)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Emails = append(dataPool.Emails, email)
	}
	rows.Close()

	rows, err = pool.Query(ctx, `
		SELECT id, staff_id FROM availability_slots
		WHERE start_time > now()
		ORDER BY start_time
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	for rows.Next() {
		var s slotRef
		if err := rows.Scan(&s.ID, &s.StaffID); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Slots = append(dataPool.Slots, s)
	}
	rows.Close()

	if len(dataPool.Emails) == 0 {
		return nil, fmt.Errorf("no customers loaded, run cmd/seed first")
	}
	if len(dataPool.Slots) == 0 {
		return nil, fmt.Errorf("no open slots loaded, run cmd/seed first")
	}

	return dataPool, nil
}

func (s *Simulator) login(ctx context.Context, email string) (*session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 10 * time.Second, Jar: jar}

	body, _ := json.Marshal(map[string]string{"email": email, "password": s.config.Password})
	start := time.Now()
	resp, err := s.post(ctx, client, "/user/login", body)
	if err != nil {
		s.metrics.Login.Record(time.Since(start), outcomeError)
		return nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.metrics.Login.Record(time.Since(start), classify(resp.StatusCode, http.StatusOK))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login %s: status %d", email, resp.StatusCode)
	}
	return &session{email: email, client: client}, nil
}

func (s *Simulator) post(ctx context.Context, client *http.Client, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	sess, err := s.login(ctx, s.pool.Emails[workerID%len(s.pool.Emails)])
	if err != nil {
		log.Printf("worker %d: %v", workerID, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, sess, rng)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, sess, rng)
		case rng.Intn(2) == 0:
			s.doListAppointments(ctx, sess)
		default:
			s.doListSlots(ctx, sess, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, sess *session, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]

	body, _ := json.Marshal(map[string]string{
		"staffId":            slot.StaffID.String(),
		"availabilitySlotId": slot.ID.String(),
	})

	start := time.Now()
	resp, err := s.post(ctx, sess.client, "/appointment/create", body)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Booking.Record(latency, outcomeError)
		}
		return
	}
	defer resp.Body.Close()

	o := classify(resp.StatusCode, http.StatusCreated)
	if o == outcomeSuccess {
		var appt struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&appt); err == nil && appt.ID != uuid.Nil {
			s.pool.AddAppointment(sess.email, appt.ID)
		}
	}
	s.metrics.Booking.Record(latency, o)
}

func (s *Simulator) doCancel(ctx context.Context, sess *session, rng *rand.Rand) {
	id, ok := s.pool.TakeAppointment(sess.email, rng)
	if !ok {
		return
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodDelete, s.config.APIBaseURL+"/appointment/"+id.String(), nil)
	s.timed(ctx, sess, req, http.StatusOK, &s.metrics.Cancel)
}

func (s *Simulator) doListAppointments(ctx context.Context, sess *session) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/appointment", nil)
	s.timed(ctx, sess, req, http.StatusOK, &s.metrics.ListAppointments)
}

func (s *Simulator) doListSlots(ctx context.Context, sess *session, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/availability/list?staffId=%s", s.config.APIBaseURL, slot.StaffID), nil)
	s.timed(ctx, sess, req, http.StatusOK, &s.metrics.ListSlots)
}

func (s *Simulator) timed(ctx context.Context, sess *session, req *http.Request, want int, om *OperationMetrics) {
	start := time.Now()
	resp, err := sess.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			om.Record(latency, outcomeError)
		}
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	om.Record(latency, classify(resp.StatusCode, want))
}

// countOverlaps counts pairs of live appointments of one staff member whose
// intervals intersect.
func countOverlaps(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.staff_id = b.staff_id
		 AND a.id < b.id
		 AND a.start_time < b.end_time
		 AND b.start_time < a.end_time
		WHERE a.status <> 'CANCELLED'
		  AND b.status <> 'CANCELLED'
	`).Scan(&n)
	return n, err
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Login", &s.metrics.Login)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("List appointments", &s.metrics.ListAppointments)
	printOperationReport("List slots", &s.metrics.ListSlots)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	notFound := atomic.LoadInt64(&om.NotFound)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, p99, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if notFound > 0 {
		fmt.Printf("  Not found: %d (%.1f%%)\n", notFound, pct(notFound))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s p99=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond), p95.Round(time.Millisecond),
		p99.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
