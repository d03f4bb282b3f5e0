package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/hospital-appointment-booking/internal/appointment"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/db"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

type SimConfig struct {
	APIBaseURL   string
	Workers      int
	Bookings     int
	Day          time.Time
	PatientLimit int
}

type patient struct {
	id    uuid.UUID
	token string
}

type department struct {
	id    uuid.UUID
	name  string
	quota int
}

type DataPool struct {
	Patients    []patient
	Departments []department
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Full      int64
	Busy      int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch status {
	case http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case http.StatusBadRequest:
		atomic.AddInt64(&om.Full, 1)
	case http.StatusConflict:
		atomic.AddInt64(&om.Busy, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	pick := func(pct int) time.Duration {
		idx := len(latencies) * pct / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}

	return sum / time.Duration(len(latencies)), pick(50), pick(95), latencies[len(latencies)-1]
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics OperationMetrics
	log     *logger.Logger
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Fatal("failed to load base config")
	}
	log := logger.New(baseCfg.LogLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.WithField("workers", cfg.Workers).
		WithField("bookings", cfg.Bookings).
		WithField("day", appointment.FormatDay(cfg.Day)).
		Info("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, baseCfg.PostgresPool(), log)
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pgPool.Close()

	issuer := auth.NewIssuer(baseCfg.JWTSecret, time.Hour)
	dataPool, err := loadDataPool(ctx, pgPool, issuer, cfg)
	if err != nil {
		log.WithError(err).Fatal("load data pool")
	}
	log.WithField("patients", len(dataPool.Patients)).
		WithField("departments", len(dataPool.Departments)).
		Info("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	sim.Run()
	sim.PrintReport()

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelVerify()
	if ok := verifyQuotas(verifyCtx, pgPool, dataPool, cfg.Day); !ok {
		os.Exit(1)
	}
}

func loadConfig() (SimConfig, error) {
	day := time.Now().UTC().AddDate(0, 0, 1)
	if raw := os.Getenv("SIM_DATE"); raw != "" {
		d, err := appointment.ParseDay(raw)
		if err != nil {
			return SimConfig{}, fmt.Errorf("SIM_DATE: %w", err)
		}
		day = d
	}

	cfg := SimConfig{
		APIBaseURL:   strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Workers:      getInt("SIM_WORKERS", 20),
		Bookings:     getInt("SIM_BOOKINGS", 500),
		Day:          appointment.DayOf(day),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 200),
	}

	if cfg.Workers <= 0 {
		return cfg, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Bookings <= 0 {
		return cfg, fmt.Errorf("SIM_BOOKINGS must be > 0")
	}
	return cfg, nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, issuer *auth.Issuer, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM users WHERE role = 'patient' LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		token, err := issuer.Issue(auth.Identity{UserID: id, Role: auth.RolePatient})
		if err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, patient{id: id, token: token})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = pool.Query(ctx, `SELECT id, name, daily_quota FROM departments`)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d department
		if err := rows.Scan(&d.id, &d.name, &d.quota); err != nil {
			return nil, err
		}
		dataPool.Departments = append(dataPool.Departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded, run seed first")
	}
	if len(dataPool.Departments) == 0 {
		return nil, fmt.Errorf("no departments loaded, run seed first")
	}
	return dataPool, nil
}

// Run hands out cfg.Bookings booking attempts across the workers.
func (s *Simulator) Run() {
	ctx := context.Background()
	var remaining atomic.Int64
	remaining.Store(int64(s.config.Bookings))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			faker := gofakeit.New(uint64(rng.Int63()))
			for remaining.Add(-1) >= 0 {
				s.doBooking(ctx, rng, faker)
			}
		}(i)
	}

	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, faker *gofakeit.Faker) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	d := s.pool.Departments[rng.Intn(len(s.pool.Departments))]

	body, _ := json.Marshal(map[string]any{
		"department_id":  d.id.String(),
		"date":           appointment.FormatDay(s.config.Day),
		"time":           fmt.Sprintf("%02d:%02d", 8+rng.Intn(9), 15*rng.Intn(4)),
		"description":    faker.Sentence(6),
		"patient_type":   "new",
		"lastname":       faker.LastName(),
		"firstname":      faker.FirstName(),
		"age":            faker.Number(1, 95),
		"gender":         []string{"male", "female"}[rng.Intn(2)],
		"marital_status": "Single",
		"mobile_number":  faker.Phone(),
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/api/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.metrics.Record(latency, 0)
		return
	}
	resp.Body.Close()
	s.metrics.Record(latency, resp.StatusCode)
}

func (s *Simulator) PrintReport() {
	om := &s.metrics
	total := atomic.LoadInt64(&om.Total)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Day: %s\n", appointment.FormatDay(s.config.Day))
	fmt.Printf("Workers: %d\n", s.config.Workers)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	fmt.Printf("Bookings attempted: %d\n", total)
	fmt.Printf("  Admitted: %d (%.1f%%)\n", om.Success, pct(om.Success))
	fmt.Printf("  Department full: %d (%.1f%%)\n", om.Full, pct(om.Full))
	fmt.Printf("  Busy, retry: %d (%.1f%%)\n", om.Busy, pct(om.Busy))
	fmt.Printf("  Errors: %d (%.1f%%)\n", om.Error, pct(om.Error))

	avg, p50, p95, max := om.Stats()
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

// verifyQuotas reports whether every department stayed within its quota on day.
func verifyQuotas(ctx context.Context, pool *pgxpool.Pool, data *DataPool, day time.Time) bool {
	rows, err := pool.Query(ctx, `
		SELECT department_id, count(*)
		FROM appointments
		WHERE date = $1
		GROUP BY department_id
	`, day)
	if err != nil {
		fmt.Printf("verify: %v\n", err)
		return false
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			fmt.Printf("verify: %v\n", err)
			return false
		}
		counts[id] = n
	}

	ok := true
	for _, d := range data.Departments {
		booked := counts[d.id]
		status := "ok"
		if booked > d.quota {
			status = "OVER QUOTA"
			ok = false
		}
		fmt.Printf("%-20s quota=%-4d booked=%-4d %s\n", d.name, d.quota, booked, status)
	}
	return ok
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
