package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/db"
	"github.com/hackgods/hospital-appointment-booking/internal/directory"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
	"github.com/hackgods/hospital-appointment-booking/internal/user"
)

var departments = []struct {
	name  string
	quota int
}{
	{"Cardiology", 20},
	{"Dermatology", 30},
	{"General Practice", 60},
	{"Orthopedics", 25},
	{"Endocrinology", 15},
	{"Neurology", 15},
	{"Pediatrics", 40},
	{"Psychiatry", 10},
	{"Ophthalmology", 20},
	{"ENT", 20},
}

func main() {
	doctors := flag.Int("doctors", 40, "number of doctors to create")
	patients := flag.Int("patients", 50, "number of patient accounts to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Fatal("config load error")
	}
	log := logger.New(cfg.LogLevel)
	log.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresPool(), log)
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("migrate schema")
	}

	blobs := blob.NewPgStore(pool, cfg.UploadMaxBytes)
	dir := directory.NewService(directory.NewPgRepository(pool), blobs, log)
	users := user.NewService(
		user.NewPgRepository(pool),
		blobs,
		auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		user.NewLogResetNotifier(log),
		cfg,
		log,
	)

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	deptIDs, err := seedDepartments(ctx, dir, faker)
	if err != nil {
		log.WithError(err).Fatal("seed departments")
	}
	log.WithField("count", len(deptIDs)).Info("departments seeded")

	if err := seedDoctors(ctx, dir, faker, deptIDs, *doctors); err != nil {
		log.WithError(err).Fatal("seed doctors")
	}
	log.WithField("count", *doctors).Info("doctors seeded")

	created, err := seedPatients(ctx, users, faker, *patients)
	if err != nil {
		log.WithError(err).Fatal("seed patients")
	}
	log.WithField("count", created).Info("patients seeded")

	if err := seedAdmin(ctx, users); err != nil {
		log.WithError(err).Fatal("seed admin")
	}

	log.Info("seed complete")
}

func seedDepartments(ctx context.Context, dir *directory.Service, faker *gofakeit.Faker) ([]uuid.UUID, error) {
	existing, err := dir.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uuid.UUID, len(existing))
	for _, d := range existing {
		byName[d.Name] = d.ID
	}

	ids := make([]uuid.UUID, 0, len(departments))
	for _, spec := range departments {
		if id, ok := byName[spec.name]; ok {
			ids = append(ids, id)
			continue
		}
		quota := spec.quota
		d, err := dir.CreateDepartment(ctx, directory.DepartmentInput{
			Name:        spec.name,
			Description: faker.Sentence(12),
			DailyQuota:  &quota,
		}, nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, dir *directory.Service, faker *gofakeit.Faker, deptIDs []uuid.UUID, count int) error {
	for i := 0; i < count; i++ {
		primary := deptIDs[faker.Number(0, len(deptIDs)-1)]
		ids := []uuid.UUID{primary}
		if faker.Bool() {
			ids = append(ids, deptIDs[faker.Number(0, len(deptIDs)-1)])
		}

		_, err := dir.CreateDoctor(ctx, directory.DoctorInput{
			Name:           "Dr. " + faker.Name(),
			Specialization: faker.JobDescriptor() + " Medicine",
			DepartmentIDs:  ids,
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

// seedPatients skips generated emails that collide with existing accounts.
func seedPatients(ctx context.Context, users *user.Service, faker *gofakeit.Faker, count int) (int, error) {
	created := 0
	for i := 0; i < count; i++ {
		_, err := users.SignupPatient(ctx, user.SignupInput{
			Firstname:     faker.FirstName(),
			Lastname:      faker.LastName(),
			Email:         faker.Email(),
			Password:      "password123",
			ContactNumber: faker.Phone(),
		})
		if errors.Is(err, user.ErrEmailTaken) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func seedAdmin(ctx context.Context, users *user.Service) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	_, err := users.CreateAccount(ctx, user.SignupInput{
		Firstname:     "Hospital",
		Lastname:      "Admin",
		Email:         email,
		Password:      password,
		ContactNumber: "000-0000",
	}, auth.RoleAdmin, nil)
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}
	return err
}
