package riderepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/outstationguru/og-api/internal/adapters/postgres"
	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/riderepo"
)

// Repo is a Postgres implementation of riderepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, ride domain.Ride) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(ride.ID))
	if err != nil {
		return fmt.Errorf("invalid ride id: %w", err)
	}
	var customer *string
	if ride.CustomerUID != nil {
		v := string(*ride.CustomerUID)
		customer = &v
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO rides (
			id,
			status,
			pickup,
			drop_point,
			ride_when,
			vehicle_type,
			quote_total,
			customer_uid,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		id,
		string(ride.Status),
		ride.Pickup,
		ride.Drop,
		ride.When,
		string(ride.VehicleType),
		ride.QuoteTotal,
		customer,
		ride.CreatedAt.UTC(),
		ride.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return riderepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.RideID) (domain.Ride, error) {
	if r.pool == nil {
		return domain.Ride{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Ride{}, riderepo.ErrNotFound
	}
	var (
		ride            domain.Ride
		rideID          uuid.UUID
		status, vehicle string
		customer        *string
	)
	err = r.pool.QueryRow(ctx, `
		SELECT id, status, pickup, drop_point, ride_when, vehicle_type, quote_total, customer_uid, created_at, updated_at
		FROM rides
		WHERE id = $1
	`, uid).Scan(
		&rideID,
		&status,
		&ride.Pickup,
		&ride.Drop,
		&ride.When,
		&vehicle,
		&ride.QuoteTotal,
		&customer,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ride{}, riderepo.ErrNotFound
		}
		return domain.Ride{}, err
	}
	ride.ID = domain.RideID(rideID.String())
	ride.Status = domain.RideStatus(status)
	ride.VehicleType = domain.VehicleType(vehicle)
	if customer != nil {
		c := domain.SubjectID(*customer)
		ride.CustomerUID = &c
	}
	ride.CreatedAt = ride.CreatedAt.UTC()
	ride.UpdatedAt = ride.UpdatedAt.UTC()
	return ride, nil
}
