package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGProvisioner persiste cuentas e identidades federadas en Postgres.
//
// Esquema esperado:
//
//	app_user     (id uuid pk, display_name text, email text, status text, created_at timestamptz)
//	sso_identity (issuer text, subject text, user_id uuid fk, display_name text, email text,
//	              created_at timestamptz, primary key (issuer, subject))
type PGProvisioner struct {
	pool *pgxpool.Pool
}

func NewPGProvisioner(pool *pgxpool.Pool) *PGProvisioner {
	return &PGProvisioner{pool: pool}
}

func (p *PGProvisioner) Provision(ctx context.Context, id Identity, register bool) (*ProvisionedAccount, error) {
	// 1) buscar por (issuer, subject)
	var userID uuid.UUID
	var storedName string
	q1 := `
SELECT user_id, display_name
FROM sso_identity
WHERE issuer=$1 AND subject=$2
LIMIT 1`
	err := p.pool.QueryRow(ctx, q1, id.Issuer, id.Subject).Scan(&userID, &storedName)
	if err == nil {
		// refrescar el display name si el provider manda uno nuevo
		if id.DisplayName != "" && id.DisplayName != storedName {
			_, _ = p.pool.Exec(ctx,
				`UPDATE sso_identity SET display_name=$1 WHERE issuer=$2 AND subject=$3`,
				id.DisplayName, id.Issuer, id.Subject)
		}
		return &ProvisionedAccount{
			UserID:      userID.String(),
			Issuer:      id.Issuer,
			Subject:     id.Subject,
			DisplayName: id.DisplayName,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: lookup: %v", ErrProvisioning, err)
	}

	// 2) identidad desconocida: crear solo si la registración está habilitada
	if !register {
		return nil, ErrRegistrationDisabled
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrProvisioning, err)
	}
	defer tx.Rollback(ctx)

	qUser := `
INSERT INTO app_user (id, display_name, email, status)
VALUES ($1, $2, $3, 'active')`
	userID = uuid.New()
	if _, err := tx.Exec(ctx, qUser, userID, id.DisplayName, id.Email); err != nil {
		return nil, fmt.Errorf("%w: insert user: %v", ErrProvisioning, err)
	}
	qIdent := `
INSERT INTO sso_identity (issuer, subject, user_id, display_name, email)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, qIdent, id.Issuer, id.Subject, userID, id.DisplayName, id.Email); err != nil {
		return nil, fmt.Errorf("%w: insert identity: %v", ErrProvisioning, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrProvisioning, err)
	}

	return &ProvisionedAccount{
		UserID:      userID.String(),
		Issuer:      id.Issuer,
		Subject:     id.Subject,
		DisplayName: id.DisplayName,
		Created:     true,
	}, nil
}
