package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/internal/domain/valueobject"
	pkgpostgres "github.com/bibbank/debitcard/pkg/postgres"
)

const cardColumns = `id, customer_id, last_four, expiry_month, expiry_year,
	status, primary_account_id, version, created_at, updated_at`

// CardRepository implements port.CardRepository using PostgreSQL.
type CardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository creates a new CardRepository.
func NewCardRepository(pool *pgxpool.Pool) *CardRepository {
	return &CardRepository{pool: pool}
}

// Save persists a new card aggregate.
func (r *CardRepository) Save(ctx context.Context, card model.Card) error {
	query := `
		INSERT INTO debit_cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		card.ID(),
		card.CustomerID(),
		card.CardNumber().LastFour(),
		card.CardNumber().ExpiryMonth(),
		card.CardNumber().ExpiryYear(),
		card.Status().String(),
		card.PrimaryAccountID(),
		card.Version(),
		card.CreatedAt(),
		card.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

// Update persists the descriptive fields of a card with optimistic locking.
// The primary account column is owned by AssignPrimaryAccount and is not written.
func (r *CardRepository) Update(ctx context.Context, card model.Card) error {
	return pkgpostgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE debit_cards SET
				last_four = $1,
				expiry_month = $2,
				expiry_year = $3,
				status = $4,
				version = $5,
				updated_at = $6
			WHERE id = $7 AND version = $8
		`

		result, err := tx.Exec(ctx, query,
			card.CardNumber().LastFour(),
			card.CardNumber().ExpiryMonth(),
			card.CardNumber().ExpiryYear(),
			card.Status().String(),
			card.Version(),
			card.UpdatedAt(),
			card.ID(),
			card.Version()-1,
		)
		if err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}
		if result.RowsAffected() == 1 {
			return nil
		}

		exists, err := cardExists(ctx, tx, card.ID())
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("card %s: %w", card.ID(), model.ErrCardNotFound)
		}
		return fmt.Errorf("card %s: %w", card.ID(), model.ErrConcurrentModification)
	})
}

// FindByID retrieves a card by its unique identifier.
func (r *CardRepository) FindByID(ctx context.Context, id uuid.UUID) (model.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM debit_cards WHERE id = $1`

	card, err := scanCard(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Card{}, fmt.Errorf("card %s: %w", id, model.ErrCardNotFound)
	}
	return card, err
}

// FindAll lists cards, newest first, with the total row count.
func (r *CardRepository) FindAll(ctx context.Context, limit, offset int) ([]model.Card, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM debit_cards`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	query := `
		SELECT ` + cardColumns + `
		FROM debit_cards
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// Delete removes a card.
func (r *CardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM debit_cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", id, model.ErrCardNotFound)
	}
	return nil
}

// AssignPrimaryAccount writes the card's primary account only while the
// stored card has none, and returns the row as written.
func (r *CardRepository) AssignPrimaryAccount(ctx context.Context, card model.Card) (model.Card, error) {
	primary := card.PrimaryAccountID()
	if primary == nil {
		return model.Card{}, fmt.Errorf("card %s carries no primary account to assign", card.ID())
	}

	query := `
		UPDATE debit_cards SET
			primary_account_id = $1,
			version = version + 1,
			updated_at = $2
		WHERE id = $3 AND primary_account_id IS NULL
		RETURNING ` + cardColumns

	stored, err := scanCard(r.pool.QueryRow(ctx, query, *primary, card.UpdatedAt(), card.ID()))
	if err == nil {
		return stored, nil
	}
	if pkgpostgres.IsUniqueViolation(err) {
		return model.Card{}, fmt.Errorf("account %s is already primary for another card: %w", *primary, model.ErrPrimaryAccountAlreadyAssigned)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Card{}, fmt.Errorf("failed to assign primary account: %w", err)
	}

	exists, err := cardExists(ctx, r.pool, card.ID())
	if err != nil {
		return model.Card{}, err
	}
	if !exists {
		return model.Card{}, fmt.Errorf("card %s: %w", card.ID(), model.ErrCardNotFound)
	}
	return model.Card{}, fmt.Errorf("card %s: %w", card.ID(), model.ErrPrimaryAccountAlreadyAssigned)
}

// ReleasePrimaryAccount clears the primary account while it is still accountID.
func (r *CardRepository) ReleasePrimaryAccount(ctx context.Context, cardID, accountID uuid.UUID) error {
	query := `
		UPDATE debit_cards SET
			primary_account_id = NULL,
			version = version + 1,
			updated_at = $1
		WHERE id = $2 AND primary_account_id = $3
	`

	if _, err := r.pool.Exec(ctx, query, time.Now().UTC(), cardID, accountID); err != nil {
		return fmt.Errorf("failed to release primary account: %w", err)
	}
	return nil
}

func cardExists(ctx context.Context, q pkgpostgres.Querier, id uuid.UUID) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM debit_cards WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check card existence: %w", err)
	}
	return exists, nil
}

func scanCard(row pgx.Row) (model.Card, error) {
	var (
		id          uuid.UUID
		customerID  uuid.UUID
		lastFour    string
		expiryMonth string
		expiryYear  string
		statusStr   string
		primaryID   *uuid.UUID
		version     int
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(
		&id, &customerID, &lastFour, &expiryMonth, &expiryYear,
		&statusStr, &primaryID, &version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Card{}, err
		}
		return model.Card{}, fmt.Errorf("failed to scan card: %w", err)
	}

	status, err := valueobject.NewCardStatus(statusStr)
	if err != nil {
		return model.Card{}, fmt.Errorf("invalid card status in DB: %w", err)
	}

	cardNumber, err := valueobject.NewCardNumber(lastFour, expiryMonth, expiryYear)
	if err != nil {
		return model.Card{}, fmt.Errorf("invalid card number in DB: %w", err)
	}

	return model.Reconstruct(
		id, customerID, cardNumber, status, primaryID,
		version, createdAt.UTC(), updatedAt.UTC(),
	), nil
}

func scanCards(rows pgx.Rows) ([]model.Card, error) {
	var cards []model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cards, nil
}
