// Package cartstore persists pending cart items and submitted booking
// requests in PostgreSQL.
package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evenlyo/booking-service-go/internal/booking"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("cartstore: not found")

// invalidTextRepresentation is raised when an id is not a valid uuid.
const invalidTextRepresentation = "22P02"

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	ListPending(ctx context.Context, userID string) ([]booking.CartItem, error)
	ListAccepted(ctx context.Context, userID string) ([]booking.CartItem, error)
	Add(ctx context.Context, userID string, item NewItem) (booking.CartItem, error)
	UpdateTempDetails(ctx context.Context, userID, itemID string, details booking.TempDetails) error
	Delete(ctx context.Context, userID, itemID string) error
	SubmitRequests(ctx context.Context, userID string, items []SubmittedItem) ([]Request, error)
	Accept(ctx context.Context, requestID string, details booking.BookingDetails) (string, error)
	Decline(ctx context.Context, requestID, reason string) (string, error)
	ListRequests(ctx context.Context, userID string) ([]Request, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListPending(ctx context.Context, userID string) ([]booking.CartItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, listing, pricing, temp_details
		FROM cart_items
		WHERE user_id=$1
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	items := []booking.CartItem{}
	for rows.Next() {
		var (
			it                         booking.CartItem
			listing, pricing, tempJSON []byte
		)
		if err := rows.Scan(&it.ID, &listing, &pricing, &tempJSON); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if err := decodeItem(&it, listing, pricing, tempJSON); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return items, nil
}

// ListAccepted returns the user's accepted requests as cart items keyed by
// request id.
func (r *PostgresRepository) ListAccepted(ctx context.Context, userID string) ([]booking.CartItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, listing, pricing, temp_details, booking_details
		FROM booking_requests
		WHERE user_id=$1 AND status='accepted'
		ORDER BY updated_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accepted: %w", err)
	}
	defer rows.Close()

	items := []booking.CartItem{}
	for rows.Next() {
		var (
			it                                      booking.CartItem
			listing, pricing, tempJSON, detailsJSON []byte
		)
		if err := rows.Scan(&it.ID, &listing, &pricing, &tempJSON, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scan accepted item: %w", err)
		}
		if err := decodeItem(&it, listing, pricing, tempJSON); err != nil {
			return nil, err
		}
		bd := booking.BookingDetails{Status: string(StatusAccepted)}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &bd); err != nil {
				return nil, fmt.Errorf("decode booking details: %w", err)
			}
		}
		it.BookingDetails = &bd
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accepted: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Add(ctx context.Context, userID string, item NewItem) (booking.CartItem, error) {
	listing, pricing, tempJSON, err := encodeItem(item.Listing, item.Pricing, item.TempDetails)
	if err != nil {
		return booking.CartItem{}, err
	}

	id := uuid.NewString()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO cart_items (id, user_id, listing_id, listing, pricing, temp_details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, item.Listing.ID, listing, pricing, tempJSON)
	if err != nil {
		return booking.CartItem{}, fmt.Errorf("insert cart item: %w", err)
	}

	return booking.CartItem{
		ID:          id,
		Listing:     item.Listing,
		Pricing:     item.Pricing,
		TempDetails: item.TempDetails,
	}, nil
}

func (r *PostgresRepository) UpdateTempDetails(ctx context.Context, userID, itemID string, details booking.TempDetails) error {
	tempJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode temp details: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items
		SET temp_details=$3, updated_at=now()
		WHERE id=$1 AND user_id=$2
	`, itemID, userID, tempJSON)
	if err != nil {
		return wrapLookup(err, "update temp details")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, itemID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id=$1 AND user_id=$2`, itemID, userID)
	if err != nil {
		return wrapLookup(err, "delete cart item")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SubmitRequests moves items out of the cart into booking_requests in one
// transaction. Nothing is written if any item is no longer in the cart.
func (r *PostgresRepository) SubmitRequests(ctx context.Context, userID string, items []SubmittedItem) ([]Request, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin submit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Request, 0, len(items))
	for _, s := range items {
		it := s.Item
		listing, pricing, tempJSON, err := encodeItem(it.Listing, it.Pricing, it.TempDetails)
		if err != nil {
			return nil, err
		}
		quote, err := json.Marshal(s.Quote)
		if err != nil {
			return nil, fmt.Errorf("encode quote: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id=$1 AND user_id=$2`, it.ID, userID)
		if err != nil {
			return nil, wrapLookup(err, "remove submitted item")
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("item %s: %w", it.ID, ErrNotFound)
		}

		req := Request{
			ID:          uuid.NewString(),
			UserID:      userID,
			CartItemID:  it.ID,
			Listing:     it.Listing,
			Pricing:     it.Pricing,
			TempDetails: it.TempDetails,
			Quote:       s.Quote,
			Status:      StatusRequested,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO booking_requests
				(id, user_id, cart_item_id, listing_id, vendor_id, listing, pricing, temp_details, quote, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`, req.ID, userID, it.ID, it.Listing.ID, it.Listing.VendorID, listing, pricing, tempJSON, quote, string(StatusRequested)).
			Scan(&req.CreatedAt, &req.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert booking request: %w", err)
		}
		out = append(out, req)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submit: %w", err)
	}
	return out, nil
}

// Accept records the vendor's acceptance and returns the owning user.
// Accepting an already accepted request overwrites its details.
func (r *PostgresRepository) Accept(ctx context.Context, requestID string, details booking.BookingDetails) (string, error) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode booking details: %w", err)
	}
	var userID string
	err = r.pool.QueryRow(ctx, `
		UPDATE booking_requests
		SET status='accepted', booking_details=$2, updated_at=now()
		WHERE id=$1 AND status IN ('requested', 'accepted')
		RETURNING user_id
	`, requestID, detailsJSON).Scan(&userID)
	if err != nil {
		return "", wrapLookup(err, "accept request")
	}
	return userID, nil
}

func (r *PostgresRepository) Decline(ctx context.Context, requestID, reason string) (string, error) {
	var userID string
	err := r.pool.QueryRow(ctx, `
		UPDATE booking_requests
		SET status='declined', decline_reason=$2, booking_details=NULL, updated_at=now()
		WHERE id=$1 AND status IN ('requested', 'declined')
		RETURNING user_id
	`, requestID, reason).Scan(&userID)
	if err != nil {
		return "", wrapLookup(err, "decline request")
	}
	return userID, nil
}

func (r *PostgresRepository) ListRequests(ctx context.Context, userID string) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, cart_item_id::text, listing, pricing, temp_details, quote,
		       status, booking_details, decline_reason, created_at, updated_at
		FROM booking_requests
		WHERE user_id=$1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		var (
			req                                            Request
			status                                         string
			listing, pricing, tempJSON, quote, detailsJSON []byte
		)
		if err := rows.Scan(&req.ID, &req.CartItemID, &listing, &pricing, &tempJSON, &quote,
			&status, &detailsJSON, &req.DeclineReason, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		var it booking.CartItem
		if err := decodeItem(&it, listing, pricing, tempJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(quote, &req.Quote); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
		if len(detailsJSON) > 0 {
			var bd booking.BookingDetails
			if err := json.Unmarshal(detailsJSON, &bd); err != nil {
				return nil, fmt.Errorf("decode booking details: %w", err)
			}
			req.BookingDetails = &bd
		}
		req.UserID = userID
		req.Status = Status(status)
		req.Listing, req.Pricing, req.TempDetails = it.Listing, it.Pricing, it.TempDetails
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// wrapLookup maps a missing row or a malformed id to ErrNotFound.
func wrapLookup(err error, op string) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func encodeItem(listing booking.ListingRef, pricing booking.PricingSchedule, td booking.TempDetails) ([]byte, []byte, []byte, error) {
	l, err := json.Marshal(listing)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode listing: %w", err)
	}
	p, err := json.Marshal(pricing)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode pricing: %w", err)
	}
	t, err := json.Marshal(td)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode temp details: %w", err)
	}
	return l, p, t, nil
}

func decodeItem(it *booking.CartItem, listing, pricing, tempJSON []byte) error {
	if err := json.Unmarshal(listing, &it.Listing); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}
	if err := json.Unmarshal(pricing, &it.Pricing); err != nil {
		return fmt.Errorf("decode pricing: %w", err)
	}
	if len(tempJSON) > 0 {
		if err := json.Unmarshal(tempJSON, &it.TempDetails); err != nil {
			return fmt.Errorf("decode temp details: %w", err)
		}
	}
	return nil
}
