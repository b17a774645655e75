package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"gymgate/internal/database"
)

// MemberRepository provides PostgreSQL-backed member storage.
type MemberRepository struct {
	pool *Pool
}

// NewMemberRepository creates a new PostgreSQL member repository.
func NewMemberRepository(pool *Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   *pgvector.Vector
	valid *bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		*n.valid = false
		return nil
	}
	*n.valid = true
	return n.vec.Scan(src)
}

const memberColumns = "id, email, name, COALESCE(phone, ''), embedding, membership_active, created_at"

// scanMember reads one member row, handling the nullable embedding column.
func scanMember(row interface{ Scan(...any) error }) (database.Member, error) {
	var m database.Member
	var vec pgvector.Vector
	var hasVec bool
	if err := row.Scan(&m.ID, &m.Email, &m.Name, &m.Phone, &nullVector{&vec, &hasVec}, &m.MembershipActive, &m.CreatedAt); err != nil {
		return database.Member{}, err
	}
	if hasVec {
		m.Embedding = vec.Slice()
	}
	return m, nil
}

func (r *MemberRepository) queryMembers(ctx context.Context, query string, args ...any) ([]database.Member, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []database.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// ListEligible returns all members with active membership and a stored embedding.
func (r *MemberRepository) ListEligible(ctx context.Context) ([]database.Member, error) {
	return r.queryMembers(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE membership_active AND embedding IS NOT NULL
		ORDER BY email
	`)
}

// ListAll returns every member record.
func (r *MemberRepository) ListAll(ctx context.Context) ([]database.Member, error) {
	return r.queryMembers(ctx, `
		SELECT `+memberColumns+`
		FROM members
		ORDER BY created_at DESC
	`)
}

// LookupByIdentity finds a member by email, returning (nil, nil) when absent.
func (r *MemberRepository) LookupByIdentity(ctx context.Context, identity string) (*database.Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE email = $1
	`, database.NormalizeIdentity(identity))

	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	return &m, nil
}

// UpsertEnrollment creates or updates a member record keyed by email.
// The name is only overwritten when the new one is non-empty, so an
// enrollment retry without customer details keeps the existing name.
func (r *MemberRepository) UpsertEnrollment(ctx context.Context, m database.Member) error {
	var vec any
	if len(m.Embedding) > 0 {
		vec = pgvector.NewVector(m.Embedding)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO members (email, name, phone, embedding, membership_active)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), members.name),
			phone = COALESCE(EXCLUDED.phone, members.phone),
			embedding = COALESCE(EXCLUDED.embedding, members.embedding),
			membership_active = EXCLUDED.membership_active
	`, database.NormalizeIdentity(m.Email), m.Name, m.Phone, vec, m.MembershipActive)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

// SetMembershipStatus toggles the billing-sourced active flag.
func (r *MemberRepository) SetMembershipStatus(ctx context.Context, email string, active bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE members SET membership_active = $2 WHERE email = $1
	`, database.NormalizeIdentity(email), active)
	if err != nil {
		return fmt.Errorf("set membership status: %w", err)
	}
	return nil
}
