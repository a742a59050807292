package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// AnalyticsRepository aggregates ticket figures for the staff dashboard.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AnalyticsRepository = (*AnalyticsRepository)(nil)

func NewAnalyticsRepository(pool *pgxpool.Pool) ports.AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

func (r *AnalyticsRepository) GetOverview(ctx context.Context, orgID uuid.UUID, days int) (*domain.DashboardOverview, error) {
	if days <= 0 {
		days = 30
	}

	statusCounts, err := r.fetchStatusCounts(ctx, orgID)
	if err != nil {
		return nil, err
	}

	workload, err := r.fetchWorkload(ctx, orgID)
	if err != nil {
		return nil, err
	}

	volume, err := r.fetchVolume(ctx, orgID, days)
	if err != nil {
		return nil, err
	}

	mttrHours, err := r.fetchMTTRHours(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardOverview{
		StatusCounts: statusCounts,
		Workload:     workload,
		Volume:       volume,
		MTTRHours:    mttrHours,
	}, nil
}

func (r *AnalyticsRepository) fetchStatusCounts(ctx context.Context, orgID uuid.UUID) ([]domain.StatusCount, error) {
	const query = `
SELECT t.status, COUNT(*)
FROM tickets t
JOIN users ru ON t.requester_id = ru.id
WHERE ru.organization_id = $1
GROUP BY t.status
`

	rows, err := r.pool.Query(ctx, query, pgtype.UUID{Bytes: orgID, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ordered := []domain.TicketStatus{
		domain.StatusOpen,
		domain.StatusInProgress,
		domain.StatusResolved,
		domain.StatusClosed,
	}
	counts := make(map[domain.TicketStatus]int64, len(ordered))
	for _, status := range ordered {
		counts[status] = 0
	}

	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.TicketStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]domain.StatusCount, 0, len(ordered))
	for _, status := range ordered {
		result = append(result, domain.StatusCount{Status: status, Count: counts[status]})
	}
	return result, nil
}

func (r *AnalyticsRepository) fetchWorkload(ctx context.Context, orgID uuid.UUID) ([]domain.WorkloadItem, error) {
	const query = `
SELECT t.assignee_id, u.full_name, u.email, COUNT(*)
FROM tickets t
JOIN users ru ON t.requester_id = ru.id
LEFT JOIN users u ON t.assignee_id = u.id
WHERE ru.organization_id = $1
  AND t.status NOT IN ('RESOLVED', 'CLOSED')
GROUP BY t.assignee_id, u.full_name, u.email
ORDER BY COUNT(*) DESC, u.full_name, u.email
`

	rows, err := r.pool.Query(ctx, query, pgtype.UUID{Bytes: orgID, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.WorkloadItem, 0)
	for rows.Next() {
		var (
			assigneeID pgtype.UUID
			fullName   pgtype.Text
			email      pgtype.Text
			count      int64
		)
		if err := rows.Scan(&assigneeID, &fullName, &email, &count); err != nil {
			return nil, err
		}

		var idPtr *uuid.UUID
		if assigneeID.Valid {
			value := uuid.UUID(assigneeID.Bytes)
			idPtr = &value
		}

		items = append(items, domain.WorkloadItem{
			AssigneeID: idPtr,
			FullName:   textOrEmpty(fullName),
			Email:      textOrEmpty(email),
			Count:      count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *AnalyticsRepository) fetchVolume(ctx context.Context, orgID uuid.UUID, days int) ([]domain.VolumePoint, error) {
	const query = `
WITH series AS (
	SELECT generate_series(
		date_trunc('day', now()) - ($2::int - 1) * interval '1 day',
		date_trunc('day', now()),
		interval '1 day'
	)::date AS day
),
created AS (
	SELECT date_trunc('day', t.created_at)::date AS day, COUNT(*) AS n
	FROM tickets t
	JOIN users ru ON t.requester_id = ru.id
	WHERE ru.organization_id = $1
	GROUP BY 1
),
resolved AS (
	SELECT date_trunc('day', t.closed_at)::date AS day, COUNT(*) AS n
	FROM tickets t
	JOIN users ru ON t.requester_id = ru.id
	WHERE ru.organization_id = $1 AND t.closed_at IS NOT NULL
	GROUP BY 1
)
SELECT s.day, COALESCE(c.n, 0), COALESCE(r.n, 0)
FROM series s
LEFT JOIN created c ON c.day = s.day
LEFT JOIN resolved r ON r.day = s.day
ORDER BY s.day
`

	rows, err := r.pool.Query(ctx, query, pgtype.UUID{Bytes: orgID, Valid: true}, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]domain.VolumePoint, 0, days)
	for rows.Next() {
		var (
			day           time.Time
			createdCount  int64
			resolvedCount int64
		)
		if err := rows.Scan(&day, &createdCount, &resolvedCount); err != nil {
			return nil, err
		}
		points = append(points, domain.VolumePoint{
			Day:           day,
			CreatedCount:  createdCount,
			ResolvedCount: resolvedCount,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return points, nil
}

func (r *AnalyticsRepository) fetchMTTRHours(ctx context.Context, orgID uuid.UUID) (float64, error) {
	const query = `
SELECT AVG(EXTRACT(EPOCH FROM (t.closed_at - t.created_at)))
FROM tickets t
JOIN users ru ON t.requester_id = ru.id
WHERE ru.organization_id = $1
  AND t.closed_at IS NOT NULL
`

	row := r.pool.QueryRow(ctx, query, pgtype.UUID{Bytes: orgID, Valid: true})
	var avgSeconds pgtype.Float8
	if err := row.Scan(&avgSeconds); err != nil {
		return 0, err
	}
	if !avgSeconds.Valid {
		return 0, nil
	}
	return avgSeconds.Float64 / 3600, nil
}

func textOrEmpty(text pgtype.Text) string {
	if text.Valid {
		return text.String
	}
	return ""
}
