// Package stats computes per-user reading aggregates directly from entity
// state. Every method is a full scan of the user's rows; the service layer
// caches the result, so nothing here needs to be incremental.
package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookline/bookline-backend/internal/domain"
)

// Repo runs aggregate queries against PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new stats repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// BookSummary aggregates the composition of the user's library shelf. When
// year is non-nil, the rated aggregates (most rated author/genre) are scoped
// to readings finished in that year; shelf composition is not year-scoped
// because books have no acquisition date.
func (r *Repo) BookSummary(ctx context.Context, userID uuid.UUID, year *int) (domain.BookSummaryStats, error) {
	var s domain.BookSummaryStats
	var err error

	if s.TotalBooks, err = r.countScalar(ctx,
		`SELECT COUNT(*) FROM user_books WHERE user_id = $1 AND shelf = 'library'`,
		userID); err != nil {
		return s, err
	}

	if s.TotalAuthors, err = r.countScalar(ctx,
		`SELECT COUNT(DISTINCT ba.author_id)
		   FROM user_books ub
		   JOIN book_authors ba ON ba.book_id = ub.book_id
		  WHERE ub.user_id = $1 AND ub.shelf = 'library'`,
		userID); err != nil {
		return s, err
	}

	s.GenreCounts, err = r.nameCounts(ctx,
		`SELECT g.name, COUNT(*) AS count
		   FROM user_books ub
		   JOIN books b ON b.id = ub.book_id
		   JOIN genres g ON g.id IN (b.primary_genre_id, b.secondary_genre_id)
		  WHERE ub.user_id = $1 AND ub.shelf = 'library'
		  GROUP BY g.id
		  ORDER BY count DESC, g.name`,
		userID)
	if err != nil {
		return s, err
	}
	s.UniqueGenres = int64(len(s.GenreCounts))
	if len(s.GenreCounts) > 0 {
		s.TopGenre = &s.GenreCounts[0].Name
	}
	s.MaxGenreCount = maxCount(s.GenreCounts)

	s.TopAuthors, err = r.nameCounts(ctx,
		`SELECT a.name, COUNT(*) AS count
		   FROM user_books ub
		   JOIN book_authors ba ON ba.book_id = ub.book_id
		   JOIN authors a ON a.id = ba.author_id
		  WHERE ub.user_id = $1 AND ub.shelf = 'library'
		  GROUP BY a.id
		  ORDER BY count DESC, a.name`,
		userID)
	if err != nil {
		return s, err
	}
	if len(s.TopAuthors) > 0 {
		s.TopAuthor = &s.TopAuthors[0].Name
	}
	s.MaxTopAuthorCount = maxCount(s.TopAuthors)

	if s.MostRatedAuthor, err = r.topName(ctx,
		`SELECT a.name
		   FROM readings r
		   JOIN book_authors ba ON ba.book_id = r.book_id AND ba.role = 'author'
		   JOIN authors a ON a.id = ba.author_id
		  WHERE r.user_id = $1 AND r.status = 'read' AND r.rating IS NOT NULL
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM r.finished_at)::int = $2)
		  GROUP BY a.id
		  ORDER BY SUM(r.rating) DESC, a.name
		  LIMIT 1`,
		userID, year); err != nil {
		return s, err
	}

	if s.MostRatedGenre, err = r.topName(ctx,
		`SELECT g.name
		   FROM readings r
		   JOIN books b ON b.id = r.book_id
		   JOIN genres g ON g.id IN (b.primary_genre_id, b.secondary_genre_id)
		  WHERE r.user_id = $1 AND r.status = 'read' AND r.rating IS NOT NULL
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM r.finished_at)::int = $2)
		  GROUP BY g.id
		  ORDER BY SUM(r.rating) DESC, g.name
		  LIMIT 1`,
		userID, year); err != nil {
		return s, err
	}

	s.PageCountDistribution, err = r.nameCounts(ctx,
		`SELECT bucket AS name, COUNT(*) AS count
		   FROM (
		     SELECT CASE
		       WHEN b.page_count < 200 THEN '< 200'
		       WHEN b.page_count <= 350 THEN '200 – 350'
		       WHEN b.page_count <= 500 THEN '350 – 500'
		       ELSE '500+'
		     END AS bucket, b.page_count
		     FROM user_books ub
		     JOIN books b ON b.id = ub.book_id
		     WHERE ub.user_id = $1 AND ub.shelf = 'library' AND b.page_count IS NOT NULL
		   ) pages
		  GROUP BY bucket
		  ORDER BY MIN(page_count)`,
		userID)
	if err != nil {
		return s, err
	}

	s.YearPublishedDistribution, err = r.nameCounts(ctx,
		`SELECT (b.year_published / 10 * 10)::text || 's' AS name, COUNT(*) AS count
		   FROM user_books ub
		   JOIN books b ON b.id = ub.book_id
		  WHERE ub.user_id = $1 AND ub.shelf = 'library' AND b.year_published IS NOT NULL
		  GROUP BY name
		  ORDER BY count DESC, name`,
		userID)
	if err != nil {
		return s, err
	}
	s.MaxYearPublishedCount = maxCount(s.YearPublishedDistribution)

	if s.LongestBook, err = r.titlePages(ctx, userID, "DESC"); err != nil {
		return s, err
	}
	if s.ShortestBook, err = r.titlePages(ctx, userID, "ASC"); err != nil {
		return s, err
	}

	return s, nil
}

// ReadingSummary aggregates the user's reading activity. When year is
// non-nil, reading-scoped aggregates count only readings finished in that
// year and the monthly series cover that year instead of the current one;
// shelf counts and the yearly series stay all-time.
func (r *Repo) ReadingSummary(ctx context.Context, userID uuid.UUID, year *int) (domain.ReadingStats, error) {
	var s domain.ReadingStats
	var err error

	if s.BooksAllTime, err = r.countScalar(ctx,
		`SELECT COUNT(*) FROM readings
		  WHERE user_id = $1 AND status = 'read'
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM finished_at)::int = $2)`,
		userID, year); err != nil {
		return s, err
	}

	if s.PagesAllTime, err = r.countScalar(ctx,
		`SELECT COALESCE(SUM(b.page_count), 0)
		   FROM readings r
		   JOIN books b ON b.id = r.book_id
		  WHERE r.user_id = $1 AND r.status = 'read' AND b.page_count IS NOT NULL
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM r.finished_at)::int = $2)`,
		userID, year); err != nil {
		return s, err
	}

	if s.BooksLast30Days, err = r.countScalar(ctx,
		`SELECT COUNT(*) FROM readings
		  WHERE user_id = $1 AND status = 'read'
		    AND finished_at >= now() - interval '30 days'`,
		userID); err != nil {
		return s, err
	}

	if s.PagesLast30Days, err = r.countScalar(ctx,
		`SELECT COALESCE(SUM(b.page_count), 0)
		   FROM readings r
		   JOIN books b ON b.id = r.book_id
		  WHERE r.user_id = $1 AND r.status = 'read'
		    AND r.finished_at >= now() - interval '30 days'`,
		userID); err != nil {
		return s, err
	}

	if s.BooksInProgress, err = r.countScalar(ctx,
		`SELECT COUNT(*) FROM readings WHERE user_id = $1 AND status = 'reading'`,
		userID); err != nil {
		return s, err
	}

	if s.BooksAbandoned, err = r.countScalar(ctx,
		`SELECT COUNT(*) FROM readings
		  WHERE user_id = $1 AND status = 'abandoned'
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM COALESCE(finished_at, started_at))::int = $2)`,
		userID, year); err != nil {
		return s, err
	}

	if s.BooksOnShelf, err = r.countScalar(ctx,
		`SELECT COUNT(*) FROM user_books ub
		  WHERE ub.user_id = $1 AND ub.shelf = 'library'
		    AND NOT EXISTS (
		      SELECT 1 FROM readings r
		       WHERE r.user_id = ub.user_id AND r.book_id = ub.book_id)`,
		userID); err != nil {
		return s, err
	}

	if s.BooksOnWishlist, err = r.countScalar(ctx,
		`SELECT COUNT(*) FROM user_books WHERE user_id = $1 AND shelf = 'wishlist'`,
		userID); err != nil {
		return s, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT AVG(rating::float8),
		        AVG(EXTRACT(EPOCH FROM (finished_at - started_at)) / 86400.0)
		   FROM readings
		  WHERE user_id = $1 AND status = 'read'
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM finished_at)::int = $2)`,
		userID, year,
	).Scan(&s.AverageRating, &s.AverageDaysToFinish)
	if err != nil {
		return s, fmt.Errorf("average rating and pace: %w", err)
	}

	if s.RatingDistribution, err = r.ratingCounts(ctx, userID, year); err != nil {
		return s, err
	}
	for _, rc := range s.RatingDistribution {
		if rc.Count > s.MaxRatingCount {
			s.MaxRatingCount = rc.Count
		}
	}

	s.PaceDistribution, err = r.nameCounts(ctx,
		`SELECT pace AS name, COUNT(*) AS count
		   FROM (
		     SELECT CASE
		       WHEN b.page_count / GREATEST(1.0, EXTRACT(EPOCH FROM (r.finished_at - r.started_at)) / 86400.0) < 15 THEN 'Slow'
		       WHEN b.page_count / GREATEST(1.0, EXTRACT(EPOCH FROM (r.finished_at - r.started_at)) / 86400.0) <= 40 THEN 'Medium'
		       ELSE 'Fast'
		     END AS pace
		     FROM readings r
		     JOIN books b ON b.id = r.book_id
		     WHERE r.user_id = $1 AND r.status = 'read'
		       AND r.started_at IS NOT NULL AND r.finished_at IS NOT NULL
		       AND r.finished_at >= r.started_at
		       AND b.page_count IS NOT NULL
		       AND ($2::int IS NULL OR EXTRACT(YEAR FROM r.finished_at)::int = $2)
		   ) paced
		  GROUP BY pace
		  ORDER BY CASE pace WHEN 'Slow' THEN 1 WHEN 'Medium' THEN 2 ELSE 3 END`,
		userID, year)
	if err != nil {
		return s, err
	}

	s.FormatCounts, err = r.nameCounts(ctx,
		`SELECT COALESCE(format, 'unknown') AS name, COUNT(*) AS count
		   FROM readings
		  WHERE user_id = $1
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM finished_at)::int = $2)
		  GROUP BY format
		  ORDER BY count DESC, name`,
		userID, year)
	if err != nil {
		return s, err
	}

	if s.MonthlyBooks, s.MonthlyPages, err = r.monthlySeries(ctx, userID, year); err != nil {
		return s, err
	}
	for _, nc := range s.MonthlyBooks {
		if nc.Count > s.MaxMonthlyBooks {
			s.MaxMonthlyBooks = nc.Count
		}
	}
	for _, pp := range s.MonthlyPages {
		if pp.Pages > s.MaxMonthlyPages {
			s.MaxMonthlyPages = pp.Pages
		}
	}

	s.YearlyBooks, err = r.nameCounts(ctx,
		`SELECT EXTRACT(YEAR FROM finished_at)::int::text AS name, COUNT(*) AS count
		   FROM readings
		  WHERE user_id = $1 AND status = 'read' AND finished_at IS NOT NULL
		  GROUP BY name
		  ORDER BY name`,
		userID)
	if err != nil {
		return s, err
	}
	for _, nc := range s.YearlyBooks {
		if nc.Count > s.MaxYearlyBooks {
			s.MaxYearlyBooks = nc.Count
		}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT EXTRACT(YEAR FROM r.finished_at)::int::text AS name,
		        COALESCE(SUM(b.page_count), 0) AS pages
		   FROM readings r
		   JOIN books b ON b.id = r.book_id
		  WHERE r.user_id = $1 AND r.status = 'read' AND r.finished_at IS NOT NULL
		  GROUP BY name
		  ORDER BY name`,
		userID)
	if err != nil {
		return s, fmt.Errorf("yearly pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pp domain.PeriodPages
		if err := rows.Scan(&pp.Period, &pp.Pages); err != nil {
			return s, fmt.Errorf("yearly pages: %w", err)
		}
		s.YearlyPages = append(s.YearlyPages, pp)
		if pp.Pages > s.MaxYearlyPages {
			s.MaxYearlyPages = pp.Pages
		}
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("yearly pages: %w", err)
	}

	return s, nil
}

// AvailableYears lists the distinct years in which the user finished at
// least one book, most recent first.
func (r *Repo) AvailableYears(ctx context.Context, userID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT EXTRACT(YEAR FROM finished_at)::int AS year
		   FROM readings
		  WHERE user_id = $1 AND status = 'read' AND finished_at IS NOT NULL
		  ORDER BY year DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("available years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("available years: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// monthlySeries returns finished books and pages per month. The series
// always has 12 points, zero-filled for months without activity.
func (r *Repo) monthlySeries(ctx context.Context, userID uuid.UUID, year *int) ([]domain.NameCount, []domain.PeriodPages, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.month,
		        to_char(make_date(2000, m.month, 1), 'Mon') AS name,
		        COUNT(r.id) AS count,
		        COALESCE(SUM(b.page_count), 0) AS pages
		   FROM generate_series(1, 12) AS m(month)
		   LEFT JOIN readings r
		     ON EXTRACT(MONTH FROM r.finished_at)::int = m.month
		    AND r.user_id = $1 AND r.status = 'read'
		    AND EXTRACT(YEAR FROM r.finished_at)::int =
		        COALESCE($2::int, EXTRACT(YEAR FROM now())::int)
		   LEFT JOIN books b ON b.id = r.book_id AND b.page_count IS NOT NULL
		  GROUP BY m.month
		  ORDER BY m.month`,
		userID, year)
	if err != nil {
		return nil, nil, fmt.Errorf("monthly series: %w", err)
	}
	defer rows.Close()

	books := make([]domain.NameCount, 0, 12)
	pages := make([]domain.PeriodPages, 0, 12)
	for rows.Next() {
		var month int
		var name string
		var count, pp int64
		if err := rows.Scan(&month, &name, &count, &pp); err != nil {
			return nil, nil, fmt.Errorf("monthly series: %w", err)
		}
		books = append(books, domain.NameCount{Name: name, Count: count})
		pages = append(pages, domain.PeriodPages{Period: name, Pages: pp})
	}
	return books, pages, rows.Err()
}

func (r *Repo) titlePages(ctx context.Context, userID uuid.UUID, order string) (*domain.TitlePages, error) {
	var tp domain.TitlePages
	err := r.pool.QueryRow(ctx,
		`SELECT b.title, b.page_count
		   FROM user_books ub
		   JOIN books b ON b.id = ub.book_id
		  WHERE ub.user_id = $1 AND ub.shelf = 'library' AND b.page_count IS NOT NULL
		  ORDER BY b.page_count `+order+`, b.title
		  LIMIT 1`,
		userID,
	).Scan(&tp.Title, &tp.Pages)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("book page extremes: %w", err)
	}
	return &tp, nil
}

func (r *Repo) ratingCounts(ctx context.Context, userID uuid.UUID, year *int) ([]domain.RatingCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rating, COUNT(*) AS count
		   FROM readings
		  WHERE user_id = $1 AND status = 'read' AND rating IS NOT NULL
		    AND ($2::int IS NULL OR EXTRACT(YEAR FROM finished_at)::int = $2)
		  GROUP BY rating
		  ORDER BY rating`,
		userID, year)
	if err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}
	defer rows.Close()

	var out []domain.RatingCount
	for rows.Next() {
		var rc domain.RatingCount
		if err := rows.Scan(&rc.Rating, &rc.Count); err != nil {
			return nil, fmt.Errorf("rating distribution: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *Repo) countScalar(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("stats scalar: %w", err)
	}
	return n, nil
}

func (r *Repo) topName(ctx context.Context, query string, args ...any) (*string, error) {
	var name string
	err := r.pool.QueryRow(ctx, query, args...).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stats top name: %w", err)
	}
	return &name, nil
}

func maxCount(counts []domain.NameCount) int64 {
	var max int64
	for _, nc := range counts {
		if nc.Count > max {
			max = nc.Count
		}
	}
	return max
}

func (r *Repo) nameCounts(ctx context.Context, query string, args ...any) ([]domain.NameCount, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stats counts: %w", err)
	}
	defer rows.Close()

	var out []domain.NameCount
	for rows.Next() {
		var nc domain.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("stats counts: %w", err)
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}
