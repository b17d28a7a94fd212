package domain

import "time"

// NameCount is a (name, count) histogram bucket.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// RatingCount is one bucket of the rating distribution, keyed by the rating
// value in half-stars.
type RatingCount struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// PeriodPages is a (period, pages) series point, keyed by "Jan".."Dec" for
// monthly series and by year for yearly series.
type PeriodPages struct {
	Period string `json:"period"`
	Pages  int64  `json:"pages"`
}

// TitlePages is a book title paired with its page count, used for the
// longest/shortest extremes.
type TitlePages struct {
	Title string `json:"title"`
	Pages int    `json:"pages"`
}

// BookSummaryStats aggregates the user's library composition.
type BookSummaryStats struct {
	TotalBooks   int64   `json:"total_books"`
	TotalAuthors int64   `json:"total_authors"`
	UniqueGenres int64   `json:"unique_genres"`
	TopGenre     *string `json:"top_genre,omitempty"`
	TopAuthor    *string `json:"top_author,omitempty"`

	// MostRatedAuthor/Genre carry the highest total sum of star ratings.
	MostRatedAuthor *string `json:"most_rated_author,omitempty"`
	MostRatedGenre  *string `json:"most_rated_genre,omitempty"`

	GenreCounts   []NameCount `json:"genre_counts"`
	MaxGenreCount int64       `json:"max_genre_count"`

	// Page count buckets ("< 200", "200 – 350", "350 – 500", "500+") and
	// publication decades ("1990s", "2000s").
	PageCountDistribution     []NameCount `json:"page_count_distribution"`
	YearPublishedDistribution []NameCount `json:"year_published_distribution"`
	MaxYearPublishedCount     int64       `json:"max_year_published_count"`

	TopAuthors        []NameCount `json:"top_authors"`
	MaxTopAuthorCount int64       `json:"max_top_author_count"`

	LongestBook  *TitlePages `json:"longest_book,omitempty"`
	ShortestBook *TitlePages `json:"shortest_book,omitempty"`
}

// ReadingStats aggregates the user's reading activity.
type ReadingStats struct {
	BooksLast30Days int64 `json:"books_last_30_days"`
	BooksAllTime    int64 `json:"books_all_time"`
	PagesLast30Days int64 `json:"pages_last_30_days"`
	PagesAllTime    int64 `json:"pages_all_time"`
	BooksInProgress int64 `json:"books_in_progress"`
	BooksOnShelf    int64 `json:"books_on_shelf"`
	BooksOnWishlist int64 `json:"books_on_wishlist"`
	BooksAbandoned  int64 `json:"books_abandoned"`

	AverageRating       *float64 `json:"average_rating,omitempty"`
	AverageDaysToFinish *float64 `json:"average_days_to_finish,omitempty"`

	RatingDistribution []RatingCount `json:"rating_distribution"`
	MaxRatingCount     int64         `json:"max_rating_count"`

	// Pace buckets are Slow (< 15 pages/day), Medium (15..40) and Fast.
	PaceDistribution []NameCount `json:"pace_distribution"`
	FormatCounts     []NameCount `json:"format_counts"`

	// Monthly series cover the current year; yearly series are all-time.
	MonthlyBooks    []NameCount   `json:"monthly_books"`
	MonthlyPages    []PeriodPages `json:"monthly_pages"`
	MaxMonthlyBooks int64         `json:"max_monthly_books"`
	MaxMonthlyPages int64         `json:"max_monthly_pages"`
	YearlyBooks     []NameCount   `json:"yearly_books"`
	YearlyPages     []PeriodPages `json:"yearly_pages"`
	MaxYearlyBooks  int64         `json:"max_yearly_books"`
	MaxYearlyPages  int64         `json:"max_yearly_pages"`
}

// CachedStats is the full per-user aggregate snapshot stored in stats_cache.
// The JSON shape is this package's private serialization contract; nothing
// outside the stats service interprets the stored column directly.
type CachedStats struct {
	BookSummary BookSummaryStats `json:"book_summary"`
	Reading     ReadingStats     `json:"reading"`
	ComputedAt  time.Time        `json:"computed_at"`
}
