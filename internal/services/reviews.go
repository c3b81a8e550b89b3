package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/mrlokans/librarian/internal/entities"
)

const (
	NoticeReviewPosted    = "Your Review have been posted"
	WarningPostingTooMuch = "You're posting too much!"
)

// ReviewService accepts reader reviews of books.
type ReviewService struct {
	reviews ReviewStore
	catalog CatalogReader
	audit   AuditLogger
	now     func() time.Time

	// Per-reader throttle; nil when disabled.
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	limiters  map[uint]*readerLimiter
	lastSweep time.Time
}

type readerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSweepInterval is how often idle reader limiters are evicted.
const limiterSweepInterval = 5 * time.Minute

type ReviewServiceOption func(*ReviewService)

// WithReviewAudit records every submission through logger.
func WithReviewAudit(logger AuditLogger) ReviewServiceOption {
	return func(s *ReviewService) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// WithReviewRateLimit allows each reader perMinute reviews per minute with
// the given burst. A non-positive perMinute disables throttling.
func WithReviewRateLimit(perMinute float64, burst int) ReviewServiceOption {
	return func(s *ReviewService) {
		if perMinute <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limit = rate.Limit(perMinute / 60)
		s.burst = burst
		s.limiters = make(map[uint]*readerLimiter)
	}
}

func NewReviewService(reviews ReviewStore, catalog CatalogReader, opts ...ReviewServiceOption) *ReviewService {
	s := &ReviewService{
		reviews: reviews,
		catalog: catalog,
		audit:   noopAudit{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithReviewClock replaces time.Now, for tests.
func WithReviewClock(now func() time.Time) ReviewServiceOption {
	return func(s *ReviewService) { s.now = now }
}

// SubmitReview stores a review by requester, dated today. Content is
// required and at most entities.MaxReviewContentLength characters.
func (s *ReviewService) SubmitReview(ctx context.Context, bookID, requester uint, content string) (*entities.BookReview, error) {
	if requester == 0 {
		return nil, ErrUnauthenticated
	}

	exists, err := s.catalog.BookExists(ctx, bookID)
	if err != nil {
		return nil, translate(err, "look up book")
	}
	if !exists {
		return nil, ErrNotFound
	}

	if err := validateReviewContent(content); err != nil {
		s.audit.LogReview(requester, bookID, utf8.RuneCountInString(content), err)
		return nil, err
	}

	if !s.allow(requester) {
		s.audit.LogReview(requester, bookID, utf8.RuneCountInString(content), ErrTooManyReviews)
		return nil, ErrTooManyReviews
	}

	review := &entities.BookReview{
		BookID:    bookID,
		ReaderID:  requester,
		Content:   content,
		CreatedAt: entities.DateOf(s.now()),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, translate(err, "save review")
	}

	s.audit.LogReview(requester, bookID, utf8.RuneCountInString(content), nil)
	return review, nil
}

func validateReviewContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "This field is required.")
	}
	if n := utf8.RuneCountInString(content); n > entities.MaxReviewContentLength {
		return NewValidationError("content", fmt.Sprintf(
			"Ensure this value has at most %d characters (it has %d).", entities.MaxReviewContentLength, n))
	}
	return nil
}

func (s *ReviewService) allow(readerID uint) bool {
	if s.limiters == nil {
		return true
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= limiterSweepInterval {
		s.evictIdle(now)
		s.lastSweep = now
	}

	entry, ok := s.limiters[readerID]
	if !ok {
		entry = &readerLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[readerID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdle drops limiters that have been idle long enough to refill their
// whole burst; a fresh limiter behaves the same.
func (s *ReviewService) evictIdle(now time.Time) {
	idle := time.Duration(float64(s.burst) / float64(s.limit) * float64(time.Second))
	for id, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > idle {
			delete(s.limiters, id)
		}
	}
}
