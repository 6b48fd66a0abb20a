package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/lib/pq"

	"case-assistant/internal/common/database"
	apperrors "case-assistant/internal/common/errors"
	"case-assistant/internal/models"
)

const (
	commentLimit  = 200
	activityLimit = 20
)

const caseColumns = `id, case_number, subject, COALESCE(description, ''), status,
	COALESCE(priority, ''), COALESCE(contact_name, ''), COALESCE(owner_name, ''),
	COALESCE(account_name, ''), created_at, last_modified_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (models.Case, error) {
	var c models.Case
	err := row.Scan(
		&c.ID, &c.CaseNumber, &c.Subject, &c.Description, &c.Status,
		&c.Priority, &c.ContactName, &c.OwnerName,
		&c.AccountName, &c.CreatedDate, &c.LastModifiedDate,
	)
	return c, err
}

// PostgresStore reads cases and their activity from the cases schema.
type PostgresStore struct {
	db *database.PostgresClient
}

func NewPostgresStore(db *database.PostgresClient) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FetchByNumber(ctx context.Context, number string) (*models.Case, error) {
	return s.fetchOne(ctx, models.QueryTypeCaseByNumber,
		`SELECT `+caseColumns+` FROM cases WHERE case_number = $1 LIMIT 1`, number)
}

func (s *PostgresStore) FetchByID(ctx context.Context, id string) (*models.Case, error) {
	return s.fetchOne(ctx, models.QueryTypeCaseByID,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1 LIMIT 1`, id)
}

func (s *PostgresStore) fetchOne(ctx context.Context, qt models.QueryType, query string, arg string) (*models.Case, error) {
	ctx, cancel := s.db.WithQueryTimeout(ctx)
	defer cancel()

	c, err := scanCase(s.db.QueryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryError(ctx, qt, err)
	}
	return &c, nil
}

// Search is the keyword fallback used when Elasticsearch is not configured.
// A case matches when any keyword appears in its subject, description or
// number; cases matching more keywords sort first.
func (s *PostgresStore) Search(ctx context.Context, text string, limit int) ([]models.Case, error) {
	terms := searchTerms(text)
	if len(terms) == 0 {
		terms = []string{strings.TrimSpace(text)}
	}

	matches := make([]string, 0, len(terms))
	hits := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)+1)
	for i, term := range terms {
		n := i + 1
		cond := fmt.Sprintf("(subject ILIKE $%[1]d OR description ILIKE $%[1]d OR case_number ILIKE $%[1]d)", n)
		matches = append(matches, cond)
		hits = append(hits, "CASE WHEN "+cond+" THEN 1 ELSE 0 END")
		args = append(args, "%"+escapeLike(term)+"%")
	}
	args = append(args, limit)

	return s.listCases(ctx, models.QueryTypeCaseSearch, `
		SELECT `+caseColumns+`
		FROM cases
		WHERE `+strings.Join(matches, " OR ")+`
		ORDER BY (`+strings.Join(hits, " + ")+`) DESC, last_modified_at DESC
		LIMIT $`+strconv.Itoa(len(args)), args...)
}

const maxSearchTerms = 8

var searchStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "about": {}, "any": {}, "are": {},
	"can": {}, "you": {}, "this": {}, "that": {}, "what": {}, "which": {}, "from": {},
	"have": {}, "has": {}, "was": {}, "were": {}, "show": {}, "find": {}, "cases": {},
	"case": {}, "please": {}, "there": {}, "into": {}, "when": {}, "where": {}, "why": {},
	"how": {}, "who": {}, "not": {}, "but": {}, "all": {}, "our": {}, "get": {},
}

// searchTerms splits free text into lower-cased keywords, dropping short
// words, stopwords and duplicates.
func searchTerms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})

	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-_")
		if len(f) < 3 {
			continue
		}
		if _, stop := searchStopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []string, limit int) ([]models.Case, error) {
	if len(statuses) == 0 {
		return []models.Case{}, nil
	}
	return s.listCases(ctx, models.QueryTypeCasesByStatus, `
		SELECT `+caseColumns+`
		FROM cases
		WHERE status = ANY($1)
		ORDER BY last_modified_at DESC
		LIMIT $2`, pq.Array(statuses), limit)
}

func (s *PostgresStore) listCases(ctx context.Context, qt models.QueryType, query string, args ...interface{}) ([]models.Case, error) {
	ctx, cancel := s.db.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, queryError(ctx, qt, err)
	}
	defer rows.Close()

	cases := []models.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, queryError(ctx, qt, err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, qt, err)
	}
	return cases, nil
}

func (s *PostgresStore) Comments(ctx context.Context, caseID string) ([]models.Comment, error) {
	ctx, cancel := s.db.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT comment_body, created_at, COALESCE(created_by, '')
		FROM case_comments
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, caseID, commentLimit)
	if err != nil {
		return nil, queryError(ctx, models.QueryTypeCaseComments, err)
	}
	defer rows.Close()

	items := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.CommentBody, &c.CreatedDate, &c.CreatedByName); err != nil {
			return nil, queryError(ctx, models.QueryTypeCaseComments, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, models.QueryTypeCaseComments, err)
	}
	return items, nil
}

func (s *PostgresStore) History(ctx context.Context, caseID string) ([]models.HistoryEntry, error) {
	ctx, cancel := s.db.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT field, COALESCE(old_value, ''), COALESCE(new_value, ''), created_at, COALESCE(created_by, '')
		FROM case_history
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, caseID, activityLimit)
	if err != nil {
		return nil, queryError(ctx, models.QueryTypeCaseHistory, err)
	}
	defer rows.Close()

	items := []models.HistoryEntry{}
	for rows.Next() {
		var h models.HistoryEntry
		if err := rows.Scan(&h.Field, &h.OldValue, &h.NewValue, &h.CreatedDate, &h.CreatedByName); err != nil {
			return nil, queryError(ctx, models.QueryTypeCaseHistory, err)
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, models.QueryTypeCaseHistory, err)
	}
	return items, nil
}

func (s *PostgresStore) Feed(ctx context.Context, caseID string) ([]models.FeedEntry, error) {
	ctx, cancel := s.db.WithQueryTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(body, ''), type, created_at, COALESCE(created_by, '')
		FROM case_feed
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, caseID, activityLimit)
	if err != nil {
		return nil, queryError(ctx, models.QueryTypeCaseFeed, err)
	}
	defer rows.Close()

	items := []models.FeedEntry{}
	for rows.Next() {
		var f models.FeedEntry
		if err := rows.Scan(&f.Body, &f.Type, &f.CreatedDate, &f.CreatedByName); err != nil {
			return nil, queryError(ctx, models.QueryTypeCaseFeed, err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, models.QueryTypeCaseFeed, err)
	}
	return items, nil
}

// Ping is used by the repository health check.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func queryError(ctx context.Context, qt models.QueryType, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return apperrors.NewQueryTimeoutError(string(qt))
	}
	return apperrors.NewQueryExecutionFailedError(string(qt), err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
