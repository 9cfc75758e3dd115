package subscriber

import (
	"context"
	"database/sql"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/pkg/errors"
	"github.com/lettermill/lettermill/pkg/token"
)

var exportHeader = []string{
	"email", "language", "status", "is_confirmed", "is_active",
	"consent_given_at", "confirmed_at", "created_at",
}

// ExportCSV streams all subscribers matching filters as CSV rows. Rows are
// written as they are scanned, so exports of large tables do not buffer the
// full result set.
func (s *service) ExportCSV(ctx context.Context, filters *model.SubscriberFilters, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errors.Internal(fmt.Errorf("failed to write CSV header: %w", err))
	}

	err := s.repo.Each(ctx, filters, func(sub *model.Subscriber) error {
		confirmedAt := ""
		if sub.ConfirmedAt != nil {
			confirmedAt = sub.ConfirmedAt.Format(time.RFC3339)
		}
		return cw.Write([]string{
			sub.Email,
			sub.Language,
			string(sub.Status),
			fmt.Sprintf("%t", sub.IsConfirmed),
			fmt.Sprintf("%t", sub.IsActive),
			sub.ConsentGivenAt.Format(time.RFC3339),
			confirmedAt,
			sub.CreatedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return errors.Internal(fmt.Errorf("failed to export subscribers: %w", err))
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Internal(fmt.Errorf("failed to flush CSV: %w", err))
	}
	return nil
}

// ImportCSV reads `email,language` rows and creates subscribers. Rows whose
// email already exists (in the file or the table) are skipped and counted,
// not errored. Missing language falls back to the configured default.
// Imported subscribers are created pending and still need to opt in.
func (s *service) ImportCSV(ctx context.Context, r io.Reader) (*model.ImportResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.BadRequest("empty or unreadable CSV", err)
	}

	emailIdx, langIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "email":
			emailIdx = i
		case "language":
			langIdx = i
		}
	}
	if emailIdx < 0 {
		return nil, errors.BadRequest("CSV must have an email column", nil)
	}

	result := &model.ImportResult{}
	seen := make(map[string]bool)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.BadRequest("malformed CSV row", err)
		}
		if emailIdx >= len(record) {
			result.Skipped++
			continue
		}

		email := normalizeEmail(record[emailIdx])
		if err := s.validator.ValidateEmail(email); err != nil {
			result.Skipped++
			continue
		}
		if seen[email] {
			result.Skipped++
			continue
		}
		seen[email] = true

		language := s.defaultLang
		if langIdx >= 0 && langIdx < len(record) {
			if lang := strings.TrimSpace(strings.ToLower(record[langIdx])); lang != "" {
				if !model.IsValidLanguage(lang) {
					result.Skipped++
					continue
				}
				language = lang
			}
		}

		existing, err := s.repo.GetByEmail(ctx, email)
		if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Internal(err)
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		if err := s.importRow(ctx, email, language); err != nil {
			return nil, err
		}
		result.Imported++
		s.metrics.ImportedSubscribers.Inc()
	}

	return result, nil
}

func (s *service) importRow(ctx context.Context, email, language string) error {
	confirmToken, err := token.New()
	if err != nil {
		return errors.Internal(err)
	}
	unsubToken, err := token.New()
	if err != nil {
		return errors.Internal(err)
	}

	sub := &model.Subscriber{
		Base:           model.Base{ID: uuid.New()},
		Email:          email,
		Language:       language,
		Status:         model.SubscriberStatusPending,
		ConfirmToken:   confirmToken,
		UnsubToken:     unsubToken,
		ConsentGivenAt: time.Now(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return errors.Internal(fmt.Errorf("failed to import subscriber %s: %w", email, err))
	}
	return nil
}
