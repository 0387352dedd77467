package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Service serves the owner's activity timeline.
type Service struct {
	repo Repository
}

// NewService creates a timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of actions, newest first.
func (s *Service) Timeline(ctx context.Context, userID int64, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.TimelineWindow(ctx, userID, WindowParams{
		From:   filters.From,
		To:     filters.To,
		Entity: filters.Entity,
		Action: filters.Action,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// ExportCSV writes every matching action as CSV.
func (s *Service) ExportCSV(ctx context.Context, userID int64, filters TimelineFilters, w io.Writer) error {
	if s.repo == nil {
		return fmt.Errorf("audit: repository not configured")
	}
	rows, err := s.repo.TimelineWindow(ctx, userID, WindowParams{
		From:   filters.From,
		To:     filters.To,
		Entity: filters.Entity,
		Action: filters.Action,
	})
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"at", "action", "entity", "entity_id", "meta"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.At.UTC().Format(time.RFC3339), row.Action, row.Entity, row.EntityID, formatMeta(row.Meta)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatMeta renders meta as sorted key=value pairs.
func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}
