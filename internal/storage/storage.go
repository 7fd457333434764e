package storage

import (
	"context"

	"positionScope/internal/model"
)

// ReportSink receives valuation reports.
type ReportSink interface {
	PutReports(ctx context.Context, reports []model.Report) error
}
