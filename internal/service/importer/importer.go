// internal/service/importer/importer.go
package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"routedesk-service/internal/metrics"
	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/pkg/result"
	"routedesk-service/internal/ports"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const utf8BOM = "\ufeff"

// Report is what an import run did.
type Report struct {
	RunID      string         `json:"run_id"`
	GroupingID *int64         `json:"grouping_id,omitempty"`
	Processed  int            `json:"processed"`
	Created    int            `json:"created"`
	Existing   int            `json:"existing"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Result     *result.Result `json:"-"`
}

type Service struct {
	store   ports.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewService(store ports.Store, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

// Import upserts one customer per data row, keyed by exact name, and links each of
// them into the grouping when groupingID is set. The whole run is one transaction;
// a row that fails in storage is rolled back to its savepoint and counted as failed.
func (s *Service) Import(ctx context.Context, r io.Reader, groupingID *int64) (*Report, error) {
	rep := &Report{RunID: ulid.Make().String(), GroupingID: groupingID}

	if groupingID != nil {
		if _, err := s.store.Groupings().FindByID(ctx, *groupingID); err != nil {
			return nil, err
		}
	}

	rows, parseErrors, err := readRows(r)
	if err != nil {
		s.logger.Warn("csv import aborted", zap.String("run_id", rep.RunID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", xerrors.ErrImportFailed, err)
	}
	rep.Skipped += parseErrors

	header, body := splitHeader(rows)
	cols := MapHeader(header)
	if !cols.HasName() {
		rep.Result = result.Warning("Nothing imported", xerrors.ErrNoNameColumn.Error())
		s.logger.Warn("csv import without name column",
			zap.String("run_id", rep.RunID),
			zap.Strings("header", header),
		)
		return rep, nil
	}

	drafts := make([]Draft, 0, len(body))
	for _, row := range body {
		d, ok := ParseRow(row, cols)
		if !ok {
			rep.Skipped++
			continue
		}
		drafts = append(drafts, d)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		for i, d := range drafts {
			if err := ctx.Err(); err != nil {
				return err
			}
			var created bool
			rowErr := tx.Savepoint(ctx, func(ctx context.Context, sp ports.Tx) error {
				c, isNew, err := sp.Customers().GetOrCreateByName(ctx, d.Customer())
				if err != nil {
					return err
				}
				created = isNew
				if groupingID != nil {
					return sp.Groupings().AddMembers(ctx, *groupingID, []int64{c.ID})
				}
				return nil
			})
			if rowErr != nil {
				rep.Failed++
				s.logger.Warn("csv row skipped",
					zap.String("run_id", rep.RunID),
					zap.Int("row", i+1),
					zap.String("name", d.Name),
					zap.Error(rowErr),
				)
				continue
			}
			rep.Processed++
			if created {
				rep.Created++
			} else {
				rep.Existing++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import customers: %w", err)
	}

	s.metrics.AddImportRows("created", rep.Created)
	s.metrics.AddImportRows("existing", rep.Existing)
	s.metrics.AddImportRows("skipped", rep.Skipped)
	s.metrics.AddImportRows("failed", rep.Failed)

	rep.Result = result.Success(fmt.Sprintf("Imported %d customers (%d new, %d existing)", rep.Processed, rep.Created, rep.Existing))
	if rep.Failed > 0 {
		rep.Result.Warn(fmt.Sprintf("%d rows could not be stored", rep.Failed))
	}

	fields := []zap.Field{
		zap.String("run_id", rep.RunID),
		zap.Int("processed", rep.Processed),
		zap.Int("created", rep.Created),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
	}
	if groupingID != nil {
		fields = append(fields, zap.Int64("grouping_id", *groupingID))
	}
	s.logger.Info("csv import finished", fields...)
	return rep, nil
}

// readRows decodes the whole input and splits it into cleaned, non-empty rows.
// Invalid UTF-8 is replaced rather than rejected. Lines the csv reader cannot parse
// are counted and skipped.
func readRows(r io.Reader) ([][]string, int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read file: %w", err)
	}
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	text = strings.TrimPrefix(text, utf8BOM)

	firstLine, _ := bufio.NewReader(strings.NewReader(text)).ReadString('\n')

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = SniffDelimiter(firstLine)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		rows     [][]string
		badLines int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				badLines++
				continue
			}
			return nil, 0, fmt.Errorf("read csv: %w", err)
		}
		if row := CleanRow(record); len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, badLines, nil
}

// splitHeader returns the lower-cased first row and the rows after it.
func splitHeader(rows [][]string) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.ToLower(c)
	}
	return header, rows[1:]
}
