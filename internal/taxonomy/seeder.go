// Package taxonomy materializes hierarchical category trees from flat source
// rows. Seeding is a two-pass insert-then-link process: parents are not
// guaranteed to precede children in the input, so categories are first
// created without parent links, flushed in a single batch to assign
// identities, and linked in a second pass.
package taxonomy

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/observability"
	"gorm.io/gorm"
)

var ErrEmptyRowSet = errors.New("no rows to seed")

// Row is one flat source record. Data carries whatever extra columns the
// source has; the caller's parent extractor derives the parent external id
// from it.
type Row struct {
	ExternalID string
	Name       string
	Data       map[string]string
}

// ParentExtractor returns the external id of a row's parent, or "" for roots.
type ParentExtractor func(Row) string

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// EnsureTaxonomy returns the taxonomy with the given name and version,
// creating it if absent. Re-running setup against an existing taxonomy is a
// logged no-op; created reports whether this call created the row, so
// callers can skip category seeding on reruns.
func (s *Service) EnsureTaxonomy(ctx context.Context, name, version, description, source, domains string) (*models.Taxonomy, bool, error) {
	var existing models.Taxonomy
	err := s.db.WithContext(ctx).
		Where("name = ? AND version = ?", name, version).
		First(&existing).Error
	if err == nil {
		s.logger.Info("taxonomy already exists, skipping",
			"name", name,
			"version", version,
		)
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("looking up taxonomy: %w", err)
	}

	if domains == "" {
		domains = "[]"
	}
	tax := models.Taxonomy{
		Name:        name,
		Version:     version,
		Description: description,
		Source:      source,
		Domains:     domains,
	}
	if err := s.db.WithContext(ctx).Create(&tax).Error; err != nil {
		return nil, false, fmt.Errorf("creating taxonomy: %w", err)
	}

	s.logger.Info("created taxonomy", "name", name, "version", version, "id", tax.ID)
	return &tax, true, nil
}

// SeedCategories creates one category per row and links parents. Pass 1
// inserts all categories without parent links in a single batch, so identity
// assignment costs one round trip regardless of row count. Pass 2 sets
// supercategory_id for every row whose declared parent is present in the
// input set; rows pointing at an absent parent become roots. The whole
// operation runs in one transaction and any storage error aborts it with
// nothing persisted.
func (s *Service) SeedCategories(ctx context.Context, taxonomyID uuid.UUID, rows []Row, parentOf ParentExtractor) (created int, linked int, err error) {
	if len(rows) == 0 {
		return 0, 0, ErrEmptyRowSet
	}

	cats := make([]models.Category, len(rows))
	for i, row := range rows {
		cats[i] = models.Category{
			Name:       row.Name,
			ExternalID: row.ExternalID,
			TaxonomyID: taxonomyID,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Pass 1: batch insert, identities assigned on flush.
		if err := tx.CreateInBatches(cats, len(cats)).Error; err != nil {
			return fmt.Errorf("creating categories: %w", err)
		}
		created = len(cats)

		byExternalID := make(map[string]uuid.UUID, len(cats))
		for i := range cats {
			byExternalID[cats[i].ExternalID] = cats[i].ID
		}

		// Pass 2: link parents now that every sibling has an identity.
		for i, row := range rows {
			parentExt := parentOf(row)
			if parentExt == "" {
				continue
			}
			parentID, ok := byExternalID[parentExt]
			if !ok {
				// The declared parent was filtered out upstream; the
				// category stays a root.
				s.logger.Warn("parent not in row set, keeping category as root",
					"external_id", row.ExternalID,
					"parent_external_id", parentExt,
				)
				continue
			}
			if err := tx.Model(&cats[i]).Update("supercategory_id", parentID).Error; err != nil {
				return fmt.Errorf("linking category %s: %w", row.ExternalID, err)
			}
			linked++
		}

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	observability.CategoriesSeeded.Add(float64(created))
	s.logger.Info("seeded categories",
		"taxonomy_id", taxonomyID,
		"created", created,
		"linked", linked,
	)
	return created, linked, nil
}

// GetCategory loads a single category by id.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

// LoadRowsCSV reads rows from a CSV stream with a header line. The code,
// name and parent columns are looked up by header name; remaining columns
// land in Row.Data.
func LoadRowsCSV(r io.Reader, codeCol, nameCol string) ([]Row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[h] = i
	}
	if _, ok := colIdx[codeCol]; !ok {
		return nil, fmt.Errorf("missing column %q", codeCol)
	}
	if _, ok := colIdx[nameCol]; !ok {
		return nil, fmt.Errorf("missing column %q", nameCol)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		data := make(map[string]string, len(header))
		for name, idx := range colIdx {
			if idx < len(record) {
				data[name] = record[idx]
			}
		}
		rows = append(rows, Row{
			ExternalID: data[codeCol],
			Name:       data[nameCol],
			Data:       data,
		})
	}
	return rows, nil
}
