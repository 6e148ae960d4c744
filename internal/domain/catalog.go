package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength bounds workout and exercise titles.
const MaxTitleLength = 80

// CountingType describes how an exercise is measured.
type CountingType string

const (
	// CountReps counts repetitions per set.
	CountReps CountingType = "reps"
	// CountDuration counts seconds per set.
	CountDuration CountingType = "duration"
)

// Valid reports whether the counting type is one of the known values.
func (c CountingType) Valid() bool {
	return c == CountReps || c == CountDuration
}

// ExerciseDefinition is a reusable exercise template owned by one profile.
type ExerciseDefinition struct {
	ID            string
	OwnerID       string
	OwnerUsername string
	Title         string
	CountingType  CountingType
	Description   string
	Archived      bool
	CreatedAt     time.Time
}

// DefinitionGroup holds one owner's definitions for grouped selection UIs.
type DefinitionGroup struct {
	Owner       string
	Definitions []ExerciseDefinition
}

// DefinitionCatalog partitions definitions into the requesting user's own and
// everyone else's, the latter grouped per owner.
type DefinitionCatalog struct {
	Mine   []ExerciseDefinition
	Others []DefinitionGroup
}

// CatalogRepository captures persistence operations for exercise definitions.
type CatalogRepository interface {
	CreateDefinition(ctx context.Context, def ExerciseDefinition) error
	GetDefinition(ctx context.Context, id string) (*ExerciseDefinition, error)
	GetDefinitions(ctx context.Context, ids []string) (map[string]ExerciseDefinition, error)
	ListOwned(ctx context.Context, ownerID string) ([]ExerciseDefinition, error)
	ListOthers(ctx context.Context, viewerID string) ([]DefinitionGroup, error)
	ListAll(ctx context.Context, page Page) ([]ExerciseDefinition, error)
	UpdateDefinition(ctx context.Context, def ExerciseDefinition) error
	SetArchived(ctx context.Context, id string, archived bool) error
	DeleteDefinition(ctx context.Context, id string) error
}

// CatalogService manages the exercise definition catalog.
type CatalogService struct {
	repo CatalogRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// DefinitionInput carries the caller-provided definition fields.
type DefinitionInput struct {
	Title        string
	CountingType CountingType
	Description  string
}

// CreateDefinition adds a definition to the caller's catalog. The storage
// uniqueness constraint is the final arbiter of title collisions, so a
// concurrent duplicate surfaces as ErrDuplicateTitle rather than a fault.
func (s *CatalogService) CreateDefinition(ctx context.Context, ownerID string, input DefinitionInput) (*ExerciseDefinition, error) {
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}
	if !input.CountingType.Valid() {
		return nil, Invalidf("counting type must be %q or %q", CountReps, CountDuration)
	}

	def := ExerciseDefinition{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		CountingType: input.CountingType,
		Description:  strings.TrimSpace(input.Description),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateDefinition(ctx, def); err != nil {
		return nil, err
	}
	return &def, nil
}

// CopyDefinition clones another profile's definition into the caller's
// catalog under the same title and counting type.
func (s *CatalogService) CopyDefinition(ctx context.Context, userID, definitionID string) (*ExerciseDefinition, error) {
	src, err := s.repo.GetDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNotFound
	}
	if src.OwnerID == userID {
		return nil, ErrSelfCopy
	}

	def := ExerciseDefinition{
		ID:           uuid.NewString(),
		OwnerID:      userID,
		Title:        src.Title,
		CountingType: src.CountingType,
		Description:  src.Description,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateDefinition(ctx, def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ListForUser returns the caller's catalog. With mineOnly the partition of
// other owners stays empty.
func (s *CatalogService) ListForUser(ctx context.Context, userID string, mineOnly bool) (*DefinitionCatalog, error) {
	mine, err := s.repo.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog := &DefinitionCatalog{Mine: mine}
	if mineOnly {
		return catalog, nil
	}
	others, err := s.repo.ListOthers(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog.Others = others
	return catalog, nil
}

// ListAll pages through all owners' live definitions.
func (s *CatalogService) ListAll(ctx context.Context, page Page) ([]ExerciseDefinition, error) {
	return s.repo.ListAll(ctx, page)
}

// GetDefinition fetches one definition by ID.
func (s *CatalogService) GetDefinition(ctx context.Context, id string) (*ExerciseDefinition, error) {
	def, err := s.repo.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrNotFound
	}
	return def, nil
}

// UpdateDefinitionInput carries the editable definition fields. The counting
// type is immutable once set entries reference the definition's shape.
type UpdateDefinitionInput struct {
	Title       string
	Description string
}

// UpdateDefinition edits title and description of an owned definition.
func (s *CatalogService) UpdateDefinition(ctx context.Context, userID, definitionID string, input UpdateDefinitionInput) (*ExerciseDefinition, error) {
	def, err := s.ownedDefinition(ctx, userID, definitionID)
	if err != nil {
		return nil, err
	}
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}
	def.Title = title
	def.Description = strings.TrimSpace(input.Description)
	if err := s.repo.UpdateDefinition(ctx, *def); err != nil {
		return nil, err
	}
	return def, nil
}

// SetArchived hides or restores an owned definition. Archived definitions
// stay resolvable for stored workouts but leave the catalog listings.
func (s *CatalogService) SetArchived(ctx context.Context, userID, definitionID string, archived bool) (*ExerciseDefinition, error) {
	def, err := s.ownedDefinition(ctx, userID, definitionID)
	if err != nil {
		return nil, err
	}
	if def.Archived == archived {
		return def, nil
	}
	if err := s.repo.SetArchived(ctx, definitionID, archived); err != nil {
		return nil, err
	}
	def.Archived = archived
	return def, nil
}

// DeleteDefinition removes an owned definition. A definition still referenced
// by any workout is protected by the storage layer and fails with
// ErrDefinitionInUse.
func (s *CatalogService) DeleteDefinition(ctx context.Context, userID, definitionID string) error {
	if _, err := s.ownedDefinition(ctx, userID, definitionID); err != nil {
		return err
	}
	return s.repo.DeleteDefinition(ctx, definitionID)
}

func (s *CatalogService) ownedDefinition(ctx context.Context, userID, definitionID string) (*ExerciseDefinition, error) {
	def, err := s.repo.GetDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrNotFound
	}
	if def.OwnerID != userID {
		return nil, ErrForbidden
	}
	return def, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", Invalidf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", Invalidf("title exceeds %d characters", MaxTitleLength)
	}
	return title, nil
}
