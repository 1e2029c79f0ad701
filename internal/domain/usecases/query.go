// Package usecases - query.go routes a question to a catalog handler or to
// the retrieval oracle.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/coursechat-go/internal/domain/catalog"
	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/apperrors"
)

// RoutePlain marks oracle text returned without any recognized course.
const RoutePlain = "plain"

// QueryUseCase answers course questions.
// It keeps no state between calls, so identical input gives identical output.
type QueryUseCase struct {
	catalog   *catalog.Catalog
	oracle    ports.Oracle
	extractor *Extractor
	logger    zerolog.Logger
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(cat *catalog.Catalog, oracle ports.Oracle, logger zerolog.Logger) *QueryUseCase {
	return &QueryUseCase{
		catalog:   cat,
		oracle:    oracle,
		extractor: NewExtractor(cat),
		logger:    logger.With().Str("component", "router").Logger(),
	}
}

// Catalog returns the catalog this router answers from.
func (uc *QueryUseCase) Catalog() *catalog.Catalog {
	return uc.catalog
}

// Query answers req from the catalog when a handler recognizes the question,
// otherwise from the oracle. Oracle failures wrap apperrors.ErrOracleUnavailable.
func (uc *QueryUseCase) Query(ctx context.Context, req *entities.ChatRequest) (*entities.Answer, error) {
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return nil, apperrors.ErrEmptyQuestion
	}

	q := newQuestion(req.Question)
	for _, h := range intents {
		answer, ok := h.handle(uc.catalog, q)
		if !ok {
			continue
		}
		answer.Route = h.route
		uc.logger.Debug().Str("route", h.route).Int("courses", len(answer.Courses)).Msg("answered from catalog")
		return &answer, nil
	}

	prompt := BuildPrompt(strings.TrimSpace(req.Question), req.History)
	text, err := uc.oracle.Ask(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrOracleUnavailable, err)
	}

	hint := ""
	if q.hasSubject {
		hint = q.subject
	}
	courses, stage := uc.extractor.ExtractWithStage(text, req.Question, hint)
	if len(courses) == 0 {
		uc.logger.Debug().Str("route", RoutePlain).Msg("no courses recognized in oracle answer")
		return &entities.Answer{Text: text, Plain: true, Route: RoutePlain}, nil
	}

	uc.logger.Debug().Str("route", stage).Int("courses", len(courses)).Msg("answered from oracle")
	return &entities.Answer{Text: text, Courses: courses, Route: stage}, nil
}
