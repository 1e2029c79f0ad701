// Package catalogsource fetches the course catalog from the upstream GraphQL API.
package catalogsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/apperrors"
)

// Upstream defaults: the public Berkeleytime API and its all-courses playlist.
const (
	DefaultEndpoint  = "https://berkeleytime.com/api/graphql"
	DefaultPlaylists = "UGxheWxpc3RUeXBlOjMyNTY1"

	operationName = "GetCoursesForFilter"
	coursesQuery  = `query GetCoursesForFilter($playlists: String!) {
  allCourses(inPlaylists: $playlists) {
    edges {
      node {
        id
        abbreviation
        courseNumber
        title
        openSeats
        enrolledPercentage
        units
        letterAverage
        gradeAverage
      }
    }
  }
}`
)

// Config configures the GraphQL source.
type Config struct {
	Endpoint  string
	Playlists string
	// Cookie is sent verbatim; the API wants its CSRF cookie.
	Cookie   string
	Timeout  time.Duration
	Attempts uint
}

// GraphQL implements ports.CatalogSource.
type GraphQL struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

var _ ports.CatalogSource = (*GraphQL)(nil)

// NewGraphQL creates a GraphQL catalog source, filling in defaults.
func NewGraphQL(cfg Config, logger zerolog.Logger) *GraphQL {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Playlists == "" {
		cfg.Playlists = DefaultPlaylists
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	return &GraphQL{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("adapter", "graphql").Logger(),
	}
}

type graphQLRequest struct {
	OperationName string            `json:"operationName"`
	Query         string            `json:"query"`
	Variables     map[string]string `json:"variables"`
}

// statusError is a non-200 reply; 5xx replies are worth retrying.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog API returned status %d: %s", e.code, e.body)
}

// Fetch downloads every course in the configured playlist.
func (g *GraphQL) Fetch(ctx context.Context) ([]entities.Course, error) {
	payload, err := json.Marshal(graphQLRequest{
		OperationName: operationName,
		Query:         coursesQuery,
		Variables:     map[string]string{"playlists": g.cfg.Playlists},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var body []byte
	err = retry.Do(
		func() error {
			var postErr error
			body, postErr = g.post(ctx, payload)
			return postErr
		},
		retry.Context(ctx),
		retry.Attempts(g.cfg.Attempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn().Err(err).Uint("attempt", n+1).Msg("catalog fetch failed, retrying")
		}),
	)
	if err != nil {
		return nil, err
	}

	courses, err := parseCourses(body)
	if err != nil {
		return nil, err
	}
	g.logger.Info().Int("courses", len(courses)).Str("endpoint", g.cfg.Endpoint).Msg("fetched catalog")
	return courses, nil
}

func (g *GraphQL) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.Cookie != "" {
		req.Header.Set("Cookie", g.cfg.Cookie)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling catalog API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &statusError{code: resp.StatusCode, body: snippet}
	}
	return body, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// parseCourses reads data.allCourses.edges[].node from a GraphQL reply.
func parseCourses(body []byte) ([]entities.Course, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("catalog API returned invalid JSON")
	}

	if errs := gjson.GetBytes(body, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return nil, fmt.Errorf("catalog API error: %s", errs.Get("0.message").String())
	}

	edges := gjson.GetBytes(body, "data.allCourses.edges")
	if !edges.IsArray() {
		return nil, errors.New("catalog API reply has no data.allCourses.edges")
	}

	nodes := edges.Array()
	if len(nodes) == 0 {
		return nil, apperrors.ErrCatalogEmpty
	}

	courses := make([]entities.Course, 0, len(nodes))
	for i, edge := range nodes {
		node := edge.Get("node")
		if !node.IsObject() {
			return nil, fmt.Errorf("edge %d has no node", i)
		}
		var c entities.Course
		if err := json.Unmarshal([]byte(node.Raw), &c); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		courses = append(courses, c)
	}
	return courses, nil
}
