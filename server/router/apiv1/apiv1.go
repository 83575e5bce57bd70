// Package apiv1 exposes the retrieval pipeline over HTTP.
package apiv1

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rackguard/rackguard/plugin/ai"
	"github.com/rackguard/rackguard/plugin/ai/timeout"
	apierrors "github.com/rackguard/rackguard/server/internal/errors"
	"github.com/rackguard/rackguard/server/retrieval"
	"github.com/rackguard/rackguard/store"
)

const (
	defaultReferenceLimit = 10
	maxReferenceLimit     = 50
	askContextResults     = 5
)

const answerSystemPrompt = "You are a fire-protection engineering assistant for FM Global Data Sheet 8-34 " +
	"(automatic storage and retrieval systems). Answer using only the provided excerpts. " +
	"Cite table and figure numbers when present. If the excerpts do not cover the question, say so."

// APIV1Service handles the /api/v1 routes.
type APIV1Service struct {
	engine *retrieval.Engine
	store  *store.Store
	llm    ai.LLMService
}

// NewAPIV1Service creates the service. llm may be nil, which disables /ask.
func NewAPIV1Service(engine *retrieval.Engine, st *store.Store, llm ai.LLMService) *APIV1Service {
	return &APIV1Service{engine: engine, store: st, llm: llm}
}

// Register mounts the routes on a group.
func (s *APIV1Service) Register(g *echo.Group) {
	g.POST("/search", s.Search)
	g.POST("/intent", s.Intent)
	g.POST("/sessions/:id/response", s.RecordResponse)
	g.GET("/references", s.References)
	g.POST("/ask", s.Ask)
}

type searchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
	// NewSession asks the server to mint a session id; it is echoed back
	// in the response for follow-up turns.
	NewSession bool `json:"new_session,omitempty"`
}

// Search runs the full retrieval pipeline for a query.
func (s *APIV1Service) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInvalidArgument, "malformed request body", err))
	}

	resp, err := s.engine.RouteAndSearch(c.Request().Context(), req.Query, resolveSessionID(req.SessionID, req.NewSession))
	if err != nil {
		return writeError(c, searchError(err))
	}
	return c.JSON(http.StatusOK, resp)
}

type intentRequest struct {
	Query string `json:"query"`
}

// Intent explains how a query would be routed, without searching.
func (s *APIV1Service) Intent(c echo.Context) error {
	var req intentRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInvalidArgument, "malformed request body", err))
	}

	intent, err := s.engine.AnalyzeIntent(req.Query)
	if err != nil {
		return writeError(c, searchError(err))
	}
	return c.JSON(http.StatusOK, intent)
}

type recordResponseRequest struct {
	Response string `json:"response"`
}

// RecordResponse attaches generated answer text to a session's last turn.
func (s *APIV1Service) RecordResponse(c echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		return writeError(c, apierrors.New(apierrors.ErrCodeInvalidArgument, "session id is required"))
	}
	var req recordResponseRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInvalidArgument, "malformed request body", err))
	}

	s.engine.RecordTurnResponse(sessionID, req.Response)
	return c.NoContent(http.StatusNoContent)
}

// References lists table and figure references for a topic.
func (s *APIV1Service) References(c echo.Context) error {
	topic := strings.TrimSpace(c.QueryParam("topic"))
	if topic == "" {
		return writeError(c, apierrors.New(apierrors.ErrCodeInvalidArgument, "topic query parameter is required"))
	}
	limit := defaultReferenceLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return writeError(c, apierrors.New(apierrors.ErrCodeInvalidArgument, "limit must be a positive integer"))
		}
		if parsed > maxReferenceLimit {
			parsed = maxReferenceLimit
		}
		limit = parsed
	}

	refs, err := s.store.ReferencesByTopic(c.Request().Context(), topic, limit)
	if err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeServiceUnavailable, "reference lookup failed", err))
	}
	return c.JSON(http.StatusOK, map[string]any{"references": refs})
}

type askRequest struct {
	Query      string `json:"query"`
	SessionID  string `json:"session_id,omitempty"`
	NewSession bool   `json:"new_session,omitempty"`
}

type askResponse struct {
	Answer string                    `json:"answer"`
	Search *retrieval.SearchResponse `json:"search"`
}

// Ask retrieves context for a question and generates an answer with the
// configured language model. The answer is recorded back into the session.
func (s *APIV1Service) Ask(c echo.Context) error {
	if s.llm == nil {
		return writeError(c, apierrors.New(apierrors.ErrCodeServiceUnavailable, "language model is not configured"))
	}
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInvalidArgument, "malformed request body", err))
	}

	ctx := c.Request().Context()
	sessionID := resolveSessionID(req.SessionID, req.NewSession)
	search, err := s.engine.RouteAndSearch(ctx, req.Query, sessionID)
	if err != nil {
		return writeError(c, searchError(err))
	}

	answerCtx, cancel := context.WithTimeout(ctx, timeout.Answer)
	defer cancel()
	completion, err := s.llm.Chat(answerCtx, []ai.Message{
		ai.SystemPrompt(answerSystemPrompt),
		ai.UserMessage(buildAnswerPrompt(req.Query, search)),
	})
	if err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeServiceUnavailable, "answer generation failed", err))
	}
	if sessionID != "" {
		s.engine.RecordTurnResponse(sessionID, completion.Text)
	}
	return c.JSON(http.StatusOK, &askResponse{Answer: completion.Text, Search: search})
}

func buildAnswerPrompt(query string, search *retrieval.SearchResponse) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nExcerpts:\n")
	for i, result := range search.Results {
		if i == askContextResults {
			break
		}
		fmt.Fprintf(&b, "[%d] ", i+1)
		if result.Result.TableNumber != "" {
			fmt.Fprintf(&b, "(%s) ", result.Result.TableNumber)
		} else if result.Result.FigureNumber != "" {
			fmt.Fprintf(&b, "(%s) ", result.Result.FigureNumber)
		}
		b.WriteString(result.Result.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func resolveSessionID(sessionID string, newSession bool) string {
	if sessionID == "" && newSession {
		return uuid.NewString()
	}
	return sessionID
}

func searchError(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, retrieval.ErrEmptyQuery):
		return apierrors.New(apierrors.ErrCodeInvalidArgument, "query must not be empty")
	case errors.Is(err, retrieval.ErrAllSearchesFailed):
		return apierrors.Wrap(apierrors.ErrCodeRetrievalFailed, "all retrieval calls failed", err)
	default:
		return apierrors.Wrap(apierrors.ErrCodeInternal, "search failed", err)
	}
}

func writeError(c echo.Context, apiErr *apierrors.APIError) error {
	return c.JSON(apiErr.HTTPStatus(), apiErr)
}
