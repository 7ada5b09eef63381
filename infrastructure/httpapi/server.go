package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"photo-search/application"
	"photo-search/domain"
)

// Server exposes the search pipeline over HTTP.
type Server struct {
	search       *application.SearchService
	status       *application.IngestStatusService
	maxImageSize int64
}

// NewServer wires the services into a server. maxImageSize bounds uploaded
// reference images in bytes.
func NewServer(search *application.SearchService, status *application.IngestStatusService, maxImageSize int64) *Server {
	if maxImageSize <= 0 {
		maxImageSize = 20 << 20
	}
	return &Server{search: search, status: status, maxImageSize: maxImageSize}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.POST("/search/text", s.handleTextSearch)
	router.POST("/search/image", s.handleImageSearch)
	router.GET("/photos/status", s.handleStatus)
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type searchRequestBody struct {
	Query  string                 `json:"query"`
	K      int                    `json:"k"`
	Filter *domain.MetadataFilter `json:"filter"`
}

type matchResponse struct {
	Key       string         `json:"key"`
	Score     float64        `json:"score"`
	MatchedBy string         `json:"matched_by"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type searchResponseBody struct {
	Matches []matchResponse `json:"matches"`
	Summary string          `json:"summary,omitempty"`
}

func (s *Server) handleTextSearch(c *gin.Context) {
	var body searchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := s.search.Search(c.Request.Context(), &domain.SearchRequest{
		Text:   body.Query,
		K:      body.K,
		Filter: body.Filter,
	})
	if err != nil {
		s.writeSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(result))
}

// handleImageSearch accepts a multipart form: an "image" file, plus optional
// "query", "k" and "filter" (JSON) fields.
func (s *Server) handleImageSearch(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
		return
	}
	if fileHeader.Size > s.maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds size limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded image"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, s.maxImageSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded image"})
		return
	}
	if int64(len(image)) > s.maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds size limit"})
		return
	}

	request := &domain.SearchRequest{
		Text:  c.PostForm("query"),
		Image: image,
	}
	if k := c.PostForm("k"); k != "" {
		if err := json.Unmarshal([]byte(k), &request.K); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be an integer"})
			return
		}
	}
	if raw := c.PostForm("filter"); raw != "" {
		var filter domain.MetadataFilter
		if err := json.Unmarshal([]byte(raw), &filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filter must be a JSON object"})
			return
		}
		request.Filter = &filter
	}

	result, err := s.search.Search(c.Request.Context(), request)
	if err != nil {
		s.writeSearchError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(result))
}

func (s *Server) handleStatus(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key query parameter is required"})
		return
	}

	status, err := s.status.Status(c.Request.Context(), key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("status lookup failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "status": string(status)})
}

func (s *Server) writeSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrQueryValidation), errors.Is(err, domain.ErrInvalidToolCall):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrStoreUnavailable):
		log.Error().Err(err).Msg("search backend unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search backend unavailable"})
	default:
		log.Error().Err(err).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
	}
}

func toResponse(result *domain.SearchResult) searchResponseBody {
	matches := make([]matchResponse, 0, len(result.Matches))
	for _, match := range result.Matches {
		matches = append(matches, matchResponse{
			Key:       match.Key,
			Score:     match.Score,
			MatchedBy: string(match.MatchedBy),
			Metadata:  match.Metadata,
		})
	}
	return searchResponseBody{Matches: matches, Summary: result.Summary}
}
