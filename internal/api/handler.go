package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/idxpulse/internal/domain/dto"
	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/service"
)

// Handler provides the read-only HTTP surface over produced aggregates.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Resolve them into a partition key
//   - Translate service results into response DTOs
type Handler struct {
	svc service.ReadService
}

// NewHandler constructs a Handler over the read service.
func NewHandler(svc service.ReadService) *Handler {
	return &Handler{svc: svc}
}

// GetBrokerRows handles GET /api/v1/brokers requests.
//
// Query Parameters:
//   - date (string, required): trading date, YYYYMMDD.
//   - stock (string, required): 4-letter stock code.
//   - segment (string, optional): ALL|RG|TN|NG, default ALL.
//   - investor (string, optional): ALL|D|F, default ALL.
//
// Responses:
//   - 200 OK: rows of the per-stock output file.
//   - 400 Bad Request: missing or invalid query parameters.
//   - 404 Not Found: the partition output does not exist.
//   - 500 Internal Server Error: remote store failure.
func (h *Handler) GetBrokerRows(c *gin.Context) {
	key, ok := partitionKeyFromQuery(c)
	if !ok {
		return
	}
	stock := strings.ToUpper(strings.TrimSpace(c.Query("stock")))
	if len(stock) != 4 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("stock must be a 4-letter code", nil))
		return
	}

	rows, err := h.svc.GetBrokerRows(c.Request.Context(), key, stock)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch broker rows", err))
		return
	}
	if rows == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no data for partition", nil))
		return
	}

	c.JSON(http.StatusOK, dto.RowsResponse{
		Date:     key.Date,
		Segment:  string(key.Segment),
		Investor: string(key.Investor),
		Stock:    stock,
		Rows:     dto.FromBrokerRows(rows),
	})
}

// GetIndexRows handles GET /api/v1/index requests. Same parameters as
// GetBrokerRows minus stock; returns the cross-stock IDX rollup.
func (h *Handler) GetIndexRows(c *gin.Context) {
	key, ok := partitionKeyFromQuery(c)
	if !ok {
		return
	}

	rows, err := h.svc.GetIndexRows(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch index rows", err))
		return
	}
	if rows == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no rollup for partition", nil))
		return
	}

	c.JSON(http.StatusOK, dto.RowsResponse{
		Date:     key.Date,
		Segment:  string(key.Segment),
		Investor: string(key.Investor),
		Rows:     dto.FromBrokerRows(rows),
	})
}

// GetStats handles GET /api/v1/stats requests, reporting cache counters.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatsResponse{Cache: h.svc.CacheStats()})
}

// partitionKeyFromQuery validates the shared date/segment/investor query
// parameters. On failure it writes the 400 response and returns ok=false.
func partitionKeyFromQuery(c *gin.Context) (models.PartitionKey, bool) {
	date := strings.TrimSpace(c.Query("date"))
	if len(date) != 8 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("date is required in YYYYMMDD format", nil))
		return models.PartitionKey{}, false
	}
	for _, r := range date {
		if r < '0' || r > '9' {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("date is required in YYYYMMDD format", nil))
			return models.PartitionKey{}, false
		}
	}

	seg := models.Segment(strings.ToUpper(strings.TrimSpace(c.DefaultQuery("segment", string(models.SegmentAll)))))
	switch seg {
	case models.SegmentAll, models.SegmentRG, models.SegmentTN, models.SegmentNG:
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("segment must be one of ALL, RG, TN, NG", nil))
		return models.PartitionKey{}, false
	}

	inv := models.InvestorType(strings.ToUpper(strings.TrimSpace(c.DefaultQuery("investor", string(models.InvestorAll)))))
	switch inv {
	case models.InvestorAll, models.InvestorDomestic, models.InvestorForeign:
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("investor must be one of ALL, D, F", nil))
		return models.PartitionKey{}, false
	}

	return models.PartitionKey{Date: date, Segment: seg, Investor: inv}, true
}
