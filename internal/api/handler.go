package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/batch"
	"carbon-scribe/dairy-footprint/internal/emissions"
	"carbon-scribe/dairy-footprint/internal/factors"
	"carbon-scribe/dairy-footprint/internal/store/sqlite"
)

// RunStore persists batch runs. *sqlite.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run *batch.RunResult) error
	GetRun(ctx context.Context, id string) (*batch.RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]sqlite.RunSummary, error)
}

// Options are the collaborators and run defaults behind the handler
type Options struct {
	Engine   *emissions.Engine
	Runner   *batch.Runner
	Registry *factors.Registry
	// Store may be nil, which disables run history
	Store RunStore

	Tier            emissions.Tier
	Boundary        *emissions.Boundary
	BenchmarkRegion string
}

// Handler handles HTTP requests for footprint calculations
type Handler struct {
	opts   Options
	logger *zap.Logger
}

// NewHandler creates a new footprint handler
func NewHandler(opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = factors.NewRegistry()
	}
	if opts.Engine == nil {
		opts.Engine = emissions.NewEngine(opts.Registry, emissions.DefaultDefaults())
	}
	if opts.Runner == nil {
		opts.Runner = batch.NewRunner(opts.Engine, nil, logger, batch.Options{})
	}
	if opts.Tier == 0 {
		opts.Tier = emissions.Tier1
	}
	return &Handler{opts: opts, logger: logger}
}

// RegisterRoutes registers footprint routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/boundaries", h.listBoundaries)
	router.GET("/factors", h.lookupFactor)

	calc := router.Group("/emissions")
	{
		calc.POST("/enteric", h.calculateEnteric)
		calc.POST("/manure", h.calculateManure)
		calc.POST("/soil", h.calculateSoil)
		calc.POST("/energy", h.calculateEnergy)
		calc.POST("/inputs", h.calculateInputs)
	}

	router.POST("/aggregate", h.aggregate)
	router.POST("/intensity/milk", h.milkIntensity)
	router.POST("/intensity/area", h.areaIntensity)

	router.POST("/batch", h.runBatch)
	router.GET("/runs", h.listRuns)
	router.GET("/runs/:id", h.getRun)
}

// BoundaryRequest is the JSON form of a system boundary
type BoundaryRequest struct {
	Scope   string   `json:"scope"`
	Include []string `json:"include,omitempty"`
}

func (b *BoundaryRequest) build() (*emissions.Boundary, error) {
	if b == nil {
		return nil, nil
	}
	return emissions.ParseBoundary(b.Scope, b.Include)
}

// CalculationRequest wraps one calculator input with an optional boundary.
// Without a boundary every source is included.
type CalculationRequest[T any] struct {
	Input    T                `json:"input"`
	Boundary *BoundaryRequest `json:"boundary,omitempty"`
}

// MilkIntensityRequest is the body of POST /intensity/milk
type MilkIntensityRequest struct {
	TotalCO2eqKg float64 `json:"total_co2eq_kg"`
	emissions.MilkProduction
}

// AreaIntensityRequest is the body of POST /intensity/area
type AreaIntensityRequest struct {
	TotalCO2eqKg float64 `json:"total_co2eq_kg"`
	emissions.AreaInput
}

// BatchRequest is the body of POST /batch. Omitted settings use the server defaults.
type BatchRequest struct {
	Farms           []batch.FarmRecord `json:"farms"`
	Tier            int                `json:"tier,omitempty"`
	Boundary        *BoundaryRequest   `json:"boundary,omitempty"`
	BenchmarkRegion *string            `json:"benchmark_region,omitempty"`
	Save            bool               `json:"save,omitempty"`
}

// =====================================================
// Reference data
// =====================================================

// listBoundaries handles GET /api/v1/boundaries
func (h *Handler) listBoundaries(c *gin.Context) {
	scopes := []gin.H{}
	for _, scope := range []emissions.Scope{emissions.ScopeFarmGate, emissions.ScopeCradleToFarmGate, emissions.ScopePartial} {
		entry := gin.H{"scope": scope, "default_include": []string{}}
		if b, err := emissions.NewBoundary(scope); err == nil {
			entry["default_include"] = b.Strings()
		} else {
			entry["requires_include"] = true
		}
		scopes = append(scopes, entry)
	}

	tags := make([]emissions.SourceTag, len(emissions.AllSourceTags))
	copy(tags, emissions.AllSourceTags)
	c.JSON(http.StatusOK, gin.H{"scopes": scopes, "source_tags": tags})
}

// lookupFactor handles GET /api/v1/factors?substance=&region=&tier=
func (h *Handler) lookupFactor(c *gin.Context) {
	substance := c.Query("substance")
	if substance == "" {
		c.JSON(http.StatusOK, gin.H{"substances": h.opts.Registry.Substances()})
		return
	}

	tier, err := strconv.Atoi(c.DefaultQuery("tier", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		return
	}

	f, err := h.opts.Registry.Get(substance, c.Query("region"), tier)
	if err != nil {
		if errors.Is(err, factors.ErrUnknownSubstance) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// =====================================================
// Calculators
// =====================================================

func (h *Handler) calculateEnteric(c *gin.Context) { calculate(h, c, h.opts.Engine.Enteric) }
func (h *Handler) calculateManure(c *gin.Context)  { calculate(h, c, h.opts.Engine.Manure) }
func (h *Handler) calculateSoil(c *gin.Context)    { calculate(h, c, h.opts.Engine.Soil) }
func (h *Handler) calculateEnergy(c *gin.Context)  { calculate(h, c, h.opts.Engine.Energy) }
func (h *Handler) calculateInputs(c *gin.Context)  { calculate(h, c, h.opts.Engine.Inputs) }

func calculate[T any](h *Handler, c *gin.Context, fn func(T, *emissions.Boundary) (*emissions.SourceResult, error)) {
	var req CalculationRequest[T]
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	boundary, err := req.Boundary.build()
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := fn(req.Input, boundary)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// aggregate handles POST /api/v1/aggregate with a JSON list of source results
func (h *Handler) aggregate(c *gin.Context) {
	var results []any
	if err := c.ShouldBindJSON(&results); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := emissions.Aggregate(results)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, total)
}

// milkIntensity handles POST /api/v1/intensity/milk
func (h *Handler) milkIntensity(c *gin.Context) {
	var req MilkIntensityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := emissions.MilkIntensity(req.TotalCO2eqKg, req.MilkProduction)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// areaIntensity handles POST /api/v1/intensity/area
func (h *Handler) areaIntensity(c *gin.Context) {
	var req AreaIntensityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := emissions.AreaIntensity(req.TotalCO2eqKg, req.AreaInput)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// =====================================================
// Batch runs
// =====================================================

// runBatch handles POST /api/v1/batch
func (h *Handler) runBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tier := h.opts.Tier
	if req.Tier != 0 {
		tier = emissions.Tier(req.Tier)
	}
	boundary := h.opts.Boundary
	if req.Boundary != nil {
		b, err := req.Boundary.build()
		if err != nil {
			h.fail(c, err)
			return
		}
		boundary = b
	}
	region := h.opts.BenchmarkRegion
	if req.BenchmarkRegion != nil {
		region = *req.BenchmarkRegion
	}

	run, err := h.opts.Runner.Run(c.Request.Context(), req.Farms, tier, boundary, region)
	if err != nil {
		h.fail(c, err)
		return
	}

	if req.Save {
		if h.opts.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
			return
		}
		if err := h.opts.Store.SaveRun(c.Request.Context(), run); err != nil {
			h.logger.Error("Failed to save run", zap.String("run_id", run.RunID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, run)
}

// listRuns handles GET /api/v1/runs
func (h *Handler) listRuns(c *gin.Context) {
	if h.opts.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	runs, err := h.opts.Store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// getRun handles GET /api/v1/runs/:id
func (h *Handler) getRun(c *gin.Context) {
	if h.opts.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return
	}

	run, err := h.opts.Store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// fail maps domain errors onto HTTP status codes
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case emissions.IsInputError(err):
		body := gin.H{"error": err.Error()}
		var ve *emissions.ValidationError
		if errors.As(err, &ve) {
			body["field"] = ve.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, sqlite.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
