package backtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TomeMD/LeveragingLeverage/internal/evaluation"
	"github.com/TomeMD/LeveragingLeverage/internal/market"
	"github.com/TomeMD/LeveragingLeverage/internal/report"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

// HTTPServer exposes the simulator over Gin: submit runs, poll results,
// download reports and audit trails, trigger batch evaluations.
type HTTPServer struct {
	addr   string
	sim    *Simulator
	store  *RunStore
	base   market.Series
	router *gin.Engine
}

type HTTPConfig struct {
	Addr      string
	Simulator *Simulator
	Store     *RunStore
	Base      market.Series
}

func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Simulator == nil {
		return nil, errors.New("simulator is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("run store is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &HTTPServer{
		addr:   cfg.Addr,
		sim:    cfg.Simulator,
		store:  cfg.Store,
		base:   cfg.Base,
		router: router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *HTTPServer) registerRoutes() {
	api := s.router.Group("/api/backtest")
	api.GET("/dataset", s.handleDataset)
	api.GET("/templates", s.handleTemplates)
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/audit", s.handleRunAudit)
	api.GET("/runs/:id/report", s.handleRunReport)
	api.POST("/evaluate", s.handleEvalStart)
	api.GET("/evaluate", s.handleEvalList)
	api.GET("/evaluate/:id", s.handleEvalDetail)
}

func (s *HTTPServer) handleDataset(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dataset": market.Summarize(s.base)})
}

func (s *HTTPServer) handleTemplates(c *gin.Context) {
	templates := make(map[string][]strategy.Threshold)
	for _, name := range evaluation.TemplateNames() {
		tpl, _ := evaluation.Template(name)
		templates[name] = tpl
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (s *HTTPServer) handleRunStart(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := s.sim.StartRun(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}

func (s *HTTPServer) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"runs": s.store.ListRuns(limit)})
}

func (s *HTTPServer) handleRunDetail(c *gin.Context) {
	run, err := s.store.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *HTTPServer) handleRunAudit(c *gin.Context) {
	audit, err := s.store.AuditLog(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", audit)
}

func (s *HTTPServer) handleRunReport(c *gin.Context) {
	run, err := s.store.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if run.Status != RunStatusDone || run.Result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("run %s is %s, report needs a finished run", run.ID, run.Status)})
		return
	}
	x1 := s.base.FilterRange(run.Config.Start, run.Config.End)
	settings := &strategy.Settings{InitialCapital: run.Config.InitialCapital, Thresholds: run.Config.Thresholds}
	settings.Normalize()
	series, err := TierSeries(x1, settings.Tiers())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	html, err := report.Render(report.Input{
		Title:   fmt.Sprintf("%s %s to %s", run.Config.Ticker, run.Config.Start.Format(dateLayout), run.Config.End.Format(dateLayout)),
		Base:    x1,
		Tiers:   series,
		Result:  run.Result,
		Capital: run.Config.InitialCapital,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *HTTPServer) handleEvalStart(c *gin.Context) {
	var req EvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job, err := s.sim.StartEvaluation(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"evaluation": job})
}

func (s *HTTPServer) handleEvalList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"evaluations": s.store.ListEvals(limit)})
}

func (s *HTTPServer) handleEvalDetail(c *gin.Context) {
	job, err := s.store.GetEval(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": job})
}

// Start serves until ctx is cancelled or the listener fails.
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
