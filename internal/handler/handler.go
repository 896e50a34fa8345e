package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/asanchezr/biblioteca-service/internal/errs"
	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/pkg/logger"
	"github.com/asanchezr/biblioteca-service/pkg/validate"
)

type Handler struct {
	memberSvc  MemberService
	catalogSvc CatalogService
	copySvc    CopyService
	lendingSvc LendingService
	log        *zap.Logger
}

func New(memberSvc MemberService, catalogSvc CatalogService, copySvc CopyService, lendingSvc LendingService, log *zap.Logger) *Handler {
	return &Handler{
		memberSvc:  memberSvc,
		catalogSvc: catalogSvc,
		copySvc:    copySvc,
		lendingSvc: lendingSvc,
		log:        log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig()),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/members", h.RegisterMember)
	api.POST("/login", h.Login)
	api.GET("/members/:id", h.GetMember)

	api.POST("/books", h.RegisterBook)
	api.GET("/books", h.GetBooks)
	api.GET("/books/:isbn", h.GetBook)

	api.POST("/copies", h.RegisterCopy)
	api.GET("/copies/:id", h.GetCopy)
	api.GET("/stock", h.GetStock)

	api.POST("/loans", h.IssueLoan)
	api.GET("/loans", h.GetLoans)
	api.GET("/loans/:id", h.GetLoan)
	api.POST("/loans/:id/return", h.ReturnLoan)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) RegisterMember(c echo.Context) error {
	var req model.RegisterMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	m, err := h.memberSvc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	m, err := h.memberSvc.Login(req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) GetMember(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	m := h.memberSvc.FindByID(id)
	if m == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no member registered with this id")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) RegisterBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	b, err := h.catalogSvc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

// GetBooks lists the catalog together with available copy counts.
func (h *Handler) GetBooks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.copySvc.Stock())
}

func (h *Handler) GetBook(c echo.Context) error {
	isbn := c.Param("isbn")
	b := h.catalogSvc.FindByISBN(isbn)
	if b == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no book registered with this isbn")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) RegisterCopy(c echo.Context) error {
	var req model.CreateCopyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	cp, err := h.copySvc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cp)
}

func (h *Handler) GetCopy(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	cp := h.copySvc.FindByID(id)
	if cp == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no copy registered with this id")
	}
	return c.JSON(http.StatusOK, cp)
}

func (h *Handler) GetStock(c echo.Context) error {
	type Resp struct {
		Available int `json:"available"`
	}
	return c.JSON(http.StatusOK, Resp{Available: h.copySvc.AvailableTotal()})
}

func (h *Handler) IssueLoan(c echo.Context) error {
	var req model.CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	l, err := h.lendingSvc.Issue(c.Request().Context(), req.MemberID, req.CopyID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLoans(c echo.Context) error {
	return c.JSON(http.StatusOK, h.lendingSvc.List())
}

func (h *Handler) GetLoan(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	l := h.lendingSvc.FindByID(id)
	if l == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no loan registered with this id")
	}
	return c.JSON(http.StatusOK, l)
}

// ReturnLoan completes a return. A late return is still a 200, the body
// carries the RETURNED_LATE outcome and the penalty date.
func (h *Handler) ReturnLoan(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}

	result, err := h.lendingSvc.Return(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errs.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errs.IsRuleViolation(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func newRateLimiterMW(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

func requestLoggerConfig() middleware.RequestLoggerConfig {
	cfg := logger.Log{LogLevel: zapcore.DebugLevel, Sink: ""}
	log := logger.NewLogger(cfg, "echo")
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
}
