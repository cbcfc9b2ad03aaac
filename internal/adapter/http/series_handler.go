package http

import (
	"net/http"
	"strconv"

	"ncd-admin-backend/internal/usecase/payout"
	"ncd-admin-backend/internal/usecase/series"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type SeriesHandler struct {
	uc      *series.Usecase
	payouts *payout.Usecase
	log     *zap.Logger
}

func NewSeriesHandler(uc *series.Usecase, payouts *payout.Usecase, log *zap.Logger) *SeriesHandler {
	return &SeriesHandler{uc: uc, payouts: payouts, log: log}
}

type createSeriesReq struct {
	Name                  string `json:"name"                  validate:"required,max=128"`
	IssueDate             string `json:"issueDate"             validate:"omitempty,ncddate"`
	MaturityDate          string `json:"maturityDate"          validate:"omitempty,ncddate"`
	SubscriptionStartDate string `json:"subscriptionStartDate" validate:"omitempty,ncddate"`
	SubscriptionEndDate   string `json:"subscriptionEndDate"   validate:"omitempty,ncddate"`
	LockInDate            string `json:"lockInDate"            validate:"omitempty,ncddate"`

	FaceValue          float64 `json:"faceValue"          validate:"gte=0,intlike"`
	MinInvestment      float64 `json:"minInvestment"      validate:"gte=0,dec2"`
	TargetAmount       float64 `json:"targetAmount"       validate:"gte=0,dec2"`
	TotalIssueSize     float64 `json:"totalIssueSize"     validate:"gte=0,dec2"`
	InterestRate       float64 `json:"interestRate"       validate:"gte=0,lte=100,dec2"`
	InterestFrequency  string  `json:"interestFrequency"  validate:"max=32"`
	InterestPaymentDay int     `json:"interestPaymentDay" validate:"omitempty,gte=1,lte=31"`
	LockInMonths       int     `json:"lockInMonths"       validate:"gte=0"`
	TenureMonths       int     `json:"tenureMonths"       validate:"gte=0"`
	SeedAmount         float64 `json:"seedAmount"         validate:"gte=0,dec2"`
}

type updateSeriesReq struct {
	Name                  *string `json:"name"                  validate:"omitempty,max=128"`
	IssueDate             *string `json:"issueDate"             validate:"omitempty,ncddate"`
	MaturityDate          *string `json:"maturityDate"          validate:"omitempty,ncddate"`
	SubscriptionStartDate *string `json:"subscriptionStartDate" validate:"omitempty,ncddate"`
	SubscriptionEndDate   *string `json:"subscriptionEndDate"   validate:"omitempty,ncddate"`
	LockInDate            *string `json:"lockInDate"            validate:"omitempty,ncddate"`

	FaceValue          *float64 `json:"faceValue"          validate:"omitempty,gte=0,intlike"`
	MinInvestment      *float64 `json:"minInvestment"      validate:"omitempty,gte=0,dec2"`
	TargetAmount       *float64 `json:"targetAmount"       validate:"omitempty,gte=0,dec2"`
	TotalIssueSize     *float64 `json:"totalIssueSize"     validate:"omitempty,gte=0,dec2"`
	InterestRate       *float64 `json:"interestRate"       validate:"omitempty,gte=0,lte=100,dec2"`
	InterestFrequency  *string  `json:"interestFrequency"  validate:"omitempty,max=32"`
	InterestPaymentDay *int     `json:"interestPaymentDay" validate:"omitempty,gte=1,lte=31"`
	LockInMonths       *int     `json:"lockInMonths"       validate:"omitempty,gte=0"`
	TenureMonths       *int     `json:"tenureMonths"       validate:"omitempty,gte=0"`
}

type approveSeriesReq struct {
	SubscriptionStartDate string `json:"subscriptionStartDate" validate:"required,ncddate"`
	SubscriptionEndDate   string `json:"subscriptionEndDate"   validate:"required,ncddate"`
	IssueDate             string `json:"issueDate"             validate:"omitempty,ncddate"`
	MaturityDate          string `json:"maturityDate"          validate:"omitempty,ncddate"`
}

type rejectSeriesReq struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

func (h *SeriesHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.uc.List(c.Request().Context()))
}

func (h *SeriesHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	d, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *SeriesHandler) Create(c echo.Context) error {
	var req createSeriesReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	s, err := h.uc.Create(c.Request().Context(), actorOf(c), series.CreateInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *SeriesHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var req updateSeriesReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	s, err := h.uc.Update(c.Request().Context(), actorOf(c), id, series.UpdateInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SeriesHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := h.uc.Delete(c.Request().Context(), actorOf(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SeriesHandler) Approve(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var req approveSeriesReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	s, err := h.uc.Approve(c.Request().Context(), actorOf(c), id, series.ApproveInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SeriesHandler) Reject(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var req rejectSeriesReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	s, err := h.uc.Reject(c.Request().Context(), actorOf(c), id, req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Recalculate refreshes every series, or just ?id= when given.
func (h *SeriesHandler) Recalculate(c echo.Context) error {
	var target *int64
	if raw := c.QueryParam("id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id query param"})
		}
		target = &n
	}
	list, err := h.uc.Recalculate(c.Request().Context(), actorOf(c), target)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SeriesHandler) Payouts(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	sch, err := h.payouts.ForSeries(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, sch)
}
