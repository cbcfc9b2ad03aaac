package http

import (
	"net/http"
	"strconv"

	domain "ncd-admin-backend/internal/domain/investor"
	"ncd-admin-backend/internal/usecase/investor"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type InvestorHandler struct {
	uc  *investor.Usecase
	log *zap.Logger
}

func NewInvestorHandler(uc *investor.Usecase, log *zap.Logger) *InvestorHandler {
	return &InvestorHandler{uc: uc, log: log}
}

type investmentReq struct {
	SeriesID int64   `json:"seriesId" validate:"required,gt=0"`
	Amount   float64 `json:"amount"   validate:"required,gt=0,dec2"`
	Date     string  `json:"date"     validate:"omitempty,ncddate"`
}

type createInvestorReq struct {
	InvestorID  string          `json:"investorId"  validate:"required,max=64"`
	Name        string          `json:"name"        validate:"required,max=128"`
	Email       string          `json:"email"       validate:"omitempty,email"`
	Phone       string          `json:"phone"       validate:"omitempty,max=32"`
	PAN         string          `json:"pan"         validate:"omitempty,len=10"`
	KYCStatus   string          `json:"kycStatus"   validate:"omitempty,oneof=Pending Completed Rejected"`
	Investments []investmentReq `json:"investments" validate:"dive"`
}

type updateInvestorReq struct {
	Name      *string `json:"name"      validate:"omitempty,max=128"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Phone     *string `json:"phone"     validate:"omitempty,max=32"`
	PAN       *string `json:"pan"       validate:"omitempty,len=10"`
	KYCStatus *string `json:"kycStatus" validate:"omitempty,oneof=Pending Completed Rejected"`
}

// List hides soft-deleted investors unless ?includeDeleted=true.
func (h *InvestorHandler) List(c echo.Context) error {
	include, _ := strconv.ParseBool(c.QueryParam("includeDeleted"))
	return c.JSON(http.StatusOK, h.uc.List(c.Request().Context(), include))
}

func (h *InvestorHandler) Get(c echo.Context) error {
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

func (h *InvestorHandler) Create(c echo.Context) error {
	var req createInvestorReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	in := investor.CreateInput{
		InvestorID: req.InvestorID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		PAN:        req.PAN,
		KYCStatus:  domain.KYCStatus(req.KYCStatus),
	}
	for _, r := range req.Investments {
		in.Investments = append(in.Investments, investor.InvestmentInput(r))
	}
	d, err := h.uc.Create(c.Request().Context(), actorOf(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *InvestorHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var req updateInvestorReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	in := investor.UpdateInput{Name: req.Name, Email: req.Email, Phone: req.Phone, PAN: req.PAN}
	if req.KYCStatus != nil {
		k := domain.KYCStatus(*req.KYCStatus)
		in.KYCStatus = &k
	}
	d, err := h.uc.Update(c.Request().Context(), actorOf(c), id, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *InvestorHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := h.uc.Delete(c.Request().Context(), actorOf(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *InvestorHandler) Invest(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var req investmentReq
	if err := bindAndValidate(c, &req); err != nil {
		return done(err)
	}
	d, err := h.uc.Invest(c.Request().Context(), actorOf(c), id, investor.InvestmentInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, d)
}
