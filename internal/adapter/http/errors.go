package http

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	auditDomain "ncd-admin-backend/internal/domain/audit"
	investorDomain "ncd-admin-backend/internal/domain/investor"
	permDomain "ncd-admin-backend/internal/domain/permission"
	seriesDomain "ncd-admin-backend/internal/domain/series"
	"ncd-admin-backend/internal/domain/uow"
	auditUC "ncd-admin-backend/internal/usecase/audit"
	investorUC "ncd-admin-backend/internal/usecase/investor"
	"ncd-admin-backend/internal/usecase/payout"
	permUC "ncd-admin-backend/internal/usecase/permission"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	genericMessage   = "Something went wrong. Please try again."
	maxFriendlyRunes = 200
)

var statusByErr = []struct {
	err  error
	code int
}{
	{seriesDomain.ErrNotFound, http.StatusNotFound},
	{investorDomain.ErrNotFound, http.StatusNotFound},
	{auditDomain.ErrNotFound, http.StatusNotFound},

	{seriesDomain.ErrDuplicateName, http.StatusConflict},
	{seriesDomain.ErrAlreadyApproved, http.StatusConflict},
	{seriesDomain.ErrInvalidTransition, http.StatusConflict},
	{seriesDomain.ErrNotDeletable, http.StatusConflict},
	{investorDomain.ErrDuplicateInvestorID, http.StatusConflict},
	{investorDomain.ErrSeriesClosed, http.StatusConflict},
	{payout.ErrNotPayable, http.StatusConflict},
	{uow.ErrConflict, http.StatusConflict},

	{seriesDomain.ErrRejectionReasonRequired, http.StatusUnprocessableEntity},
	{seriesDomain.ErrInvalidDates, http.StatusUnprocessableEntity},
	{seriesDomain.ErrInvalidAmounts, http.StatusUnprocessableEntity},
	{seriesDomain.ErrInvalidPaymentDay, http.StatusUnprocessableEntity},
	{seriesDomain.ErrNameRequired, http.StatusUnprocessableEntity},
	{investorDomain.ErrBelowMinimum, http.StatusUnprocessableEntity},
	{investorUC.ErrInvestorIDRequired, http.StatusUnprocessableEntity},
	{investorUC.ErrNameRequired, http.StatusUnprocessableEntity},
	{investorUC.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{investorUC.ErrInvalidDate, http.StatusUnprocessableEntity},
	{investorUC.ErrInvalidKYC, http.StatusUnprocessableEntity},
	{permDomain.ErrUnknownAction, http.StatusUnprocessableEntity},
	{permDomain.ErrUnknownModule, http.StatusUnprocessableEntity},
	{permUC.ErrRoleRequired, http.StatusUnprocessableEntity},
	{auditUC.ErrActionRequired, http.StatusUnprocessableEntity},

	{permDomain.ErrForbidden, http.StatusForbidden},
}

// StatusFor maps a use case error to an HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as an ErrorResponse. Known errors keep their
// message; anything else is logged and reduced to a friendly string.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	code := StatusFor(err)
	if code != http.StatusInternalServerError {
		return c.JSON(code, ErrorResponse{Error: err.Error()})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(code, ErrorResponse{Error: FriendlyError(err)})
}

var (
	reURL        = regexp.MustCompile(`(?i)\b(?:https?|wss?|redis|mysql|tcp)://\S+`)
	reAddr       = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d+)?\b`)
	reStatusText = regexp.MustCompile(`(?i)\b(?:http\s*)?(?:status(?:\s*code)?\s*:?\s*)?[1-5]\d\d\s+(?:` + statusWords + `)\b`)
	reStackLine  = regexp.MustCompile(`^\s*(?:goroutine \d+|at |\S+\.go:\d+|panic:|\S+\(0x[0-9a-f]+|created by )`)
	reSpaces     = regexp.MustCompile(`\s{2,}`)
)

const statusWords = `OK|Created|Accepted|No Content|Bad Request|Unauthorized|Forbidden|Not Found|Method Not Allowed|Conflict|Gone|Unprocessable Entity|Too Many Requests|Internal Server Error|Bad Gateway|Service Unavailable|Gateway Timeout`

// FriendlyError turns an arbitrary error into something safe to show an
// admin: URLs, addresses, stack trace lines and raw HTTP status text are
// removed. An empty result falls back to a generic message.
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}
	var kept []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if reStackLine.MatchString(line) {
			continue
		}
		line = reURL.ReplaceAllString(line, "")
		line = reAddr.ReplaceAllString(line, "")
		line = reStatusText.ReplaceAllString(line, "")
		line = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
		line = strings.Trim(line, ":;,- ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return genericMessage
	}
	msg := strings.Join(kept, "; ")
	msg = strings.ReplaceAll(msg, ": :", ":")
	if r := []rune(msg); len(r) > maxFriendlyRunes {
		msg = string(r[:maxFriendlyRunes])
	}
	first, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(first)) + msg[size:]
}
