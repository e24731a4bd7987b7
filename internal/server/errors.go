package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authdomain "github.com/smallbiznis/stagevote/internal/auth/domain"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	notificationdomain "github.com/smallbiznis/stagevote/internal/notification/domain"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	resultsdomain "github.com/smallbiznis/stagevote/internal/results/domain"
	votedomain "github.com/smallbiznis/stagevote/internal/vote/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if rErr := asRejectionError(err); rErr != nil {
		return http.StatusConflict, errorPayload{
			Type:    "vote_rejected",
			Code:    string(rErr.Reason),
			Message: rejectionMessage(rErr.Reason),
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, votedomain.ErrLoginRequired),
		errors.Is(err, contestdomain.ErrInvalidUser),
		errors.Is(err, orderdomain.ErrInvalidUser),
		errors.Is(err, notificationdomain.ErrInvalidUser):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, contestdomain.ErrNotOwner),
		errors.Is(err, orderdomain.ErrNotOwner),
		errors.Is(err, resultsdomain.ErrNotOwner),
		errors.Is(err, resultsdomain.ErrResultsHidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, orderdomain.ErrPackageImmutable),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrOrderNotPaid),
		errors.Is(err, contestdomain.ErrDuplicateContestNumber):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    err.Error(),
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// rejectionMessage gives each refusal reason its own human wording so voters
// know what to change, not just that the vote failed.
func rejectionMessage(reason votedomain.RejectReason) string {
	switch reason {
	case votedomain.ReasonContestantInactive:
		return "this contestant is no longer accepting votes"
	case votedomain.ReasonVotingNotStarted:
		return "voting has not started yet"
	case votedomain.ReasonVotingEnded:
		return "voting has ended"
	case votedomain.ReasonWrongVotingType:
		return "this contest does not accept that kind of vote"
	case votedomain.ReasonGuestVotingDisabled:
		return "this contest requires you to log in before voting"
	case votedomain.ReasonAlreadyVoted:
		return "a vote from this device has already been counted"
	case votedomain.ReasonAlreadyVotedForThis:
		return "you have already voted for this contestant"
	case votedomain.ReasonOneContestantOnly:
		return "this contest only allows voting for one contestant"
	case votedomain.ReasonVoteLimitReached:
		return "you have used all your votes for this contest"
	case votedomain.ReasonOrderNotOwned:
		return "that vote order does not belong to you"
	case votedomain.ReasonPaymentIncomplete:
		return "the payment for this vote order has not completed"
	case votedomain.ReasonNoVotesRemaining:
		return "this vote order has no votes left"
	case votedomain.ReasonOrderExpired:
		return "this vote order has expired"
	default:
		return "vote rejected"
	}
}

func asRejectionError(err error) *votedomain.RejectionError {
	var rErr *votedomain.RejectionError
	if errors.As(err, &rErr) && rErr != nil {
		return rErr
	}
	return nil
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isContestValidationError(err),
		isOrderValidationError(err),
		isAuthValidationError(err),
		errors.Is(err, votedomain.ErrInvalidID),
		errors.Is(err, resultsdomain.ErrInvalidID),
		errors.Is(err, notificationdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isContestValidationError(err error) bool {
	switch {
	case errors.Is(err, contestdomain.ErrInvalidID),
		errors.Is(err, contestdomain.ErrInvalidTitle),
		errors.Is(err, contestdomain.ErrInvalidVotingType),
		errors.Is(err, contestdomain.ErrInvalidVotingWindow),
		errors.Is(err, contestdomain.ErrInvalidVotePrice),
		errors.Is(err, contestdomain.ErrInvalidVoteLimit),
		errors.Is(err, contestdomain.ErrInvalidContestNumber),
		errors.Is(err, contestdomain.ErrInvalidContestantName),
		errors.Is(err, contestdomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isOrderValidationError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrInvalidName),
		errors.Is(err, orderdomain.ErrInvalidVoteCount),
		errors.Is(err, orderdomain.ErrInvalidPrice),
		errors.Is(err, orderdomain.ErrInvalidQuantity),
		errors.Is(err, orderdomain.ErrPackagesDisabled),
		errors.Is(err, orderdomain.ErrPackageRequired),
		errors.Is(err, orderdomain.ErrNotPaidContest):
		return true
	default:
		return false
	}
}

func isAuthValidationError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrWeakPassword):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, contestdomain.ErrNotFound),
		errors.Is(err, contestdomain.ErrContestantNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrPackageNotFound),
		errors.Is(err, votedomain.ErrContestNotFound),
		errors.Is(err, votedomain.ErrContestantNotFound),
		errors.Is(err, votedomain.ErrOrderNotFound),
		errors.Is(err, resultsdomain.ErrNotFound),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog labels request errors for the access log without
// rendering the full response payload again.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Code
	if code == "" {
		code = strconv.Itoa(status)
	}
	return payload.Type, code
}
