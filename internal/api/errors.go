package api

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/db"
	"github.com/campusconnect/campus/internal/paginate"
	"github.com/campusconnect/campus/internal/slot"
)

// apiError is an error with the status and message the client sees.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func badRequest(msg string) error { return &apiError{status: http.StatusBadRequest, msg: msg} }

func forbidden(msg string) error { return &apiError{status: http.StatusForbidden, msg: msg} }

func notFound(msg string) error { return &apiError{status: http.StatusNotFound, msg: msg} }

func unauthorized(msg string) error { return &apiError{status: http.StatusUnauthorized, msg: msg} }

// fail writes err as a JSON error response.
func (s *Server) fail(c *gin.Context, err error) {
	status, body := s.errorBody(err)
	if status >= http.StatusInternalServerError {
		log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) errorBody(err error) (int, gin.H) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae.status, gin.H{"error": ae.msg}
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, call.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "Record not found"}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		var ce *db.ConstraintError
		if errors.As(err, &ce) && ce.Field != "" {
			return http.StatusBadRequest, gin.H{"error": ce.Field + " already exists"}
		}
		return http.StatusBadRequest, gin.H{"error": "Record already exists"}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return http.StatusBadRequest, gin.H{"error": "Invalid reference: related record does not exist"}
	case errors.Is(err, paginate.ErrInvalidCursor):
		return http.StatusBadRequest, gin.H{"error": "Invalid cursor"}
	case errors.Is(err, call.ErrInvalidSetup):
		return http.StatusBadRequest, gin.H{"error": "Company and role are required"}
	case errors.Is(err, call.ErrNoActiveSession):
		return http.StatusNotFound, gin.H{"error": "No active interview session"}
	case errors.Is(err, slot.ErrHeld):
		return http.StatusConflict, gin.H{"error": "A live interview is already in progress"}
	}
	if s.cfg.IsProduction() {
		return http.StatusInternalServerError, gin.H{"error": "Internal server error"}
	}
	return http.StatusInternalServerError, gin.H{"error": err.Error(), "stack": string(debug.Stack())}
}

// bind decodes the JSON body into dst.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return badRequest("Invalid request body")
	}
	return nil
}
