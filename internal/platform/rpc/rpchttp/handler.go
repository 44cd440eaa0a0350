// Package rpchttp exposes a procedure router over HTTP and provides the
// matching client.
package rpchttp

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/louisbranch/formrpc/internal/platform/errors"
	"github.com/louisbranch/formrpc/internal/platform/httpconst"
	"github.com/louisbranch/formrpc/internal/platform/i18n"
	"github.com/louisbranch/formrpc/internal/platform/response"
	"github.com/louisbranch/formrpc/internal/platform/rpc"
)

// DefaultPrefix is the route prefix procedures are served under.
const DefaultPrefix = "/rpc"

// QueryParam carries the JSON input of GET calls.
const QueryParam = "data"

const maxBodyBytes = 1 << 20

// Methods accepted on the procedure route.
var Methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// Options configures the procedure route.
type Options struct {
	// Prefix is the route prefix, DefaultPrefix when empty.
	Prefix string
	// AllowOrigin is the single origin allowed by CORS. Empty disables CORS.
	AllowOrigin string
	// Repositories is passed to every procedure context.
	Repositories any
	// RateLimit is the sustained requests per second per client. Zero disables limiting.
	RateLimit float64
	// RateBurst is the burst size per client.
	RateBurst int
	Logger    zerolog.Logger
}

// Failure is the wire payload of a failed call.
type Failure struct {
	Success bool             `json:"success"`
	Code    apperrors.Code   `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
	Issues  *response.Issues `json:"issues,omitempty"`
}

// Register mounts the procedure route on engine. The procedure name is the
// path below the prefix with slashes as dots: /rpc/accounts/create calls
// accounts.create.
func Register(engine gin.IRouter, router *rpc.Router, opts Options) {
	prefix := strings.TrimRight(opts.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}

	group := engine.Group(prefix)
	if opts.AllowOrigin != "" {
		group.Use(cors.New(cors.Config{
			AllowOrigins:     []string{opts.AllowOrigin},
			AllowMethods:     Methods,
			AllowHeaders:     []string{httpconst.HeaderContentType, httpconst.HeaderAuthorization, httpconst.HeaderAcceptLanguage, httpconst.HeaderRequestID},
			ExposeHeaders:    []string{httpconst.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
		group.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
	if opts.RateLimit > 0 {
		group.Use(RateLimit(rate.Limit(opts.RateLimit), opts.RateBurst))
	}

	h := &handler{router: router, repositories: opts.Repositories, logger: opts.Logger}
	for _, method := range Methods {
		group.Handle(method, "/*path", h.serve)
	}
}

type handler struct {
	router       *rpc.Router
	repositories any
	logger       zerolog.Logger
}

func (h *handler) serve(c *gin.Context) {
	tr := i18n.FromContext(c.Request.Context())
	name := ProcedureName(c.Param("path"))

	input, err := readInput(c)
	if err != nil {
		issues := &response.Issues{}
		issues.AddRoot(tr.Sprintf(i18n.KeyMalformedBody))
		writeFailure(c, apperrors.WithIssues(apperrors.CodeInputValidationError, i18n.ParsingFailedError(tr), issues))
		return
	}

	pc := rpc.NewContext(rpc.LocalsFromRequest(c.Request, h.repositories))
	out, err := h.router.Invoke(c.Request.Context(), pc, name, input)
	if errors.Is(err, rpc.ErrProcedureNotFound) {
		h.logger.Warn().Str("procedure", name).Msg("procedure not found")
		c.JSON(http.StatusInternalServerError, Failure{Message: i18n.InternalServerError(tr)})
		return
	}
	if err != nil {
		writeFailure(c, apperrors.Normalize(err, tr))
		return
	}
	c.JSON(http.StatusOK, response.Succeed(out, ""))
}

func writeFailure(c *gin.Context, err *apperrors.Error) {
	c.JSON(err.Code.HTTPStatus(), Failure{
		Code:    err.Code,
		Message: err.Message,
		Issues:  err.Issues,
	})
}

// ProcedureName converts a route path such as "/accounts/create" into the
// procedure name "accounts.create".
func ProcedureName(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

// ProcedurePath is the inverse of ProcedureName.
func ProcedurePath(name string) string {
	return "/" + strings.ReplaceAll(name, ".", "/")
}

func readInput(c *gin.Context) ([]byte, error) {
	if c.Request.Method == http.MethodGet {
		return []byte(c.Query(QueryParam)), nil
	}
	if c.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
}
