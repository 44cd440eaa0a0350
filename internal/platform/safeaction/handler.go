package safeaction

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the action on a gin route. Successes are written as JSON
// with status 200, failures with their status code, redirects as redirects
// and pre-formatted failures with their own status and data.
func (a *SafeAction[R]) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := a.Run(c.Request.Context(), c.Request)
		if err != nil {
			writeSignal(c, err)
			return
		}
		if !result.OK() {
			c.JSON(result.Failure.StatusCode, result.Failure)
			return
		}
		c.JSON(http.StatusOK, result.Value)
	}
}

func writeSignal(c *gin.Context, err error) {
	var redirect *Redirect
	if stderrors.As(err, &redirect) {
		c.Redirect(redirect.Status, redirect.Location)
		return
	}
	var failure *ActionFailure
	if stderrors.As(err, &failure) {
		if failure.Data == nil {
			c.Status(failure.Status)
			return
		}
		c.JSON(failure.Status, failure.Data)
		return
	}
	c.Status(http.StatusInternalServerError)
}
