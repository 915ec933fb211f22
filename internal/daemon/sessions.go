package daemon

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bluebird-io/portal/internal/binding"
)

const sessionEventName = "session"

// getSession returns the current snapshot. The token is never serialised.
func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.Manager.State())
}

// getSessionEvents streams a snapshot on connect and after every change
// until the client goes away.
func (s *Server) getSessionEvents(c *gin.Context) {
	view := binding.New(s.Manager)
	defer view.Close()

	LogWithCorrelation(c).Debugln("Session event stream opened")

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	sentInitial := false
	c.Stream(func(w io.Writer) bool {
		if !sentInitial {
			sentInitial = true
			c.SSEvent(sessionEventName, view.Snapshot())
			return true
		}

		select {
		case state, ok := <-view.Changes():
			if !ok {
				return false
			}
			c.SSEvent(sessionEventName, state)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	LogWithCorrelation(c).Debugln("Session event stream closed")
}
