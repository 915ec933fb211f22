package daemon

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bluebird-io/portal/internal/forms"
	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/models"
)

// Form problems are answered with 400. Once a form reaches the session
// manager the outcome is always a 200 carrying the Result, failures
// included.

func (s *Server) rejectForm(c *gin.Context, err error) {
	LogWithCorrelation(c).WithError(err).Debugln("Rejected form")

	c.JSON(http.StatusBadRequest, models.Result{
		Success: false,
		Message: forms.Message(err, s.Messages),
	})
}

func (s *Server) rejectBody(c *gin.Context, err error) {
	LogWithCorrelation(c).WithError(err).Debugln("Malformed request body")

	c.JSON(http.StatusBadRequest, models.Result{
		Success: false,
		Message: s.Messages.T(i18n.InvalidRequest),
	})
}

func (s *Server) postLogin(c *gin.Context) {
	var form forms.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.rejectBody(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		s.rejectForm(c, err)
		return
	}

	c.JSON(http.StatusOK, s.Manager.Login(c.Request.Context(), form.Email, form.Password))
}

func (s *Server) postRegister(c *gin.Context) {
	var form forms.RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.rejectBody(c, err)
		return
	}

	features := s.Config.Features
	if err := form.Validate(features, s.Config.GetEmailSuffixes()); err != nil {
		s.rejectForm(c, err)
		return
	}

	c.JSON(http.StatusOK, s.Manager.Register(c.Request.Context(), form.Request(features)))
}

func (s *Server) postSendCode(c *gin.Context) {
	var form forms.SendCodeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.rejectBody(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		s.rejectForm(c, err)
		return
	}

	c.JSON(http.StatusOK, s.Manager.SendEmailCode(c.Request.Context(), form.Email, form.CodeType()))
}

func (s *Server) postResetPassword(c *gin.Context) {
	var form forms.ResetForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.rejectBody(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		s.rejectForm(c, err)
		return
	}

	c.JSON(http.StatusOK, s.Manager.ResetPassword(c.Request.Context(), form.Request()))
}

func (s *Server) postLogout(c *gin.Context) {
	if err := s.Manager.Logout(c.Request.Context()); err != nil {
		LogWithCorrelation(c).WithError(err).Errorln("Logout left the store dirty")

		c.JSON(http.StatusInternalServerError, models.Result{
			Success: false,
			Message: s.Messages.T(i18n.RequestFailed),
		})
		return
	}

	c.JSON(http.StatusOK, models.Result{
		Success: true,
		Message: s.Messages.T(i18n.LogoutSuccess),
	})
}

func (s *Server) postRefresh(c *gin.Context) {
	if !s.Manager.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, models.Result{
			Success: false,
			Message: s.Messages.T(i18n.NotAuthenticated),
		})
		return
	}

	if err := s.Manager.RefreshUser(c.Request.Context()); err != nil {
		LogWithCorrelation(c).WithError(err).Warnln("Failed to refresh user")

		c.JSON(http.StatusBadGateway, models.Result{
			Success: false,
			Message: s.Messages.T(i18n.RequestFailed),
		})
		return
	}

	c.JSON(http.StatusOK, s.Manager.State())
}

func (s *Server) getCheckEmail(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if len(email) == 0 {
		c.JSON(http.StatusBadRequest, models.Result{
			Success: false,
			Message: s.Messages.T(i18n.EmailRequired),
		})
		return
	}

	exists, err := s.Manager.CheckEmail(c.Request.Context(), email)
	if err != nil {
		LogWithCorrelation(c).WithError(err).WithFields(logrus.Fields{
			"email": email,
		}).Warnln("Failed to check email")

		c.JSON(http.StatusBadGateway, models.Result{
			Success: false,
			Message: s.Messages.T(i18n.RequestFailed),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":  email,
		"exists": exists,
	})
}
