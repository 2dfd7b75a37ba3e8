package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oredesk/oredesk/internal/api"
	"github.com/oredesk/oredesk/internal/session"
)

// LoginForm is the credentials form shared by both login screens
type LoginForm struct {
	Email        string `form:"email" binding:"required,email"`
	Password     string `form:"password" binding:"required"`
	CaptchaToken string `form:"captcha_token"`
	Next         string `form:"next"`
}

// RegisterForm is the sign-up form on the auth page
type RegisterForm struct {
	Name         string `form:"name" binding:"required"`
	Email        string `form:"email" binding:"required,email"`
	Password     string `form:"password" binding:"required,min=8"`
	ReferralCode string `form:"referral_code" binding:"omitempty,refcode"`
	CaptchaToken string `form:"captcha_token"`
}

// TwoFactorForm is the 2FA verification step
type TwoFactorForm struct {
	Email string `form:"email" binding:"required,email"`
	Code  string `form:"code" binding:"required,len=6,numeric"`
	Next  string `form:"next"`
}

// ForgotPasswordForm requests a reset email
type ForgotPasswordForm struct {
	Email string `form:"email" binding:"required,email"`
}

// ResetPasswordForm completes a password reset
type ResetPasswordForm struct {
	Email    string `form:"email" binding:"required,email"`
	Token    string `form:"token" binding:"required"`
	Password string `form:"password" binding:"required,min=8"`
}

func (s *Server) renderAuth(c *gin.Context, status int, mode string, data gin.H) {
	page := gin.H{
		"Mode":             mode,
		"Next":             c.Query("next"),
		"Email":            "",
		"Name":             "",
		"RecaptchaSiteKey": s.config.RecaptchaSiteKey,
	}
	for k, v := range data {
		page[k] = v
	}
	c.HTML(status, "auth.html", page)
}

// authPage renders the user auth screen; mode switches between login,
// register, two-factor, forgot and reset, all on one page like the SPA
func (s *Server) authPage(c *gin.Context) {
	mode := c.DefaultQuery("mode", "login")
	switch mode {
	case "login", "register", "twofactor", "forgot", "reset":
	default:
		mode = "login"
	}
	s.renderAuth(c, http.StatusOK, mode, gin.H{})
}

// login authenticates the end user against the backend and fills the user
// session slot
func (s *Server) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderAuth(c, http.StatusBadRequest, "login", gin.H{"Error": "Email and password are required", "Email": form.Email})
		return
	}

	raw, err := s.userAPI.Post(c.Request.Context(), "/auth/login", gin.H{
		"email":         form.Email,
		"password":      form.Password,
		"captcha_token": form.CaptchaToken,
	})
	if err != nil {
		s.renderAuth(c, http.StatusUnauthorized, "login", gin.H{"Error": loginErrorMessage(err), "Email": form.Email})
		return
	}

	result, err := api.ParseAuth(raw)
	if err != nil {
		s.logger.Error().Err(err).Msg("Unexpected login response")
		s.renderAuth(c, http.StatusBadGateway, "login", gin.H{"Error": "Unexpected response from the platform", "Email": form.Email})
		return
	}
	if result.TwoFactor {
		s.renderAuth(c, http.StatusOK, "twofactor", gin.H{"Email": form.Email, "Notice": "Enter the code from your authenticator app"})
		return
	}

	if err := s.store.Write(session.ScopeUser, result.Token, result.Profile); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist user session")
		s.renderAuth(c, http.StatusInternalServerError, "login", gin.H{"Error": "Failed to store session", "Email": form.Email})
		return
	}

	s.logger.Info().Str("email", form.Email).Msg("User logged in")
	c.Redirect(http.StatusFound, safeNext(form.Next, "/dashboard"))
}

// register signs a new user up; depending on backend policy the response
// either carries a token (instant login) or asks for verification first
func (s *Server) register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderAuth(c, http.StatusBadRequest, "register", gin.H{"Error": "Please fill in all required fields", "Email": form.Email, "Name": form.Name})
		return
	}

	raw, err := s.userAPI.Post(c.Request.Context(), "/auth/register", gin.H{
		"name":          form.Name,
		"email":         form.Email,
		"password":      form.Password,
		"referral_code": form.ReferralCode,
		"captcha_token": form.CaptchaToken,
	})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			s.renderAuth(c, http.StatusBadRequest, "register", gin.H{"Error": apiErr.Message, "Fields": apiErr.Fields, "Email": form.Email, "Name": form.Name})
			return
		}
		s.renderAuth(c, http.StatusBadGateway, "register", gin.H{"Error": "Registration failed, please try again", "Email": form.Email, "Name": form.Name})
		return
	}

	result, err := api.ParseAuth(raw)
	if err != nil {
		// No token in the response: account created, verification pending
		s.renderAuth(c, http.StatusOK, "login", gin.H{"Notice": "Account created. Check your email, then sign in.", "Email": form.Email})
		return
	}

	if err := s.store.Write(session.ScopeUser, result.Token, result.Profile); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist user session")
		s.renderAuth(c, http.StatusInternalServerError, "login", gin.H{"Error": "Failed to store session", "Email": form.Email})
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

// verifyTwoFactor completes a 2FA login
func (s *Server) verifyTwoFactor(c *gin.Context) {
	var form TwoFactorForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderAuth(c, http.StatusBadRequest, "twofactor", gin.H{"Error": "A 6-digit code is required", "Email": form.Email})
		return
	}

	raw, err := s.userAPI.Post(c.Request.Context(), "/auth/two-factor/verify", gin.H{
		"email": form.Email,
		"code":  form.Code,
	})
	if err != nil {
		s.renderAuth(c, http.StatusUnauthorized, "twofactor", gin.H{"Error": loginErrorMessage(err), "Email": form.Email})
		return
	}

	result, err := api.ParseAuth(raw)
	if err != nil {
		s.logger.Error().Err(err).Msg("Unexpected two-factor response")
		s.renderAuth(c, http.StatusBadGateway, "twofactor", gin.H{"Error": "Unexpected response from the platform", "Email": form.Email})
		return
	}

	if err := s.store.Write(session.ScopeUser, result.Token, result.Profile); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist user session")
		s.renderAuth(c, http.StatusInternalServerError, "login", gin.H{"Error": "Failed to store session", "Email": form.Email})
		return
	}
	c.Redirect(http.StatusFound, safeNext(form.Next, "/dashboard"))
}

// forgotPassword asks the backend to send a reset email
func (s *Server) forgotPassword(c *gin.Context) {
	var form ForgotPasswordForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderAuth(c, http.StatusBadRequest, "forgot", gin.H{"Error": "A valid email is required"})
		return
	}

	if _, err := s.userAPI.Post(c.Request.Context(), "/auth/forgot-password", gin.H{"email": form.Email}); err != nil {
		s.renderAuth(c, http.StatusBadGateway, "forgot", gin.H{"Error": errorMessage(err), "Email": form.Email})
		return
	}
	s.renderAuth(c, http.StatusOK, "forgot", gin.H{"Notice": "If the address exists, a reset link is on its way", "Email": form.Email})
}

// resetPassword completes the reset with the emailed token
func (s *Server) resetPassword(c *gin.Context) {
	var form ResetPasswordForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderAuth(c, http.StatusBadRequest, "reset", gin.H{"Error": "All fields are required"})
		return
	}

	if _, err := s.userAPI.Post(c.Request.Context(), "/auth/reset-password", gin.H{
		"email":    form.Email,
		"token":    form.Token,
		"password": form.Password,
	}); err != nil {
		s.renderAuth(c, http.StatusBadRequest, "reset", gin.H{"Error": errorMessage(err), "Email": form.Email})
		return
	}
	s.renderAuth(c, http.StatusOK, "login", gin.H{"Notice": "Password updated. Sign in with your new password.", "Email": form.Email})
}

// adminLoginPage renders the back-office login screen
func (s *Server) adminLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_login.html", gin.H{"Next": c.Query("next"), "Email": ""})
}

// adminLogin authenticates an administrator and fills the admin slot.
// The user slot is never touched here.
func (s *Server) adminLogin(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "admin_login.html", gin.H{"Error": "Email and password are required", "Email": form.Email, "Next": form.Next})
		return
	}

	raw, err := s.adminAPI.Post(c.Request.Context(), "/admin/login", gin.H{
		"email":    form.Email,
		"password": form.Password,
	})
	if err != nil {
		c.HTML(http.StatusUnauthorized, "admin_login.html", gin.H{"Error": loginErrorMessage(err), "Email": form.Email, "Next": form.Next})
		return
	}

	result, err := api.ParseAuth(raw)
	if err != nil {
		s.logger.Error().Err(err).Msg("Unexpected admin login response")
		c.HTML(http.StatusBadGateway, "admin_login.html", gin.H{"Error": "Unexpected response from the platform", "Email": form.Email, "Next": form.Next})
		return
	}

	if err := s.store.Write(session.ScopeAdmin, result.Token, result.Profile); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist admin session")
		c.HTML(http.StatusInternalServerError, "admin_login.html", gin.H{"Error": "Failed to store session", "Email": form.Email, "Next": form.Next})
		return
	}

	s.logger.Info().Str("email", form.Email).Msg("Admin logged in")
	c.Redirect(http.StatusFound, safeNext(form.Next, "/admin"))
}

// logout clears exactly one slot and tells the backend best-effort
func (s *Server) logout(scope session.Scope) gin.HandlerFunc {
	logoutPath := "/auth/logout"
	client := s.userAPI
	if scope == session.ScopeAdmin {
		logoutPath = "/admin/logout"
		client = s.adminAPI
	}

	return func(c *gin.Context) {
		if _, err := client.Post(c.Request.Context(), logoutPath, nil); err != nil && !errors.Is(err, api.ErrSessionExpired) {
			s.logger.Warn().Err(err).Str("scope", string(scope)).Msg("Backend logout failed, clearing local session anyway")
		}
		if err := s.store.Clear(scope); err != nil {
			s.logger.Error().Err(err).Str("scope", string(scope)).Msg("Failed to clear session")
		}
		c.Redirect(http.StatusFound, scope.LoginPath())
	}
}

// loginErrorMessage maps client errors to what the login forms show.
// A 401 from a credentials endpoint means the credentials were wrong, not
// that a session expired.
func loginErrorMessage(err error) string {
	if errors.Is(err, api.ErrSessionExpired) {
		return "Invalid email or password"
	}
	return errorMessage(err)
}

// errorMessage is the generic page-level presentation of a client error
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Request failed, please try again"
}
