package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oredesk/oredesk/internal/api"
	"github.com/oredesk/oredesk/internal/session"
)

// landingPage is the public marketing page. Platform stats are best-effort;
// the page renders without them when the backend is unreachable.
func (s *Server) landingPage(c *gin.Context) {
	data := gin.H{}
	if raw, err := s.userAPI.Get(c.Request.Context(), "/stats", nil); err == nil {
		var stats map[string]any
		if err := json.Unmarshal(api.UnwrapItem(raw), &stats); err == nil {
			data["Stats"] = stats
		}
	}
	c.HTML(http.StatusOK, "landing.html", data)
}

// summary fetches the dashboard numbers, preferring the poller's cache when
// the background refresh is enabled
func (s *Server) summary(ctx context.Context, scope session.Scope) map[string]json.RawMessage {
	if s.poller != nil {
		return s.poller.Summary(scope)
	}

	endpoints := map[string]string{"mining": "/mining/status", "wallet": "/wallet/balance"}
	client := s.userAPI
	if scope == session.ScopeAdmin {
		endpoints = map[string]string{"overview": "/admin/stats"}
		client = s.adminAPI
	}

	out := make(map[string]json.RawMessage)
	for key, path := range endpoints {
		raw, err := client.Get(ctx, path, nil)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Summary fetch failed")
			continue
		}
		out[key] = api.UnwrapItem(raw)
	}
	return out
}

func decodeSummary(parts map[string]json.RawMessage) map[string]map[string]any {
	out := make(map[string]map[string]any, len(parts))
	for key, raw := range parts {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err == nil {
			out[key] = fields
		}
	}
	return out
}

// dashboardHome renders the user overview: mining status, wallet balance
// and links to every user screen
func (s *Server) dashboardHome(c *gin.Context) {
	sess, _ := CurrentSession(c)

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Name":      sess.ProfileField("name"),
		"Email":     sess.ProfileField("email"),
		"Summary":   decodeSummary(s.summary(c.Request.Context(), session.ScopeUser)),
		"Resources": s.resources.Catalog().ByScope(session.ScopeUser),
		"Flash":     c.Query("flash"),
	})
}

// miningClaim claims the accrued mining reward
func (s *Server) miningClaim(c *gin.Context) {
	sess, _ := CurrentSession(c)

	_, err := s.userAPI.Post(c.Request.Context(), "/mining/claim", nil)
	s.recorder.Record(session.ScopeUser, sess.ProfileField("email"), "claim", "mining", "", err)
	if err != nil {
		if s.redirectIfExpired(c, session.ScopeUser, err) {
			return
		}
		redirectWithFlash(c, "/dashboard", errorMessage(err))
		return
	}

	redirectWithFlash(c, "/dashboard", "Mining reward claimed")
}

// KycForm is the user KYC submission
type KycForm struct {
	DocumentType   string `form:"document_type" binding:"required"`
	DocumentNumber string `form:"document_number" binding:"required"`
	Country        string `form:"country" binding:"required,len=2"`
}

// kycPage shows the current KYC status plus the submission form
func (s *Server) kycPage(c *gin.Context) {
	data := gin.H{"Flash": c.Query("flash")}

	raw, err := s.userAPI.Get(c.Request.Context(), "/kyc/status", nil)
	if err != nil {
		if s.redirectIfExpired(c, session.ScopeUser, err) {
			return
		}
		data["Error"] = errorMessage(err)
	} else {
		var status map[string]any
		if err := json.Unmarshal(api.UnwrapItem(raw), &status); err == nil {
			data["Status"] = status
		}
	}

	c.HTML(http.StatusOK, "kyc.html", data)
}

// kycSubmit sends the KYC documents for review
func (s *Server) kycSubmit(c *gin.Context) {
	sess, _ := CurrentSession(c)

	var form KycForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "kyc.html", gin.H{"Error": "All document fields are required"})
		return
	}

	_, err := s.userAPI.Post(c.Request.Context(), "/kyc/submit", gin.H{
		"document_type":   form.DocumentType,
		"document_number": form.DocumentNumber,
		"country":         form.Country,
	})
	s.recorder.Record(session.ScopeUser, sess.ProfileField("email"), "submit", "kyc", "", err)
	if err != nil {
		if s.redirectIfExpired(c, session.ScopeUser, err) {
			return
		}
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			c.HTML(http.StatusBadRequest, "kyc.html", gin.H{"Error": apiErr.Message, "Fields": apiErr.Fields})
			return
		}
		c.HTML(http.StatusBadRequest, "kyc.html", gin.H{"Error": errorMessage(err)})
		return
	}

	redirectWithFlash(c, "/dashboard/kyc", "Documents submitted for review")
}

// sessionStatus is an operational page: slot presence per scope, decoded
// token claims and the storage backend in use
func (s *Server) sessionStatus(c *gin.Context) {
	sess, _ := CurrentSession(c)

	adminSess, err := s.store.Read(session.ScopeAdmin)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read admin slot for status page")
	}

	data := gin.H{
		"Backend":      s.config.Session.Backend,
		"UserPresent":  true,
		"AdminPresent": adminSess != nil,
	}
	if claims, err := session.DecodeClaims(sess.Token); err == nil {
		data["Claims"] = claims
	}

	c.HTML(http.StatusOK, "session.html", data)
}

// adminHome renders the back-office overview
func (s *Server) adminHome(c *gin.Context) {
	sess, _ := CurrentSession(c)

	c.HTML(http.StatusOK, "admin_home.html", gin.H{
		"Email":     sess.ProfileField("email"),
		"Summary":   decodeSummary(s.summary(c.Request.Context(), session.ScopeAdmin)),
		"Resources": s.resources.Catalog().ByScope(session.ScopeAdmin),
		"Flash":     c.Query("flash"),
	})
}

// auditPage lists the local history of console-initiated mutations
func (s *Server) auditPage(c *gin.Context) {
	entries, err := s.recorder.Recent(100)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load audit entries")
		c.HTML(http.StatusOK, "audit.html", gin.H{"Error": "Failed to load audit log"})
		return
	}
	c.HTML(http.StatusOK, "audit.html", gin.H{"Entries": entries})
}

// sessionInfo reports slot presence for page scripts
func (s *Server) sessionInfo(c *gin.Context) {
	userSess, err := s.store.Read(session.ScopeUser)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
		return
	}
	adminSess, err := s.store.Read(session.ScopeAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  userSess != nil,
		"admin": adminSess != nil,
	})
}
