package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oredesk/oredesk/internal/api"
	"github.com/oredesk/oredesk/internal/resource"
	"github.com/oredesk/oredesk/internal/session"
)

func scopeBasePath(scope session.Scope) string {
	if scope == session.ScopeAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// registerResourceRoutes registers the generic list/CRUD handler pair for
// every catalog entry of a scope. No screen gets hand-written routes.
func (s *Server) registerResourceRoutes(group *gin.RouterGroup, scope session.Scope) {
	for _, def := range s.resources.Catalog().ByScope(scope) {
		def := def
		base := "/r/" + def.Name

		group.GET(base, s.resourceList(&def))
		if def.Allows(resource.OpCreate) {
			group.GET(base+"/new", s.resourceCreateForm(&def))
			group.POST(base, s.resourceCreate(&def))
		}
		if def.Allows(resource.OpUpdate) {
			group.GET(base+"/:id/edit", s.resourceEditForm(&def))
			group.POST(base+"/:id/update", s.resourceUpdate(&def))
		}
		if def.Allows(resource.OpDelete) {
			group.POST(base+"/:id/delete", s.resourceDelete(&def))
		}
		if def.Allows(resource.OpToggle) {
			group.POST(base+"/:id/toggle/:toggle", s.resourceToggle(&def))
		}
	}
}

// redirectIfExpired converts the client's session-expired signal into the
// login redirect. The slot is already cleared by the time we get here.
func (s *Server) redirectIfExpired(c *gin.Context, scope session.Scope, err error) bool {
	if !errors.Is(err, api.ErrSessionExpired) {
		return false
	}
	c.Redirect(http.StatusFound, loginRedirect(scope, requestedPath(c)))
	c.Abort()
	return true
}

func resourceListPath(def *resource.Definition) string {
	return scopeBasePath(def.Scope) + "/r/" + def.Name
}

func redirectWithFlash(c *gin.Context, target, flash string) {
	c.Redirect(http.StatusFound, target+"?flash="+url.QueryEscape(flash))
}

// resourceList renders one page of a collection. A failed fetch renders the
// screen with an error banner; nothing is mutated.
func (s *Server) resourceList(def *resource.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}

		filters := make(map[string]string, len(def.Filters))
		for _, key := range def.Filters {
			filters[key] = c.Query(key)
		}

		data := gin.H{
			"Def":      def,
			"BasePath": resourceListPath(def),
			"Flash":    c.Query("flash"),
			"Filters":  filters,
		}

		result, err := s.resources.List(c.Request.Context(), def, c.Request.URL.Query(), page)
		if err != nil {
			if s.redirectIfExpired(c, def.Scope, err) {
				return
			}
			data["Error"] = errorMessage(err)
			c.HTML(http.StatusOK, "resource_list.html", data)
			return
		}

		data["Items"] = result.Items
		data["Page"] = result.Page
		c.HTML(http.StatusOK, "resource_list.html", data)
	}
}

// formValues collects the declared form fields from the request, reporting
// missing required ones before anything is sent to the backend
func formValues(c *gin.Context, def *resource.Definition) (map[string]any, map[string]string) {
	values := make(map[string]any)
	missing := make(map[string]string)
	for _, field := range def.Fields {
		value := c.PostForm(field.Name)
		if value == "" {
			if field.Required {
				missing[field.Name] = "This field is required"
			}
			continue
		}
		values[field.Name] = value
	}
	if len(missing) > 0 {
		return values, missing
	}
	return values, nil
}

func (s *Server) renderResourceForm(c *gin.Context, def *resource.Definition, mode, id string, values map[string]any, errMsg string, fieldErrs map[string]string, status int) {
	c.HTML(status, "resource_form.html", gin.H{
		"Def":      def,
		"Mode":     mode,
		"ID":       id,
		"Values":   values,
		"Error":    errMsg,
		"Fields":   fieldErrs,
		"BasePath": resourceListPath(def),
	})
}

func (s *Server) resourceCreateForm(def *resource.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.renderResourceForm(c, def, "create", "", nil, "", nil, http.StatusOK)
	}
}

func (s *Server) resourceEditForm(def *resource.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		values, err := s.resources.Get(c.Request.Context(), def, id)
		if err != nil {
			if s.redirectIfExpired(c, def.Scope, err) {
				return
			}
			// Backends without a show endpoint still get an empty form
			s.logger.Debug().Err(err).Str("resource", def.Name).Msg("Edit prefill unavailable")
			values = nil
		}
		s.renderResourceForm(c, def, "edit", id, values, "", nil, http.StatusOK)
	}
}

// resourceCreate submits the form; a validation failure re-renders the form
// with the server's message and the entered values, nothing mutated
func (s *Server) resourceCreate(def *resource.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		values, missing := formValues(c, def)
		if missing != nil {
			s.renderResourceForm(c, def, "create", "", values, "Please fill in the required fields", missing, http.StatusBadRequest)
			return
		}

		if err := s.resources.Create(c.Request.Context(), def, values); err != nil {
			if s.redirectIfExpired(c, def.Scope, err) {
				return
			}
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.IsValidation() {
				s.renderResourceForm(c, def, "create", "", values, apiErr.Message, apiErr.Fields, http.StatusBadRequest)
				return
			}
			s.renderResourceForm(c, def, "create", "", values, errorMessage(err), nil, http.StatusBadGateway)
			return
		}

		redirectWithFlash(c, resourceListPath(def), def.Title+" entry created")
	}
}

func (s *Server) resourceUpdate(def *resource.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		values, missing := formValues(c, def)
		if missing != nil {
			s.renderResourceForm(c, def, "edit", id, values, "Please fill in the required fields", missing, http.StatusBadRequest)
			return
		}

		if err := s.resources.Update(c.Request.Context(), def, id, values); err != nil {
			if s.redirectIfExpired(c, def.Scope, err) {
				return
			}
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.IsValidation() {
				s.renderResourceForm(c, def, "edit", id, values, apiErr.Message, apiErr.Fields, http.StatusBadRequest)
				return
			}
			s.renderResourceForm(c, def, "edit", id, values, errorMessage(err), nil, http.StatusBadGateway)
			return
		}

		redirectWithFlash(c, resourceListPath(def), def.Title+" entry updated")
	}
}

// resourceDelete requires the explicit confirm field the list template
// submits; without it nothing is sent to the backend
func (s *Server) resourceDelete(def *resource.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if c.PostForm("confirm") != "yes" {
			redirectWithFlash(c, resourceListPath(def), "Deletion requires confirmation")
			return
		}

		if err := s.resources.Delete(c.Request.Context(), def, id); err != nil {
			if s.redirectIfExpired(c, def.Scope, err) {
				return
			}
			redirectWithFlash(c, resourceListPath(def), errorMessage(err))
			return
		}

		redirectWithFlash(c, resourceListPath(def), def.Title+" entry deleted")
	}
}

func (s *Server) resourceToggle(def *resource.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		toggle := c.Param("toggle")

		if err := s.resources.Toggle(c.Request.Context(), def, id, toggle); err != nil {
			if s.redirectIfExpired(c, def.Scope, err) {
				return
			}
			redirectWithFlash(c, resourceListPath(def), errorMessage(err))
			return
		}

		redirectWithFlash(c, resourceListPath(def), def.Title+" entry updated")
	}
}

// resourceListJSON serves the same page data as JSON for page scripts
func (s *Server) resourceListJSON(scope session.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		def, ok := s.resources.Catalog().Get(scope, c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown resource"})
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}

		result, err := s.resources.List(c.Request.Context(), def, c.Request.URL.Query(), page)
		if err != nil {
			if errors.Is(err, api.ErrSessionExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
				return
			}
			var apiErr *api.Error
			if errors.As(err, &apiErr) {
				c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream request failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": result.Items, "meta": result.Page})
	}
}
