package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"omnia/internal/datatable"
	"omnia/internal/domain/models"
	"omnia/internal/services"
)

// Intents serves /api/nlp/intents.
type Intents struct {
	Intents *services.IntentService
	Export  *services.ExportService
}

func intentQuery(c *gin.Context) datatable.Query {
	return datatable.ParseQuery(c.Request.URL.Query(), models.IntentSortColumns...)
}

// GET /api/nlp/intents?page=&limit=&sortBy=&sortOrder=&search=
func (h Intents) List(c *gin.Context) {
	page, err := h.Intents.List(c.Request.Context(), intentQuery(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/nlp/intents/:id
func (h Intents) Get(c *gin.Context) {
	it, err := h.Intents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": it})
}

// POST /api/nlp/intents
func (h Intents) Create(c *gin.Context) {
	var in models.IntentInput
	if !BindJSONOrError(c, &in) {
		return
	}
	it, err := h.Intents.Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": it})
}

// PUT /api/nlp/intents/:id
func (h Intents) Update(c *gin.Context) {
	var in models.IntentInput
	if !BindJSONOrError(c, &in) {
		return
	}
	it, err := h.Intents.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": it})
}

// DELETE /api/nlp/intents/:id
func (h Intents) Delete(c *gin.Context) {
	if err := h.Intents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/nlp/intents/export.pdf exports every row matching the current
// search and sort.
func (h Intents) ExportPDF(c *gin.Context) {
	pdf, filename, err := h.Export.IntentsPDF(c.Request.Context(), intentQuery(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
