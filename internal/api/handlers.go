package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/vitreos/internal/advisor"
	"github.com/Skufu/vitreos/internal/profile"
	"github.com/Skufu/vitreos/internal/report"
)

type handler struct {
	Deps
}

var kindStatus = map[advisor.Kind]int{
	advisor.KindLocked:        http.StatusConflict,
	advisor.KindNotConfigured: http.StatusServiceUnavailable,
	advisor.KindRequestFailed: http.StatusBadGateway,
	advisor.KindMalformed:     http.StatusBadGateway,
	advisor.KindValidation:    http.StatusBadRequest,
}

// fail renders an orchestrator failure, or a 500 for anything else.
func (h *handler) fail(c *gin.Context, err error) {
	f, ok := advisor.AsFailure(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "internal server error"})
		return
	}
	body := gin.H{"error": string(f.Kind), "feature": f.Feature, "message": f.Message}
	if f.Placeholder != "" {
		body["placeholder"] = f.Placeholder
	}
	c.JSON(kindStatus[f.Kind], body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": string(advisor.KindValidation), "message": msg})
}

// bindOptional decodes a JSON body that may be absent.
func bindOptional(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid payload")
		return false
	}
	return true
}

func bindRequired(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid payload")
		return false
	}
	return true
}

func (h *handler) profileBody() gin.H {
	return gin.H{
		"profile":  h.Profile.Snapshot(),
		"complete": h.Profile.Complete(),
	}
}

func (h *handler) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.profileBody())
}

// profileFields accepts form values as strings or bare numbers.
type profileFields map[string]any

func (p profileFields) strings() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out
}

func (h *handler) submitProfile(c *gin.Context) {
	var fields profileFields
	if !bindRequired(c, &fields) {
		return
	}
	if !h.submit(c, fields) {
		return
	}
	c.JSON(http.StatusOK, h.profileBody())
}

func (h *handler) submit(c *gin.Context, fields profileFields) bool {
	err := h.Profile.Submit(c.Request.Context(), profile.FromMap(fields.strings()))
	switch {
	case errors.Is(err, profile.ErrEmptyProfile):
		badRequest(c, "fill in at least one field before analysing")
		return false
	case err != nil:
		h.fail(c, err)
		return false
	}
	return true
}

func (h *handler) clearProfile(c *gin.Context) {
	if err := h.Profile.Clear(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.profileBody())
}

func (h *handler) listHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.Profile.History()})
}

func (h *handler) clearHistory(c *gin.Context) {
	if err := h.Profile.ClearHistory(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) exportHistory(c *gin.Context) {
	data, err := report.HistoryWorkbook(h.Profile.History())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=vitreos-history.xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *handler) features(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"complete": h.Profile.Complete(), "features": h.Gate.Status()})
}

// runAdvisor submits the fields in the body, when any, and analyses the
// resulting profile.
func (h *handler) runAdvisor(c *gin.Context) {
	var fields profileFields
	if !bindOptional(c, &fields) {
		return
	}
	if len(fields) > 0 && !h.submit(c, fields) {
		return
	}
	findings, err := h.Advisor.Advisor(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings})
}

type transcriptRequest struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// observeTranscript feeds recogniser output into the keyword set. Interim
// segments are acknowledged but not recorded.
func (h *handler) observeTranscript(c *gin.Context) {
	var req transcriptRequest
	if !bindRequired(c, &req) {
		return
	}
	added := []string{}
	if req.Final {
		if kws := h.Keywords.Observe(req.Text); kws != nil {
			added = kws
		}
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "keywords": h.Keywords.Keywords()})
}

func (h *handler) listKeywords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"keywords": h.Keywords.Keywords(), "transcript": h.Keywords.Transcript()})
}

func (h *handler) clearKeywords(c *gin.Context) {
	h.Keywords.Clear()
	c.Status(http.StatusNoContent)
}

func (h *handler) runVoice(c *gin.Context) {
	var req struct {
		Transcript string `json:"transcript"`
	}
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.Advisor.Voice(c.Request.Context(), req.Transcript)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) runAllergy(c *gin.Context) {
	var req struct {
		Allergen string `json:"allergen"`
	}
	if !bindRequired(c, &req) {
		return
	}
	res, err := h.Advisor.Allergy(c.Request.Context(), req.Allergen)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) runDrug(c *gin.Context) {
	var req advisor.DrugInput
	if !bindRequired(c, &req) {
		return
	}
	res, err := h.Advisor.Drug(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) runConsult(c *gin.Context) {
	var req struct {
		Description string `json:"description"`
	}
	if !bindRequired(c, &req) {
		return
	}
	res, err := h.Advisor.Consult(c.Request.Context(), req.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) runNutrition(c *gin.Context) {
	var req struct {
		Goal string `json:"goal"`
	}
	if !bindRequired(c, &req) {
		return
	}
	res, err := h.Advisor.Nutrition(c.Request.Context(), req.Goal)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) runDashboard(c *gin.Context) {
	res, err := h.Advisor.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) latestDashboard(c *gin.Context) {
	state := h.Refresher.Latest()
	if state.Err != nil {
		h.fail(c, state.Err)
		return
	}
	if state.Result == nil {
		c.JSON(http.StatusAccepted, state)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *handler) navigate(c *gin.Context) {
	page := c.Param("page")
	c.JSON(http.StatusOK, gin.H{"page": page, "refreshScheduled": h.Refresher.Navigate(page)})
}

func (h *handler) runScan(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": string(advisor.KindValidation), "message": "file too large"})
			return
		}
		badRequest(c, "multipart field \"file\" is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, err)
		return
	}

	doc := advisor.Document{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  content,
	}
	res, err := h.Advisor.Scan(c.Request.Context(), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) applyScan(c *gin.Context) {
	applied, err := h.Advisor.ApplyLastScan(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	body := h.profileBody()
	body["applied"] = applied
	body["appliedAt"] = time.Now().UTC()
	c.JSON(http.StatusOK, body)
}
