package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/persona"
	"github.com/lilhelper-coder/Asset-Architect-sub000/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	persona persona.Persona
}

// View is the public description of the companion.
type View struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Tone        string   `json:"tone"`
	OpeningLine string   `json:"openingLine"`
	Traits      []string `json:"traits,omitempty"`
}

// New 创建persona处理器
func New(p persona.Persona) *Handler {
	return &Handler{persona: p}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleGetPersona)
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, View{
		ID:          h.persona.ID,
		Name:        h.persona.Name,
		Title:       h.persona.Title,
		Tone:        h.persona.Tone,
		OpeningLine: h.persona.OpeningLine,
		Traits:      h.persona.Traits,
	})
}
