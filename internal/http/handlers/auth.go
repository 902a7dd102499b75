package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ilm2/server/internal/auth"
	"github.com/ilm2/server/internal/middleware"
)

// User-facing protocol messages. The neutral message is returned for every
// request-code outcome so the response never reveals whether the email
// belongs to a real account.
const (
	MsgNeutral         = "Se existir uma conta com este e-mail, enviamos um código. Verifique sua caixa de entrada e spam."
	MsgMissingFields   = "Email e código são obrigatórios"
	MsgIncorrectCode   = "Código incorreto, tente novamente."
	MsgExpiredCode     = "Código expirado, solicite um novo."
	MsgTooManyRequests = "Muitas tentativas, tente novamente mais tarde."
	MsgInternalError   = "Erro interno do servidor"
)

// AuthHandler handles the login protocol endpoints
type AuthHandler struct {
	authService  *auth.AuthService
	requestLimit *middleware.RateLimiter
	verifyLimit  *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	// IP limits: 10 request-code and 20 verify calls per 10 minutes.
	return &AuthHandler{
		authService:  authService,
		requestLimit: middleware.NewRateLimiter(10*time.Minute, 10),
		verifyLimit:  middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

type requestCodeRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// userResponse is the identity summary in API responses
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Nome        string `json:"nome"`
	Perfil      string `json:"perfil"`
	MunicipioID string `json:"municipio_id,omitempty"`
}

type verifyResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

// HandleRequestCode handles POST /auth/request-code. It answers 200 with the
// neutral message for every outcome: malformed email, unknown account,
// success, and even internal failures (which are only logged).
func (h *AuthHandler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	// A garbled body gets the neutral message too.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if h.requestLimit.Allow(middleware.ClientKey(r)) {
		if err := h.authService.RequestCode(r.Context(), req.Email); err != nil {
			log.Printf("request-code failed: %v", err)
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": MsgNeutral})
}

// HandleVerify handles POST /auth/verify
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, MsgMissingFields)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, MsgMissingFields)
		return
	}

	if !h.verifyLimit.Allow(middleware.ClientKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, MsgTooManyRequests)
		return
	}

	usuario, token, err := h.authService.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrIncorrectCode):
			respondWithError(w, http.StatusUnauthorized, MsgIncorrectCode)
		case errors.Is(err, auth.ErrExpiredCode):
			respondWithError(w, http.StatusUnauthorized, MsgExpiredCode)
		default:
			log.Printf("verify failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, MsgInternalError)
		}
		return
	}

	user := userResponse{
		ID:     usuario.ID.String(),
		Email:  usuario.Email,
		Nome:   usuario.Nome,
		Perfil: usuario.Perfil,
	}
	if usuario.MunicipioID != nil {
		user.MunicipioID = usuario.MunicipioID.String()
	}

	respondWithJSON(w, http.StatusOK, verifyResponse{Success: true, Token: token, User: user})
}

// HandleLogout handles POST /auth/logout. Sessions are stateless tokens, so
// logout is a client-side acknowledgement: discard the token and it is gone.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleMe handles GET /auth/me (protected). Returns the identity summary
// from the verified session claims.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user := userResponse{
		ID:     claims.Subject,
		Email:  claims.Email,
		Nome:   claims.Nome,
		Perfil: claims.Perfil,
	}
	if claims.MunicipioID != nil {
		user.MunicipioID = claims.MunicipioID.String()
	}

	respondWithJSON(w, http.StatusOK, user)
}

func respondWithJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}
