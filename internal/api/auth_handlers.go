package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/zennify/zennify/internal/domain"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Identity  domain.Identity      `json:"identity"`
	Progress  *domain.UserProgress `json:"progress,omitempty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sess, err := s.Identity.SignUp(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp := sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Identity: sess.Identity}
	if p, err := s.Progress.Get(r.Context(), sess.Identity.UserID); err == nil {
		resp.Progress = p
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sess, err := s.Identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Identity: sess.Identity})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.Identity.SignOut(r.Context(), bearerToken(r)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAuthState streams the caller's auth state until sign-out.
func (s *Server) handleAuthState(w http.ResponseWriter, r *http.Request) {
	flusher, ok := startStream(w)
	if !ok {
		return
	}
	ctx, cancel := s.streamContext(r)
	defer cancel()
	states := s.Identity.Watch(ctx, identityFrom(ctx))

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writePing(w, flusher)
		case st, ok := <-states:
			if !ok {
				return
			}
			raw, err := json.Marshal(st)
			if err != nil {
				continue
			}
			writeEvent(w, flusher, "auth_state", raw)
			if st.Identity == nil && s.sessionEnded(r) {
				return
			}
		}
	}
}

// sessionEnded reports whether the stream's own token no longer
// authenticates.
func (s *Server) sessionEnded(r *http.Request) bool {
	_, err := s.Identity.Authenticate(r.Context(), tokenFrom(r.Context()))
	return err != nil
}
