package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/middleware"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a single JSON object from the request body.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", kidsAuth.ErrBadRequest)
		}
		return fmt.Errorf("%w: request body is not valid JSON", kidsAuth.ErrBadRequest)
	}
	return nil
}

// identity returns the Guard-attached caller. Guarded routes always have one.
func identity(r *http.Request) (*kidsAuth.Identity, error) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return nil, kidsAuth.ErrUnauthorized
	}
	return id, nil
}

func (a *api) register(w http.ResponseWriter, r *http.Request) {
	var req kidsAuth.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	summary, err := a.engine.Register(r.Context(), req)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (a *api) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.VerifyEmail(r.Context(), mux.Vars(r)["token"]); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Email verified successfully."})
}

func (a *api) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if err := a.engine.ResendVerification(r.Context(), req.Email); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, messageBody{
		Message: "If the account is awaiting verification, a new link has been sent.",
	})
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req kidsAuth.LoginRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	res, err := a.engine.Login(r.Context(), req)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if res.Session != nil {
		writeJSON(w, http.StatusOK, res.Session)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
		Code      string `json:"code"`
	}
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	session, err := a.engine.VerifyTwoFactor(r.Context(), req.AccountID, req.Code)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *api) googleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	session, err := a.engine.FederatedLogin(r.Context(), req.IDToken)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *api) googleRegister(w http.ResponseWriter, r *http.Request) {
	var req kidsAuth.FederatedRegisterRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	session, err := a.engine.RegisterFederated(r.Context(), req)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type pinBody struct {
	PIN string `json:"pin"`
}

func (a *api) validateAccountPIN(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	var req pinBody
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if err := a.engine.ValidateAccountPIN(r.Context(), caller.AccountID, req.PIN); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "PIN is valid"})
}

func (a *api) updateAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	var req kidsAuth.UpdateAccountRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	summary, err := a.engine.UpdateAccount(r.Context(), caller.AccountID, req)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) listProfiles(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	profiles, err := a.engine.ListProfiles(r.Context(), caller.AccountID)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (a *api) createProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	var req kidsAuth.CreateProfileRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	profile, err := a.engine.CreateProfile(r.Context(), caller.AccountID, req)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (a *api) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		a.writeError(r.Context(), w, kidsAuth.ErrProfileNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile.View())
}

func (a *api) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	var req kidsAuth.UpdateProfileRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	profile, err := a.engine.UpdateProfile(r.Context(), caller.AccountID, mux.Vars(r)[middleware.ProfileParam], req)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *api) deleteProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if err := a.engine.DeleteProfile(r.Context(), caller.AccountID, mux.Vars(r)[middleware.ProfileParam]); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Profile deleted"})
}

func (a *api) validateProfilePIN(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	var req pinBody
	if err := decode(w, r, &req); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	err = a.engine.ValidateProfilePIN(r.Context(), caller.AccountID, mux.Vars(r)[middleware.ProfileParam], req.PIN)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "PIN is valid"})
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			a.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
