package accounttest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal"
)

var photoFields = []string{"idPhotoFront", "idPhotoBack", "idPhotoExtra"}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.intercept(w, OpRegister) {
		return
	}

	var req goEnroll.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "There is no register data provided.")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "password hashing failed")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Username]; exists {
		s.mu.Unlock()
		writeMessage(w, http.StatusConflict, "Username already exists")
		return
	}
	if _, exists := s.emails[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		writeMessage(w, http.StatusConflict, "Email already exists")
		return
	}
	s.users[req.Username] = &User{
		ID:                 internal.NewRequestID(),
		Username:           req.Username,
		Email:              req.Email,
		PasswordHash:       hash,
		VerificationStatus: StatusPending,
	}
	s.emails[strings.ToLower(req.Email)] = req.Username
	s.mu.Unlock()

	s.logger.Debug("registered", "username", req.Username)
	writeText(w, http.StatusCreated, "Phase 1 registration completed. Please complete your profile.")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.intercept(w, OpLogin) {
		return
	}

	var req goEnroll.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid login payload")
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	var snapshot User
	if ok {
		snapshot = *u
	}
	s.mu.Unlock()

	if !ok || !s.passwordMatches(req.Password, snapshot.PasswordHash) {
		writeMessage(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	if !snapshot.ProfileCompleted {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"message":          "Please complete your profile registration before logging in.",
			"profileCompleted": false,
			"username":         snapshot.Username,
		})
		return
	}
	if !snapshot.IDVerified {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"message":              "Please complete ID verification before logging in.",
			"idVerified":           false,
			"idVerificationStatus": snapshot.VerificationStatus,
			"username":             snapshot.Username,
		})
		return
	}

	token, err := s.tokens.Issue(snapshot.Username, true)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	w.Header().Set("Jwt-Token", token)
	writeText(w, http.StatusOK, "Login Successfully!")
}

func (s *Server) passwordMatches(plain, hash string) bool {
	if hash == "" {
		return false
	}
	ok, err := s.hasher.Verify(plain, hash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "error", err)
		return false
	}
	return ok
}

func (s *Server) handleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	if s.intercept(w, OpCompleteProfile) {
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	markComplete := true
	if raw := r.URL.Query().Get("markAsComplete"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "markAsComplete must be a boolean")
			return
		}
		markComplete = parsed
	}

	var details goEnroll.ProfileDetails
	if err := decodeJSON(r, &details); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid profile payload")
		return
	}
	if markComplete {
		if v := details.Validate(goEnroll.DefaultConfig().Profile); v != nil {
			writeMessage(w, http.StatusBadRequest, v.Error())
			return
		}
	}

	s.mu.Lock()
	u, ok := s.users[username]
	if !ok {
		s.mu.Unlock()
		writeMessage(w, http.StatusNotFound, "User not found: "+username)
		return
	}
	u.Profile = mergeProfile(u.Profile, details)
	if markComplete {
		u.ProfileCompleted = true
		if u.Ticket == "" {
			u.Ticket = internal.NewRequestID() + internal.NewRequestID()
		}
	}
	ticket := u.Ticket
	s.mu.Unlock()

	if !markComplete {
		writeText(w, http.StatusOK, "Profile saved successfully.")
		return
	}
	writeJSON(w, http.StatusOK, goEnroll.CompleteProfileResponse{
		Message:  "Profile completed successfully. Please proceed to ID verification.",
		Ticket:   ticket,
		Username: username,
	})
}

func (s *Server) handleVerifyID(w http.ResponseWriter, r *http.Request) {
	if s.intercept(w, OpVerifyIdentity) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))

	if !s.limiter.Allow(OpVerifyIdentity, username) {
		writeMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		return
	}
	if !s.challengeAccepted(r.FormValue("recaptchaToken")) {
		writeMessage(w, http.StatusForbidden, "Bot detection failed. Please try again.")
		return
	}

	var received []string
	for _, field := range photoFields {
		f, _, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "unreadable "+field)
			return
		}
		f.Close()
		received = append(received, field)
	}
	if len(received) == 0 || received[0] != photoFields[0] {
		writeMessage(w, http.StatusBadRequest, "Front ID photo is required")
		return
	}

	ticket := r.FormValue("verificationToken")

	s.mu.Lock()
	u, ok := s.users[username]
	if !ok {
		s.mu.Unlock()
		writeMessage(w, http.StatusNotFound, "User not found: "+username)
		return
	}
	if ticket != "" && u.Ticket != ticket {
		s.mu.Unlock()
		writeMessage(w, http.StatusBadRequest, "Invalid verification token")
		return
	}
	u.Documents = received
	if ticket != "" {
		u.TicketPresented = true
	}
	if s.cfg.AutoApprove {
		u.IDVerified = true
		u.VerificationStatus = StatusApproved
	} else {
		u.VerificationStatus = StatusPending
	}
	status := u.VerificationStatus
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, goEnroll.VerifyIdentityResponse{
		Status:  status,
		Message: "ID received (" + strconv.Itoa(len(received)) + " photo(s))",
	})
}

func (s *Server) challengeAccepted(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.cfg.ChallengeOptional
	}
	if s.cfg.ValidChallenge == nil {
		return true
	}
	return s.cfg.ValidChallenge(token)
}

// mergeProfile overlays the non-empty fields of next onto prev, so drafts
// accumulate.
func mergeProfile(prev, next goEnroll.ProfileDetails) goEnroll.ProfileDetails {
	pick := func(a, b string) string {
		if strings.TrimSpace(b) != "" {
			return b
		}
		return a
	}
	out := goEnroll.ProfileDetails{
		FirstName:   pick(prev.FirstName, next.FirstName),
		LastName:    pick(prev.LastName, next.LastName),
		MiddleName:  pick(prev.MiddleName, next.MiddleName),
		NickName:    pick(prev.NickName, next.NickName),
		Address:     pick(prev.Address, next.Address),
		Phone:       pick(prev.Phone, next.Phone),
		Email:       pick(prev.Email, next.Email),
		BirthDate:   pick(prev.BirthDate, next.BirthDate),
		Country:     pick(prev.Country, next.Country),
		City:        pick(prev.City, next.City),
		CivilStatus: pick(prev.CivilStatus, next.CivilStatus),
		Hobby:       pick(prev.Hobby, next.Hobby),
		Age:         prev.Age,
	}
	if next.Age != 0 {
		out.Age = next.Age
	}
	return out
}
