package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"chatroom-api/internal/storage"
)

// TODO limit reading from body

type parsers struct {
	joinPool    fastjson.ParserPool
	messagePool fastjson.ParserPool
}

type handler struct {
	logger   *zap.SugaredLogger
	store    *storage.Store
	validate *validator.Validate
	parsers  parsers
}

// participants dispatches HTTP requests on the "/participants" endpoint
func (h *handler) participants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.joinParticipant(w, r)
	case http.MethodGet:
		h.listParticipants(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// messages dispatches HTTP requests on the "/messages" endpoint
func (h *handler) messages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createMessage(w, r)
	case http.MethodGet:
		h.listMessages(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// joinParticipant handles POST requests on "/participants"
func (h *handler) joinParticipant(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}

	parser := h.parsers.joinPool.Get()
	defer h.parsers.joinPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	fr := newFieldReader(v)
	req := joinRequest{Name: fr.String("name")}

	if violations := fr.Violations(h.validate, req); len(violations) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, violations)
		return
	}

	err := h.store.CreateParticipant(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, storage.ErrParticipantExists) {
			http.Error(w, "Participant already exists", http.StatusConflict)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// listParticipants handles GET requests on "/participants"
func (h *handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.store.Participants(r.Context())
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, participants)
}

// createMessage handles POST requests on "/messages"
// The sender identity comes from the "user" header and must name an active
// participant before anything is validated or written.
func (h *handler) createMessage(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get("user")
	if !h.requireParticipant(w, r, user) {
		return
	}

	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}

	parser := h.parsers.messagePool.Get()
	defer h.parsers.messagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	fr := newFieldReader(v)
	req := messageRequest{
		To:   fr.String("to"),
		Text: fr.String("text"),
		Type: fr.String("type"),
	}

	if violations := fr.Violations(h.validate, req); len(violations) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, violations)
		return
	}

	id, err := h.store.CreateMessage(r.Context(), user, req.To, req.Text, req.Type)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	payload := []byte(`{"id":` + strconv.FormatInt(id, 10) + `}`)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, err = w.Write(payload)
	if err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

// listMessages handles GET requests on "/messages"
func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get("user")
	if !h.requireParticipant(w, r, user) {
		return
	}

	limit := 0
	if raw, present := r.URL.Query()["limit"]; present {
		n, err := strconv.Atoi(raw[0])
		if err != nil || n <= 0 {
			h.writeJSON(w, http.StatusUnprocessableEntity, []string{`"limit" must be a positive integer`})
			return
		}
		limit = n
	}

	messages, err := h.store.MessagesFor(r.Context(), user, limit)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, messages)
}

// heartbeat handles HTTP requests on the "/status" endpoint
func (h *handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	user := r.Header.Get("user")
	err := h.store.Heartbeat(r.Context(), user)
	if err != nil {
		if errors.Is(err, storage.ErrParticipantNotExist) {
			http.Error(w, "Participant not found", http.StatusNotFound)
			return
		}
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// requireParticipant writes a 404 (or 500) response and reports false
// when name does not identify an active participant
func (h *handler) requireParticipant(w http.ResponseWriter, r *http.Request, name string) bool {
	err := h.store.ParticipantExists(r.Context(), name)
	if err == nil {
		return true
	}

	if errors.Is(err, storage.ErrParticipantNotExist) {
		http.Error(w, "Participant not found", http.StatusNotFound)
		return false
	}

	h.logger.Error(err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	return false
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	if err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}
