package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/server/auth"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
	"github.com/dmitrijs2005/anonrelay/internal/server/services"
)

type mediaJSON struct {
	Kind    string `json:"kind"`
	FileRef string `json:"file_ref"`
	Caption string `json:"caption,omitempty"`
}

type messageJSON struct {
	ID           int64      `json:"id"`
	SenderID     int64      `json:"sender_id"`
	ReceiverID   int64      `json:"receiver_id"`
	Content      string     `json:"content,omitempty"`
	Media        *mediaJSON `json:"media,omitempty"`
	Status       string     `json:"status"`
	IsRead       bool       `json:"is_read"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	ReplyToID    *int64     `json:"reply_to_id,omitempty"`
	PublishedRef string     `json:"published_ref,omitempty"`
	Sentiment    string     `json:"sentiment"`
	Urgent       bool       `json:"urgent"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toMessageJSON(m *models.Message) *messageJSON {
	out := &messageJSON{
		ID:           m.ID,
		SenderID:     m.SenderID,
		ReceiverID:   m.ReceiverID,
		Content:      m.Content,
		Status:       string(m.Status),
		IsRead:       m.IsRead,
		ReadAt:       m.ReadAt,
		ReplyToID:    m.ReplyToID,
		PublishedRef: m.PublishedRef,
		Sentiment:    m.Sentiment,
		Urgent:       m.Urgent,
		CreatedAt:    m.CreatedAt,
	}
	if m.Media != nil {
		out.Media = &mediaJSON{Kind: string(m.Media.Kind), FileRef: m.Media.FileRef, Caption: m.Media.Caption}
	}
	return out
}

func toMessagesJSON(msgs []*models.Message) []*messageJSON {
	out := make([]*messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageJSON(m))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid token")
	case errors.Is(err, common.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "already processed")
	default:
		s.logger.Error(r.Context(), "internal error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// issueToken exchanges the shared secret for a service JWT. This is the
// bootstrap for front-end adapters; everything else requires the JWT.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		Secret   string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ClientID == "" || req.Secret != s.config.SecretKey {
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}

	token, err := auth.GenerateToken(req.ClientID, []byte(s.config.SecretKey), s.config.ServiceTokenValidityDuration)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type eventRequest struct {
	ExternalUserID string     `json:"external_user_id"`
	DisplayName    string     `json:"display_name"`
	Text           string     `json:"text"`
	Media          *mediaJSON `json:"media"`
	TargetCode     string     `json:"target_code"`
	ReplyToken     string     `json:"reply_token"`
	ReplyToID      *int64     `json:"reply_to_id"`
}

type eventResponse struct {
	Outcome      string     `json:"outcome"`
	MessageID    int64      `json:"message_id,omitempty"`
	Count        int        `json:"count,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

func (s *Server) processEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ev := &services.ConversationEvent{
		ExternalUserID: req.ExternalUserID,
		DisplayName:    req.DisplayName,
		Text:           req.Text,
		TargetCode:     req.TargetCode,
		ReplyToken:     req.ReplyToken,
		ReplyToID:      req.ReplyToID,
	}
	if req.Media != nil {
		ev.Media = &models.MediaRef{
			Kind:    models.MediaKind(req.Media.Kind),
			FileRef: req.Media.FileRef,
			Caption: req.Media.Caption,
		}
	}

	result, err := s.relay.ProcessEvent(r.Context(), ev)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Outcome:      string(result.Outcome),
		MessageID:    result.MessageID,
		Count:        result.Count,
		Limit:        result.Limit,
		BlockedUntil: result.BlockedUntil,
		Reason:       result.Reason,
	})
}

func (s *Server) resolveLink(w http.ResponseWriter, r *http.Request) {
	target, err := s.relay.ResolveLink(r.Context(), mux.Vars(r)["payload"])
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"kind":         target.Kind,
		"target_code":  target.TargetCode,
		"display_name": target.DisplayName,
		"reply_token":  target.ReplyToken,
	})
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	msg, err := s.relay.GetMessage(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageJSON(msg))
}

type moderationRequest struct {
	ModeratorID int64 `json:"moderator_id"`
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, action string) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req moderationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.relay.Transition(r.Context(), id, req.ModeratorID, action); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) approveMessage(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, models.ModActionApprove)
}

func (s *Server) rejectMessage(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, models.ModActionReject)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.relay.MarkRead(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) pendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.relay.PendingCount(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending": count})
}

func (s *Server) urgentPending(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.relay.UrgentPending(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessagesJSON(msgs))
}

func queryInt(r *http.Request, name, def string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		v = def
	}
	return strconv.Atoi(v)
}

func (s *Server) inbox(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity.GetOrCreate(r.Context(), mux.Vars(r)["externalID"], "")
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit", "20")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", "0")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	msgs, err := s.relay.Inbox(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":     user.Code,
		"messages": toMessagesJSON(msgs),
	})
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity.GetOrCreate(r.Context(), mux.Vars(r)["externalID"], "")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	stats, err := s.relay.UserStats(r.Context(), user.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":     user.Code,
		"sent":     stats.Sent,
		"received": stats.Received,
	})
}

func (s *Server) presignUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.media.GetPresignedPutUrl(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

func (s *Server) blockUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		ModeratorID int64  `json:"moderator_id"`
		Duration    string `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	d := 24 * time.Hour
	if req.Duration != "" {
		parsed, err := time.ParseDuration(req.Duration)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid duration")
			return
		}
		d = parsed
	}
	if err := s.audit.BlockUser(r.Context(), req.ModeratorID, id, d); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) unblockUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req moderationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.audit.UnblockUser(r.Context(), req.ModeratorID, id); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.audit.ListAlerts(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	type alertJSON struct {
		ID        int64     `json:"id"`
		Type      string    `json:"type"`
		UserID    *int64    `json:"user_id,omitempty"`
		Details   string    `json:"details"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]alertJSON, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertJSON{ID: a.ID, Type: a.Type, UserID: a.UserID, Details: a.Details, CreatedAt: a.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.audit.ResolveAlert(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) modLog(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", "50")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	entries, err := s.audit.ModLog(r.Context(), limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	type entryJSON struct {
		ID           int64     `json:"id"`
		ModeratorID  int64     `json:"moderator_id"`
		Action       string    `json:"action"`
		MessageID    *int64    `json:"message_id,omitempty"`
		TargetUserID *int64    `json:"target_user_id,omitempty"`
		Details      string    `json:"details,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			ID: e.ID, ModeratorID: e.ModeratorID, Action: e.Action,
			MessageID: e.MessageID, TargetUserID: e.TargetUserID,
			Details: e.Details, CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) analyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analytics.Summary(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":          summary.Total,
		"today":          summary.Today,
		"week":           summary.Week,
		"pending":        summary.Pending,
		"urgent_pending": summary.UrgentPending,
		"sentiments":     summary.Sentiments,
		"peak_hour":      summary.PeakHour,
	})
}

func (s *Server) analyticsDays(r *http.Request) (int, error) {
	return queryInt(r, "days", "7")
}

func (s *Server) analyticsHourly(w http.ResponseWriter, r *http.Request) {
	days, err := s.analyticsDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days")
		return
	}
	hours, err := s.analytics.Hourly(r.Context(), days)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hours": hours})
}

func (s *Server) analyticsDaily(w http.ResponseWriter, r *http.Request) {
	days, err := s.analyticsDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days")
		return
	}
	daily, err := s.analytics.Daily(r.Context(), days)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	type dayJSON struct {
		Day   string `json:"day"`
		Count int    `json:"count"`
	}
	out := make([]dayJSON, 0, len(daily))
	for _, d := range daily {
		out = append(out, dayJSON{Day: d.Day, Count: d.Count})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) analyticsHeatmap(w http.ResponseWriter, r *http.Request) {
	days, err := s.analyticsDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid days")
		return
	}
	matrix, err := s.analytics.Heatmap(r.Context(), days)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matrix": matrix})
}

func (s *Server) analyticsSentiments(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.Sentiments(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
