package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/logging"
	"github.com/dmitrijs2005/anonrelay/internal/sentiment"
	sc "github.com/dmitrijs2005/anonrelay/internal/server/config"
	"github.com/dmitrijs2005/anonrelay/internal/server/delivery"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/messages"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
)

// ConversationEvent is one inbound event from a front-end adapter: a user
// sent a message addressed by public code or by reply token.
type ConversationEvent struct {
	ExternalUserID string
	DisplayName    string
	Text           string
	Media          *models.MediaRef

	// Exactly one of TargetCode / ReplyToken addresses the message.
	TargetCode string
	ReplyToken string

	// ReplyToID optionally links the message to the one it answers, for
	// threading under the original publication.
	ReplyToID *int64
}

// Outcome classifies what happened to a conversation event.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomePublished   Outcome = "published"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeBlocked     Outcome = "blocked"
	OutcomeAutoBlocked Outcome = "auto_blocked"
	OutcomeFailed      Outcome = "failed"
)

// EventResult is the processed outcome returned to the front-end adapter.
type EventResult struct {
	Outcome      Outcome
	MessageID    int64
	Count        int
	Limit        int
	BlockedUntil *time.Time
	Reason       string
}

// Link target kinds returned by ResolveLink.
const (
	LinkPlain = "plain"
	LinkUser  = "user"
	LinkReply = "reply"
)

// LinkTarget tells a front-end what a deep-link payload means: arm a reply,
// arm a message to a user, or fall back to a plain start.
type LinkTarget struct {
	Kind        string
	TargetCode  string
	DisplayName string
	ReplyToken  string
}

// RelayService owns the message pipeline: accepting conversation events,
// the pending -> approved/rejected state machine, anonymous delivery and
// read receipts.
type RelayService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger

	classifier *sentiment.Classifier
	identity   *IdentityService
	tokens     *ReplyTokenService
	limiter    *RateLimitService
	audit      *AuditService
	media      *MediaService
	deliverer  delivery.Deliverer
}

func NewRelayService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, l logging.Logger,
	classifier *sentiment.Classifier, identity *IdentityService, tokens *ReplyTokenService,
	limiter *RateLimitService, audit *AuditService, media *MediaService, d delivery.Deliverer) *RelayService {
	return &RelayService{
		db:          db,
		repomanager: m,
		config:      cfg,
		logger:      l.With("module", "relay"),
		classifier:  classifier,
		identity:    identity,
		tokens:      tokens,
		limiter:     limiter,
		audit:       audit,
		media:       media,
		deliverer:   d,
	}
}

func (s *RelayService) isAdmin(u *models.User) bool {
	return s.config.AdminExternalID != "" && u.ExternalID == s.config.AdminExternalID
}

// ProcessEvent runs one conversation event through the full pipeline:
// identity resolution, target resolution, rate limiting, classification and
// persistence. Malformed events return a common.ErrValidation wrap; every
// other failure is folded into the result outcome.
func (s *RelayService) ProcessEvent(ctx context.Context, ev *ConversationEvent) (*EventResult, error) {
	res, err := s.processEvent(ctx, ev)
	if err == nil {
		eventsProcessed.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res, err
}

func (s *RelayService) processEvent(ctx context.Context, ev *ConversationEvent) (*EventResult, error) {
	if ev.ExternalUserID == "" {
		return nil, fmt.Errorf("%w: missing sender identity", common.ErrValidation)
	}
	if ev.Text == "" && ev.Media == nil {
		return nil, fmt.Errorf("%w: empty message", common.ErrValidation)
	}
	if ev.Media != nil {
		if _, err := models.ParseMediaKind(string(ev.Media.Kind)); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		if ev.Media.FileRef == "" {
			return nil, fmt.Errorf("%w: media without file reference", common.ErrValidation)
		}
	}

	sender, err := s.identity.GetOrCreate(ctx, ev.ExternalUserID, ev.DisplayName)
	if err != nil {
		s.logger.Error(ctx, "error resolving sender", "error", err)
		return &EventResult{Outcome: OutcomeFailed, Reason: "identity"}, nil
	}

	receiverID, err := s.resolveTarget(ctx, ev, sender)
	if err != nil {
		return nil, err
	}

	if !s.isAdmin(sender) {
		if _, err := s.limiter.Check(ctx, sender.ID); err != nil {
			return s.denyResult(err)
		}
	}

	msg, err := s.Create(ctx, sender.ID, receiverID, ev.Text, ev.Media, ev.ReplyToID)
	if err != nil {
		s.logger.Error(ctx, "error creating message", "error", err)
		return &EventResult{Outcome: OutcomeFailed, Reason: "persistence"}, nil
	}

	if msg.Status == models.StatusApproved {
		// Moderation disabled: straight through to publication.
		s.publishAndDeliver(ctx, msg)
		return &EventResult{Outcome: OutcomePublished, MessageID: msg.ID}, nil
	}

	s.notifyModerators(ctx, sender, msg)
	return &EventResult{Outcome: OutcomeAccepted, MessageID: msg.ID}, nil
}

func (s *RelayService) resolveTarget(ctx context.Context, ev *ConversationEvent, sender *models.User) (int64, error) {
	switch {
	case ev.ReplyToken != "":
		token, err := s.tokens.Resolve(ctx, ev.ReplyToken)
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) {
				return 0, fmt.Errorf("%w: unknown reply token", common.ErrValidation)
			}
			return 0, err
		}
		// The answer goes back to whoever sent the original message.
		return token.SenderID, nil

	case ev.TargetCode != "":
		target, err := s.identity.LookupByCode(ctx, ev.TargetCode)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return 0, fmt.Errorf("%w: unknown code", common.ErrValidation)
			}
			return 0, err
		}
		if target.ID == sender.ID && !s.isAdmin(sender) {
			return 0, fmt.Errorf("%w: cannot message yourself", common.ErrValidation)
		}
		return target.ID, nil

	default:
		return 0, fmt.Errorf("%w: no target", common.ErrValidation)
	}
}

func (s *RelayService) denyResult(err error) (*EventResult, error) {
	var rl *common.RateLimitedError
	var bl *common.BlockedError
	var ab *common.AutoBlockedError
	switch {
	case errors.As(err, &ab):
		return &EventResult{Outcome: OutcomeAutoBlocked, Count: ab.Count, BlockedUntil: &ab.Until}, nil
	case errors.As(err, &bl):
		return &EventResult{Outcome: OutcomeBlocked, BlockedUntil: &bl.Until}, nil
	case errors.As(err, &rl):
		return &EventResult{Outcome: OutcomeRateLimited, Count: rl.Count, Limit: rl.Limit}, nil
	default:
		return &EventResult{Outcome: OutcomeFailed, Reason: "rate limiter"}, nil
	}
}

// Create classifies and persists a message. The stored sentiment and urgency
// never change afterwards; urgent messages raise an operator alert on the
// way through.
func (s *RelayService) Create(ctx context.Context, senderID, receiverID int64, text string,
	media *models.MediaRef, replyToID *int64) (*models.Message, error) {

	classified := text
	if classified == "" && media != nil {
		classified = media.Caption
	}
	result := s.classifier.Classify(classified)

	status := models.StatusPending
	if !s.config.ModerationEnabled {
		status = models.StatusApproved
	}

	msg, err := s.repomanager.Messages(s.db).Create(ctx, &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    text,
		Media:      media,
		Status:     status,
		ReplyToID:  replyToID,
		Sentiment:  result.Sentiment,
		Urgent:     result.Urgent,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating message: %v", err)
	}
	messagesClassified.WithLabelValues(result.Sentiment).Inc()

	if result.Urgent {
		s.audit.Alert(ctx, models.AlertUrgent, &senderID,
			fmt.Sprintf("message #%d: %s", msg.ID, excerpt(msg.Text())))
		s.audit.NotifyAdmin(ctx, fmt.Sprintf("urgent message #%d: %s", msg.ID, excerpt(msg.Text())))
	}
	return msg, nil
}

// Transition applies a moderator decision. The pending -> approved/rejected
// step is a single atomic check-and-set; a second decision on the same
// message returns common.ErrAlreadyProcessed.
func (s *RelayService) Transition(ctx context.Context, messageID, moderatorID int64, action string) error {
	var to models.MessageStatus
	switch action {
	case models.ModActionApprove:
		to = models.StatusApproved
	case models.ModActionReject:
		to = models.StatusRejected
	default:
		return fmt.Errorf("%w: unknown action %q", common.ErrValidation, action)
	}

	repo := s.repomanager.Messages(s.db)
	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	applied, err := repo.TransitionStatus(ctx, messageID, models.StatusPending, to)
	if err != nil {
		return fmt.Errorf("error transitioning message: %v", err)
	}
	if !applied {
		return common.ErrAlreadyProcessed
	}
	msg.Status = to

	s.audit.LogModAction(ctx, &models.ModLogEntry{
		ModeratorID: moderatorID,
		Action:      action,
		MessageID:   &messageID,
	})

	if to == models.StatusApproved {
		s.publishAndDeliver(ctx, msg)
		s.notifySender(ctx, msg.SenderID, "Your anonymous message was approved and delivered.")
	} else {
		s.notifySender(ctx, msg.SenderID, "Your anonymous message was rejected by the moderators.")
	}
	return nil
}

// publishAndDeliver pushes an approved message out. Delivery problems are
// logged, never surfaced: the moderation decision already happened.
func (s *RelayService) publishAndDeliver(ctx context.Context, msg *models.Message) {
	s.publish(ctx, msg)
	if err := s.DeliverAnonymous(ctx, msg); err != nil {
		s.logger.Error(ctx, "error delivering message", "message_id", msg.ID, "error", err)
	}
}

// publish posts the message to the public channel, when one is configured,
// threading replies under the original publication.
func (s *RelayService) publish(ctx context.Context, msg *models.Message) {
	if s.config.ChannelExternalID == "" {
		return
	}

	content := s.outboundContent(ctx, msg)
	if msg.ReplyToID != nil {
		orig, err := s.repomanager.Messages(s.db).GetByID(ctx, *msg.ReplyToID)
		if err == nil && orig.PublishedRef != "" {
			content.ThreadRef = orig.PublishedRef
		}
	}

	ref, err := s.deliver(ctx, s.config.ChannelExternalID, content)
	if err != nil {
		s.logger.Error(ctx, "error publishing message", "message_id", msg.ID, "error", err)
		return
	}
	if ref == "" {
		return
	}
	if err := s.repomanager.Messages(s.db).SetPublishedRef(ctx, msg.ID, ref); err != nil {
		s.logger.Error(ctx, "error storing published ref", "message_id", msg.ID, "error", err)
		return
	}
	msg.PublishedRef = ref
}

// DeliverAnonymous hands the message to its receiver together with a fresh
// reply token, so the answer can be routed back without exposing either
// identity.
func (s *RelayService) DeliverAnonymous(ctx context.Context, msg *models.Message) error {
	receiver, err := s.identity.GetByID(ctx, msg.ReceiverID)
	if err != nil {
		return fmt.Errorf("error resolving receiver: %v", err)
	}

	hash, err := s.tokens.Issue(ctx, msg.SenderID, msg.ReceiverID)
	if err != nil {
		return err
	}

	content := s.outboundContent(ctx, msg)
	content.DeepLink = delivery.ReplyPayload(hash)

	if _, err := s.deliver(ctx, receiver.ExternalID, content); err != nil {
		return err
	}
	return nil
}

// MarkRead records the first read of a delivered message and sends the
// sender an anonymous read receipt. Repeat calls are no-ops.
func (s *RelayService) MarkRead(ctx context.Context, messageID int64) error {
	repo := s.repomanager.Messages(s.db)

	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	first, err := repo.MarkRead(ctx, messageID, time.Now())
	if err != nil {
		return fmt.Errorf("error marking message read: %v", err)
	}
	if !first {
		return nil
	}

	// A receipt is only worth sending when a reply path between the pair
	// exists, i.e. the message actually reached the receiver.
	if _, err := s.tokens.FindForPair(ctx, msg.SenderID, msg.ReceiverID); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "error looking up reply token", "message_id", messageID, "error", err)
		}
		return nil
	}

	s.notifySender(ctx, msg.SenderID, "Your anonymous message was read.")
	return nil
}

// ResolveLink interprets a deep-link payload on a conversation start.
// Unrecognized payloads fall back to a plain start rather than erroring.
func (s *RelayService) ResolveLink(ctx context.Context, payload string) (*LinkTarget, error) {
	code, replyHash := delivery.ParsePayload(payload)
	switch {
	case replyHash != "":
		if _, err := s.tokens.Resolve(ctx, replyHash); err != nil {
			if errors.Is(err, common.ErrInvalidToken) {
				return &LinkTarget{Kind: LinkPlain}, nil
			}
			return nil, err
		}
		return &LinkTarget{Kind: LinkReply, ReplyToken: replyHash}, nil

	case code != "":
		target, err := s.identity.LookupByCode(ctx, code)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return &LinkTarget{Kind: LinkPlain}, nil
			}
			return nil, err
		}
		return &LinkTarget{Kind: LinkUser, TargetCode: target.Code, DisplayName: target.DisplayName}, nil

	default:
		return &LinkTarget{Kind: LinkPlain}, nil
	}
}

func (s *RelayService) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	return s.repomanager.Messages(s.db).GetByID(ctx, id)
}

// Inbox lists messages delivered to the user, newest first.
func (s *RelayService) Inbox(ctx context.Context, receiverID int64, limit, offset int) ([]*models.Message, error) {
	return s.repomanager.Messages(s.db).ListInbox(ctx, receiverID, limit, offset)
}

func (s *RelayService) UserStats(ctx context.Context, userID int64) (*messages.Stats, error) {
	return s.repomanager.Messages(s.db).UserStats(ctx, userID)
}

func (s *RelayService) UrgentPending(ctx context.Context) ([]*models.Message, error) {
	return s.repomanager.Messages(s.db).ListUrgentPending(ctx)
}

func (s *RelayService) PendingCount(ctx context.Context) (int, error) {
	return s.repomanager.Messages(s.db).CountByStatus(ctx, models.StatusPending)
}

func (s *RelayService) deliver(ctx context.Context, target string, content delivery.Content) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.DeliveryTimeout)
	defer cancel()

	ref, err := s.deliverer.Deliver(ctx, target, content)
	if err != nil {
		deliveryAttempts.WithLabelValues("error").Inc()
		return "", err
	}
	deliveryAttempts.WithLabelValues("ok").Inc()
	return ref, nil
}

func (s *RelayService) outboundContent(ctx context.Context, msg *models.Message) delivery.Content {
	content := delivery.Content{Text: msg.Content, Media: msg.Media}
	if msg.Media != nil && s.media != nil {
		url, err := s.media.GetPresignedGetUrl(ctx, msg.Media.FileRef)
		if err != nil {
			s.logger.Warn(ctx, "error presigning media url", "message_id", msg.ID, "error", err)
		} else {
			content.MediaURL = url
		}
	}
	return content
}

func (s *RelayService) notifySender(ctx context.Context, senderID int64, text string) {
	sender, err := s.identity.GetByID(ctx, senderID)
	if err != nil {
		s.logger.Error(ctx, "error resolving sender for notification", "user_id", senderID, "error", err)
		return
	}
	if _, err := s.deliver(ctx, sender.ExternalID, delivery.Content{Text: text}); err != nil {
		s.logger.Warn(ctx, "error notifying sender", "user_id", senderID, "error", err)
	}
}

func (s *RelayService) notifyModerators(ctx context.Context, sender *models.User, msg *models.Message) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sentToday, err := s.repomanager.Messages(s.db).CountSentSince(ctx, sender.ID, dayStart)
	if err != nil {
		s.logger.Warn(ctx, "error counting sender traffic", "user_id", sender.ID, "error", err)
	}

	s.audit.NotifyAdmin(ctx, fmt.Sprintf("new pending message #%d (sentiment %s, %d from this sender today): %s",
		msg.ID, msg.Sentiment, sentToday, excerpt(msg.Text())))
}

// excerpt shortens text for alerts and operator notifications.
func excerpt(text string) string {
	const max = 100
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
