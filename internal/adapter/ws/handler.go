package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/codesage-ai/interview-server/internal/adapter/auth"
	"github.com/codesage-ai/interview-server/internal/domain"
	"github.com/codesage-ai/interview-server/internal/usecase"
)

// Handler owns the websocket endpoints. One connection carries one session
// from init to termination.
type Handler struct {
	hub          *Hub
	verifier     *auth.Verifier
	conversation *usecase.ConversationService
	technical    *usecase.TechnicalService
	coordinator  *usecase.CompletionCoordinator
	repo         domain.SessionRepository
	resumes      domain.ResumeStore
	transcriber  domain.Transcriber

	upgrader websocket.Upgrader
}

func NewHandler(
	hub *Hub,
	verifier *auth.Verifier,
	conversation *usecase.ConversationService,
	technical *usecase.TechnicalService,
	coordinator *usecase.CompletionCoordinator,
	repo domain.SessionRepository,
	resumes domain.ResumeStore,
	transcriber domain.Transcriber,
	allowedOrigins []string,
) *Handler {
	return &Handler{
		hub:          hub,
		verifier:     verifier,
		conversation: conversation,
		technical:    technical,
		coordinator:  coordinator,
		repo:         repo,
		resumes:      resumes,
		transcriber:  transcriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeInterview handles topic-based and resume-based sessions.
func (h *Handler) ServeInterview(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// ServeTechnical handles coding sessions.
func (h *Handler) ServeTechnical(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, technical bool) {
	userID, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := NewClient(conn)
	defer client.Close()

	live, ok := h.initSession(conn, client, userID, technical)
	if !ok {
		return
	}
	defer h.hub.Delete(live.Session.ID)

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			h.onDisconnect(live)
			return
		}
		if err := msg.Validate(); err != nil {
			client.Send(errorFrame(err.Error()))
			continue
		}

		var closeConn bool
		live.WithLock(func(sess *domain.InterviewSession) {
			if sess.Ended {
				client.Send(errorFrame("session already ended"))
				closeConn = true
				return
			}
			if technical {
				closeConn = h.dispatchTechnical(sess, client, msg)
			} else {
				closeConn = h.dispatchConversational(sess, client, msg)
			}
		})
		if closeConn {
			return
		}
	}
}

// initSession reads frames until a valid init arrives, then registers the
// session and sends the opening frames.
func (h *Handler) initSession(conn *websocket.Conn, client *Client, userID string, technical bool) (*LiveSession, bool) {
	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, false
		}
		if err := msg.Validate(); err != nil {
			client.Send(errorFrame(err.Error()))
			continue
		}
		if msg.Type != "init" && msg.Type != "init_technical" {
			client.Send(errorFrame("expected init"))
			continue
		}

		mode := domain.Mode(msg.Mode)
		if technical != (mode == domain.ModeTechnical) {
			client.Send(errorFrame("mode does not match endpoint"))
			continue
		}

		var resumeText string
		if mode == domain.ModeResume {
			if msg.ResumeID == "" {
				client.Send(errorFrame("resume_id is required for resume mode"))
				continue
			}
			text, err := h.resumes.Get(context.Background(), msg.ResumeID)
			if err != nil {
				client.Send(errorFrame("resume not found or expired"))
				continue
			}
			resumeText = text
		}

		now := time.Now()
		sess := usecase.StartSession(context.Background(), h.repo, uuid.New().String(), userID, mode, msg.Topics, now)
		sess.ResumeID = msg.ResumeID
		sess.ResumeText = resumeText

		live := &LiveSession{Session: sess, Client: client}
		h.hub.Put(sess.ID, live)
		client.Send(readyFrame(sess.ID))

		if technical {
			client.Send(initializingFrame())
			go h.generateQuestions(live)
		} else {
			live.WithLock(func(s *domain.InterviewSession) {
				s.QuestionsReady = true
				opening := h.conversation.Begin(s)
				client.Send(questionFrame(domain.Question{Text: opening}, 1, 0))
			})
		}
		return live, true
	}
}

// generateQuestions fills the technical batch in the background. The slow
// generation runs outside the session lock so the read loop stays
// responsive; submissions before the batch is installed are rejected by
// the questions-ready guard. The first question is pushed once ready.
func (h *Handler) generateQuestions(live *LiveSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var topics []string
	ended := false
	live.WithLock(func(s *domain.InterviewSession) {
		ended = s.Ended
		topics = append([]string(nil), s.Topics...)
	})
	if ended {
		return
	}

	qs := h.technical.BuildQuestions(ctx, topics)

	live.WithLock(func(s *domain.InterviewSession) {
		if s.Ended {
			return
		}
		h.technical.InstallQuestions(s, qs)
		if q, ok := s.CurrentQuestion(); ok {
			live.Client.Send(questionFrame(q, 1, len(s.Questions)))
		}
		slog.Debug("question batch ready", slog.String("session_id", s.ID))
	})
}

func (h *Handler) dispatchConversational(sess *domain.InterviewSession, client *Client, msg Inbound) (closeConn bool) {
	ctx := context.Background()
	switch msg.Type {
	case "answer", "code_submission":
		text := msg.Text
		if msg.Type == "code_submission" {
			text = msg.Code
		}
		res := h.conversation.Answer(ctx, sess, text, time.Now())
		client.Send(assessmentFrame(res.Turn))
		if res.Completed {
			h.complete(sess, client, domain.CompletedAutomatic)
			return true
		}
		client.Send(questionFrame(domain.Question{Text: res.Turn.NextQuestion}, sess.CurrentQuestionIndex+1, 0))
	case "record_audio":
		text, err := h.transcribeAudio(ctx, sess, msg)
		if err != nil {
			client.Send(errorFrame("could not transcribe audio"))
			return false
		}
		if sess.Ended {
			return false
		}
		res := h.conversation.Answer(ctx, sess, text, time.Now())
		client.Send(assessmentFrame(res.Turn))
		if res.Completed {
			h.complete(sess, client, domain.CompletedAutomatic)
			return true
		}
		client.Send(questionFrame(domain.Question{Text: res.Turn.NextQuestion}, sess.CurrentQuestionIndex+1, 0))
	case "end", "end_interview":
		h.complete(sess, client, domain.CompletedManually)
		return true
	case "stop_interview":
		h.complete(sess, client, domain.CompletedForceStopped)
		return true
	default:
		client.Send(errorFrame("message not valid for this session mode"))
	}
	return false
}

func (h *Handler) dispatchTechnical(sess *domain.InterviewSession, client *Client, msg Inbound) (closeConn bool) {
	ctx := context.Background()
	switch msg.Type {
	case "submit_code":
		res, err := h.technical.SubmitCode(ctx, sess, msg.Code, msg.Language, time.Now())
		if err != nil {
			client.Send(errorFrame(clientMessage(err)))
			return false
		}
		client.Send(codeFeedbackFrame(res.Evaluation))
		if res.Completed {
			h.complete(sess, client, domain.CompletedAutomatic)
			return true
		}
		client.Send(questionCompleteFrame(*res.NextQuestion, sess.CurrentQuestionIndex+1, len(sess.Questions)))
	case "request_hint":
		hint, err := h.technical.RequestHint(ctx, sess, msg.Code, time.Now())
		if err != nil {
			client.Send(errorFrame(clientMessage(err)))
			return false
		}
		client.Send(hintFrame(hint))
	case "voice_approach", "record_audio":
		transcript := msg.Transcript
		if transcript == "" {
			text, err := h.transcribeAudio(ctx, sess, msg)
			if err != nil {
				client.Send(errorFrame("could not transcribe audio"))
				return false
			}
			transcript = text
		}
		if sess.Ended {
			return false
		}
		feedback, err := h.technical.DiscussApproach(ctx, sess, transcript, time.Now())
		if err != nil {
			client.Send(errorFrame(clientMessage(err)))
			return false
		}
		client.Send(approachFrame(feedback))
	case "end", "end_interview":
		h.complete(sess, client, domain.CompletedManually)
		return true
	case "stop_interview":
		h.complete(sess, client, domain.CompletedForceStopped)
		return true
	default:
		client.Send(errorFrame("message not valid for this session mode"))
	}
	return false
}

func (h *Handler) transcribeAudio(ctx context.Context, sess *domain.InterviewSession, msg Inbound) (string, error) {
	if msg.Transcript != "" {
		return msg.Transcript, nil
	}
	audio, err := base64.StdEncoding.DecodeString(msg.Audio)
	if err != nil {
		return "", domain.ErrInvalidArgument
	}
	text, err := h.transcriber.Transcribe(ctx, audio, sess.ID+".webm")
	if err != nil {
		return "", err
	}
	if !domain.ValidTranscript(text) {
		return "", fmt.Errorf("op=transcribe: unusable transcript: %w", domain.ErrInvalidArgument)
	}
	return text, nil
}

// complete runs a terminal transition and tells the client, closing out the
// exchange even when the durable write failed.
func (h *Handler) complete(sess *domain.InterviewSession, client *Client, method domain.CompletionMethod) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sum, err := h.coordinator.Complete(ctx, sess, method, time.Now())
	if err != nil && !errors.Is(err, domain.ErrSessionEnded) {
		slog.Error("terminal write failed, notifying client anyway",
			slog.String("session_id", sess.ID), slog.Any("error", err))
	}
	client.Send(interviewCompleteFrame(sum, method, sess.AverageScore()))
	client.Send(endedFrame(method))
}

// onDisconnect persists whatever the session holds when the client vanishes.
func (h *Handler) onDisconnect(live *LiveSession) {
	live.WithLock(func(sess *domain.InterviewSession) {
		if sess.Ended {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := h.coordinator.Complete(ctx, sess, domain.CompletedDisconnected, time.Now()); err != nil {
			slog.Warn("disconnect completion failed",
				slog.String("session_id", sess.ID), slog.Any("error", err))
		}
	})
}

// clientMessage maps domain errors to stable client-facing strings.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuestionsNotReady):
		return "questions are still being generated"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "this question was already submitted"
	case errors.Is(err, domain.ErrSessionEnded):
		return "session already ended"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid request"
	default:
		return "internal error"
	}
}
