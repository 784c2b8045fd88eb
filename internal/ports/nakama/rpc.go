package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"beergame/internal/app"
	"beergame/internal/domain"
	"beergame/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Module holds the long-lived service behind the RPCs.
type Module struct {
	service *app.Service
	events  ports.EventPort
	now     func() time.Time
}

// NewModule creates the RPC module. events may be nil to drop analytics.
func NewModule(service *app.Service, events ports.EventPort) *Module {
	return &Module{service: service, events: events, now: time.Now}
}

// RegisterRPCs registers Nakama RPC endpoints.
func (m *Module) RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcCreateSession: m.RpcCreateSession,
		RpcJoinTeam:      m.RpcJoinTeam,
		RpcSubmitOrder:   m.RpcSubmitOrder,
		RpcAdvance:       m.RpcAdvance,
		RpcAdvanceTeam:   m.RpcAdvanceTeam,
		RpcRestart:       m.RpcRestart,
		RpcGetState:      m.RpcGetState,
		RpcResumeTeam:    m.RpcResumeTeam,
		RpcListPatterns:  m.RpcListPatterns,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

// SessionRequest names a session by id, join code or id prefix.
type SessionRequest struct {
	Session string `json:"session"`
}

// SessionResponse wraps a full session snapshot.
type SessionResponse struct {
	Session    *domain.Session `json:"session"`
	ServerTime time.Time       `json:"server_time"`
}

// CreateSessionResponse is returned by RpcCreateSession.
type CreateSessionResponse struct {
	SessionID string          `json:"session_id"`
	JoinCode  string          `json:"join_code"`
	Session   *domain.Session `json:"session"`
}

// JoinTeamRequest is the payload of RpcJoinTeam.
type JoinTeamRequest struct {
	Session string                 `json:"session"`
	Name    string                 `json:"name"`
	Bots    map[domain.Role]string `json:"bots,omitempty"`
}

// TeamResponse identifies a team within its session.
type TeamResponse struct {
	SessionID string          `json:"session_id"`
	TeamID    string          `json:"team_id"`
	Ticket    string          `json:"ticket,omitempty"`
	Team      *domain.Team    `json:"team"`
	Session   *domain.Session `json:"session,omitempty"`
}

// SubmitOrderRequest is the payload of RpcSubmitOrder.
type SubmitOrderRequest struct {
	Session string       `json:"session"`
	TeamID  string       `json:"team_id"`
	Role    *domain.Role `json:"role"`
	Amount  *int         `json:"amount"`
}

// SubmitOrderResponse reports whether the order completed the team's round.
type SubmitOrderResponse struct {
	Advanced bool            `json:"advanced"`
	Session  *domain.Session `json:"session"`
}

// AdvanceTeamRequest is the payload of RpcAdvanceTeam.
type AdvanceTeamRequest struct {
	Session string `json:"session"`
	TeamID  string `json:"team_id"`
}

// ResumeTeamRequest is the payload of RpcResumeTeam.
type ResumeTeamRequest struct {
	Ticket string `json:"ticket"`
}

// PatternsResponse lists the demand pattern catalog.
type PatternsResponse struct {
	Patterns []domain.DemandPattern `json:"patterns"`
}

// RpcCreateSession creates a lobby session.
// Payload: optional config overrides, e.g. {"demand_pattern_key": "D", "total_rounds": 20}.
func (m *Module) RpcCreateSession(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID := callerID(ctx)

	var overrides app.ConfigOverrides
	if err := decodePayload(payload, &overrides); err != nil {
		return "", err
	}
	s, events, err := m.service.CreateSession(ctx, overrides)
	if err != nil {
		return "", m.fail(logger, "RpcCreateSession", "-", err)
	}
	m.publish(ctx, logger, events)

	logger.Info("RpcCreateSession [User:%s]: Created session %s with code %s (pattern %s, %d rounds)",
		userID, s.ID, s.JoinCode, s.Config.DemandPatternKey, s.TotalRounds)
	return encode(CreateSessionResponse{SessionID: s.ID, JoinCode: s.JoinCode, Session: s})
}

// RpcJoinTeam adds a team to a lobby session and returns its resume ticket.
func (m *Module) RpcJoinTeam(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req JoinTeamRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	res, events, err := m.service.JoinTeam(ctx, req.Session, req.Name, req.Bots)
	if err != nil {
		return "", m.fail(logger, "RpcJoinTeam", req.Session, err)
	}
	m.publish(ctx, logger, events)

	logger.Info("RpcJoinTeam [Session:%s]: Team %s (%s) joined with %d bot roles", res.Session.ID, res.Team.ID, res.Team.Name, len(res.Team.Bots))
	return encode(TeamResponse{
		SessionID: res.Session.ID,
		TeamID:    res.Team.ID,
		Ticket:    res.Ticket,
		Team:      res.Team,
		Session:   res.Session,
	})
}

// RpcSubmitOrder stages one role's order and commits the team's round once it is complete.
func (m *Module) RpcSubmitOrder(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req SubmitOrderRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if req.Role == nil || req.Amount == nil {
		return "", runtime.NewError("role and amount are required", codeInvalidArgument)
	}

	s, advanced, events, err := m.service.SubmitOrder(ctx, req.Session, req.TeamID, *req.Role, *req.Amount)
	if err != nil {
		return "", m.fail(logger, "RpcSubmitOrder", req.Session, err)
	}
	m.publish(ctx, logger, events)

	if advanced {
		logger.Info("RpcSubmitOrder [Session:%s]: Team %s committed round %d", s.ID, req.TeamID, s.Teams[req.TeamID].CurrentRound-1)
	} else {
		logger.Debug("RpcSubmitOrder [Session:%s]: Team %s staged %s=%d", s.ID, req.TeamID, *req.Role, *req.Amount)
	}
	return encode(SubmitOrderResponse{Advanced: advanced, Session: s})
}

// RpcAdvance starts a lobby session or commits a lockstep round.
func (m *Module) RpcAdvance(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req SessionRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	s, events, err := m.service.Advance(ctx, req.Session)
	if err != nil {
		return "", m.fail(logger, "RpcAdvance", req.Session, err)
	}
	m.publish(ctx, logger, events)

	logger.Info("RpcAdvance [Session:%s]: Now %s at round %d", s.ID, s.Phase, s.CurrentRound)
	return m.sessionResponse(s)
}

// RpcAdvanceTeam commits one team's round whatever it has staged.
func (m *Module) RpcAdvanceTeam(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req AdvanceTeamRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	s, events, err := m.service.AdvanceTeam(ctx, req.Session, req.TeamID)
	if err != nil {
		return "", m.fail(logger, "RpcAdvanceTeam", req.Session, err)
	}
	m.publish(ctx, logger, events)

	logger.Info("RpcAdvanceTeam [Session:%s]: Team %s now at round %d", s.ID, req.TeamID, s.Teams[req.TeamID].CurrentRound)
	return m.sessionResponse(s)
}

// RpcRestart resets a started session to round 1.
func (m *Module) RpcRestart(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req SessionRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	s, events, err := m.service.Restart(ctx, req.Session)
	if err != nil {
		return "", m.fail(logger, "RpcRestart", req.Session, err)
	}
	m.publish(ctx, logger, events)

	logger.Info("RpcRestart [Session:%s]: Restarted by %s", s.ID, callerID(ctx))
	return m.sessionResponse(s)
}

// RpcGetState returns the full session snapshot.
func (m *Module) RpcGetState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req SessionRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	s, err := m.service.GetState(ctx, req.Session)
	if err != nil {
		return "", m.fail(logger, "RpcGetState", req.Session, err)
	}
	return m.sessionResponse(s)
}

// RpcResumeTeam verifies a team ticket and returns the team it belongs to.
func (m *Module) RpcResumeTeam(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req ResumeTeamRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	s, team, err := m.service.ResumeTeam(ctx, req.Ticket)
	if err != nil {
		return "", m.fail(logger, "RpcResumeTeam", "-", err)
	}

	logger.Info("RpcResumeTeam [Session:%s]: Team %s resumed", s.ID, team.ID)
	return encode(TeamResponse{SessionID: s.ID, TeamID: team.ID, Team: team, Session: s})
}

// RpcListPatterns returns the demand pattern catalog.
func (m *Module) RpcListPatterns(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return encode(PatternsResponse{Patterns: m.service.ListPatterns()})
}

func (m *Module) sessionResponse(s *domain.Session) (string, error) {
	return encode(SessionResponse{Session: s, ServerTime: m.now().UTC()})
}

// fail logs err at a level matching its cause and converts it for the client.
func (m *Module) fail(logger runtime.Logger, rpc, ref string, err error) error {
	if clientError(err) {
		logger.Warn("%s [Session:%s]: %v", rpc, ref, err)
	} else {
		logger.Error("%s [Session:%s]: %v", rpc, ref, err)
	}
	return toRuntimeError(err)
}

// publish forwards events; a failure is logged and never fails the request.
func (m *Module) publish(ctx context.Context, logger runtime.Logger, events []app.Event) {
	if m.events == nil || len(events) == 0 {
		return
	}
	if err := m.events.Publish(ctx, toAnalyticsEvents(events, m.now())); err != nil {
		logger.Warn("Failed to publish %d analytics events: %v", len(events), err)
	}
}

func callerID(ctx context.Context) string {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return userID
}

func decodePayload(payload string, v any) error {
	if payload == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return runtime.NewError("Invalid payload: "+err.Error(), codeInvalidArgument)
	}
	return nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("internal error", codeInternal)
	}
	return string(b), nil
}
