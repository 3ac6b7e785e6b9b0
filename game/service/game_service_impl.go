package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kouya0205/math-mahjong/game/engine"
	"github.com/kouya0205/math-mahjong/game/session"
)

// ErrNotHost is returned when a player other than the host tries to
// start the game.
var ErrNotHost = errors.New("only the host can start the game")

// Service implements GameService on top of the room registry. All game
// mutations happen inside the room lock; events and snapshot writes are
// captured there and delivered after the lock is released.
type Service struct {
	registry    *session.Registry
	rules       engine.Rules
	writer      *session.Writer
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewService creates the game service. writer may be nil, in which case
// no snapshots are persisted.
func NewService(registry *session.Registry, rules engine.Rules, writer *session.Writer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		rules:    rules,
		writer:   writer,
		logger:   logger,
	}
}

// SetBroadcaster wires the event sink. The hub is built after the
// service, so this cannot be a constructor argument.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *Service) CreateRoom(ctx context.Context, hostName string) (*JoinResult, error) {
	if hostName == "" {
		return nil, fmt.Errorf("player name is required")
	}

	room, err := s.registry.Create("", s.rules)
	if err != nil {
		return nil, err
	}

	host := engine.NewPlayer("", hostName)
	var info *RoomInfo
	err = room.Update(func(g *engine.Game) error {
		if err := g.AddPlayer(host); err != nil {
			return err
		}
		info = roomInfo(g)
		return nil
	})
	if err != nil {
		s.registry.Remove(room.ID)
		return nil, err
	}

	s.logger.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("host", hostName))
	s.emitRoomUpdate(room.ID, info)
	return &JoinResult{RoomID: room.ID, PlayerID: host.ID, Room: info}, nil
}

func (s *Service) JoinRoom(ctx context.Context, roomID, playerName string) (*JoinResult, error) {
	if playerName == "" {
		return nil, fmt.Errorf("player name is required")
	}

	room, err := s.registry.Get(roomID)
	if err != nil {
		return nil, err
	}

	player := engine.NewPlayer("", playerName)
	var info *RoomInfo
	err = room.Update(func(g *engine.Game) error {
		if err := g.AddPlayer(player); err != nil {
			return err
		}
		info = roomInfo(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player joined",
		zap.String("room_id", roomID),
		zap.String("player", playerName))
	s.emitRoomUpdate(roomID, info)
	return &JoinResult{RoomID: roomID, PlayerID: player.ID, Room: info}, nil
}

func (s *Service) LeaveRoom(ctx context.Context, roomID, playerID string) error {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return err
	}

	var (
		info     *RoomInfo
		views    map[string]*engine.View
		winner   *WinnerEvent
		empty    bool
		snapshot *session.Snapshot
	)
	err = room.Update(func(g *engine.Game) error {
		wasPlaying := g.Status() == engine.StatusPlaying
		if err := g.RemovePlayer(playerID); err != nil {
			return err
		}
		empty = g.PlayerCount() == 0
		if empty {
			return nil
		}
		info = roomInfo(g)
		if wasPlaying {
			views = viewsForPlayers(g)
			snapshot = session.TakeSnapshot(g)
			if g.Status() == engine.StatusFinished {
				winner = winnerEvent(g)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if empty {
		s.registry.Remove(roomID)
		if s.writer != nil {
			s.writer.EnqueueDelete(roomID)
		}
		s.logger.Info("room closed", zap.String("room_id", roomID))
		return nil
	}

	s.logger.Info("player left",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID))
	if s.writer != nil && snapshot != nil {
		s.writer.Enqueue(snapshot)
	}
	s.emitRoomUpdate(roomID, info)
	if s.broadcaster != nil && views != nil {
		if winner != nil {
			s.broadcaster.GameFinished(roomID, winner, views)
		} else {
			s.broadcaster.GameState(roomID, views)
		}
	}
	return nil
}

func (s *Service) RoomInfo(ctx context.Context, roomID string) (*RoomInfo, error) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return nil, err
	}
	var info *RoomInfo
	room.Update(func(g *engine.Game) error {
		info = roomInfo(g)
		return nil
	})
	return info, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	rooms := s.registry.List()
	infos := make([]*RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		var info *RoomInfo
		room.Update(func(g *engine.Game) error {
			info = roomInfo(g)
			return nil
		})
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Service) StartGame(ctx context.Context, roomID, playerID string) error {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return err
	}

	var (
		info     *RoomInfo
		views    map[string]*engine.View
		snapshot *session.Snapshot
	)
	err = room.Update(func(g *engine.Game) error {
		players := g.Players()
		if len(players) == 0 || players[0].ID != playerID {
			return ErrNotHost
		}
		if err := g.Start(); err != nil {
			return err
		}
		info = roomInfo(g)
		views = viewsForPlayers(g)
		snapshot = session.TakeSnapshot(g)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("game started",
		zap.String("room_id", roomID),
		zap.Int("players", len(info.Players)))
	if s.writer != nil {
		s.writer.Enqueue(snapshot)
	}
	s.emitRoomUpdate(roomID, info)
	if s.broadcaster != nil {
		s.broadcaster.GameStarted(roomID, views)
	}
	return nil
}

func (s *Service) DrawCard(ctx context.Context, roomID, playerID string) (*DrawResult, error) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return nil, err
	}

	var (
		result   DrawResult
		views    map[string]*engine.View
		winner   *WinnerEvent
		snapshot *session.Snapshot
	)
	err = room.Update(func(g *engine.Game) error {
		card, err := g.DrawCard(playerID)
		if err != nil {
			return err
		}
		if card == nil {
			// Deck ran out; the game just ended on points.
			result.DeckExhausted = true
			winner = winnerEvent(g)
		} else {
			view := card.View()
			result.Card = &view
		}
		views = viewsForPlayers(g)
		snapshot = session.TakeSnapshot(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.writer != nil {
		s.writer.Enqueue(snapshot)
	}
	if s.broadcaster != nil {
		if winner != nil {
			s.broadcaster.GameFinished(roomID, winner, views)
		} else {
			s.broadcaster.GameState(roomID, views)
		}
	}
	return &result, nil
}

func (s *Service) DiscardCard(ctx context.Context, roomID, playerID, cardID string) error {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return err
	}

	var (
		views    map[string]*engine.View
		snapshot *session.Snapshot
	)
	err = room.Update(func(g *engine.Game) error {
		if err := g.DiscardCard(playerID, cardID); err != nil {
			return err
		}
		// Discarding ends the turn.
		g.NextTurn()
		views = viewsForPlayers(g)
		snapshot = session.TakeSnapshot(g)
		return nil
	})
	if err != nil {
		return err
	}

	if s.writer != nil {
		s.writer.Enqueue(snapshot)
	}
	if s.broadcaster != nil {
		s.broadcaster.GameState(roomID, views)
	}
	return nil
}

func (s *Service) PlayCards(ctx context.Context, roomID, playerID string, cardIDs []string) (*PlayResult, error) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return nil, err
	}

	var (
		result   *PlayResult
		played   *CardsPlayedEvent
		winner   *WinnerEvent
		views    map[string]*engine.View
		snapshot *session.Snapshot
	)
	err = room.Update(func(g *engine.Game) error {
		outcome, err := g.PlayCards(playerID, cardIDs)
		if err != nil {
			if engine.IsExpressionError(err) {
				result = &PlayResult{
					Success: false,
					Target:  g.TargetNumber(),
					Message: err.Error(),
				}
				return nil
			}
			return err
		}
		result = &PlayResult{
			Success:    outcome.Won,
			Expression: outcome.Expression,
			Value:      outcome.Value,
			Target:     outcome.Target,
			Points:     outcome.Points,
		}
		if !outcome.Won {
			result.Message = fmt.Sprintf("%s = %d, target is %d", outcome.Expression, outcome.Value, outcome.Target)
			return nil
		}
		player := g.PlayerByID(playerID)
		played = &CardsPlayedEvent{
			PlayerID:   playerID,
			PlayerName: player.Name,
			Expression: outcome.Expression,
			Value:      outcome.Value,
			Points:     outcome.Points,
		}
		winner = winnerEvent(g)
		views = viewsForPlayers(g)
		snapshot = session.TakeSnapshot(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if winner != nil {
		s.logger.Info("game won",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.String("expression", played.Expression),
			zap.Int("points", played.Points))
		if s.writer != nil {
			s.writer.Enqueue(snapshot)
		}
		if s.broadcaster != nil {
			s.broadcaster.CardsPlayed(roomID, played, views)
			s.broadcaster.GameFinished(roomID, winner, views)
		}
	}
	return result, nil
}

func (s *Service) GameState(ctx context.Context, roomID, playerID string) (*engine.View, error) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return nil, err
	}
	var view *engine.View
	err = room.Update(func(g *engine.Game) error {
		v, err := engine.ViewFor(g, playerID)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) emitRoomUpdate(roomID string, info *RoomInfo) {
	if s.broadcaster != nil && info != nil {
		s.broadcaster.RoomUpdate(roomID, info)
	}
}

// roomInfo and the other builders below must be called with the room
// lock held.
func roomInfo(g *engine.Game) *RoomInfo {
	players := g.Players()
	info := &RoomInfo{
		RoomID:     g.RoomID(),
		Status:     g.Status(),
		Players:    make([]RoomPlayer, 0, len(players)),
		MaxPlayers: g.Rules().MaxPlayers,
	}
	for i, p := range players {
		info.Players = append(info.Players, RoomPlayer{
			ID:     p.ID,
			Name:   p.Name,
			IsHost: i == 0,
		})
	}
	return info
}

func viewsForPlayers(g *engine.Game) map[string]*engine.View {
	views := make(map[string]*engine.View, g.PlayerCount())
	for _, p := range g.Players() {
		view, err := engine.ViewFor(g, p.ID)
		if err != nil {
			continue
		}
		views[p.ID] = view
	}
	return views
}

func winnerEvent(g *engine.Game) *WinnerEvent {
	w := g.Winner()
	if w == nil {
		return nil
	}
	return &WinnerEvent{
		PlayerID: w.ID,
		Name:     w.Name,
		Score:    w.Score,
		Target:   g.TargetNumber(),
	}
}
