package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// JoinRequest asks a room to seat a new player. Reply carries the direct
// acknowledgment the joiner needs, distinct from the roster broadcast.
type JoinRequest struct {
	Client   *Client
	Nickname string
	Avatar   string
	Reply    chan JoinReply
}

// JoinReply is the synchronous answer to a JoinRequest.
type JoinReply struct {
	Player PlayerInfo
	Err    *Error
}

// Room owns one game session: players, host, settings, chat and round state.
// All state is confined to the room goroutine; the outside world talks to it
// through Join, Deliver and Shutdown.
type Room struct {
	code    string
	log     zerolog.Logger
	words   WordProvider
	onClose func(code string)

	settings  Settings
	players   []*Player
	hostID    string
	chat      []ChatMessage
	chatLimit int
	round     round
	timings   roundTimings

	inbox  chan envelope
	joins  chan JoinRequest
	views  chan chan View
	timer  *time.Timer
	timerC <-chan time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newRoom(code string, host *Player, settings Settings, chatLimit int, words WordProvider, logger zerolog.Logger, onClose func(string)) *Room {
	r := &Room{
		code:      code,
		log:       logger.With().Str("room", code).Logger(),
		words:     words,
		onClose:   onClose,
		settings:  settings,
		players:   []*Player{host},
		hostID:    host.ID,
		chatLimit: chatLimit,
		timings:   defaultTimings(),
		inbox:     make(chan envelope, 64),
		joins:     make(chan JoinRequest, 8),
		views:     make(chan chan View),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	r.round.reset()
	return r
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

// Join seats a player, or reports room_not_found once the room is gone.
func (r *Room) Join(req JoinRequest) {
	select {
	case r.joins <- req:
	case <-r.done:
		req.Reply <- JoinReply{Err: newError(ErrCodeRoomNotFound, "room not found")}
	}
}

// Deliver hands a client command to the room loop.
func (r *Room) Deliver(from *Client, cmd Command) {
	select {
	case r.inbox <- envelope{cmd: cmd, from: from}:
	case <-r.done:
		if cmd.Kind != CommandLeave {
			from.Send(&Event{Kind: EventError, Error: newError(ErrCodeRoomNotFound, "room not found")})
		}
	}
}

// Shutdown terminates the room, notifying all members.
func (r *Room) Shutdown() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed once the room loop has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// View is a read-only snapshot of room state.
type View struct {
	Players  []PlayerInfo
	HostID   string
	Settings Settings
	Phase    Phase
	ChatLen  int
}

// Inspect reflects current room state without racing the room loop.
func (r *Room) Inspect() View {
	reply := make(chan View, 1)
	select {
	case r.views <- reply:
		select {
		case v := <-reply:
			return v
		case <-r.done:
		}
	case <-r.done:
	}
	return View{}
}

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			r.terminate()
			return
		case req := <-r.joins:
			r.handleJoin(req)
		case env := <-r.inbox:
			if r.handleCommand(env) {
				return
			}
		case reply := <-r.views:
			reply <- View{
				Players:  r.roster(),
				HostID:   r.hostID,
				Settings: r.settings,
				Phase:    r.round.phase,
				ChatLen:  len(r.chat),
			}
		case now := <-r.timerC:
			r.handleDeadline(now)
		}
		if len(r.players) == 0 {
			r.cancelTimer()
			r.onClose(r.code)
			r.log.Info().Msg("room empty, destroyed")
			return
		}
		if !r.hostPresent() {
			// Invariant breach: fatal to this room, never limp along.
			r.log.Error().Str("host_id", r.hostID).Msg("host missing from roster, tearing room down")
			r.terminate()
			return
		}
	}
}

func (r *Room) hostPresent() bool {
	for _, p := range r.players {
		if p.ID == r.hostID {
			return true
		}
	}
	return false
}

func (r *Room) handleJoin(req JoinRequest) {
	if len(r.players) >= r.settings.MaxPlayers {
		req.Reply <- JoinReply{Err: newError(ErrCodeRoomFull, "room is full")}
		return
	}
	if !ValidNickname(req.Nickname) {
		req.Reply <- JoinReply{Err: newError(ErrCodeInvalidNickname, "nickname must be 1-20 printable characters")}
		return
	}

	player := &Player{ID: req.Client.ID, Nickname: req.Nickname, Avatar: req.Avatar, client: req.Client}
	r.players = append(r.players, player)
	req.Reply <- JoinReply{Player: player.info()}

	r.welcome(req.Client, EventJoinSuccess, player.info())
	r.systemMessage(fmt.Sprintf("%s se ha unido a la sala.", player.Nickname))
	r.broadcast(r.rosterEvent())
	r.log.Info().Str("player", player.Nickname).Int("players", len(r.players)).Msg("player joined")
}

// welcome sends the direct ack plus the catch-up snapshots a fresh
// connection needs: roster, settings, chat history, current phase.
func (r *Room) welcome(c *Client, ack EventKind, info PlayerInfo) {
	c.Send(&Event{Kind: ack, Code: r.code, Player: info})
	c.Send(r.rosterEvent())
	c.Send(&Event{Kind: EventSettings, Settings: r.settings})
	for _, msg := range r.chat {
		c.Send(&Event{Kind: EventChat, Message: msg})
	}
	if r.round.active() {
		c.Send(&Event{Kind: EventPhaseChanged, Phase: r.round.phase, Deadline: r.round.deadline})
	}
}

// handleCommand applies one client command. It returns true when the room
// destroyed itself and the loop must exit.
func (r *Room) handleCommand(env envelope) bool {
	player := r.playerByID(env.from.ID)
	if player == nil {
		env.from.Send(&Event{Kind: EventError, Error: newError(ErrCodeNotInRoom, "not a member of this room")})
		return false
	}

	switch env.cmd.Kind {
	case CommandSendMessage:
		r.appendChat(newChatMessage(player.Nickname, env.cmd.Text))

	case CommandUpdateSettings:
		r.updateSettings(player, env.cmd)

	case CommandStartGame:
		r.startGame(player)

	case CommandMoreDebate:
		if !r.requirePhase(player, PhasePlaying) || !r.requireTimeUp(player) {
			return false
		}
		r.round.timeUp = false
		r.round.deadline = time.Now().Add(r.timings.extension)
		r.schedule(r.timings.extension)
		r.broadcast(&Event{Kind: EventPhaseChanged, Phase: PhasePlaying, Deadline: r.round.deadline})

	case CommandVoteNow:
		if !r.requirePhase(player, PhasePlaying) || !r.requireTimeUp(player) {
			return false
		}
		r.enterVoting()

	case CommandAccuse:
		r.accuse(player, env.cmd.AccusedID)

	case CommandConfirmVote:
		r.confirmVote(player)

	case CommandEndGame:
		if !r.requireHost(player) {
			return false
		}
		if !r.round.active() {
			r.reject(player, ErrCodeInvalidPhase, "no round in progress")
			return false
		}
		r.resetToLobby("El anfitrión ha terminado la ronda.")

	case CommandTerminate:
		if !r.requireHost(player) {
			return false
		}
		r.terminate()
		return true

	case CommandLeave:
		r.removePlayer(player.ID)
	}
	return false
}

func (r *Room) handleDeadline(now time.Time) {
	r.timerC = nil
	switch r.round.phase {
	case PhaseCountdown:
		r.enterPlaying(now)
	case PhasePlaying:
		if !r.round.timeUp {
			r.round.timeUp = true
			r.schedule(r.timings.grace)
			r.broadcast(&Event{Kind: EventTimeUp, Seconds: int(r.timings.grace / time.Second)})
			return
		}
		// Nobody chose within the grace window, vote anyway.
		r.enterVoting()
	case PhaseVoting:
		r.closeVoting()
	case PhaseResults:
		r.resetToLobby("")
	}
}

func (r *Room) updateSettings(player *Player, cmd Command) {
	if !r.requireHost(player) {
		return
	}
	if r.round.phase != PhaseLobby {
		r.reject(player, ErrCodeInvalidPhase, "settings are locked while a round is running")
		return
	}
	next := Settings{TimerSeconds: cmd.Timer, MaxPlayers: cmd.MaxPlayers}
	if err := next.validate(len(r.players)); err != nil {
		r.reject(player, ErrCodeInvalidSettings, "invalid room settings")
		return
	}
	r.settings = next
	r.broadcast(&Event{Kind: EventSettings, Settings: r.settings})
	r.log.Debug().Int("timer", next.TimerSeconds).Int("max_players", next.MaxPlayers).Msg("settings updated")
}

func (r *Room) startGame(player *Player) {
	if !r.requireHost(player) {
		return
	}
	if r.round.phase != PhaseLobby {
		r.reject(player, ErrCodeInvalidPhase, "round already in progress")
		return
	}
	if len(r.players) < MinPlayers {
		r.reject(player, ErrCodeInvalidPhase, fmt.Sprintf("need at least %d players", MinPlayers))
		return
	}

	r.round.word, r.round.impostorID = r.words.Assign(r.roster())
	r.round.phase = PhaseCountdown
	r.round.deadline = time.Now().Add(r.timings.countdown)
	r.schedule(r.timings.countdown)
	r.broadcast(&Event{Kind: EventGameStarted, Seconds: int(r.timings.countdown / time.Second)})
	r.broadcast(&Event{Kind: EventPhaseChanged, Phase: PhaseCountdown, Deadline: r.round.deadline})
	r.systemMessage("¡Prepárate! La partida está por comenzar...")
	r.log.Info().Int("players", len(r.players)).Msg("round starting")
}

func (r *Room) enterPlaying(now time.Time) {
	// The impostor may have left during the countdown.
	if r.playerByID(r.round.impostorID) == nil {
		r.round.word, r.round.impostorID = r.words.Assign(r.roster())
	}

	r.round.phase = PhasePlaying
	r.round.timeUp = false
	debate := time.Duration(r.settings.TimerSeconds) * time.Second
	r.round.deadline = now.Add(debate)
	r.schedule(debate)

	for _, p := range r.players {
		ev := &Event{Kind: EventRoleAssigned}
		if p.ID == r.round.impostorID {
			ev.Impostor = true
		} else {
			ev.Word = r.round.word
		}
		p.client.Send(ev)
	}
	r.broadcast(&Event{Kind: EventPhaseChanged, Phase: PhasePlaying, Deadline: r.round.deadline})
}

func (r *Room) enterVoting() {
	r.round.phase = PhaseVoting
	r.round.timeUp = false
	r.round.deadline = time.Now().Add(r.timings.voting)
	r.schedule(r.timings.voting)
	r.broadcast(&Event{Kind: EventPhaseChanged, Phase: PhaseVoting, Deadline: r.round.deadline})
}

func (r *Room) accuse(player *Player, accusedID string) {
	if !r.requirePhase(player, PhaseVoting) {
		return
	}
	if r.round.confirmed[player.ID] {
		r.reject(player, ErrCodeInvalidPhase, "vote already confirmed")
		return
	}
	if accusedID == player.ID {
		r.reject(player, ErrCodeBadRequest, "cannot accuse yourself")
		return
	}
	if r.playerByID(accusedID) == nil {
		r.reject(player, ErrCodeBadRequest, "accused player not in room")
		return
	}
	r.round.accusations[player.ID] = accusedID
}

func (r *Room) confirmVote(player *Player) {
	if !r.requirePhase(player, PhaseVoting) {
		return
	}
	if _, ok := r.round.accusations[player.ID]; !ok {
		r.reject(player, ErrCodeBadRequest, "accuse someone first")
		return
	}
	r.round.confirmed[player.ID] = true
	r.broadcast(&Event{Kind: EventVoteUpdate, Voted: r.confirmedVoters()})
	if r.allConfirmed() {
		r.closeVoting()
	}
}

func (r *Room) allConfirmed() bool {
	for _, p := range r.players {
		if !r.round.confirmed[p.ID] {
			return false
		}
	}
	return len(r.players) > 0
}

func (r *Room) confirmedVoters() []string {
	ids := make([]string, 0, len(r.round.confirmed))
	for _, p := range r.players {
		if r.round.confirmed[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (r *Room) closeVoting() {
	result := r.round.tally(r.players)
	r.round.phase = PhaseResults
	r.round.deadline = time.Now().Add(r.timings.results)
	r.schedule(r.timings.results)

	r.broadcast(&Event{Kind: EventVoteResult, Result: result})
	r.broadcast(&Event{Kind: EventPhaseChanged, Phase: PhaseResults, Deadline: r.round.deadline})
	if result.Tie || result.AccusedID == "" {
		r.systemMessage("Votación completada. Empate: nadie fue eliminado.")
	} else {
		r.systemMessage(fmt.Sprintf("Votación completada. El jugador acusado fue %s.", result.AccusedNickname))
	}
	r.log.Info().Str("accused", result.AccusedID).Bool("tie", result.Tie).Msg("voting closed")
}

func (r *Room) resetToLobby(notice string) {
	r.round.reset()
	r.cancelTimer()
	if notice != "" {
		r.systemMessage(notice)
	}
	r.broadcast(&Event{Kind: EventPhaseChanged, Phase: PhaseLobby})
}

func (r *Room) removePlayer(id string) {
	idx := -1
	for i, p := range r.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	departed := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.log.Info().Str("player", departed.Nickname).Int("players", len(r.players)).Msg("player left")

	if len(r.players) == 0 {
		// The loop destroys the room right after this handler returns.
		return
	}

	if r.hostID == id {
		r.hostID = r.players[0].ID
		r.systemMessage(fmt.Sprintf("%s es el nuevo anfitrión.", r.players[0].Nickname))
	}
	r.systemMessage(fmt.Sprintf("%s ha salido de la sala.", departed.Nickname))
	r.broadcast(r.rosterEvent())

	r.round.dropVoter(id)
	switch {
	case r.round.active() && r.round.phase != PhaseResults && len(r.players) < MinPlayers:
		// Too few players to keep playing or vote meaningfully.
		r.resetToLobby("No hay jugadores suficientes, la ronda vuelve al lobby.")
	case r.round.phase == PhaseVoting:
		// dropVoter may have stripped confirmations, keep clients current.
		r.broadcast(&Event{Kind: EventVoteUpdate, Voted: r.confirmedVoters()})
		if r.allConfirmed() {
			r.closeVoting()
		}
	}
}

// terminate broadcasts room_terminated and unregisters the room.
func (r *Room) terminate() {
	r.broadcast(&Event{Kind: EventRoomTerminated})
	r.cancelTimer()
	r.players = nil
	r.onClose(r.code)
	r.log.Info().Msg("room terminated")
}

func (r *Room) appendChat(msg ChatMessage) {
	r.chat = append(r.chat, msg)
	if r.chatLimit > 0 && len(r.chat) > r.chatLimit {
		r.chat = r.chat[len(r.chat)-r.chatLimit:]
	}
	r.broadcast(&Event{Kind: EventChat, Message: msg})
}

func (r *Room) systemMessage(body string) {
	r.appendChat(newChatMessage(SystemSender, body))
}

func (r *Room) rosterEvent() *Event {
	return &Event{Kind: EventRoster, Players: r.roster(), HostID: r.hostID}
}

func (r *Room) roster() []PlayerInfo {
	infos := make([]PlayerInfo, len(r.players))
	for i, p := range r.players {
		infos[i] = p.info()
	}
	return infos
}

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) broadcast(ev *Event) {
	for _, p := range r.players {
		p.client.Send(ev)
	}
}

func (r *Room) reject(player *Player, code, msg string) {
	player.client.Send(&Event{Kind: EventError, Error: newError(code, msg)})
}

func (r *Room) requireHost(player *Player) bool {
	if player.ID != r.hostID {
		r.reject(player, ErrCodeUnauthorized, "only the host can do that")
		return false
	}
	return true
}

func (r *Room) requirePhase(player *Player, phase Phase) bool {
	if r.round.phase != phase {
		r.reject(player, ErrCodeInvalidPhase, fmt.Sprintf("not allowed during %s", r.round.phase))
		return false
	}
	return true
}

func (r *Room) requireTimeUp(player *Player) bool {
	if !r.round.timeUp {
		r.reject(player, ErrCodeInvalidPhase, "the debate timer is still running")
		return false
	}
	return true
}

func (r *Room) schedule(d time.Duration) {
	if r.timer == nil {
		r.timer = time.NewTimer(d)
		r.timerC = r.timer.C
		return
	}
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
	r.timer.Reset(d)
	r.timerC = r.timer.C
}

func (r *Room) cancelTimer() {
	if r.timer == nil {
		return
	}
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
	r.timerC = nil
}
