package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v3"

	"github.com/argus-vision/go-argus/internal/httpc"
)

// Transcript roles passed to OnTranscript.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// ConnectionState represents the session connection state.
type ConnectionState int

const (
	// StateDisconnected indicates no active session.
	StateDisconnected ConnectionState = iota
	// StateConnecting indicates the handshake is in progress.
	StateConnecting
	// StateConnected indicates an active session.
	StateConnected
)

// String returns a human-readable connection state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Agent is the conversational surface the pipeline depends on.
// Session implements it against the OpenAI Realtime API; Mock
// implements it for tests.
type Agent interface {
	// Connect establishes the session.
	Connect(ctx context.Context) error

	// Close tears the session down.
	Close() error

	// IsConnected returns true while the session is up.
	IsConnected() bool

	// RegisterTool adds a tool the agent can call.
	RegisterTool(tool Tool)

	// SendAudio streams PCM16 microphone audio to the agent.
	SendAudio(pcm []byte) error

	// SendUserText injects a typed user message and asks for a reply.
	SendUserText(text string) error

	// SendSceneContext injects ambient scene context without
	// requesting a reply.
	SendSceneContext(description string) error

	// SubmitToolResult returns a tool call result to the agent.
	SubmitToolResult(callID, result string) error

	// Interrupt cancels the in-flight response and flushes queued
	// output audio.
	Interrupt() error

	// Callbacks

	// OnAudioOut is called with decoded PCM16 agent speech.
	OnAudioOut(fn func(pcm []byte))

	// OnTranscript is called with user and agent transcripts.
	OnTranscript(fn func(role, text string, isFinal bool))

	// OnToolCall is called when the agent invokes a tool.
	OnToolCall(fn func(call ToolCall))

	// OnSpeechStarted is called when the user starts speaking.
	OnSpeechStarted(fn func())

	// OnSpeechStopped is called when the user stops speaking.
	OnSpeechStopped(fn func())

	// OnError is called when an error occurs.
	OnError(fn func(err error))

	// OnEvent is called with every event received on the data
	// channel, before type-specific handling.
	OnEvent(fn func(ev ServerEvent))
}

// eventSender writes encoded events to the peer.
type eventSender interface {
	send(data []byte) error
}

// dataChannelSender serializes writes onto the WebRTC data channel.
type dataChannelSender struct {
	mu sync.Mutex
	dc *webrtc.DataChannel
}

func (d *dataChannelSender) send(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrDataChannelClosed
	}
	return d.dc.Send(data)
}

// SessionStats is a snapshot of session counters.
type SessionStats struct {
	EventsSent     int64
	EventsReceived int64
	ToolCalls      int64
}

// Session is a realtime voice session over a WebRTC peer connection.
// Audio travels as opus RTP in both directions and JSON events travel
// over the "oai-events" data channel.
type Session struct {
	config *Config
	logger *slog.Logger
	tokens TokenSource

	mu           sync.RWMutex
	state        ConnectionState
	pc           *webrtc.PeerConnection
	sender       eventSender
	mic          *micEncoder
	sessionReady bool
	tools        []Tool
	toolsMap     map[string]Tool

	micMu sync.Mutex

	// Callbacks
	onAudioOut      func(pcm []byte)
	onTranscript    func(role, text string, isFinal bool)
	onToolCall      func(call ToolCall)
	onSpeechStarted func()
	onSpeechStopped func()
	onError         func(err error)
	onEvent         func(ev ServerEvent)

	// Counters
	eventsSent     atomic.Int64
	eventsReceived atomic.Int64
	toolCalls      atomic.Int64
}

// NewSession creates a voice session. tokens supplies the bearer key
// for the calls endpoint; see NewBackendTokenSource.
func NewSession(tokens TokenSource, opts ...Option) (*Session, error) {
	if tokens == nil {
		return nil, ErrMissingTokenSource
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpc.Client
	}

	s := &Session{
		config:   cfg,
		logger:   cfg.Logger.With("component", "voice"),
		tokens:   tokens,
		state:    StateDisconnected,
		toolsMap: make(map[string]Tool),
	}
	for _, tool := range cfg.Tools {
		s.tools = append(s.tools, tool)
		s.toolsMap[tool.Name] = tool
	}
	return s, nil
}

// Connect fetches an ephemeral key, performs the SDP exchange against
// the realtime calls endpoint, and brings up audio and the event
// channel. The session configuration is pushed once the data channel
// opens.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateConnecting
	s.mu.Unlock()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	key, err := s.tokens.Token(ctx)
	if err != nil {
		s.reset()
		return err
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		s.reset()
		return NewConnectionError("create peer connection", err)
	}

	micTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: SampleRate, Channels: 2},
		"audio", "argus-mic",
	)
	if err != nil {
		pc.Close()
		s.reset()
		return NewConnectionError("create audio track", err)
	}

	rtpSender, err := pc.AddTrack(micTrack)
	if err != nil {
		pc.Close()
		s.reset()
		return NewConnectionError("add audio track", err)
	}
	go drainRTCP(rtpSender)

	mic, err := newMicEncoder(micTrack)
	if err != nil {
		pc.Close()
		s.reset()
		return err
	}

	dc, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		pc.Close()
		s.reset()
		return NewConnectionError("create data channel", err)
	}

	dc.OnOpen(func() {
		s.logger.Info("event channel open")
		if err := s.configureSession(); err != nil {
			s.emitError(err)
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.handleEvent(msg.Data)
	})
	dc.OnClose(func() {
		s.logger.Info("event channel closed")
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		s.logger.Info("remote audio track", "codec", track.Codec().MimeType)
		go s.pumpRemoteAudio(track)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Debug("peer connection state", "state", state.String())
		if state == webrtc.PeerConnectionStateFailed {
			s.emitError(NewConnectionError("peer connection failed", nil))
		}
	})

	s.mu.Lock()
	s.pc = pc
	s.sender = &dataChannelSender{dc: dc}
	s.mic = mic
	s.mu.Unlock()

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		s.reset()
		return NewConnectionError("create offer", err)
	}

	gatherDone := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		s.reset()
		return NewConnectionError("set local description", err)
	}

	select {
	case <-gatherDone:
	case <-ctx.Done():
		s.reset()
		return NewConnectionError("ICE gathering", ctx.Err())
	}

	answer, err := s.exchangeSDP(ctx, key, pc.LocalDescription().SDP)
	if err != nil {
		s.reset()
		return err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		s.reset()
		return NewConnectionError("set remote description", err)
	}

	s.mu.Lock()
	s.state = StateConnected
	s.mu.Unlock()

	s.logger.Info("connected to realtime API",
		"model", s.config.Model,
		"voice", s.config.Voice,
	)
	return nil
}

// exchangeSDP posts the local offer and returns the answer SDP.
func (s *Session) exchangeSDP(ctx context.Context, key, offer string) (string, error) {
	endpoint := fmt.Sprintf("%s/calls?model=%s",
		strings.TrimRight(s.config.RealtimeURL, "/"),
		url.QueryEscape(s.config.Model),
	)

	req, err := httpc.NewRequest(ctx, http.MethodPost, endpoint, []byte(offer))
	if err != nil {
		return "", NewConnectionError("build SDP request", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return "", NewConnectionError("SDP exchange", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", NewConnectionError("read SDP answer", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", callsError(resp.StatusCode, body)
	}
	return string(body), nil
}

// callsError maps a calls endpoint failure to an APIError.
func callsError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	code := ""
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		message = payload.Error.Message
		code = payload.Error.Code
	}
	return NewAPIError(status, code, message)
}

// drainRTCP keeps the sender's RTCP reports flowing so interceptors
// run.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// reset tears down any partial connection state.
func (s *Session) reset() {
	s.mu.Lock()
	pc := s.pc
	s.pc = nil
	s.sender = nil
	s.mic = nil
	s.sessionReady = false
	s.state = StateDisconnected
	s.mu.Unlock()

	if pc != nil {
		pc.Close()
	}
}

// Close tears the session down.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	pc := s.pc
	s.pc = nil
	s.sender = nil
	s.mic = nil
	s.sessionReady = false
	s.state = StateDisconnected
	s.mu.Unlock()

	var err error
	if pc != nil {
		err = pc.Close()
	}
	s.logger.Info("voice session closed")
	return err
}

// IsConnected returns true while the session is up.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateConnected
}

// IsReady returns true once the server confirmed the session.
func (s *Session) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateConnected && s.sessionReady
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a snapshot of session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		EventsSent:     s.eventsSent.Load(),
		EventsReceived: s.eventsReceived.Load(),
		ToolCalls:      s.toolCalls.Load(),
	}
}

// RegisterTool adds a tool the agent can call. When the session is
// already up the configuration is pushed again so the agent sees the
// new tool immediately.
func (s *Session) RegisterTool(tool Tool) {
	s.mu.Lock()
	s.tools = append(s.tools, tool)
	s.toolsMap[tool.Name] = tool
	connected := s.state == StateConnected && s.sender != nil
	s.mu.Unlock()

	if connected {
		if err := s.configureSession(); err != nil {
			s.emitError(err)
		}
	}
}

// SendAudio streams PCM16 microphone audio to the agent. Input is
// 16-bit little-endian mono at 48kHz; partial opus frames are carried
// across calls.
func (s *Session) SendAudio(pcm []byte) error {
	s.mu.RLock()
	mic := s.mic
	state := s.state
	s.mu.RUnlock()

	if state != StateConnected || mic == nil {
		return ErrNotConnected
	}

	s.micMu.Lock()
	defer s.micMu.Unlock()
	return mic.write(pcm)
}

// SendUserText injects a typed user message and asks for a reply.
func (s *Session) SendUserText(text string) error {
	item := &conversationItem{
		Type:    "message",
		Role:    "user",
		Content: []itemContent{{Type: "input_text", Text: text}},
	}
	if err := s.sendEvent(clientEvent{Type: eventItemCreate, Item: item}); err != nil {
		return err
	}
	return s.sendEvent(clientEvent{Type: eventResponseCreate})
}

// SendSceneContext injects ambient scene context as a system message.
// No reply is requested; the agent uses it when the user next asks
// about the scene.
func (s *Session) SendSceneContext(description string) error {
	item := &conversationItem{
		Type:    "message",
		Role:    "system",
		Content: []itemContent{{Type: "input_text", Text: "Current scene: " + description}},
	}
	return s.sendEvent(clientEvent{Type: eventItemCreate, Item: item})
}

// SubmitToolResult returns a tool call result and asks the agent to
// continue.
func (s *Session) SubmitToolResult(callID, result string) error {
	item := &conversationItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: result,
	}
	if err := s.sendEvent(clientEvent{Type: eventItemCreate, Item: item}); err != nil {
		return err
	}
	return s.sendEvent(clientEvent{Type: eventResponseCreate})
}

// Interrupt cancels the in-flight response and flushes queued output
// audio so the agent stops speaking promptly.
func (s *Session) Interrupt() error {
	if err := s.sendEvent(clientEvent{Type: eventResponseCancel}); err != nil {
		return err
	}
	return s.sendEvent(clientEvent{Type: eventOutputAudioClear})
}

// configureSession pushes instructions, audio settings, and tools.
func (s *Session) configureSession() error {
	s.mu.RLock()
	tools := make([]toolSchema, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t.schema())
	}
	s.mu.RUnlock()

	input := &audioInput{TurnDetection: s.config.TurnDetection}
	if s.config.TranscriptionModel != "" {
		input.Transcription = &transcriptionConfig{Model: s.config.TranscriptionModel}
	}

	cfg := &sessionConfig{
		Type:         "realtime",
		Model:        s.config.Model,
		Instructions: s.config.Instructions,
		Audio: &audioConfig{
			Input:  input,
			Output: &audioOutput{Voice: s.config.Voice},
		},
	}
	if len(tools) > 0 {
		cfg.Tools = tools
		cfg.ToolChoice = "auto"
	}

	return s.sendEvent(clientEvent{Type: eventSessionUpdate, Session: cfg})
}

// sendEvent encodes and sends one client event.
func (s *Session) sendEvent(ev clientEvent) error {
	if ev.EventID == "" {
		ev.EventID = newEventID()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("voice: encode event: %w", err)
	}

	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()
	if sender == nil {
		return ErrNotConnected
	}

	if err := sender.send(data); err != nil {
		return NewConnectionError("send event", err)
	}
	s.eventsSent.Add(1)
	return nil
}

// handleEvent dispatches one data channel message.
func (s *Session) handleEvent(data []byte) {
	ev, err := parseServerEvent(data)
	if err != nil {
		s.logger.Warn("unparseable event", "error", err)
		return
	}

	s.eventsReceived.Add(1)
	s.emitEvent(ev)

	switch ev.Type {
	case "session.created":
		s.mu.Lock()
		s.sessionReady = true
		s.mu.Unlock()
		s.logger.Info("session created")

	case "session.updated":
		s.logger.Debug("session updated")

	case "input_audio_buffer.speech_started":
		s.logger.Debug("speech started")
		s.emitSpeechStarted()

	case "input_audio_buffer.speech_stopped":
		s.logger.Debug("speech stopped")
		s.emitSpeechStopped()

	case "conversation.item.input_audio_transcription.completed":
		s.emitTranscript(RoleUser, ev.Transcript, true)

	case "response.output_audio_transcript.delta", "response.audio_transcript.delta":
		s.emitTranscript(RoleAgent, ev.Delta, false)

	case "response.output_audio_transcript.done", "response.audio_transcript.done":
		s.emitTranscript(RoleAgent, ev.Transcript, true)

	case "response.function_call_arguments.done":
		s.handleFunctionCall(ev)

	case "response.done":
		s.logger.Debug("response done")

	case "error":
		if ev.Error != nil {
			s.emitError(NewAPIError(0, ev.Error.Code, ev.Error.Message))
		}
	}
}

// handleFunctionCall runs the matching tool and returns its output.
func (s *Session) handleFunctionCall(ev ServerEvent) {
	args := make(map[string]any)
	if ev.Arguments != "" {
		if err := json.Unmarshal([]byte(ev.Arguments), &args); err != nil {
			s.logger.Warn("bad tool arguments", "name", ev.Name, "error", err)
		}
	}

	call := ToolCall{ID: ev.CallID, Name: ev.Name, Args: args}
	s.toolCalls.Add(1)
	s.logger.Info("tool call", "name", call.Name, "call_id", call.ID)
	s.emitToolCall(call)

	s.mu.RLock()
	tool, ok := s.toolsMap[call.Name]
	s.mu.RUnlock()

	var result string
	if ok && tool.Handler != nil {
		var err error
		result, err = tool.Handler(call.Args)
		if err != nil {
			s.logger.Error("tool failed", "name", call.Name, "error", err)
			result = fmt.Sprintf("Error: %v", err)
		}
	} else {
		result = fmt.Sprintf("Unknown function: %s", call.Name)
	}

	if err := s.SubmitToolResult(call.ID, result); err != nil {
		s.emitError(err)
	}
}

// pumpRemoteAudio decodes the agent's opus track to PCM16 callbacks.
func (s *Session) pumpRemoteAudio(track *webrtc.TrackRemote) {
	dec, err := newSpeakerDecoder()
	if err != nil {
		s.emitError(err)
		return
	}

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		payload := opusPayload(pkt)
		if payload == nil {
			continue
		}

		pcm, err := dec.decode(payload)
		if err != nil {
			s.logger.Debug("opus decode failed", "error", err)
			continue
		}
		s.emitAudioOut(pcm)
	}
}

// Callback setters

// OnAudioOut sets the agent speech callback.
func (s *Session) OnAudioOut(fn func(pcm []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAudioOut = fn
}

// OnTranscript sets the transcript callback.
func (s *Session) OnTranscript(fn func(role, text string, isFinal bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTranscript = fn
}

// OnToolCall sets the tool call callback. The session still runs the
// registered handler; this is for observers.
func (s *Session) OnToolCall(fn func(call ToolCall)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onToolCall = fn
}

// OnSpeechStarted sets the callback for the user starting to speak.
func (s *Session) OnSpeechStarted(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSpeechStarted = fn
}

// OnSpeechStopped sets the callback for the user going quiet.
func (s *Session) OnSpeechStopped(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSpeechStopped = fn
}

// OnError sets the error callback.
func (s *Session) OnError(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// OnEvent sets the raw event observer.
func (s *Session) OnEvent(fn func(ev ServerEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = fn
}

// Emit helpers

func (s *Session) emitAudioOut(pcm []byte) {
	s.mu.RLock()
	fn := s.onAudioOut
	s.mu.RUnlock()
	if fn != nil {
		fn(pcm)
	}
}

func (s *Session) emitTranscript(role, text string, isFinal bool) {
	s.mu.RLock()
	fn := s.onTranscript
	s.mu.RUnlock()
	if fn != nil {
		fn(role, text, isFinal)
	}
}

func (s *Session) emitToolCall(call ToolCall) {
	s.mu.RLock()
	fn := s.onToolCall
	s.mu.RUnlock()
	if fn != nil {
		fn(call)
	}
}

func (s *Session) emitSpeechStarted() {
	s.mu.RLock()
	fn := s.onSpeechStarted
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) emitSpeechStopped() {
	s.mu.RLock()
	fn := s.onSpeechStopped
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) emitError(err error) {
	s.mu.RLock()
	fn := s.onError
	s.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

func (s *Session) emitEvent(ev ServerEvent) {
	s.mu.RLock()
	fn := s.onEvent
	s.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// Ensure Session implements Agent.
var _ Agent = (*Session)(nil)
