package voice

import (
	"context"
	"sync"
)

// Mock is a mock implementation of Agent for testing.
type Mock struct {
	mu sync.RWMutex

	// State
	connected bool
	tools     []Tool

	// Callbacks
	onAudioOut      func(pcm []byte)
	onTranscript    func(role, text string, isFinal bool)
	onToolCall      func(call ToolCall)
	onSpeechStarted func()
	onSpeechStopped func()
	onError         func(err error)
	onEvent         func(ev ServerEvent)

	// Configurable behavior
	ConnectFunc          func(ctx context.Context) error
	CloseFunc            func() error
	SendAudioFunc        func(pcm []byte) error
	SendUserTextFunc     func(text string) error
	SendSceneContextFunc func(description string) error
	SubmitToolResultFunc func(callID, result string) error
	InterruptFunc        func() error

	// Captured calls for assertions
	AudioSent       [][]byte
	TextsSent       []string
	ScenesSent      []string
	ToolResults     map[string]string
	InterruptCalled bool
}

// NewMock creates a new Mock agent.
func NewMock() *Mock {
	return &Mock{
		ToolResults: make(map[string]string),
	}
}

// Connect implements Agent.
func (m *Mock) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

// Close implements Agent.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected implements Agent.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// RegisterTool implements Agent.
func (m *Mock) RegisterTool(tool Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = append(m.tools, tool)
}

// SendAudio implements Agent.
func (m *Mock) SendAudio(pcm []byte) error {
	if m.SendAudioFunc != nil {
		return m.SendAudioFunc(pcm)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.AudioSent = append(m.AudioSent, pcm)
	return nil
}

// SendUserText implements Agent.
func (m *Mock) SendUserText(text string) error {
	if m.SendUserTextFunc != nil {
		return m.SendUserTextFunc(text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.TextsSent = append(m.TextsSent, text)
	return nil
}

// SendSceneContext implements Agent.
func (m *Mock) SendSceneContext(description string) error {
	if m.SendSceneContextFunc != nil {
		return m.SendSceneContextFunc(description)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.ScenesSent = append(m.ScenesSent, description)
	return nil
}

// SubmitToolResult implements Agent.
func (m *Mock) SubmitToolResult(callID, result string) error {
	if m.SubmitToolResultFunc != nil {
		return m.SubmitToolResultFunc(callID, result)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.ToolResults[callID] = result
	return nil
}

// Interrupt implements Agent.
func (m *Mock) Interrupt() error {
	if m.InterruptFunc != nil {
		return m.InterruptFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.InterruptCalled = true
	return nil
}

// OnAudioOut implements Agent.
func (m *Mock) OnAudioOut(fn func(pcm []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAudioOut = fn
}

// OnTranscript implements Agent.
func (m *Mock) OnTranscript(fn func(role, text string, isFinal bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTranscript = fn
}

// OnToolCall implements Agent.
func (m *Mock) OnToolCall(fn func(call ToolCall)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onToolCall = fn
}

// OnSpeechStarted implements Agent.
func (m *Mock) OnSpeechStarted(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSpeechStarted = fn
}

// OnSpeechStopped implements Agent.
func (m *Mock) OnSpeechStopped(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSpeechStopped = fn
}

// OnError implements Agent.
func (m *Mock) OnError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// OnEvent implements Agent.
func (m *Mock) OnEvent(fn func(ev ServerEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = fn
}

// Test helpers

// SimulateAudioOut triggers the OnAudioOut callback.
func (m *Mock) SimulateAudioOut(pcm []byte) {
	m.mu.RLock()
	fn := m.onAudioOut
	m.mu.RUnlock()
	if fn != nil {
		fn(pcm)
	}
}

// SimulateTranscript triggers the OnTranscript callback.
func (m *Mock) SimulateTranscript(role, text string, isFinal bool) {
	m.mu.RLock()
	fn := m.onTranscript
	m.mu.RUnlock()
	if fn != nil {
		fn(role, text, isFinal)
	}
}

// SimulateToolCall triggers the OnToolCall callback, then runs the
// matching registered tool the way a live session would, recording
// the output in ToolResults.
func (m *Mock) SimulateToolCall(call ToolCall) {
	m.mu.RLock()
	fn := m.onToolCall
	tools := m.tools
	m.mu.RUnlock()

	if fn != nil {
		fn(call)
	}

	for _, tool := range tools {
		if tool.Name != call.Name || tool.Handler == nil {
			continue
		}
		result, err := tool.Handler(call.Args)
		if err != nil {
			result = "Error: " + err.Error()
		}
		m.mu.Lock()
		m.ToolResults[call.ID] = result
		m.mu.Unlock()
		return
	}
}

// SimulateSpeechStarted triggers the OnSpeechStarted callback.
func (m *Mock) SimulateSpeechStarted() {
	m.mu.RLock()
	fn := m.onSpeechStarted
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateSpeechStopped triggers the OnSpeechStopped callback.
func (m *Mock) SimulateSpeechStopped() {
	m.mu.RLock()
	fn := m.onSpeechStopped
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateError triggers the OnError callback.
func (m *Mock) SimulateError(err error) {
	m.mu.RLock()
	fn := m.onError
	m.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// SimulateEvent triggers the OnEvent callback.
func (m *Mock) SimulateEvent(ev ServerEvent) {
	m.mu.RLock()
	fn := m.onEvent
	m.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// Tools returns the registered tools.
func (m *Mock) Tools() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Tool{}, m.tools...)
}

// Reset clears all captured data.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioSent = nil
	m.TextsSent = nil
	m.ScenesSent = nil
	m.ToolResults = make(map[string]string)
	m.InterruptCalled = false
	m.tools = nil
}

// Ensure Mock implements Agent.
var _ Agent = (*Mock)(nil)
