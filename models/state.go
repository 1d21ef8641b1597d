package models

// ConversationState tracks one chat's position inside a tenant flow. It is
// created lazily on the first message from a chat and lives in process memory
// for the process lifetime.
type ConversationState struct {
	Stage   string
	Context map[string]any
	Stack   []string
}

// NewConversationState returns a state positioned at the given initial stage.
func NewConversationState(initial string) *ConversationState {
	return &ConversationState{Stage: initial, Context: map[string]any{}}
}

// Push records the current stage for "back" navigation and moves to next.
// Pushing the stage the conversation is already in is a no-op, so a re-fired
// trigger never stacks its own stage and "voltar" keeps pointing at the real
// previous step.
func (s *ConversationState) Push(next string) {
	if next == s.Stage {
		return
	}
	s.Stack = append(s.Stack, s.Stage)
	s.Stage = next
}

// Goto moves to next without touching the navigation stack.
func (s *ConversationState) Goto(next string) {
	s.Stage = next
}

// Back pops one frame off the stack. It reports false when the stack is empty.
func (s *ConversationState) Back() bool {
	if len(s.Stack) == 0 {
		return false
	}
	s.Stage = s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return true
}

// Reset returns to the initial stage and clears context and stack.
func (s *ConversationState) Reset(initial string) {
	s.Stage = initial
	s.Context = map[string]any{}
	s.Stack = nil
}
