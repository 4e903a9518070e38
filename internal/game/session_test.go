package game

import "testing"

func TestApplyDelta(t *testing.T) {
	secret := "apple"

	tests := []struct {
		name    string
		initial *string
		delta   Delta
		want    string
	}{
		{"set on empty", nil, Delta{SetSecret: &secret}, "apple"},
		{"clear", &secret, Delta{ClearSecret: true}, ""},
		{"noop leaves unchanged", &secret, Delta{}, "apple"},
		{"clear wins over set", &secret, Delta{SetSecret: &secret, ClearSecret: true}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ID: "s1"}
			if tt.initial != nil {
				v := *tt.initial
				s.SecretAnswer = &v
			}
			s.ApplyDelta(tt.delta)
			if s.Secret() != tt.want {
				t.Errorf("Secret() = %q, want %q", s.Secret(), tt.want)
			}
		})
	}
}

func TestRoundActive(t *testing.T) {
	s := &Session{}
	if s.RoundActive() {
		t.Error("empty session should have no active round")
	}
	empty := ""
	s.SecretAnswer = &empty
	if s.RoundActive() {
		t.Error("empty-string secret should not count as active")
	}
	secret := "apple"
	s.SecretAnswer = &secret
	if !s.RoundActive() {
		t.Error("round should be active")
	}
}

func TestAssistantText(t *testing.T) {
	tests := []struct {
		name   string
		msg    Message
		want   string
		wantOK bool
	}{
		{
			"assistant content",
			Message{Role: RoleAssistant, Content: "hello"},
			"hello", true,
		},
		{
			"empty assistant",
			Message{Role: RoleAssistant},
			"", false,
		},
		{
			"tool result first reply",
			Message{Role: RoleTool, Action: "general_chat", Result: &Result{
				Replies: []Message{{Role: RoleAssistant, Content: "from tool"}},
			}},
			"from tool", true,
		},
		{
			"tool result no replies",
			Message{Role: RoleTool, Result: &Result{}},
			"", false,
		},
		{
			"user message never surfaces",
			Message{Role: RoleUser, Content: "hi"},
			"", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AssistantText(tt.msg)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("AssistantText = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCopy_DeepCopies(t *testing.T) {
	secret := "apple"
	s := &Session{
		ID:           "s1",
		SecretAnswer: &secret,
		Log:          []Message{{Role: RoleUser, Content: "hi"}},
	}

	cp := s.Copy()
	cp.Log[0].Content = "changed"
	*cp.SecretAnswer = "banana"

	if s.Log[0].Content != "hi" {
		t.Error("Copy shares log backing array")
	}
	if *s.SecretAnswer != "apple" {
		t.Error("Copy shares secret pointer")
	}
}
