package session

import (
	"encoding/json"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		token, user string
		wantErr     error
		wantCorrupt bool
		wantID      ID
	}{
		{name: "no token", user: `{"id":1,"role":"admin"}`, wantErr: ErrAbsent},
		{name: "no user", token: "t", wantErr: ErrAbsent},
		{name: "invalid json", token: "t", user: "{", wantCorrupt: true},
		{name: "wrong id type", token: "t", user: `{"id":{},"role":"admin"}`, wantCorrupt: true},
		{name: "missing role", token: "t", user: `{"id":1}`, wantID: "1"},
		{name: "not an object", token: "t", user: `[1]`, wantCorrupt: true},
		{name: "numeric id", token: "t", user: `{"id":12,"name":"A","role":"admin"}`, wantID: "12"},
		{name: "string id", token: "t", user: `{"id":"65a1","name":"A","role":"teacher"}`, wantID: "65a1"},
		{name: "unknown role kept", token: "t", user: `{"id":3,"role":"moderator"}`, wantID: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.token, tt.user)
			switch {
			case tt.wantCorrupt:
				if !IsCorrupt(err) {
					t.Errorf("Decode() error = %v, want CorruptError", err)
				}
			case err != tt.wantErr:
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			case err == nil && p.User.ID != tt.wantID:
				t.Errorf("Decode() id = %q, want %q", p.User.ID, tt.wantID)
			}
		})
	}
}

func TestID_MarshalJSON(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{id: "12", want: `12`},
		{id: "-4", want: `-4`},
		{id: "007", want: `"007"`},
		{id: "65a1", want: `"65a1"`},
		{id: "", want: `""`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.id)
		if err != nil {
			t.Fatalf("Marshal(%q) error = %v", tt.id, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%q) = %s, want %s", tt.id, got, tt.want)
		}
	}
}
