package dialog

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pithecene-io/plandesk/types"
)

func user(s string) types.Turn  { return types.Turn{Speaker: types.SpeakerUser, Text: s} }
func agent(s string) types.Turn { return types.Turn{Speaker: types.SpeakerAgent, Text: s} }

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []types.Turn
	}{
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "bracketed markers with continuation",
			raw:  "[USER]: hi\n[ASSISTANT]: hello\nworld",
			want: []types.Turn{user("hi"), agent("hello\nworld")},
		},
		{
			name: "bare lowercase marker",
			raw:  "user: a",
			want: []types.Turn{user("a")},
		},
		{
			name: "bracketed marker without colon",
			raw:  "[USER] a",
			want: []types.Turn{user("a")},
		},
		{
			name: "mixed case assistant",
			raw:  "Assistant: ok",
			want: []types.Turn{agent("ok")},
		},
		{
			name: "leading unattributed lines dropped",
			raw:  "preamble\nmore preamble\n[USER]: question",
			want: []types.Turn{user("question")},
		},
		{
			name: "whitespace-only turn dropped",
			raw:  "[USER]:   \n  \n[ASSISTANT]: answer",
			want: []types.Turn{agent("answer")},
		},
		{
			name: "crlf line endings",
			raw:  "[USER]: one\r\n[ASSISTANT]: two\r\nthree\r\n",
			want: []types.Turn{user("one"), agent("two\nthree")},
		},
		{
			name: "marker line with empty remainder seeds next lines",
			raw:  "[ASSISTANT]:\nline one\n  indented\n",
			want: []types.Turn{agent("line one\n  indented")},
		},
		{
			name: "interior blank lines kept",
			raw:  "[ASSISTANT]: a\n\nb",
			want: []types.Turn{agent("a\n\nb")},
		},
		{
			name: "no markers at all",
			raw:  "just text\nwith lines",
			want: nil,
		},
		{
			name: "consecutive same speaker turns stay separate",
			raw:  "USER: a\nUSER: b",
			want: []types.Turn{user("a"), user("b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	turns := Parse("[USER]: Plan my retirement\n[ASSISTANT]: Here is your plan\n- save more\n- spend less")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}

	for _, turn := range turns {
		raw := Marker(turn.Speaker) + " " + strings.Join(strings.Split(turn.Text, "\n"), "\n")
		again := Parse(raw)
		if len(again) != 1 || again[0] != turn {
			t.Errorf("round trip of %#v produced %#v", turn, again)
		}
	}

	if got := Parse(Format(turns)); !reflect.DeepEqual(got, turns) {
		t.Errorf("Parse(Format(turns)) = %#v, want %#v", got, turns)
	}
}

func TestParse_Deterministic(t *testing.T) {
	raw := "junk\n[USER]: x\n[assistant] y\nz"
	first := Parse(raw)
	for range 5 {
		if got := Parse(raw); !reflect.DeepEqual(got, first) {
			t.Fatalf("Parse not deterministic: %#v vs %#v", got, first)
		}
	}
}
